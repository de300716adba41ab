// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package xmldoc

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const memberXML = `<?xml version='1.0' encoding='UTF-8' standalone='no'?>
<doxygen version="1.8.20">
  <compounddef id="example__driver_8c" kind="file">
    <memberdef kind="variable" id="m1">
      <type>const struct file_operations</type>
      <name>wdt_fops</name>
      <initializer>= {
    .write = <ref refid="R0" kindref="member">fop_write</ref>,
    .unlocked_ioctl = <ref refid="R1" kindref="member">fop_ioctl</ref>,
}</initializer>
      <location file="drivers/wdt.c" line="234"/>
    </memberdef>
  </compounddef>
</doxygen>
`

func writeFixture(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr error
	}{
		{name: "well-formed document", content: memberXML},
		{name: "empty file", content: "", wantErr: ErrMalformed},
		{name: "truncated file", content: memberXML[:len(memberXML)/2], wantErr: ErrMalformed},
		{name: "mismatched end tag", content: "<a><b></a></b>", wantErr: ErrMalformed},
		{name: "not xml", content: "this is not xml <<<", wantErr: ErrMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFixture(t, "doc.xml", tt.content)
			doc, err := Load(path)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, doc)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, path, doc.Path)
			assert.Equal(t, "doxygen", doc.Root().Tag())
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.xml"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrMalformed)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_EmptyPath(t *testing.T) {
	_, err := Load("")
	assert.ErrorIs(t, err, ErrPrecondition)
}

func memberdef(t *testing.T) *Node {
	t.Helper()
	doc, err := Parse([]byte(memberXML))
	require.NoError(t, err)
	nodes := doc.Nodes("memberdef")
	require.Len(t, nodes, 1)
	return nodes[0]
}

func TestNodeAccessors(t *testing.T) {
	n := memberdef(t)

	kind, ok := n.Attr("kind")
	assert.True(t, ok)
	assert.Equal(t, "variable", kind)

	_, ok = n.Attr("nope")
	assert.False(t, ok)

	var tags []string
	for _, c := range n.Children() {
		tags = append(tags, c.Tag())
	}
	assert.Equal(t, []string{"type", "name", "initializer", "location"}, tags)

	name := n.Child("name")
	require.NotNil(t, name)
	text, ok := name.Text()
	assert.True(t, ok)
	assert.Equal(t, "wdt_fops", text)

	assert.Nil(t, n.Child("briefdescription"))
	assert.Len(t, n.Descendants("ref"), 2)
	assert.Len(t, n.Descendants("memberdef"), 1, "self is included")
}

func TestText_Absent(t *testing.T) {
	doc, err := Parse([]byte(`<root><type/><type><ref>x</ref>tail</type></root>`))
	require.NoError(t, err)

	for _, n := range doc.Nodes("type") {
		_, ok := n.Text()
		assert.False(t, ok)
	}
}

func TestFlatText(t *testing.T) {
	init := memberdef(t).Child("initializer")
	require.NotNil(t, init)

	flat := init.FlatText()
	assert.Contains(t, flat, ".unlocked_ioctl = fop_ioctl,")
	assert.NotContains(t, flat, "refid")
}

func TestInnerMarkup(t *testing.T) {
	init := memberdef(t).Child("initializer")
	require.NotNil(t, init)

	markup := init.InnerMarkup()
	assert.True(t, strings.HasPrefix(markup, "= {\n"))
	assert.Contains(t, markup, `.unlocked_ioctl = <ref refid="R1" kindref="member">fop_ioctl</ref>,`)
	assert.Len(t, strings.Split(markup, "\n"), 4, "line boundaries survive re-serialization")
}

func TestInnerMarkup_EscapesTrailingText(t *testing.T) {
	doc, err := Parse([]byte(`<h>#include<sp/>&lt;linux/fs.h&gt;</h>`))
	require.NoError(t, err)

	assert.Equal(t, "#include<sp/>&lt;linux/fs.h&gt;", doc.Root().InnerMarkup())
	assert.Equal(t, "#include<linux/fs.h>", doc.Root().FlatText())
}
