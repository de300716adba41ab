// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package fops

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petar-djukic/skid/internal/xmldoc"
	"github.com/petar-djukic/skid/pkg/types"
)

const wdtMember = `<memberdef kind="variable" id="example__driver_8c_1af86896cad0da8791f61f01fdd0fc5205" prot="public" static="yes" mutable="no">
        <type>const struct file_operations</type>
        <definition>const struct file_operations wdt_fops</definition>
        <argsstring></argsstring>
        <name>wdt_fops</name>
        <initializer>= {
        .owner		=	THIS_MODULE,
        .llseek		=	no_llseek,
        .write		=	<ref refid="example__driver_8c_1a82ddd0af9227ef2d8eeb5b4db05feeef" kindref="member">fop_write</ref>,
        .open		=	<ref refid="example__driver_8c_1a0dc447c4c34dceb9ff45f072ba0febe1" kindref="member">fop_open</ref>,
        .release	=	<ref refid="example__driver_8c_1ad1a4c53e7240d7dfe8efa5066a834289" kindref="member">fop_close</ref>,
        .unlocked_ioctl	=	<ref refid="example__driver_8c_1a243d17718e8710d65139b4ac93320c5a" kindref="member">fop_ioctl</ref>,
        .compat_ioctl	= 	compat_ptr_ioctl,
}</initializer>
        <briefdescription>
        </briefdescription>
        <location file="tests/resources/example_driver.c" line="234" column="13" bodyfile="tests/resources/example_driver.c" bodystart="290" bodyend="-1"/>
      </memberdef>`

const docTemplate = `<?xml version='1.0' encoding='UTF-8' standalone='no'?>
<doxygen xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance" xsi:noNamespaceSchemaLocation="compound.xsd" version="1.8.20" xml:lang="en-US">
  <compounddef id="example__driver_8c" kind="file" language="C++">
    <compoundname>example_driver.c</compoundname>
    <sectiondef kind="var">
      %s
    </sectiondef>
  </compounddef>
</doxygen>
`

var wdtRecords = []types.OperationRecord{
	{
		FilePath:         "tests/resources/example_driver.c",
		StructName:       "wdt_fops",
		StructLineNumber: 234,
		FopType:          "unlocked_ioctl",
		Function:         "fop_ioctl",
		RefID:            "example__driver_8c_1a243d17718e8710d65139b4ac93320c5a",
	},
	{
		FilePath:         "tests/resources/example_driver.c",
		StructName:       "wdt_fops",
		StructLineNumber: 234,
		FopType:          "compat_ioctl",
		Function:         "compat_ptr_ioctl",
		RefID:            "",
	},
}

func document(members ...string) string {
	return strings.Replace(docTemplate, "%s", strings.Join(members, "\n      "), 1)
}

func writeFixture(t *testing.T, root, rel, content string) string {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func parseMember(t *testing.T, member string) *xmldoc.Node {
	t.Helper()
	doc, err := xmldoc.Parse([]byte(document(member)))
	require.NoError(t, err)
	nodes := doc.Nodes("memberdef")
	require.Len(t, nodes, 1)
	return nodes[0]
}

// --- classification ---

func TestIsOperationTable(t *testing.T) {
	tests := []struct {
		name   string
		member string
		want   bool
	}{
		{"valid", wdtMember, true},
		{"bad kind", strings.Replace(wdtMember, `kind="variable"`, `kind="a"`, 1), false},
		{"missing kind", strings.Replace(wdtMember, `kind="variable" `, "", 1), false},
		{"empty type", strings.Replace(wdtMember, "<type>const struct file_operations</type>", "<type></type>", 1), false},
		{"upper case type", strings.Replace(wdtMember, "const struct file_operations</type>", "FILE_OPERATIONS</type>", 1), false},
		{"no type child", strings.Replace(wdtMember, "<type>const struct file_operations</type>", "", 1), false},
		{"no initializer child", strings.NewReplacer("<initializer>", "<a>", "</initializer>", "</a>").Replace(wdtMember), false},
		{
			"nested type without file_operations",
			strings.Replace(wdtMember, "<argsstring></argsstring>", "<param><type>int</type></param>", 1),
			false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := IsOperationTable(parseMember(t, tc.member))
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestIsOperationTable_NilNode(t *testing.T) {
	_, err := IsOperationTable(nil)
	assert.ErrorIs(t, err, xmldoc.ErrPrecondition)
}

// --- mining ---

func TestMineStruct(t *testing.T) {
	got, err := MineStruct(parseMember(t, wdtMember))
	require.NoError(t, err)
	if diff := cmp.Diff(wdtRecords, got); diff != "" {
		t.Errorf("MineStruct mismatch (-want +got):\n%s", diff)
	}
}

func TestMineStruct_NoInitializer(t *testing.T) {
	member := strings.NewReplacer("<initializer>", "<a>", "</initializer>", "</a>").Replace(wdtMember)
	got, err := MineStruct(parseMember(t, member))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMineStruct_IncompleteMember(t *testing.T) {
	tests := []struct {
		name   string
		member string
	}{
		{"no location", strings.Replace(wdtMember, "<location", "<elsewhere", 1)},
		{"bad line", strings.Replace(wdtMember, `line="234"`, `line="abc"`, 1)},
		{"no name", strings.Replace(wdtMember, "<name>wdt_fops</name>", "", 1)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := MineStruct(parseMember(t, tc.member))
			assert.ErrorIs(t, err, ErrIncompleteMember)
		})
	}
}

func TestMineStruct_NilNode(t *testing.T) {
	_, err := MineStruct(nil)
	assert.ErrorIs(t, err, xmldoc.ErrPrecondition)
}

func TestMineStruct_FieldTokenMustMatchExactly(t *testing.T) {
	member := strings.Replace(wdtMember, ".compat_ioctl\t", ".compat_ioctl_x\t", 1)
	got, err := MineStruct(parseMember(t, member))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "unlocked_ioctl", got[0].FopType)
}

// withInitializer swaps the body of the wdt_fops initializer.
func withInitializer(body string) string {
	start := strings.Index(wdtMember, "<initializer>") + len("<initializer>")
	end := strings.Index(wdtMember, "</initializer>")
	return wdtMember[:start] + body + wdtMember[end:]
}

func TestMineStruct_FieldNotFirstOnLine(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []types.OperationRecord
	}{
		{
			name: "one-line initializer",
			body: `= { .unlocked_ioctl = <ref refid="R1" kindref="member">foo_ioctl</ref>, .owner = THIS_MODULE }`,
			want: []types.OperationRecord{{FopType: "unlocked_ioctl", Function: "foo_ioctl", RefID: "R1"}},
		},
		{
			name: "nested brace",
			body: "= {\n\t{ .unlocked_ioctl = bar_ioctl, },\n}",
			want: []types.OperationRecord{{FopType: "unlocked_ioctl", Function: "bar_ioctl"}},
		},
		{
			name: "bare symbol after other field",
			body: "= { .owner = THIS_MODULE, .compat_ioctl = compat_ptr_ioctl }",
			want: []types.OperationRecord{{FopType: "compat_ioctl", Function: "compat_ptr_ioctl"}},
		},
		{
			name: "ref after other ref",
			body: `= { .open = <ref refid="O1" kindref="member">fop_open</ref>, .unlocked_ioctl = <ref refid="R1" kindref="member">fop_ioctl</ref>, }`,
			want: []types.OperationRecord{{FopType: "unlocked_ioctl", Function: "fop_ioctl", RefID: "R1"}},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := MineStruct(parseMember(t, withInitializer(tc.body)))
			require.NoError(t, err)
			for i := range tc.want {
				tc.want[i].FilePath = "tests/resources/example_driver.c"
				tc.want[i].StructName = "wdt_fops"
				tc.want[i].StructLineNumber = 234
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("MineStruct mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMineStruct_MalformedRefYieldsEmptyFunction(t *testing.T) {
	member := strings.Replace(wdtMember,
		`<ref refid="example__driver_8c_1a243d17718e8710d65139b4ac93320c5a" kindref="member">fop_ioctl</ref>`,
		`refid="broken"&gt; fop_ioctl`, 1)
	got, err := MineStruct(parseMember(t, member))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "broken", got[0].RefID)
	assert.Empty(t, got[0].Function)
}

func TestInitializerText(t *testing.T) {
	node := parseMember(t, wdtMember)

	markup := InitializerText(node, false)
	assert.Contains(t, markup,
		`<ref refid="example__driver_8c_1a243d17718e8710d65139b4ac93320c5a" kindref="member">fop_ioctl</ref>,`)
	assert.True(t, strings.HasPrefix(markup, "= {"))

	stripped := InitializerText(node, true)
	assert.NotContains(t, stripped, "<ref")
	want := strings.Fields(`= {
	.owner = THIS_MODULE,
	.llseek = no_llseek,
	.write = fop_write,
	.open = fop_open,
	.release = fop_close,
	.unlocked_ioctl = fop_ioctl,
	.compat_ioctl = compat_ptr_ioctl,
}`)
	assert.Equal(t, want, strings.Fields(stripped))
}

// --- line parsers ---

const refLine = `.unlocked_ioctl = <ref xmlns:xsi="" refid="at91rm9200__wdt_8c_1a0f82b8fa55a637eab5b42397bb13ae6c" kindref="member">at91_wdt_ioctl</ref>,`

func TestParseRefID(t *testing.T) {
	tests := []struct {
		name string
		line string
		want string
	}{
		{"valid", refLine, "at91rm9200__wdt_8c_1a0f82b8fa55a637eab5b42397bb13ae6c"},
		{"no kindref", `.unlocked_ioctl = <ref xmlns:xsi="" refid="at91rm9200__wdt_8c_1a0f82b8fa55a637eab5b42397bb13ae6c"> at91_wdt_ioctl</ref>,`, "at91rm9200__wdt_8c_1a0f82b8fa55a637eab5b42397bb13ae6c"},
		{"field named refid", `.refid= <ref xmlns:xsi="" refid="at91rm9200__wdt_8c_1a0f82b8fa55a637eab5b42397bb13ae6c"> refid</ref>,`, "at91rm9200__wdt_8c_1a0f82b8fa55a637eab5b42397bb13ae6c"},
		{"attribute without value", `.refid= <ref xmlns:xsi="" refid</ref>,`, ""},
		{"empty line", "", ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ParseRefID(tc.line))
		})
	}
}

func TestParseFunctionName(t *testing.T) {
	tests := []struct {
		name string
		line string
		want string
	}{
		{"valid", refLine, "at91_wdt_ioctl"},
		{"leading space", `.unlocked_ioctl = <ref refid="x"> at91_wdt_ioctl</ref>,`, "at91_wdt_ioctl"},
		{"empty ref", `.unlocked_ioctl = <ref xmlns:xsi="" refid="x" kindref="member"></ref>`, ""},
		{"unclosed ref", `.unlocked_ioctl = <ref refid="x">at91_wdt_ioctl,`, ""},
		{"empty line", "", ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ParseFunctionName(tc.line))
		})
	}
}

func TestParseFieldName(t *testing.T) {
	tests := []struct {
		name   string
		line   string
		want   types.FieldName
		wantOK bool
	}{
		{"valid", refLine, types.FieldUnlockedIoctl, true},
		{"leading spaces", "     .unlocked_ioctl     = " + strings.TrimPrefix(refLine, ".unlocked_ioctl = "), types.FieldUnlockedIoctl, true},
		{"no space before equals", ".unlocked_ioctl= x,", types.FieldUnlockedIoctl, true},
		{"glued to value", ".compat_ioctl=compat_ptr_ioctl,", types.FieldCompatIoctl, true},
		{"after opening brace", "= { .unlocked_ioctl = foo_ioctl, .owner = THIS_MODULE }", types.FieldUnlockedIoctl, true},
		{"nested brace", "\t{ .unlocked_ioctl = bar_ioctl, },", types.FieldUnlockedIoctl, true},
		{"after other field", ".owner = THIS_MODULE, .compat_ioctl = compat_ptr_ioctl,", types.FieldCompatIoctl, true},
		{"longer field", ".compat_ioctl_x = y,", "", false},
		{"unrecognized field", ".open = fop_open,", "", false},
		{"no field", `= <ref refid="x" kindref="member"></ref>`, "", false},
		{"empty line", "", "", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ParseFieldName(tc.line)
			assert.Equal(t, tc.wantOK, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestFieldClause(t *testing.T) {
	tests := []struct {
		name string
		line string
		want string
	}{
		{"whole assignment", ".compat_ioctl = compat_ptr_ioctl,", ".compat_ioctl = compat_ptr_ioctl"},
		{"starts at field", "= { .unlocked_ioctl = foo_ioctl, .owner = THIS_MODULE }", ".unlocked_ioctl = foo_ioctl"},
		{"skips earlier fields", `.open = <ref refid="O1" kindref="member">fop_open</ref>, .unlocked_ioctl = <ref refid="R1" kindref="member">fop_ioctl</ref>,`, `.unlocked_ioctl = <ref refid="R1" kindref="member">fop_ioctl</ref>`},
		{"no trailing comma", ".compat_ioctl = compat_ptr_ioctl", ".compat_ioctl = compat_ptr_ioctl"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, clause, ok := fieldClause(tc.line)
			require.True(t, ok)
			assert.Equal(t, tc.want, clause)
		})
	}
}

func TestParseBareSymbol(t *testing.T) {
	tests := []struct {
		name string
		line string
		want string
	}{
		{"simple", ".compat_ioctl = compat_ptr_ioctl,", "compat_ptr_ioctl"},
		{"tabs", ".compat_ioctl\t= \tcompat_ptr_ioctl,", "compat_ptr_ioctl"},
		{"no trailing comma", ".compat_ioctl = compat_ptr_ioctl", "compat_ptr_ioctl"},
		{"comment wins lexicographically", ".unlocked_ioctl = my_ioctl /* zz */,", "zz"},
		{"no equals", ".compat_ioctl compat_ptr_ioctl", ""},
		{"nothing assigned", ".compat_ioctl = ,", ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ParseBareSymbol(tc.line))
		})
	}
}

func TestParseLine(t *testing.T) {
	got := parseLine(refLine, types.FieldUnlockedIoctl, "test", "wdt_fops", 1)
	assert.Equal(t, types.OperationRecord{
		FilePath:         "test",
		StructName:       "wdt_fops",
		StructLineNumber: 1,
		FopType:          "unlocked_ioctl",
		Function:         "at91_wdt_ioctl",
		RefID:            "at91rm9200__wdt_8c_1a0f82b8fa55a637eab5b42397bb13ae6c",
	}, got)

	bare := parseLine(".compat_ioctl = compat_ptr_ioctl,", types.FieldCompatIoctl, "test", "wdt_fops", 1)
	assert.Equal(t, "compat_ioctl", bare.FopType)
	assert.Equal(t, "compat_ptr_ioctl", bare.Function)
	assert.Empty(t, bare.RefID)
}

// --- batch ---

var sortRecords = cmpopts.SortSlices(func(a, b types.OperationRecord) bool {
	if a.FopType != b.FopType {
		return a.FopType < b.FopType
	}
	return a.FilePath < b.FilePath
})

func TestFindInFile(t *testing.T) {
	path := writeFixture(t, t.TempDir(), "example__driver_8c.xml", document(wdtMember))
	if diff := cmp.Diff(wdtRecords, FindInFile(path)); diff != "" {
		t.Errorf("FindInFile mismatch (-want +got):\n%s", diff)
	}
}

func TestFindInFile_Malformed(t *testing.T) {
	path := writeFixture(t, t.TempDir(), "broken.xml", "<doxygen><compounddef>")
	assert.Empty(t, FindInFile(path))
}

func TestFindInFile_SkipsNonOperationMembers(t *testing.T) {
	other := `<memberdef kind="function" id="f1"><type>int</type><name>fop_ioctl</name><location file="x.c" line="1"/></memberdef>`
	path := writeFixture(t, t.TempDir(), "mixed.xml", document(other, wdtMember))
	assert.Len(t, FindInFile(path), 2)
}

func TestFind(t *testing.T) {
	root := t.TempDir()
	driver := writeFixture(t, root, "example__driver_8c.xml", document(wdtMember))

	got, err := Find(context.Background(), []string{driver}, Options{Workers: 2})
	require.NoError(t, err)
	if diff := cmp.Diff(wdtRecords, got); diff != "" {
		t.Errorf("Find mismatch (-want +got):\n%s", diff)
	}
}

func TestFind_DuplicatedInputDoublesRecords(t *testing.T) {
	driver := writeFixture(t, t.TempDir(), "example__driver_8c.xml", document(wdtMember))

	got, err := Find(context.Background(), []string{driver, driver}, Options{})
	require.NoError(t, err)

	want := append(append([]types.OperationRecord{}, wdtRecords...), wdtRecords...)
	if diff := cmp.Diff(want, got, sortRecords); diff != "" {
		t.Errorf("Find mismatch (-want +got):\n%s", diff)
	}
}

func TestFind_Idempotent(t *testing.T) {
	root := t.TempDir()
	paths := []string{
		writeFixture(t, root, "a.xml", document(wdtMember)),
		writeFixture(t, root, "b.xml", document(strings.ReplaceAll(wdtMember, "tests/resources/example_driver.c", "drivers/b.c"))),
	}

	first, err := Find(context.Background(), paths, Options{Workers: 2})
	require.NoError(t, err)
	second, err := Find(context.Background(), paths, Options{Workers: 2})
	require.NoError(t, err)

	assert.Len(t, first, 4)
	if diff := cmp.Diff(first, second, sortRecords); diff != "" {
		t.Errorf("repeated Find differs (-first +second):\n%s", diff)
	}
}

func TestFind_NothingFound(t *testing.T) {
	path := writeFixture(t, t.TempDir(), "empty.xml", document(""))
	got, err := Find(context.Background(), []string{path}, Options{})
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestFind_CancelledContext(t *testing.T) {
	root := t.TempDir()
	var paths []string
	for _, name := range []string{"a.xml", "b.xml", "c.xml", "d.xml"} {
		paths = append(paths, writeFixture(t, root, name, document(wdtMember)))
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got, err := Find(ctx, paths, Options{Workers: 1})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, got)
}

func TestFind_EmptyInput(t *testing.T) {
	_, err := Find(context.Background(), nil, Options{})
	assert.ErrorIs(t, err, xmldoc.ErrPrecondition)
}
