// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package doxygen configures and runs doxygen over a driver source tree and
// locates the XML it produces.
package doxygen

import (
	"bytes"
	"embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"

	"github.com/spf13/viper"
)

const (
	DefaultOutputDir  = "/tmp/skid-doxygen"
	DefaultConfigPath = "/tmp/skid-doxyconf"
	DefaultWarnLog    = "/tmp/doxygen.log"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Config maps doxygen option names (upper case) to their rendered values.
type Config map[string]string

// Entry is one KEY = value line of a rendered configuration.
type Entry struct {
	Key   string
	Value string
}

// Entries returns the options sorted by key.
func (c Config) Entries() []Entry {
	entries := make([]Entry, 0, len(c))
	for k, v := range c {
		entries = append(entries, Entry{Key: k, Value: v})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries
}

// DefaultConfig returns the options skid needs: XML with program listings,
// every symbol extracted, no preprocessing, no HTML or LaTeX.
func DefaultConfig(sourceDir, outputDir, warnLog string) Config {
	cfg := Config{
		"PROJECT_NAME":     `"skid"`,
		"OUTPUT_DIRECTORY": quote(outputDir),
		"INPUT":            quote(sourceDir),
		"WARN_LOGFILE":     quote(warnLog),
		"FILE_PATTERNS":    "*.c *.h",
		"RECURSIVE":        "YES",
	}
	for k, v := range fixedDefaults {
		cfg[k] = v
	}
	return cfg
}

func quote(s string) string {
	return `"` + s + `"`
}

// fixedDefaults holds the options that do not depend on the run.
var fixedDefaults = map[string]string{
	"DOXYFILE_ENCODING":       "UTF-8",
	"WARN_FORMAT":             `"$file:$line: $text"`,
	"TAB_SIZE":                "4",
	"TOC_INCLUDE_HEADINGS":    "5",
	"INPUT_ENCODING":          "UTF-8",
	"ALLOW_UNICODE_NAMES":     "YES",
	"OUTPUT_LANGUAGE":         "English",
	"OUTPUT_TEXT_DIRECTION":   "None",
	"BRIEF_MEMBER_DESC":       "NO",
	"REPEAT_BRIEF":            "YES",
	"ALWAYS_DETAILED_SEC":     "YES",
	"INLINE_INHERITED_MEMB":   "YES",
	"FULL_PATH_NAMES":         "YES",
	"SHORT_NAMES":             "NO",
	"INHERIT_DOCS":            "YES",
	"SEPARATE_MEMBER_PAGES":   "NO",
	"OPTIMIZE_OUTPUT_FOR_C":   "YES",
	"OPTIMIZE_OUTPUT_JAVA":    "NO",
	"OPTIMIZE_FOR_FORTRAN":    "NO",
	"OPTIMIZE_OUTPUT_VHDL":    "NO",
	"OPTIMIZE_OUTPUT_SLICE":   "NO",
	"MARKDOWN_SUPPORT":        "YES",
	"AUTOLINK_SUPPORT":        "YES",
	"BUILTIN_STL_SUPPORT":     "NO",
	"CPP_CLI_SUPPORT":         "NO",
	"SIP_SUPPORT":             "NO",
	"IDL_PROPERTY_SUPPORT":    "YES",
	"DISTRIBUTE_GROUP_DOC":    "YES",
	"GROUP_NESTED_COMPOUNDS":  "YES",
	"SUBGROUPING":             "YES",
	"INLINE_GROUPED_CLASSES":  "YES",
	"INLINE_SIMPLE_STRUCTS":   "YES",
	"TYPEDEF_HIDES_STRUCT":    "NO",
	"LOOKUP_CACHE_SIZE":       "0",
	"NUM_PROC_THREADS":        "0",
	"DOT_NUM_THREADS":         "0",
	"EXTRACT_ALL":             "YES",
	"EXTRACT_PRIVATE":         "YES",
	"EXTRACT_PRIV_VIRTUAL":    "YES",
	"EXTRACT_PACKAGE":         "YES",
	"EXTRACT_STATIC":          "YES",
	"EXTRACT_LOCAL_CLASSES":   "YES",
	"EXTRACT_LOCAL_METHODS":   "YES",
	"EXTRACT_ANON_NSPACES":    "YES",
	"HIDE_UNDOC_MEMBERS":      "NO",
	"HIDE_UNDOC_CLASSES":      "NO",
	"HIDE_FRIEND_COMPOUNDS":   "NO",
	"HIDE_IN_BODY_DOCS":       "NO",
	"INTERNAL_DOCS":           "YES",
	"CASE_SENSE_NAMES":        "YES",
	"HIDE_SCOPE_NAMES":        "NO",
	"HIDE_COMPOUND_REFERENCE": "NO",
	"SHOW_INCLUDE_FILES":      "YES",
	"SHOW_GROUPED_MEMB_INC":   "YES",
	"FORCE_LOCAL_INCLUDES":    "YES",
	"INLINE_INFO":             "YES",
	"SORT_MEMBER_DOCS":        "NO",
	"SORT_BRIEF_DOCS":         "NO",
	"SORT_MEMBERS_CTORS_1ST":  "NO",
	"SORT_GROUP_NAMES":        "NO",
	"SORT_BY_SCOPE_NAME":      "NO",
	"STRICT_PROTO_MATCHING":   "NO",
	"GENERATE_TODOLIST":       "YES",
	"GENERATE_TESTLIST":       "YES",
	"GENERATE_BUGLIST":        "YES",
	"GENERATE_DEPRECATEDLIST": "YES",
	"MAX_INITIALIZER_LINES":   "30",
	"SHOW_USED_FILES":         "YES",
	"SHOW_FILES":              "YES",
	"SHOW_NAMESPACES":         "YES",
	"QUIET":                   "NO",
	"WARNINGS":                "YES",
	"WARN_IF_UNDOCUMENTED":    "NO",
	"WARN_IF_DOC_ERROR":       "YES",
	"WARN_NO_PARAMDOC":        "NO",
	"WARN_AS_ERROR":           "NO",
	"EXCLUDE_SYMLINKS":        "NO",
	"EXAMPLE_PATTERNS":        "*",
	"EXAMPLE_RECURSIVE":       "NO",
	"FILTER_SOURCE_FILES":     "NO",
	"SOURCE_BROWSER":          "YES",
	"INLINE_SOURCES":          "NO",
	"STRIP_CODE_COMMENTS":     "NO",
	"REFERENCED_BY_RELATION":  "YES",
	"REFERENCES_RELATION":     "NO",
	"REFERENCES_LINK_SOURCE":  "YES",
	"SOURCE_TOOLTIPS":         "YES",
	"USE_HTAGS":               "NO",
	"VERBATIM_HEADERS":        "YES",
	"ALPHABETICAL_INDEX":      "YES",
	"GENERATE_HTML":           "NO",
	"GENERATE_DOCSET":         "NO",
	"GENERATE_HTMLHELP":       "NO",
	"GENERATE_CHI":            "NO",
	"GENERATE_QHP":            "NO",
	"GENERATE_ECLIPSEHELP":    "NO",
	"GENERATE_TREEVIEW":       "NO",
	"USE_MATHJAX":             "NO",
	"SEARCHENGINE":            "NO",
	"GENERATE_LATEX":          "NO",
	"GENERATE_RTF":            "NO",
	"GENERATE_MAN":            "NO",
	"GENERATE_XML":            "YES",
	"XML_OUTPUT":              "xml",
	"XML_PROGRAMLISTING":      "YES",
	"XML_NS_MEMB_FILE_SCOPE":  "YES",
	"ENABLE_PREPROCESSING":    "NO",
	"MACRO_EXPANSION":         "NO",
	"EXPAND_ONLY_PREDEF":      "NO",
	"SEARCH_INCLUDES":         "YES",
	"SKIP_FUNCTION_MACROS":    "YES",
	"ALLEXTERNALS":            "NO",
	"EXTERNAL_GROUPS":         "YES",
	"EXTERNAL_PAGES":          "YES",
	"HIDE_UNDOC_RELATIONS":    "YES",
	"HAVE_DOT":                "NO",
	"CALL_GRAPH":              "NO",
	"CALLER_GRAPH":            "NO",
	"DOT_CLEANUP":             "YES",
}

// LoadOverrides reads a user override file. The format follows the file
// extension (JSON, YAML or TOML); files without one are read as JSON. Keys
// are upper-cased and booleans become YES or NO.
func LoadOverrides(path string) (Config, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("reading doxygen overrides: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	if filepath.Ext(path) == "" {
		v.SetConfigType("json")
	}
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("parsing doxygen overrides %s: %w", path, err)
	}

	cfg := make(Config)
	for _, key := range v.AllKeys() {
		cfg[strings.ToUpper(key)] = renderValue(v.Get(key))
	}
	for _, e := range cfg.Entries() {
		slog.Debug("doxygen override", "key", e.Key, "value", e.Value)
	}
	return cfg, nil
}

func renderValue(v any) string {
	switch t := v.(type) {
	case bool:
		if t {
			return "YES"
		}
		return "NO"
	case []any:
		parts := make([]string, len(t))
		for i, p := range t {
			parts[i] = renderValue(p)
		}
		return strings.Join(parts, " ")
	default:
		return fmt.Sprint(t)
	}
}

// Merge returns base with every option of over applied on top.
func Merge(base, over Config) Config {
	out := make(Config, len(base)+len(over))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range over {
		out[k] = v
	}
	return out
}

// Render formats cfg as a doxygen configuration file.
func Render(cfg Config) (string, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/doxyfile.tmpl")
	if err != nil {
		return "", fmt.Errorf("parsing doxyfile template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, cfg.Entries()); err != nil {
		return "", fmt.Errorf("executing doxyfile template: %w", err)
	}
	return buf.String(), nil
}

// WriteConfig renders cfg to path, creating the parent directory if needed.
func WriteConfig(cfg Config, path string) error {
	slog.Info("writing doxygen configuration file", "path", path)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	text, err := Render(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return fmt.Errorf("writing doxygen config: %w", err)
	}
	return nil
}
