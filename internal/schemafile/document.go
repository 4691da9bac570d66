// Package schemafile loads declarative struct and bit-container definitions
// from TOML or YAML files and compiles them into wire schemas.
package schemafile

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

type Document struct {
	Structs []StructDoc `toml:"struct" yaml:"struct"`
	Bits    []BitsDoc   `toml:"bits" yaml:"bits"`
}

type StructDoc struct {
	Name     string     `toml:"name" yaml:"name"`
	Endian   string     `toml:"endian" yaml:"endian"`
	Trailing string     `toml:"trailing" yaml:"trailing"`
	Extends  []string   `toml:"extends" yaml:"extends"`
	Fields   []FieldDoc `toml:"fields" yaml:"fields"`
	Sync     []SyncDoc  `toml:"sync" yaml:"sync"`
	Checks   []CheckDoc `toml:"checks" yaml:"checks"`
}

type BitsDoc struct {
	Name   string     `toml:"name" yaml:"name"`
	Size   int        `toml:"size" yaml:"size"`
	Order  string     `toml:"order" yaml:"order"`
	Endian string     `toml:"endian" yaml:"endian"`
	Fields []FieldDoc `toml:"fields" yaml:"fields"`
}

// FieldDoc describes one field. Which keys apply depends on Type; Size,
// Length, and Count take either an integer or the path of an earlier field.
type FieldDoc struct {
	Name        string            `toml:"name" yaml:"name"`
	Type        string            `toml:"type" yaml:"type"`
	Endian      string            `toml:"endian" yaml:"endian"`
	Size        any               `toml:"size" yaml:"size"`
	Length      any               `toml:"length" yaml:"length"`
	Count       any               `toml:"count" yaml:"count"`
	Max         int               `toml:"max" yaml:"max"`
	Pad         int               `toml:"pad" yaml:"pad"`
	Width       int               `toml:"width" yaml:"width"`
	Item        *FieldDoc         `toml:"item" yaml:"item"`
	Ref         string            `toml:"ref" yaml:"ref"`
	On          string            `toml:"on" yaml:"on"`
	Cases       []CaseDoc         `toml:"cases" yaml:"cases"`
	DefaultCase *FieldDoc         `toml:"default_case" yaml:"default_case"`
	Names       map[string]uint64 `toml:"names" yaml:"names"`
	When        string            `toml:"when" yaml:"when"`
	Optional    *bool             `toml:"optional" yaml:"optional"`
	Default     any               `toml:"default" yaml:"default"`
	Range       []int64           `toml:"range" yaml:"range"`
	OneOf       []any             `toml:"one_of" yaml:"one_of"`
	Pattern     string            `toml:"pattern" yaml:"pattern"`
	Prefix      string            `toml:"prefix" yaml:"prefix"`
	MaxLen      int               `toml:"max_len" yaml:"max_len"`
}

type CaseDoc struct {
	Tag   any       `toml:"tag" yaml:"tag"`
	Field *FieldDoc `toml:"field" yaml:"field"`
}

type SyncDoc struct {
	Field string `toml:"field" yaml:"field"`
	Expr  string `toml:"expr" yaml:"expr"`
	TagOf string `toml:"tag_of" yaml:"tag_of"`
}

type CheckDoc struct {
	Field       string `toml:"field" yaml:"field"`
	Equals      string `toml:"equals" yaml:"equals"`
	GreaterThan string `toml:"greater_than" yaml:"greater_than"`
	LessThan    string `toml:"less_than" yaml:"less_than"`
	Predicate   string `toml:"predicate" yaml:"predicate"`
	Message     string `toml:"message" yaml:"message"`
}

// DecodeTOML rejects keys that do not map onto the document model.
func DecodeTOML(data []byte) (*Document, error) {
	var doc Document
	meta, err := toml.Decode(string(data), &doc)
	if err != nil {
		return nil, fmt.Errorf("decode schema toml: %w", err)
	}
	if err := rejectUndecoded(meta); err != nil {
		return nil, err
	}
	return &doc, nil
}

func DecodeYAML(data []byte) (*Document, error) {
	var doc Document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode schema yaml: %w", err)
	}
	return &doc, nil
}

// ReadFile decodes a document, choosing the format by extension.
func ReadFile(path string) (*Document, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		var doc Document
		meta, err := toml.DecodeFile(path, &doc)
		if err != nil {
			return nil, fmt.Errorf("load schema %s: %w", path, err)
		}
		if err := rejectUndecoded(meta); err != nil {
			return nil, fmt.Errorf("load schema %s: %w", path, err)
		}
		return &doc, nil
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("load schema %s: %w", path, err)
		}
		doc, err := DecodeYAML(data)
		if err != nil {
			return nil, fmt.Errorf("load schema %s: %w", path, err)
		}
		return doc, nil
	default:
		return nil, fmt.Errorf("load schema %s: %w", path, ErrFormat)
	}
}

func rejectUndecoded(meta toml.MetaData) error {
	keys := meta.Undecoded()
	if len(keys) == 0 {
		return nil
	}
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = k.String()
	}
	sort.Strings(names)
	return fmt.Errorf("%w: %s", ErrUnknownKey, strings.Join(names, ", "))
}
