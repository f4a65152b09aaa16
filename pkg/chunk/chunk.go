// Package chunk converts tabular rows into text chunks ready for embedding.
//
// A chunk's text lists every schema field as "Label: value" in schema order,
// joined by ", ". The same row always yields the same chunk, so re-ingesting
// a dataset overwrites rather than duplicates.
package chunk

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// IDPrefix namespaces chunk IDs in the vector index.
const IDPrefix = "chunk-"

// ErrSchema is the sentinel wrapped by every SchemaError.
var ErrSchema = errors.New("record does not match schema")

// Row is one record keyed by column name.
type Row map[string]string

// Chunk is the text unit that gets embedded and stored.
type Chunk struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// SchemaError reports why a row was rejected. Missing lists every absent
// field; Field and Reason describe the first value that failed to parse.
type SchemaError struct {
	Missing []string
	Field   string
	Value   string
	Reason  string
}

func (e *SchemaError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("%s: missing fields %s", ErrSchema, strings.Join(e.Missing, ", "))
	}
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", ErrSchema, e.Reason)
	}
	return fmt.Sprintf("%s: field %q value %q is not %s", ErrSchema, e.Field, e.Value, e.Reason)
}

func (e *SchemaError) Unwrap() error { return ErrSchema }

// Builder applies a schema to rows.
type Builder struct {
	schema Schema
}

// NewBuilder validates the schema and returns a builder for it.
func NewBuilder(s Schema) (*Builder, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &Builder{schema: s}, nil
}

// Schema returns the builder's schema.
func (b *Builder) Schema() Schema { return b.schema }

// Build renders row into a chunk or returns a *SchemaError.
func (b *Builder) Build(row Row) (Chunk, error) {
	var missing []string
	values := make([]string, len(b.schema.Fields))

	for i, f := range b.schema.Fields {
		v, ok := row[f.Name]
		v = strings.TrimSpace(v)
		if !ok || v == "" {
			missing = append(missing, f.Name)
			continue
		}
		values[i] = v
	}
	if len(missing) > 0 {
		return Chunk{}, &SchemaError{Missing: missing}
	}

	for i, f := range b.schema.Fields {
		if reason := checkType(f.Type, values[i]); reason != "" {
			return Chunk{}, &SchemaError{Field: f.Name, Value: values[i], Reason: reason}
		}
	}

	var sb strings.Builder
	for i, f := range b.schema.Fields {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(f.label())
		sb.WriteString(": ")
		sb.WriteString(values[i])
	}
	text := sb.String()

	return Chunk{ID: b.id(row, text), Text: text}, nil
}

// Duplicate is the rejection for a row whose chunk ID was already produced
// by row first of the same batch.
func (b *Builder) Duplicate(row Row, first int) *SchemaError {
	if b.schema.IDField == "" {
		return &SchemaError{Reason: fmt.Sprintf("repeats row %d", first)}
	}
	return &SchemaError{
		Field:  b.schema.IDField,
		Value:  strings.TrimSpace(row[b.schema.IDField]),
		Reason: fmt.Sprintf("unique in the batch (row %d has it)", first),
	}
}

func (b *Builder) id(row Row, text string) string {
	if b.schema.IDField != "" {
		return IDPrefix + strings.TrimSpace(row[b.schema.IDField])
	}
	return IDPrefix + ContentHash(text)
}

// ContentHash returns the first 16 hex characters of text's SHA-256.
func ContentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])[:16]
}

var (
	dateLayouts = []string{"1/2/2006", "2006-01-02", "01/02/2006", "2/1/2006 15:04", "2006-01-02 15:04:05"}
	timeLayouts = []string{"15:04", "15:04:05", "3:04 PM", "3:04PM"}
)

// checkType returns "" when v parses as t, otherwise a description of t.
func checkType(t FieldType, v string) string {
	switch t {
	case TypeNumber:
		if _, err := strconv.ParseFloat(v, 64); err != nil {
			return "a number"
		}
	case TypeInteger:
		if _, err := strconv.ParseInt(v, 10, 64); err != nil {
			return "an integer"
		}
	case TypeDate:
		if !parses(dateLayouts, v) {
			return "a date"
		}
	case TypeTime:
		if !parses(timeLayouts, v) {
			return "a time"
		}
	}
	return ""
}

func parses(layouts []string, v string) bool {
	for _, l := range layouts {
		if _, err := time.Parse(l, v); err == nil {
			return true
		}
	}
	return false
}
