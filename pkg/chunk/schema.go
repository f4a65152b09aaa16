package chunk

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// FieldType constrains how a value must parse.
type FieldType string

const (
	TypeText    FieldType = "text"
	TypeNumber  FieldType = "number"
	TypeInteger FieldType = "integer"
	TypeDate    FieldType = "date"
	TypeTime    FieldType = "time"
)

// Field is a required column. Name is the key looked up in a Row; Label is
// what appears in chunk text and defaults to Name.
type Field struct {
	Name  string    `json:"name"`
	Label string    `json:"label,omitempty"`
	Type  FieldType `json:"type"`
}

func (f Field) label() string {
	if f.Label != "" {
		return f.Label
	}
	return f.Name
}

// Schema is an ordered list of required fields. When IDField names one of
// them, its value becomes the chunk ID; otherwise IDs are content hashes.
type Schema struct {
	Name    string  `json:"name"`
	Fields  []Field `json:"fields"`
	IDField string  `json:"id_field,omitempty"`
}

// Validate checks the schema itself.
func (s Schema) Validate() error {
	if len(s.Fields) == 0 {
		return fmt.Errorf("schema %q has no fields", s.Name)
	}

	seen := map[string]bool{}
	for _, f := range s.Fields {
		if strings.TrimSpace(f.Name) == "" {
			return fmt.Errorf("schema %q has a field without a name", s.Name)
		}
		if seen[f.Name] {
			return fmt.Errorf("schema %q declares %q twice", s.Name, f.Name)
		}
		seen[f.Name] = true

		switch f.Type {
		case TypeText, TypeNumber, TypeInteger, TypeDate, TypeTime:
		default:
			return fmt.Errorf("schema %q field %q has unknown type %q", s.Name, f.Name, f.Type)
		}
	}

	if s.IDField != "" && !seen[s.IDField] {
		return fmt.Errorf("schema %q id field %q is not declared", s.Name, s.IDField)
	}
	return nil
}

// FromHeader builds a text-only schema from a table header, keeping column
// order. Blank and duplicate columns are skipped.
func FromHeader(name string, header []string) Schema {
	s := Schema{Name: name}
	seen := map[string]bool{}
	for _, h := range header {
		h = strings.TrimSpace(h)
		if h == "" || seen[h] {
			continue
		}
		seen[h] = true
		s.Fields = append(s.Fields, Field{Name: h, Type: TypeText})
	}
	return s
}

// SalesSchema is the supermarket sales layout: one row per invoice.
var SalesSchema = Schema{
	Name:    "sales",
	IDField: "Invoice ID",
	Fields: []Field{
		{Name: "Invoice ID", Type: TypeText},
		{Name: "Branch", Type: TypeText},
		{Name: "City", Type: TypeText},
		{Name: "Customer type", Type: TypeText},
		{Name: "Gender", Type: TypeText},
		{Name: "Product line", Type: TypeText},
		{Name: "Unit price", Type: TypeNumber},
		{Name: "Quantity", Type: TypeInteger},
		{Name: "Tax 5%", Type: TypeNumber},
		{Name: "Total", Type: TypeNumber},
		{Name: "Date", Type: TypeDate},
		{Name: "Time", Type: TypeTime},
		{Name: "Payment", Type: TypeText},
		{Name: "cogs", Label: "COGS", Type: TypeNumber},
		{Name: "gross margin percentage", Label: "Gross margin percentage", Type: TypeNumber},
		{Name: "gross income", Label: "Gross income", Type: TypeNumber},
		{Name: "Rating", Type: TypeNumber},
	},
}

var (
	registryMu sync.RWMutex
	registry   = map[string]Schema{SalesSchema.Name: SalesSchema}
)

// Register adds or replaces a named schema.
func Register(s Schema) error {
	if err := s.Validate(); err != nil {
		return err
	}
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[s.Name] = s
	return nil
}

// Lookup returns a registered schema by name.
func Lookup(name string) (Schema, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	s, ok := registry[name]
	if !ok {
		return Schema{}, fmt.Errorf("unknown schema %q (known: %s)", name, strings.Join(names(), ", "))
	}
	return s, nil
}

// Names lists registered schema names, sorted.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return names()
}

func names() []string {
	out := make([]string, 0, len(registry))
	for n := range registry {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
