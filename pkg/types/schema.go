package types

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// FieldType enumerates the value types an entity field may declare.
type FieldType string

// Supported field types.
const (
	FieldString  FieldType = "string"
	FieldNumber  FieldType = "number"
	FieldBoolean FieldType = "boolean"
)

// Valid reports whether ft is one of the supported field types.
func (ft FieldType) Valid() bool {
	switch ft {
	case FieldString, FieldNumber, FieldBoolean:
		return true
	}
	return false
}

// FieldDef declares one entity field. Optional fields may be absent from a
// record; non-optional fields are required by the route binding on create.
type FieldDef struct {
	Name     string    `mapstructure:"name" yaml:"name" json:"name"`
	Type     FieldType `mapstructure:"type" yaml:"type" json:"type"`
	Optional bool      `mapstructure:"optional" yaml:"optional" json:"optional"`
}

// EntitySchema is the immutable declaration of one entity kind: a name and
// an ordered list of field definitions. The same schema instance is shared
// by every store created for the entity.
type EntitySchema struct {
	Name   string     `mapstructure:"name" yaml:"name" json:"name"`
	Fields []FieldDef `mapstructure:"fields" yaml:"fields" json:"fields"`
}

// Schema validation errors.
var (
	ErrEntityNameEmpty   = errors.New("entity name must not be empty")
	ErrFieldNameEmpty    = errors.New("field name must not be empty")
	ErrFieldTypeUnknown  = errors.New("unknown field type")
	ErrDuplicateField    = errors.New("duplicate field name")
	ErrInvalidIdentifier = errors.New("invalid storage identifier")
)

// Validate checks that the schema is well-formed.
func (s EntitySchema) Validate() error {
	if s.Name == "" {
		return ErrEntityNameEmpty
	}
	seen := make(map[string]bool, len(s.Fields))
	for _, f := range s.Fields {
		if f.Name == "" {
			return fmt.Errorf("entity %s: %w", s.Name, ErrFieldNameEmpty)
		}
		if !f.Type.Valid() {
			return fmt.Errorf("entity %s field %s: %w: %q", s.Name, f.Name, ErrFieldTypeUnknown, f.Type)
		}
		if seen[f.Name] {
			return fmt.Errorf("entity %s: %w: %q", s.Name, ErrDuplicateField, f.Name)
		}
		seen[f.Name] = true
	}
	return nil
}

// Field returns the definition for name, if declared.
func (s EntitySchema) Field(name string) (FieldDef, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldDef{}, false
}

// identPattern is the allow-list for table and collection names. Anything
// interpolated into DDL/DML must match it.
var identPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// StorageName derives the physical storage unit name for an entity:
// lower-cased, pluralized with "s", normalized to letters/digits/underscore.
// A name that normalizes to something outside the allow-list is a
// configuration error, not a runtime fallback.
func StorageName(entity string) (string, error) {
	var b strings.Builder
	for _, r := range strings.ToLower(entity) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		}
	}
	name := b.String() + "s"
	if err := ValidateIdentifier(name); err != nil {
		return "", fmt.Errorf("entity %q: %w", entity, err)
	}
	return name, nil
}

// ValidateIdentifier checks a fully assembled table or collection name
// (including any configured prefix) against the identifier allow-list.
func ValidateIdentifier(name string) error {
	if !identPattern.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidIdentifier, name)
	}
	return nil
}
