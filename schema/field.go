package schema

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// FieldType identifies the value domain of a field.
type FieldType string

const (
	TypeString   FieldType = "string"
	TypeInt      FieldType = "int"
	TypeFloat    FieldType = "float"
	TypeCurrency FieldType = "currency"
	TypeBoolean  FieldType = "boolean"
	TypeDate     FieldType = "date"
	TypeDateTime FieldType = "datetime"
	TypeDateAuto FieldType = "dateauto"
	TypeImage    FieldType = "image"
	TypeGroup    FieldType = "group"
	TypeList     FieldType = "list"
	TypeAutoInc  FieldType = "auto_inc"
	TypeReadOnly FieldType = "readonly"
)

// Date layouts accepted by date-typed fields.
const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02 15:04:05.000000"
)

// Field is one typed field definition within a storage type.
//
// Name is immutable once the field is created; Type determines which
// validators apply.
type Field struct {
	// Name is the field name, unique within the owning type.
	Name string

	// Type is the field's value domain.
	Type FieldType

	// IsList marks the field as carrying repeated values.
	IsList bool

	// IsKeyField marks the field as part of the entity's identity string.
	IsKeyField bool

	// Required marks the field as mandatory on create and update.
	Required bool

	// Default is filled in for blank values at create time. Ignored for
	// auto_inc and readonly fields.
	Default string

	// GroupName names the storage type governing a group field's children.
	// Empty means the field name itself.
	GroupName string

	// OptionContainer encodes where a dropdown of legal values comes from,
	// in "<TypeName>.<fieldName>" form. Opaque to validation.
	OptionContainer string
}

// EffectiveGroupName returns the storage type a group field refers to,
// defaulting to the field's own name.
func (f Field) EffectiveGroupName() string {
	if f.GroupName != "" {
		return f.GroupName
	}
	return f.Name
}

// Result is the outcome of validating one value against one field.
type Result struct {
	// Valid reports whether every check passed.
	Valid bool

	// Messages holds one human-readable line per failed check.
	Messages []string
}

// Validate checks a value against the field's filled and type rules.
// Both checks run independently, so a required blank boolean yields two
// messages. Validate never mutates and is deterministic for a given input.
func (f Field) Validate(value any) Result {
	var messages []string

	blank := IsBlank(value)

	// Filled check. auto_inc fields are filled server-side and exempt.
	if (f.Required || f.IsKeyField) && f.Type != TypeAutoInc && blank {
		messages = append(messages, fmt.Sprintf("%s is required", f.Name))
	}

	// Type check.
	switch f.Type {
	case TypeAutoInc:
		// Always valid.
	case TypeDate, TypeDateTime, TypeDateAuto:
		if !blank && !isDate(value) {
			messages = append(messages, fmt.Sprintf("%s must be a date (%s or %s)", f.Name, "YYYY-MM-DD", "YYYY-MM-DD HH:MM:SS.ffffff"))
		}
	case TypeFloat, TypeCurrency:
		if !blank && !isFloat(value) {
			messages = append(messages, fmt.Sprintf("%s must be a number", f.Name))
		}
	case TypeBoolean:
		if blank {
			if f.Required {
				messages = append(messages, fmt.Sprintf("%s must be a boolean", f.Name))
			}
		} else if !isBoolean(value) {
			messages = append(messages, fmt.Sprintf("%s must be a boolean", f.Name))
		}
	case TypeInt:
		if !blank && !isInt(value) {
			messages = append(messages, fmt.Sprintf("%s must be an integer", f.Name))
		}
	default:
		// No constraint beyond the filled check.
	}

	return Result{Valid: len(messages) == 0, Messages: messages}
}

// IsBlank reports whether a value counts as unfilled.
func IsBlank(value any) bool {
	if value == nil {
		return true
	}
	if s, ok := value.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}

func isDate(value any) bool {
	switch v := value.(type) {
	case time.Time:
		return true
	case string:
		s := strings.TrimSpace(v)
		if _, err := time.Parse(dateLayout, s); err == nil {
			return true
		}
		if _, err := time.Parse(dateTimeLayout, s); err == nil {
			return true
		}
		return false
	}
	return false
}

func isFloat(value any) bool {
	switch v := value.(type) {
	case float32, float64, int, int32, int64:
		return true
	case string:
		_, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return err == nil
	}
	return false
}

func isBoolean(value any) bool {
	switch v := value.(type) {
	case bool:
		return true
	case int:
		return v == 0 || v == 1
	case int64:
		return v == 0 || v == 1
	case float64:
		return v == 0 || v == 1
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "false", "1", "0", "n/a":
			return true
		}
	}
	return false
}

func isInt(value any) bool {
	switch v := value.(type) {
	case int, int32, int64:
		return true
	case float32:
		// Stored numbers come back as floats from some adapters.
		return float64(v) == math.Trunc(float64(v))
	case float64:
		return v == math.Trunc(v)
	case string:
		_, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		return err == nil
	}
	return false
}

// toMap serializes a field definition for storage. Key names match the
// stored data layout and must not change.
func (f Field) toMap() map[string]any {
	return map[string]any{
		"fieldName":       f.Name,
		"fieldType":       string(f.Type),
		"isList":          f.IsList,
		"isKeyField":      f.IsKeyField,
		"required":        f.Required,
		"defaultValue":    f.Default,
		"groupName":       f.GroupName,
		"optionContainer": f.OptionContainer,
	}
}

// fieldFromMap rebuilds a field definition from its stored form.
func fieldFromMap(m map[string]any) Field {
	return Field{
		Name:            asString(m["fieldName"]),
		Type:            FieldType(asString(m["fieldType"])),
		IsList:          asBool(m["isList"]),
		IsKeyField:      asBool(m["isKeyField"]),
		Required:        asBool(m["required"]),
		Default:         asString(m["defaultValue"]),
		GroupName:       asString(m["groupName"]),
		OptionContainer: asString(m["optionContainer"]),
	}
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asBool(v any) bool {
	b, _ := v.(bool)
	return b
}
