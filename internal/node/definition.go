// Package node describes plugin nodes the way the host editor expects them:
// a typed definition (inputs, outputs, entry point, category), a static
// registry of node classes with display names, and an executor that invokes a
// node and binds its results to the declared outputs.
package node

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Field types understood by the host.
const (
	TypeModel        = "MODEL"
	TypeVAE          = "VAE"
	TypeCLIP         = "CLIP"
	TypeConditioning = "CONDITIONING"
	TypeLatent       = "LATENT"
	TypeImage        = "IMAGE"
	TypeMask         = "MASK"
	TypeInt          = "INT"
	TypeString       = "STRING"
	TypeFloat        = "FLOAT"
)

// Inputs are the named argument values passed to a node's entry point.
type Inputs map[string]any

// Node is a plugin node class.
type Node interface {
	Definition() Definition
	// Execute runs the entry point and returns its values in order.
	Execute(ctx context.Context, in Inputs) ([]any, error)
}

// Field is one input slot. Multiline and Default only apply to widget types
// (INT, STRING, FLOAT).
type Field struct {
	Name      string `json:"name" validate:"required"`
	Type      string `json:"type" validate:"required,oneof=MODEL VAE CLIP CONDITIONING LATENT IMAGE MASK INT STRING FLOAT"`
	Multiline bool   `json:"multiline,omitempty"`
	Default   any    `json:"default,omitempty"`
}

// InputSchema groups input fields the way the host does. Required must have
// at least one entry.
type InputSchema struct {
	Required []Field `json:"required" validate:"min=1,dive"`
	Optional []Field `json:"optional,omitempty" validate:"dive"`
	Hidden   []Field `json:"hidden,omitempty" validate:"dive"`
}

// Definition is the typed form of a node class declaration.
type Definition struct {
	Name        string      `json:"name" validate:"required"`
	DisplayName string      `json:"display_name" validate:"required"`
	Category    string      `json:"category" validate:"required"`
	Function    string      `json:"function" validate:"required"`
	Input       InputSchema `json:"input"`
	ReturnTypes []string    `json:"output" validate:"min=1,dive,oneof=MODEL VAE CLIP CONDITIONING LATENT IMAGE MASK INT STRING FLOAT"`
	ReturnNames []string    `json:"output_name,omitempty"`
	OutputNode  bool        `json:"output_node"`
}

var validate = validator.New()

// Validate checks the definition against the host's schema contract.
func (d Definition) Validate() error {
	if err := validate.Struct(d); err != nil {
		return fmt.Errorf("node %s: %w", d.Name, err)
	}
	if len(d.ReturnNames) > 0 && len(d.ReturnNames) != len(d.ReturnTypes) {
		return fmt.Errorf("node %s: %d return names for %d return types", d.Name, len(d.ReturnNames), len(d.ReturnTypes))
	}
	if strings.ContainsAny(d.Name, " \t\n") {
		return fmt.Errorf("node %q: name must not contain whitespace", d.Name)
	}
	seen := map[string]bool{}
	for _, f := range d.Input.Fields() {
		if strings.ContainsAny(f.Name, " \t\n") {
			return fmt.Errorf("node %s: field name %q must not contain whitespace", d.Name, f.Name)
		}
		if seen[f.Name] {
			return fmt.Errorf("node %s: duplicate input field %q", d.Name, f.Name)
		}
		seen[f.Name] = true
		if f.Multiline && f.Type != TypeString {
			return fmt.Errorf("node %s: field %q: multiline is only valid for %s", d.Name, f.Name, TypeString)
		}
		if f.Default == nil {
			continue
		}
		if !isWidget(f.Type) {
			return fmt.Errorf("node %s: field %q: %s inputs take no default", d.Name, f.Name, f.Type)
		}
		if err := checkValue(f, f.Default); err != nil {
			return fmt.Errorf("node %s: default: %w", d.Name, err)
		}
	}
	return nil
}

// Fields returns required, optional and hidden fields in that order.
func (s InputSchema) Fields() []Field {
	out := make([]Field, 0, len(s.Required)+len(s.Optional)+len(s.Hidden))
	out = append(out, s.Required...)
	out = append(out, s.Optional...)
	out = append(out, s.Hidden...)
	return out
}

func isWidget(fieldType string) bool {
	switch fieldType {
	case TypeInt, TypeString, TypeFloat:
		return true
	}
	return false
}

// checkValue verifies v can be passed for f. Connection types are opaque to
// the executor and accept anything non-nil.
func checkValue(f Field, v any) error {
	if v == nil {
		return fmt.Errorf("field %q: value is nil", f.Name)
	}
	switch f.Type {
	case TypeString:
		if _, ok := v.(string); !ok {
			return fmt.Errorf("field %q: want %s, got %T", f.Name, f.Type, v)
		}
	case TypeInt:
		switch v.(type) {
		case int, int32, int64:
		default:
			return fmt.Errorf("field %q: want %s, got %T", f.Name, f.Type, v)
		}
	case TypeFloat:
		switch v.(type) {
		case float32, float64, int, int64:
		default:
			return fmt.Errorf("field %q: want %s, got %T", f.Name, f.Type, v)
		}
	}
	return nil
}
