// Package dtype describes array element types.
//
// A Descr is a value type. Plain kinds have a fixed size; structured
// descriptors carry named fields laid out back to back.
package dtype

import (
	"errors"
	"fmt"
	"strings"
)

// Kind identifies the encoding of a single element.
type Kind uint8

const (
	Invalid Kind = iota
	Bool
	Mask
	Int8
	Uint8
	Int16
	Uint16
	Int32
	Uint32
	Int64
	Uint64
	Float16
	BFloat16
	Float32
	Float64
	Struct
)

var kindNames = [...]string{
	Invalid:  "invalid",
	Bool:     "bool",
	Mask:     "mask",
	Int8:     "int8",
	Uint8:    "uint8",
	Int16:    "int16",
	Uint16:   "uint16",
	Int32:    "int32",
	Uint32:   "uint32",
	Int64:    "int64",
	Uint64:   "uint64",
	Float16:  "float16",
	BFloat16: "bfloat16",
	Float32:  "float32",
	Float64:  "float64",
	Struct:   "struct",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Size returns the byte width of a plain kind, or 0 for Invalid and Struct.
func (k Kind) Size() int {
	switch k {
	case Bool, Mask, Int8, Uint8:
		return 1
	case Int16, Uint16, Float16, BFloat16:
		return 2
	case Int32, Uint32, Float32:
		return 4
	case Int64, Uint64, Float64:
		return 8
	default:
		return 0
	}
}

var (
	ErrUnknownType = errors.New("dtype: unknown type")
	ErrEmptyStruct = errors.New("dtype: struct has no fields")
)

// Field is one member of a structured descriptor.
type Field struct {
	Name   string
	Type   Descr
	Offset int
}

// Descr is an element type descriptor.
type Descr struct {
	Kind   Kind
	Fields []Field
	size   int
}

// Of returns the descriptor of a plain kind.
func Of(k Kind) Descr {
	return Descr{Kind: k, size: k.Size()}
}

// NewStruct packs fields in order and returns the structured descriptor.
// Field offsets supplied by the caller are ignored.
func NewStruct(fields ...Field) (Descr, error) {
	if len(fields) == 0 {
		return Descr{}, ErrEmptyStruct
	}
	out := make([]Field, len(fields))
	off := 0
	for i, f := range fields {
		if f.Type.Size() == 0 {
			return Descr{}, fmt.Errorf("%w: field %q", ErrUnknownType, f.Name)
		}
		out[i] = Field{Name: f.Name, Type: f.Type, Offset: off}
		off += f.Type.Size()
	}
	return Descr{Kind: Struct, Fields: out, size: off}, nil
}

// Size returns the element width in bytes.
func (d Descr) Size() int {
	if d.Kind == Struct {
		return d.size
	}
	return d.Kind.Size()
}

// HasFields reports whether d is a structured (compound) type.
func (d Descr) HasFields() bool { return d.Kind == Struct }

// Equal reports whether two descriptors have the same layout.
func (d Descr) Equal(o Descr) bool {
	if d.Kind != o.Kind {
		return false
	}
	if d.Kind != Struct {
		return true
	}
	if len(d.Fields) != len(o.Fields) {
		return false
	}
	for i := range d.Fields {
		a, b := d.Fields[i], o.Fields[i]
		if a.Name != b.Name || a.Offset != b.Offset || !a.Type.Equal(b.Type) {
			return false
		}
	}
	return true
}

func (d Descr) String() string {
	if d.Kind != Struct {
		return d.Kind.String()
	}
	var sb strings.Builder
	sb.WriteString("struct{")
	for i, f := range d.Fields {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(f.Name)
		sb.WriteByte(' ')
		sb.WriteString(f.Type.String())
	}
	sb.WriteByte('}')
	return sb.String()
}

var aliases = map[string]Kind{
	"bool":     Bool,
	"b1":       Bool,
	"mask":     Mask,
	"int8":     Int8,
	"i1":       Int8,
	"uint8":    Uint8,
	"u1":       Uint8,
	"int16":    Int16,
	"i2":       Int16,
	"uint16":   Uint16,
	"u2":       Uint16,
	"int32":    Int32,
	"i4":       Int32,
	"uint32":   Uint32,
	"u4":       Uint32,
	"int64":    Int64,
	"i8":       Int64,
	"uint64":   Uint64,
	"u8":       Uint64,
	"float16":  Float16,
	"f16":      Float16,
	"bfloat16": BFloat16,
	"bf16":     BFloat16,
	"float32":  Float32,
	"f32":      Float32,
	"float64":  Float64,
	"f64":      Float64,
}

// Parse resolves a plain type name such as "float32", "f32" or "bool".
// Structured types are built with NewStruct.
func Parse(name string) (Descr, error) {
	k, ok := aliases[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Descr{}, fmt.Errorf("%w: %q", ErrUnknownType, name)
	}
	return Of(k), nil
}
