package tensor

import (
	"fmt"
)

// ElementType is the element type an inference engine declares for one of its inputs.
type ElementType int

const (
	Uint8 ElementType = iota
	Uint16
	Uint32
	Uint64
	Int8
	Int16
	Int32
	Int64
	Float16
	Float
	Double
	String
	Bool
	Complex64
	Complex128
)

var elementTypeNames = map[string]ElementType{
	"tensor(uint8)":      Uint8,
	"tensor(uint16)":     Uint16,
	"tensor(uint32)":     Uint32,
	"tensor(uint64)":     Uint64,
	"tensor(int8)":       Int8,
	"tensor(int16)":      Int16,
	"tensor(int32)":      Int32,
	"tensor(int64)":      Int64,
	"tensor(float16)":    Float16,
	"tensor(float)":      Float,
	"tensor(double)":     Double,
	"tensor(string)":     String,
	"tensor(bool)":       Bool,
	"tensor(complex64)":  Complex64,
	"tensor(complex128)": Complex128,
}

// UnsupportedTypeError is returned when an engine declares an element type this package cannot hold.
type UnsupportedTypeError struct {
	TypeName string
}

func (u *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("unsupported element type '%s'", u.TypeName)
}

func (u *UnsupportedTypeError) Is(target error) bool {
	_, ok := target.(*UnsupportedTypeError)
	return ok
}

// ParseElementType maps an engine type name such as "tensor(float)" to an ElementType.
func ParseElementType(name string) (ElementType, error) {
	et, ok := elementTypeNames[name]
	if !ok {
		return 0, &UnsupportedTypeError{TypeName: name}
	}
	return et, nil
}

func (et ElementType) String() string {
	for name, t := range elementTypeNames {
		if t == et {
			return name
		}
	}
	return fmt.Sprintf("tensor(unknown:%d)", int(et))
}
