package tensor

import (
	"fmt"
	"math"
	"strconv"
)

// ConversionError is returned when an element cannot be represented in the requested type.
type ConversionError struct {
	Value  any
	Target ElementType
	Cause  error
}

func (c *ConversionError) Error() string {
	msg := fmt.Sprintf("cannot convert %v (%T) to %s", c.Value, c.Value, c.Target)
	if c.Cause != nil {
		msg += ": " + c.Cause.Error()
	}
	return msg
}

func (c *ConversionError) Unwrap() error {
	return c.Cause
}

func convert(v any, et ElementType) (any, error) {
	switch et {
	case String:
		return toString(v)
	case Bool:
		return toBool(v)
	case Float16, Float:
		f, err := toFloat64(v)
		return float32(f), wrapConversion(v, et, err)
	case Double:
		f, err := toFloat64(v)
		return f, wrapConversion(v, et, err)
	case Complex64:
		c, err := toComplex128(v)
		return complex64(c), wrapConversion(v, et, err)
	case Complex128:
		c, err := toComplex128(v)
		return c, wrapConversion(v, et, err)
	case Int8, Int16, Int32, Int64, Uint8, Uint16, Uint32, Uint64:
		i, err := toInt64(v)
		if err != nil {
			return nil, wrapConversion(v, et, err)
		}
		return narrowInt(i, et), nil
	}
	return nil, &ConversionError{Value: v, Target: et}
}

func wrapConversion(v any, et ElementType, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(*ConversionError); ok {
		return &ConversionError{Value: v, Target: et}
	}
	return &ConversionError{Value: v, Target: et, Cause: err}
}

func narrowInt(i int64, et ElementType) any {
	switch et {
	case Int8:
		return int8(i)
	case Int16:
		return int16(i)
	case Int32:
		return int32(i)
	case Uint8:
		return uint8(i)
	case Uint16:
		return uint16(i)
	case Uint32:
		return uint32(i)
	case Uint64:
		return uint64(i)
	}
	return i
}

func toString(v any) (any, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32), nil
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64), nil
	case bool:
		return strconv.FormatBool(x), nil
	case complex64, complex128:
		return fmt.Sprint(x), nil
	case uint:
		return strconv.FormatUint(uint64(x), 10), nil
	case uint64:
		return strconv.FormatUint(x, 10), nil
	}
	if i, err := toInt64(v); err == nil {
		return strconv.FormatInt(i, 10), nil
	}
	return fmt.Sprint(v), nil
}

func toBool(v any) (any, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case string:
		// non-empty strings are truthy
		return x != "", nil
	}
	f, err := toFloat64(v)
	if err != nil {
		return nil, &ConversionError{Value: v, Target: Bool, Cause: err}
	}
	return f != 0, nil
}

func toFloat64(v any) (float64, error) {
	switch x := v.(type) {
	case float32:
		return float64(x), nil
	case float64:
		return x, nil
	case int:
		return float64(x), nil
	case int8:
		return float64(x), nil
	case int16:
		return float64(x), nil
	case int32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case uint:
		return float64(x), nil
	case uint8:
		return float64(x), nil
	case uint16:
		return float64(x), nil
	case uint32:
		return float64(x), nil
	case uint64:
		return float64(x), nil
	case bool:
		if x {
			return 1, nil
		}
		return 0, nil
	case string:
		return strconv.ParseFloat(x, 64)
	}
	return 0, &ConversionError{Value: v, Target: Double}
}

func toInt64(v any) (int64, error) {
	switch x := v.(type) {
	case int:
		return int64(x), nil
	case int8:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case int64:
		return x, nil
	case uint:
		return int64(x), nil
	case uint8:
		return int64(x), nil
	case uint16:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case uint64:
		return int64(x), nil
	case float32:
		return truncate(float64(x))
	case float64:
		return truncate(x)
	case bool:
		if x {
			return 1, nil
		}
		return 0, nil
	case string:
		return strconv.ParseInt(x, 10, 64)
	}
	return 0, &ConversionError{Value: v, Target: Int64}
}

func truncate(f float64) (int64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("non-finite value %v", f)
	}
	return int64(f), nil
}

func toComplex128(v any) (complex128, error) {
	switch x := v.(type) {
	case complex64:
		return complex128(x), nil
	case complex128:
		return x, nil
	case string:
		return strconv.ParseComplex(x, 128)
	}
	f, err := toFloat64(v)
	if err != nil {
		return 0, err
	}
	return complex(f, 0), nil
}
