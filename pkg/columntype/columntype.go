// Package columntype maps the column type code carried by an input name to the
// preprocessing applied to that input before inference.
package columntype

import (
	"strconv"

	"github.com/beastbyte/phonnx/pkg/tensor"
)

type ColumnType int

const (
	NumericRegular             ColumnType = 0
	CategoricalLowCardinality  ColumnType = 1
	CategoricalHighCardinality ColumnType = 2
	TextUTF8                   ColumnType = 3
	// DateYMD holds ISO 8601 dates such as '2023-02-21'.
	DateYMD ColumnType = 100
	// DatetimeYMDHMS holds ISO 8601 datetimes such as '2023-02-21T17:24:22Z' or '2023-02-21 17:24:22'.
	DatetimeYMDHMS ColumnType = 101
)

// Transform prepares one input tensor for the inference engine.
type Transform func(*tensor.Tensor) *tensor.Tensor

var transforms = map[ColumnType]Transform{
	NumericRegular:             ensureMin2D,
	CategoricalLowCardinality:  ensureMin2D,
	CategoricalHighCardinality: ensureMin2D,
	TextUTF8:                   ensureMin2D,
	DateYMD:                    ensureMin2D,
	DatetimeYMDHMS:             ensureMin2D,
}

func ensureMin2D(t *tensor.Tensor) *tensor.Tensor {
	return t.EnsureMin2D()
}

// Resolve returns the column type for a code. Unknown codes are treated as NumericRegular.
func Resolve(code string) ColumnType {
	n, err := strconv.Atoi(code)
	if err != nil {
		return NumericRegular
	}
	ct := ColumnType(n)
	if _, ok := transforms[ct]; !ok {
		return NumericRegular
	}
	return ct
}

// TransformFor returns the transform registered for ct, falling back to the NumericRegular one.
func TransformFor(ct ColumnType) Transform {
	if fn, ok := transforms[ct]; ok {
		return fn
	}
	return transforms[NumericRegular]
}

// Apply runs the transform of ct on t.
func Apply(ct ColumnType, t *tensor.Tensor) *tensor.Tensor {
	return TransformFor(ct)(t)
}

func (ct ColumnType) String() string {
	switch ct {
	case NumericRegular:
		return "numeric_regular"
	case CategoricalLowCardinality:
		return "categorical_low_cardinality"
	case CategoricalHighCardinality:
		return "categorical_high_cardinality"
	case TextUTF8:
		return "text_utf8"
	case DateYMD:
		return "date_ymd"
	case DatetimeYMDHMS:
		return "datetime_ymdhms"
	}
	return "unknown(" + strconv.Itoa(int(ct)) + ")"
}
