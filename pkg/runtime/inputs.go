package runtime

import (
	"fmt"
	"maps"

	phonnxerrors "github.com/beastbyte/phonnx/pkg/errors"
	"github.com/beastbyte/phonnx/pkg/tensor"
)

// Inputs are the regular input values handed to Run. Build them with FromTensor, FromList
// or FromMap.
type Inputs interface {
	// resolve maps the values to the declared regular input names. The returned map is
	// owned by the caller.
	resolve(regular []string) (map[string]*tensor.Tensor, error)
}

type tensorInputs struct {
	t *tensor.Tensor
}

// FromTensor splits t along its last axis, one slice per declared regular input in
// declared order.
func FromTensor(t *tensor.Tensor) Inputs {
	return tensorInputs{t: t}
}

func (ti tensorInputs) resolve(regular []string) (map[string]*tensor.Tensor, error) {
	if ti.t == nil {
		return nil, phonnxerrors.Usagef("inputs tensor is nil")
	}
	parts, err := ti.t.SplitLastAxis()
	if err != nil {
		return nil, phonnxerrors.With(fmt.Errorf("cannot split inputs: %w", err), phonnxerrors.ErrUsage)
	}
	return listInputs(parts).resolve(regular)
}

type listInputs []*tensor.Tensor

// FromList aligns values 1:1 with the declared regular inputs.
func FromList(values ...*tensor.Tensor) Inputs {
	return listInputs(values)
}

func (li listInputs) resolve(regular []string) (map[string]*tensor.Tensor, error) {
	if len(li) != len(regular) {
		return nil, phonnxerrors.Usagef("expected %d regular inputs, got %d", len(regular), len(li))
	}
	resolved := make(map[string]*tensor.Tensor, len(li))
	for i, name := range regular {
		if li[i] == nil {
			return nil, phonnxerrors.Usagef("input %s is nil", name)
		}
		resolved[name] = li[i]
	}
	return resolved, nil
}

type mapInputs map[string]*tensor.Tensor

// FromMap uses values as given, keyed by input name. Run never modifies the map.
func FromMap(values map[string]*tensor.Tensor) Inputs {
	return mapInputs(values)
}

func (mi mapInputs) resolve([]string) (map[string]*tensor.Tensor, error) {
	for name, v := range mi {
		if v == nil {
			return nil, phonnxerrors.Usagef("input %s is nil", name)
		}
	}
	resolved := make(map[string]*tensor.Tensor, len(mi))
	maps.Copy(resolved, mi)
	return resolved, nil
}
