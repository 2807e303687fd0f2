package naming

import (
	"errors"
	"fmt"
)

// ErrInvalidOutputName is returned by SelectFinalOutputs when any of several declared
// outputs does not carry a stage id.
var ErrInvalidOutputName = errors.New("one output node has an invalid name")

// Classify partitions graph input names into regular inputs and dynamic attributes, keeping
// the declared order. Names with any other role, or that cannot be parsed, belong to neither
// set.
func Classify(names []string) (inputs []string, dynattrs []string) {
	for _, name := range names {
		parsed, err := Parse(name)
		if err != nil {
			continue
		}
		switch parsed.Role {
		case InputRole:
			inputs = append(inputs, name)
		case DynamicAttributeRole:
			dynattrs = append(dynattrs, name)
		}
	}
	return inputs, dynattrs
}

// SelectFinalOutputs keeps the outputs produced by the last pipeline stage. With fewer than
// two outputs there is no stage to choose from and names is returned unchanged.
func SelectFinalOutputs(names []string) ([]string, error) {
	if len(names) < 2 {
		return names, nil
	}

	stages := make([]int, len(names))
	maxStage := -1
	for i, name := range names {
		parsed, err := ParseOutput(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidOutputName, err)
		}
		stages[i] = parsed.StageID
		maxStage = max(maxStage, parsed.StageID)
	}

	final := make([]string, 0, len(names))
	for i, name := range names {
		if stages[i] == maxStage {
			final = append(final, name)
		}
	}
	return final, nil
}
