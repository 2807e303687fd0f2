package pathcodec

import (
	"strconv"

	phonnxerrors "github.com/beastbyte/phonnx/pkg/errors"
)

// Build nests value under the keys of path. Every call returns a fresh document.
func Build(path Path, value any) (any, error) {
	if err := path.validate(); err != nil {
		return nil, err
	}
	if path.BatchPosition() >= 0 {
		return nil, phonnxerrors.Usagef("path '%s' contains %s, use BuildBatched", path, BatchToken)
	}
	return build(path, value), nil
}

func build(path Path, value any) any {
	head := path[0]
	var inner any
	if len(path) == 1 {
		inner = value
	} else {
		inner = build(path[1:], value)
	}
	if head.Kind == ListWrap {
		inner = []any{inner}
	}
	return map[string]any{head.Key: inner}
}

// BuildBatched lays values out along the batch axis. The segments after the batch token are
// built once per value; the resulting list is nested under the segments before it.
func BuildBatched(path Path, values []any) (any, error) {
	if err := path.validate(); err != nil {
		return nil, err
	}
	pos := path.BatchPosition()
	if pos < 0 {
		return nil, phonnxerrors.Usagef("path '%s' must contain %s", path, BatchToken)
	}
	pre, post := path[:pos], path[pos+1:]

	batch := make([]any, len(values))
	for i, v := range values {
		if len(post) > 0 {
			batch[i] = build(post, v)
		} else {
			batch[i] = v
		}
	}

	if len(pre) == 0 {
		return batch, nil
	}
	return build(pre, batch), nil
}

// Result is the outcome of Extract: a value that was found, or Absent.
type Result struct {
	value any
	found bool
}

// Absent is the result of an extraction that found nothing.
var Absent = Result{}

func Found(v any) Result {
	return Result{value: v, found: true}
}

func (r Result) Found() bool {
	return r.found
}

// Value returns the extracted value, nil when absent.
func (r Result) Value() any {
	return r.value
}

// Or returns the extracted value, or def when absent.
func (r Result) Or(def any) any {
	if !r.found {
		return def
	}
	return r.value
}

// Extract walks doc along path. Fully numeric segments are tried as a list index first and
// then as a map key. A key that cannot be followed yields Absent; only a malformed path is
// an error.
func Extract(doc any, path Path) (Result, error) {
	if err := path.validate(); err != nil {
		return Absent, err
	}
	if path.BatchPosition() >= 0 {
		return Absent, phonnxerrors.Usagef("path '%s' contains %s, substitute a batch index first", path, BatchToken)
	}

	current := doc
	for _, segment := range path {
		next, ok := step(current, segment.Key)
		if !ok {
			return Absent, nil
		}
		if segment.Kind == ListWrap {
			next, ok = index(next, 0)
			if !ok {
				return Absent, nil
			}
		}
		current = next
	}
	return Found(current), nil
}

func step(node any, key string) (any, bool) {
	if isNumeric(key) {
		if i, err := strconv.Atoi(key); err == nil {
			if v, ok := index(node, i); ok {
				return v, true
			}
		}
	}
	m, ok := node.(map[string]any)
	if !ok {
		return nil, false
	}
	v, ok := m[key]
	return v, ok
}

func index(node any, i int) (any, bool) {
	list, ok := node.([]any)
	if !ok || i < 0 || i >= len(list) {
		return nil, false
	}
	return list[i], true
}

func isNumeric(key string) bool {
	if key == "" {
		return false
	}
	for _, r := range key {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
