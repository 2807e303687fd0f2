// Package pathcodec builds nested request documents from a path and a value, and reads
// values back out of response documents with the same kind of path.
//
// A path is written as comma separated keys:
//
//	instances[],prompt          -> {"instances": [{"prompt": v}]}
//	data,<<batch_dim>>,input    -> {"data": [{"input": v0}, {"input": v1}, ...]}
//	data,0,embedding            -> doc["data"][0]["embedding"]
//
// Documents are the values encoding/json decodes into: map[string]any, []any and scalars.
package pathcodec

import (
	"strconv"
	"strings"

	phonnxerrors "github.com/beastbyte/phonnx/pkg/errors"
)

const (
	// BatchToken marks the position of the batch axis in a path.
	BatchToken = "<<batch_dim>>"
	// ListMarker suffixes a key whose value is wrapped in a one-element list.
	ListMarker = "[]"

	separator = ","
)

type SegmentKind int

const (
	Plain SegmentKind = iota
	ListWrap
	Batch
)

type Segment struct {
	Key  string
	Kind SegmentKind
}

func (s Segment) String() string {
	switch s.Kind {
	case ListWrap:
		return s.Key + ListMarker
	case Batch:
		return BatchToken
	}
	return s.Key
}

// Path is an ordered list of segments. It contains the batch token at most once.
type Path []Segment

// Parse splits a comma separated path.
func Parse(raw string) (Path, error) {
	return FromKeys(strings.Split(raw, separator))
}

// FromKeys builds a path from already split keys.
func FromKeys(keys []string) (Path, error) {
	if len(keys) == 0 {
		return nil, phonnxerrors.Usagef("path is empty")
	}

	path := make(Path, 0, len(keys))
	batches := 0
	for i, key := range keys {
		switch {
		case key == BatchToken:
			batches++
			if batches > 1 {
				return nil, phonnxerrors.Usagef("path '%s' contains %s more than once", strings.Join(keys, separator), BatchToken)
			}
			path = append(path, Segment{Kind: Batch})
		case strings.HasSuffix(key, ListMarker):
			stripped := strings.TrimSuffix(key, ListMarker)
			if stripped == "" {
				return nil, phonnxerrors.Usagef("path segment %d is an empty list key", i)
			}
			path = append(path, Segment{Key: stripped, Kind: ListWrap})
		case key == "":
			return nil, phonnxerrors.Usagef("path segment %d is empty", i)
		default:
			path = append(path, Segment{Key: key, Kind: Plain})
		}
	}
	return path, nil
}

// MustParse is like Parse but panics on a malformed path.
func MustParse(raw string) Path {
	p, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return p
}

// BatchPosition returns the index of the batch token, or -1.
func (p Path) BatchPosition() int {
	for i, s := range p {
		if s.Kind == Batch {
			return i
		}
	}
	return -1
}

// WithBatchIndex returns a copy of p with the batch token replaced by the literal index i,
// ready to extract the i-th element of a batched response.
func (p Path) WithBatchIndex(i int) (Path, error) {
	pos := p.BatchPosition()
	if pos < 0 {
		return nil, phonnxerrors.Usagef("path '%s' does not contain %s", p, BatchToken)
	}
	if i < 0 {
		return nil, phonnxerrors.Usagef("negative batch index %d", i)
	}
	out := make(Path, len(p))
	copy(out, p)
	out[pos] = Segment{Key: strconv.Itoa(i), Kind: Plain}
	return out, nil
}

func (p Path) String() string {
	keys := make([]string, len(p))
	for i, s := range p {
		keys[i] = s.String()
	}
	return strings.Join(keys, separator)
}

func (p Path) validate() error {
	if len(p) == 0 {
		return phonnxerrors.Usagef("path is empty")
	}
	batches := 0
	for i, s := range p {
		if s.Kind == Batch {
			batches++
			continue
		}
		if s.Key == "" {
			return phonnxerrors.Usagef("path segment %d is empty", i)
		}
	}
	if batches > 1 {
		return phonnxerrors.Usagef("path '%s' contains %s more than once", p, BatchToken)
	}
	return nil
}
