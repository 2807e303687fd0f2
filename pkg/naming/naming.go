// Package naming parses the node names of a computation graph.
//
// Node names carry their own metadata. Input and dynamic attribute names look like
//
//	<namespace>_<role>_<columnTypeCode>_...
//
// and pipeline-stage outputs like
//
//	<namespace>_pl_<stageId>/<suffix>
//
// where '_' and '-' are interchangeable delimiters, even within one name.
package naming

import (
	"fmt"
	"regexp"
	"strconv"

	phonnxerrors "github.com/beastbyte/phonnx/pkg/errors"
)

const (
	InputRole            = "input"
	DynamicAttributeRole = "dynattr"
	StageRole            = "pl"
)

var (
	delimiterRegex  = regexp.MustCompile(`[_-]`)
	outputNameRegex = regexp.MustCompile(`^(.+)[-_]` + StageRole + `[-_](\d+)/.*$`)
)

// ParsedName is the metadata encoded in a node name. StageID is only meaningful when
// HasStage is set, i.e. for names returned by ParseOutput.
type ParsedName struct {
	Namespace      string
	Role           string
	ColumnTypeCode string
	StageID        int
	HasStage       bool
}

// InvalidNameError is returned when a node name does not follow the naming convention.
type InvalidNameError struct {
	Name   string
	Reason string
}

func (i *InvalidNameError) Error() string {
	return fmt.Sprintf("invalid node name '%s': %s", i.Name, i.Reason)
}

func (i *InvalidNameError) Is(target error) bool {
	if target == phonnxerrors.ErrInvalidName {
		return true
	}
	_, ok := target.(*InvalidNameError)
	return ok
}

// Split tokenizes a node name on the delimiter class. Empty segments are kept.
func Split(name string) []string {
	return delimiterRegex.Split(name, -1)
}

// Parse reads the namespace, role and column type code of an input or dynamic attribute
// name. The column type code is mandatory for inputs only.
func Parse(name string) (ParsedName, error) {
	segments := Split(name)
	if len(segments) < 2 {
		return ParsedName{}, &InvalidNameError{Name: name, Reason: "missing role"}
	}
	if segments[0] == "" {
		return ParsedName{}, &InvalidNameError{Name: name, Reason: "empty namespace"}
	}
	if segments[1] == "" {
		return ParsedName{}, &InvalidNameError{Name: name, Reason: "empty role"}
	}

	parsed := ParsedName{
		Namespace: segments[0],
		Role:      segments[1],
	}
	if len(segments) > 2 {
		parsed.ColumnTypeCode = segments[2]
	}
	if parsed.Role == InputRole && parsed.ColumnTypeCode == "" {
		return ParsedName{}, &InvalidNameError{Name: name, Reason: "missing column type code"}
	}

	return parsed, nil
}

// ParseOutput reads a pipeline-stage output name. Names without the '/' suffix or with a
// non-numeric stage are rejected.
func ParseOutput(name string) (ParsedName, error) {
	match := outputNameRegex.FindStringSubmatch(name)
	if match == nil {
		return ParsedName{}, &InvalidNameError{Name: name, Reason: "invalid output node name"}
	}

	stage, err := strconv.Atoi(match[2])
	if err != nil {
		return ParsedName{}, &InvalidNameError{Name: name, Reason: fmt.Sprintf("stage id out of range: %v", err)}
	}

	return ParsedName{
		Namespace: match[1],
		Role:      StageRole,
		StageID:   stage,
		HasStage:  true,
	}, nil
}
