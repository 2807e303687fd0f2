package ops

import (
	"math/rand"
	"regexp"
	"slices"
	"strings"

	"github.com/tidwall/gjson"
	"gonum.org/v1/gonum/stat/distuv"

	phonnxerrors "github.com/beastbyte/phonnx/pkg/errors"
	"github.com/beastbyte/phonnx/pkg/tensor"
)

// RandomLabel as the default label picks a candidate at random, weighted by its probability.
const RandomLabel = "<<RANDOM>>"

var flatObjectRegex = regexp.MustCompile(`\{[^{}]*\}`)

type LabelExtractorConfig struct {
	// DefaultLabel replaces a label that is not a candidate. RandomLabel draws a candidate.
	DefaultLabel string
	// ExtractKey is the key holding the label, or a list of labels.
	ExtractKey string `validate:"required"`
	// Size is the number of labels returned per row; rows are padded with "".
	Size int `validate:"gte=1"`
}

func DefaultLabelExtractorConfig() LabelExtractorConfig {
	return LabelExtractorConfig{
		DefaultLabel: RandomLabel,
		ExtractKey:   "label",
		Size:         1,
	}
}

// LabelExtractor reads labels out of the first JSON object embedded in model answers and
// maps them onto a closed set of candidates.
type LabelExtractor struct {
	defaultLabel string
	extractKey   string
	size         int
	rng          *rand.Rand
}

type LabelExtractorOption func(l *LabelExtractor)

// WithRand sets the generator used to draw random labels.
func WithRand(r *rand.Rand) LabelExtractorOption {
	return func(l *LabelExtractor) {
		l.rng = r
	}
}

func NewLabelExtractor(cfg LabelExtractorConfig, opts ...LabelExtractorOption) (*LabelExtractor, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	l := &LabelExtractor{
		defaultLabel: cfg.DefaultLabel,
		extractKey:   cfg.ExtractKey,
		size:         cfg.Size,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Run maps every answer of a (batch, 1) string tensor to at most Size labels among the
// flat candidates tensor. probabilities weighs the candidates for random defaults.
func (l *LabelExtractor) Run(answers, candidates, probabilities *tensor.Tensor) (*tensor.Tensor, error) {
	texts, err := singleColumn(answers, "json_strings")
	if err != nil {
		return nil, err
	}
	labels, weights, err := l.candidates(candidates, probabilities)
	if err != nil {
		return nil, err
	}

	var categorical *distuv.Categorical
	if l.defaultLabel == RandomLabel {
		if err := checkWeights(weights); err != nil {
			return nil, err
		}
		var c distuv.Categorical
		if l.rng != nil {
			c = distuv.NewCategorical(weights, l.rng)
		} else {
			c = distuv.NewCategorical(weights, nil)
		}
		categorical = &c
	}

	rows := make([][]any, len(texts))
	for i, text := range texts {
		found := extractLabels(text, l.extractKey)
		matched := make([]string, 0, l.size)
		for _, label := range found {
			switch {
			case slices.Contains(labels, label):
				if !slices.Contains(matched, label) {
					matched = append(matched, label)
				}
			case slices.Contains(labels, unquote(label)):
				if !slices.Contains(matched, unquote(label)) {
					matched = append(matched, unquote(label))
				}
			case categorical != nil:
				randomized := labels[int(categorical.Rand())]
				if !slices.Contains(matched, randomized) {
					matched = append(matched, randomized)
				}
			default:
				matched = append(matched, l.defaultLabel)
			}
		}
		rows[i] = toAny(fit(matched, l.size))
	}

	if len(rows) == 0 {
		return tensor.New([]int{0, l.size}, nil)
	}
	return tensor.FromRows(rows)
}

func (l *LabelExtractor) candidates(candidates, probabilities *tensor.Tensor) ([]string, []float64, error) {
	if candidates == nil || probabilities == nil {
		return nil, nil, phonnxerrors.Usagef("candidate labels and probabilities are required")
	}
	if candidates.NDim() != 1 || probabilities.NDim() != 1 {
		return nil, nil, phonnxerrors.Usagef("candidate labels and probabilities must be flat tensors")
	}
	if candidates.Size() != probabilities.Size() {
		return nil, nil, phonnxerrors.Usagef("candidate labels (%d) and probabilities (%d) must have the same size", candidates.Size(), probabilities.Size())
	}

	strs, err := candidates.As(tensor.String)
	if err != nil {
		return nil, nil, err
	}
	floats, err := probabilities.As(tensor.Double)
	if err != nil {
		return nil, nil, err
	}
	labels := make([]string, strs.Size())
	weights := make([]float64, floats.Size())
	for i := range labels {
		labels[i] = strs.At(i).(string)
		weights[i] = floats.At(i).(float64)
	}
	return labels, weights, nil
}

func checkWeights(weights []float64) error {
	var sum float64
	for _, w := range weights {
		if w < 0 {
			return phonnxerrors.Usagef("probabilities must not be negative, got %v", w)
		}
		sum += w
	}
	if sum <= 0 {
		return phonnxerrors.Usagef("probabilities must not all be zero to draw a random label")
	}
	return nil
}

// extractLabels returns the value under key in the first flat JSON object of text, flattened
// to strings. Objects written with single quotes are accepted. Text without a readable value
// yields a single entry that matches no candidate.
func extractLabels(text, key string) []string {
	missing := []string{""}

	object := flatObjectRegex.FindString(text)
	if object == "" {
		return missing
	}
	if !gjson.Valid(object) {
		object = strings.ReplaceAll(object, "'", `"`)
		if !gjson.Valid(object) {
			return missing
		}
	}

	value, ok := gjson.Parse(object).Map()[key]
	if !ok || value.Type == gjson.Null {
		return missing
	}
	if !value.IsArray() {
		return []string{value.String()}
	}

	var labels []string
	for _, item := range value.Array() {
		labels = append(labels, item.String())
	}
	return labels
}

func unquote(s string) string {
	return strings.NewReplacer(`'`, "", `"`, "").Replace(s)
}

func fit(labels []string, size int) []string {
	out := make([]string, size)
	copy(out, labels)
	return out
}
