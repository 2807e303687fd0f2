package ops

import (
	"regexp"
	"strings"

	phonnxerrors "github.com/beastbyte/phonnx/pkg/errors"
	"github.com/beastbyte/phonnx/pkg/tensor"
)

// placeholderRegex matches "$$", "$name", "${name}" and a lone "$".
var placeholderRegex = regexp.MustCompile(`\$(?:(\$)|([_a-zA-Z][_a-zA-Z0-9]*)|\{([_a-zA-Z][_a-zA-Z0-9]*)\}|)`)

type TemplateFormatterConfig struct {
	Template string
	// Variables is the comma separated name of every input column.
	Variables string `validate:"required"`
}

// TemplateFormatter renders one string per row, substituting $name and ${name} with the
// row's value of the column called name. "$$" renders a literal "$".
type TemplateFormatter struct {
	template  string
	variables []string
}

func NewTemplateFormatter(cfg TemplateFormatterConfig) (*TemplateFormatter, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return &TemplateFormatter{
		template:  cfg.Template,
		variables: splitList(cfg.Variables),
	}, nil
}

// Run formats every row of a (batch, len(variables)) string tensor into a (batch, 1) tensor.
func (f *TemplateFormatter) Run(input *tensor.Tensor) (*tensor.Tensor, error) {
	rows, err := stringRows(input, "input_data", len(f.variables))
	if err != nil {
		return nil, err
	}

	formatted := make([]string, len(rows))
	for i, row := range rows {
		vars := make(map[string]string, len(row))
		for j, name := range f.variables {
			vars[name] = row[j]
		}
		s, err := f.substitute(vars)
		if err != nil {
			return nil, err
		}
		formatted[i] = s
	}
	return stringColumn(formatted), nil
}

func (f *TemplateFormatter) substitute(vars map[string]string) (string, error) {
	var (
		b    strings.Builder
		last int
	)
	for _, m := range placeholderRegex.FindAllStringSubmatchIndex(f.template, -1) {
		b.WriteString(f.template[last:m[0]])
		last = m[1]

		switch {
		case m[2] >= 0:
			b.WriteString("$")
		case m[4] >= 0 || m[6] >= 0:
			name := group(f.template, m, 2)
			if name == "" {
				name = group(f.template, m, 3)
			}
			v, ok := vars[name]
			if !ok {
				return "", phonnxerrors.Usagef("template variable '%s' is not provided", name)
			}
			b.WriteString(v)
		default:
			return "", phonnxerrors.Usagef("invalid placeholder in template at position %d", m[0])
		}
	}
	b.WriteString(f.template[last:])
	return b.String(), nil
}

func group(s string, m []int, n int) string {
	if m[2*n] < 0 {
		return ""
	}
	return s[m[2*n]:m[2*n+1]]
}
