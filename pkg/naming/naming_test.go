package naming

import (
	"testing"

	"github.com/stretchr/testify/require"

	phonnxerrors "github.com/beastbyte/phonnx/pkg/errors"
)

func TestSplit(t *testing.T) {
	require.Equal(t, []string{"abc", "def", "ghi"}, Split("abc_def-ghi"))
	require.Equal(t, []string{"abc", "", "def"}, Split("abc__def"))
	require.Equal(t, []string{"abc"}, Split("abc"))
}

func TestParse(t *testing.T) {
	for _, tc := range []struct {
		name     string
		nodeName string
		expected ParsedName
		reason   string
	}{
		{
			name:     "input_underscores",
			nodeName: "falcon_input_1_abc_0",
			expected: ParsedName{Namespace: "falcon", Role: InputRole, ColumnTypeCode: "1"},
		},
		{
			name:     "input_mixed_delimiters",
			nodeName: "falcon_input-3-bce_0",
			expected: ParsedName{Namespace: "falcon", Role: InputRole, ColumnTypeCode: "3"},
		},
		{
			name:     "dynattr_without_code",
			nodeName: "falcon-dynattr",
			expected: ParsedName{Namespace: "falcon", Role: DynamicAttributeRole},
		},
		{
			name:     "dynattr",
			nodeName: "phonnx-dynattr-1",
			expected: ParsedName{Namespace: "phonnx", Role: DynamicAttributeRole, ColumnTypeCode: "1"},
		},
		{
			name:     "stage_name_code_is_third_segment",
			nodeName: "node_pl_101",
			expected: ParsedName{Namespace: "node", Role: StageRole, ColumnTypeCode: "101"},
		},
		{
			name:     "no_delimiter",
			nodeName: "falcon",
			reason:   "missing role",
		},
		{
			name:     "empty_namespace",
			nodeName: "_input_1",
			reason:   "empty namespace",
		},
		{
			name:     "empty_role",
			nodeName: "ns__1",
			reason:   "empty role",
		},
		{
			name:     "input_without_code",
			nodeName: "ns_input",
			reason:   "missing column type code",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			parsed, err := Parse(tc.nodeName)
			if tc.reason != "" {
				require.ErrorIs(t, err, phonnxerrors.ErrInvalidName)
				var invalid *InvalidNameError
				require.ErrorAs(t, err, &invalid)
				require.Equal(t, tc.reason, invalid.Reason)
				require.Equal(t, tc.nodeName, invalid.Name)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.expected, parsed)
		})
	}
}

func TestParseOutput(t *testing.T) {
	for _, tc := range []struct {
		nodeName          string
		valid             bool
		expectedNamespace string
		expectedStage     int
	}{
		{nodeName: "abc-pl-0/foo", valid: true, expectedNamespace: "abc", expectedStage: 0},
		{nodeName: "abc_pl_1/foo", valid: true, expectedNamespace: "abc", expectedStage: 1},
		{nodeName: "abc_pl_0/", valid: true, expectedNamespace: "abc", expectedStage: 0},
		{nodeName: "abc-pl_12/x/y", valid: true, expectedNamespace: "abc", expectedStage: 12},
		{nodeName: "my_ns_pl_3/out", valid: true, expectedNamespace: "my_ns", expectedStage: 3},
		{nodeName: "my-model_pl_3/out", valid: true, expectedNamespace: "my-model", expectedStage: 3},
		{nodeName: "abc_pl_0"},
		{nodeName: "abc_pl_a/foo"},
		{nodeName: "abc_pl_afoo"},
		{nodeName: "pl_0/foo"},
		{nodeName: "abc_input_0/foo"},
	} {
		t.Run(tc.nodeName, func(t *testing.T) {
			parsed, err := ParseOutput(tc.nodeName)
			if !tc.valid {
				require.ErrorIs(t, err, phonnxerrors.ErrInvalidName)
				require.ErrorContains(t, err, "invalid output node name")
				return
			}
			require.NoError(t, err)
			require.True(t, parsed.HasStage)
			require.Equal(t, StageRole, parsed.Role)
			require.Equal(t, tc.expectedStage, parsed.StageID)
			require.Equal(t, tc.expectedNamespace, parsed.Namespace)
		})
	}
}
