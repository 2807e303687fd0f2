package pathcodec

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	phonnxerrors "github.com/beastbyte/phonnx/pkg/errors"
)

func TestParse(t *testing.T) {
	for _, tc := range []struct {
		raw      string
		expected Path
		wantErr  bool
	}{
		{
			raw:      "a",
			expected: Path{{Key: "a"}},
		},
		{
			raw:      "a[],b",
			expected: Path{{Key: "a", Kind: ListWrap}, {Key: "b"}},
		},
		{
			raw:      "a,<<batch_dim>>,b[]",
			expected: Path{{Key: "a"}, {Kind: Batch}, {Key: "b", Kind: ListWrap}},
		},
		{
			raw:      "choices,0,message,content",
			expected: Path{{Key: "choices"}, {Key: "0"}, {Key: "message"}, {Key: "content"}},
		},
		{raw: "", wantErr: true},
		{raw: "a,,b", wantErr: true},
		{raw: "a,[]", wantErr: true},
		{raw: "<<batch_dim>>,a,<<batch_dim>>", wantErr: true},
	} {
		t.Run(tc.raw, func(t *testing.T) {
			p, err := Parse(tc.raw)
			if tc.wantErr {
				require.ErrorIs(t, err, phonnxerrors.ErrUsage)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.expected, p)
			require.Equal(t, tc.raw, p.String())
		})
	}

	_, err := FromKeys(nil)
	require.ErrorIs(t, err, phonnxerrors.ErrUsage)

	require.Panics(t, func() { MustParse("a,,b") })
}

func TestBuild(t *testing.T) {
	for _, tc := range []struct {
		raw      string
		value    any
		expected any
	}{
		{raw: "a", value: "value", expected: map[string]any{"a": "value"}},
		{raw: "a,b", value: "v", expected: map[string]any{"a": map[string]any{"b": "v"}}},
		{raw: "a[],b", value: "v", expected: map[string]any{"a": []any{map[string]any{"b": "v"}}}},
		{raw: "a,b[]", value: "v", expected: map[string]any{"a": map[string]any{"b": []any{"v"}}}},
		{raw: "a[]", value: 3, expected: map[string]any{"a": []any{3}}},
	} {
		t.Run(tc.raw, func(t *testing.T) {
			doc, err := Build(MustParse(tc.raw), tc.value)
			require.NoError(t, err)
			if diff := cmp.Diff(tc.expected, doc); diff != "" {
				t.Errorf("Build(%s) mismatch (-want +got):\n%s", tc.raw, diff)
			}
		})
	}

	t.Run("batch_token_rejected", func(t *testing.T) {
		_, err := Build(MustParse("a,<<batch_dim>>"), 1)
		require.ErrorIs(t, err, phonnxerrors.ErrUsage)
	})

	t.Run("empty_path_rejected", func(t *testing.T) {
		_, err := Build(Path{}, 1)
		require.ErrorIs(t, err, phonnxerrors.ErrUsage)

		_, err = Build(Path{{Key: ""}}, 1)
		require.ErrorIs(t, err, phonnxerrors.ErrUsage)
	})

	t.Run("fresh_documents", func(t *testing.T) {
		p := MustParse("a,b")
		first, err := Build(p, 1)
		require.NoError(t, err)
		second, err := Build(p, 1)
		require.NoError(t, err)

		first.(map[string]any)["a"].(map[string]any)["b"] = 2
		require.Equal(t, map[string]any{"a": map[string]any{"b": 1}}, second)
	})
}

func TestBuildBatched(t *testing.T) {
	for _, tc := range []struct {
		raw      string
		values   []any
		expected any
	}{
		{
			raw:      "<<batch_dim>>",
			values:   []any{1, 2},
			expected: []any{1, 2},
		},
		{
			raw:      "a,<<batch_dim>>",
			values:   []any{1, 2},
			expected: map[string]any{"a": []any{1, 2}},
		},
		{
			raw:    "a,<<batch_dim>>,b",
			values: []any{1, 2},
			expected: map[string]any{"a": []any{
				map[string]any{"b": 1},
				map[string]any{"b": 2},
			}},
		},
		{
			raw:    "a,<<batch_dim>>,b[]",
			values: []any{1, 2},
			expected: map[string]any{"a": []any{
				map[string]any{"b": []any{1}},
				map[string]any{"b": []any{2}},
			}},
		},
		{
			raw:    "<<batch_dim>>,text",
			values: []any{"x"},
			expected: []any{
				map[string]any{"text": "x"},
			},
		},
		{
			raw:      "a[],<<batch_dim>>",
			values:   []any{},
			expected: map[string]any{"a": []any{[]any{}}},
		},
	} {
		t.Run(tc.raw, func(t *testing.T) {
			doc, err := BuildBatched(MustParse(tc.raw), tc.values)
			require.NoError(t, err)
			if diff := cmp.Diff(tc.expected, doc); diff != "" {
				t.Errorf("BuildBatched(%s) mismatch (-want +got):\n%s", tc.raw, diff)
			}
		})
	}

	t.Run("missing_batch_token", func(t *testing.T) {
		_, err := BuildBatched(MustParse("a,b"), []any{1})
		require.ErrorIs(t, err, phonnxerrors.ErrUsage)
	})

	t.Run("duplicated_batch_token", func(t *testing.T) {
		_, err := BuildBatched(Path{{Kind: Batch}, {Kind: Batch}}, []any{1})
		require.ErrorIs(t, err, phonnxerrors.ErrUsage)
	})
}

func TestExtract(t *testing.T) {
	nested := map[string]any{"a": map[string]any{"b": map[string]any{"c": "value"}}}

	for _, tc := range []struct {
		name     string
		doc      any
		raw      string
		expected Result
	}{
		{
			name:     "nested_maps",
			doc:      nested,
			raw:      "a,b,c",
			expected: Found("value"),
		},
		{
			name:     "missing_key",
			doc:      nested,
			raw:      "a,b,d",
			expected: Absent,
		},
		{
			name:     "list_index",
			doc:      map[string]any{"a": map[string]any{"b": []any{map[string]any{"c": "value"}}}},
			raw:      "a,b,0,c",
			expected: Found("value"),
		},
		{
			name:     "index_out_of_range",
			doc:      map[string]any{"a": []any{"x"}},
			raw:      "a,1",
			expected: Absent,
		},
		{
			name:     "numeric_falls_back_to_map_key",
			doc:      map[string]any{"0": "zero"},
			raw:      "0",
			expected: Found("zero"),
		},
		{
			name:     "index_wins_over_map_key",
			doc:      []any{"by-index"},
			raw:      "0",
			expected: Found("by-index"),
		},
		{
			name:     "top_level_list",
			doc:      []any{[]any{0.1, 0.2}},
			raw:      "0",
			expected: Found([]any{0.1, 0.2}),
		},
		{
			name:     "scalar_cannot_be_walked",
			doc:      "text",
			raw:      "0",
			expected: Absent,
		},
		{
			name:     "whole_subtree",
			doc:      nested,
			raw:      "a",
			expected: Found(nested["a"]),
		},
		{
			name:     "null_value_is_found",
			doc:      map[string]any{"a": nil},
			raw:      "a",
			expected: Found(nil),
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			res, err := Extract(tc.doc, MustParse(tc.raw))
			require.NoError(t, err)
			require.Equal(t, tc.expected, res)
		})
	}

	t.Run("batch_token_rejected", func(t *testing.T) {
		_, err := Extract(nested, MustParse("a,<<batch_dim>>"))
		require.ErrorIs(t, err, phonnxerrors.ErrUsage)
	})

	t.Run("absent_or_default", func(t *testing.T) {
		res, err := Extract(nested, MustParse("x"))
		require.NoError(t, err)
		require.False(t, res.Found())
		require.Nil(t, res.Value())
		require.Equal(t, "", res.Or(""))
	})
}

func TestRoundTrip(t *testing.T) {
	for _, raw := range []string{"a", "a,b", "a[],b", "a,b[]", "a[],b[],c", "x,0,y", "1,2"} {
		for _, v := range []any{"v", 1.5, true, nil} {
			t.Run(fmt.Sprintf("%s/%v", raw, v), func(t *testing.T) {
				p := MustParse(raw)
				doc, err := Build(p, v)
				require.NoError(t, err)

				res, err := Extract(doc, p)
				require.NoError(t, err)
				require.True(t, res.Found())
				require.Equal(t, v, res.Value())
			})
		}
	}
}

func TestRoundTripThroughJSON(t *testing.T) {
	p := MustParse("data,<<batch_dim>>,embedding")
	doc, err := BuildBatched(p, []any{"a", "b", "c"})
	require.NoError(t, err)

	raw, err := json.Marshal(doc)
	require.NoError(t, err)
	var decoded any
	require.NoError(t, json.Unmarshal(raw, &decoded))

	for i, expected := range []string{"a", "b", "c"} {
		indexed, err := p.WithBatchIndex(i)
		require.NoError(t, err)
		res, err := Extract(decoded, indexed)
		require.NoError(t, err)
		require.Equal(t, Found(expected), res)
	}

	indexed, err := p.WithBatchIndex(3)
	require.NoError(t, err)
	res, err := Extract(decoded, indexed)
	require.NoError(t, err)
	require.Equal(t, Absent, res)
}

func TestWithBatchIndex(t *testing.T) {
	p := MustParse("data,<<batch_dim>>,embedding")
	require.Equal(t, 1, p.BatchPosition())

	indexed, err := p.WithBatchIndex(4)
	require.NoError(t, err)
	require.Equal(t, "data,4,embedding", indexed.String())
	require.Equal(t, -1, indexed.BatchPosition())
	require.Equal(t, "data,<<batch_dim>>,embedding", p.String())

	_, err = p.WithBatchIndex(-1)
	require.ErrorIs(t, err, phonnxerrors.ErrUsage)

	_, err = MustParse("data").WithBatchIndex(0)
	require.ErrorIs(t, err, phonnxerrors.ErrUsage)
}
