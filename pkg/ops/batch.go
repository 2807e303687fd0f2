package ops

// Span is the half-open range [Start, End) of one batch.
type Span struct {
	Start int
	End   int
}

func (s Span) Len() int {
	return s.End - s.Start
}

// Batches splits n elements into consecutive spans of size elements, the last one possibly
// shorter. A size of 0 yields one span per element.
func Batches(n, size int) []Span {
	if size <= 0 {
		size = 1
	}
	spans := make([]Span, 0, (n+size-1)/size)
	for start := 0; start < n; start += size {
		spans = append(spans, Span{Start: start, End: min(start+size, n)})
	}
	return spans
}
