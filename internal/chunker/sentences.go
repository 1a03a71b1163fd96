package chunker

import (
	"math"
	"unicode"
	"unicode/utf8"
)

// span is a half-open [Start, End) byte range into the body text. All
// chunking passes work in spans so the chunk texts always concatenate back to
// the exact body text.
type span struct {
	Start int
	End   int
}

// sentenceSpans partitions text into sentence spans. Trailing whitespace
// after a terminator belongs to the preceding sentence so the spans cover
// every byte.
func sentenceSpans(text string) []span {
	if text == "" {
		return nil
	}

	var spans []span
	start := 0
	i := 0
	for i < len(text) {
		r, size := utf8.DecodeRuneInString(text[i:])
		i += size
		if r != '.' && r != '!' && r != '?' {
			continue
		}

		//consume closing quotes and brackets after the terminator
		j := i
		for j < len(text) {
			r2, size2 := utf8.DecodeRuneInString(text[j:])
			if r2 == '"' || r2 == '\'' || r2 == ')' || r2 == ']' {
				j += size2
				continue
			}
			break
		}

		//the whitespace run rides along with this sentence
		k := j
		for k < len(text) {
			r2, size2 := utf8.DecodeRuneInString(text[k:])
			if !unicode.IsSpace(r2) {
				break
			}
			k += size2
		}
		if k == j {
			continue //mid-token period, e.g. "3.2" or "v1.0"
		}

		//require the next sentence to open plausibly, cuts abbreviation noise
		if k < len(text) {
			r2, _ := utf8.DecodeRuneInString(text[k:])
			if !unicode.IsUpper(r2) && !unicode.IsDigit(r2) && r2 != '(' && r2 != '"' {
				continue
			}
		}

		spans = append(spans, span{Start: start, End: k})
		start = k
		i = k
	}

	if start < len(text) {
		spans = append(spans, span{Start: start, End: len(text)})
	}
	return spans
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
