package consensus

import (
	"strings"
	"unicode"

	"github.com/Garblesnarff/Translate-sub007/internal/translator"
)

// SplitSentences splits text at sentence-terminal punctuation (. ! ?)
// followed by whitespace and an uppercase letter. Embedded original-language
// spans survive intact because their own punctuation is never followed by
// that signal. If no boundary is found the whole text is one sentence.
func SplitSentences(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	runes := []rune(text)
	var sentences []string
	start := 0

	for i := 0; i < len(runes)-1; i++ {
		r := runes[i]
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		if !unicode.IsSpace(runes[i+1]) {
			continue
		}
		// Skip the whitespace run and require an uppercase opener.
		j := i + 1
		for j < len(runes) && unicode.IsSpace(runes[j]) {
			j++
		}
		if j >= len(runes) || !unicode.IsUpper(runes[j]) {
			continue
		}
		if s := strings.TrimSpace(string(runes[start : i+1])); s != "" {
			sentences = append(sentences, s)
		}
		start = j
		i = j - 1
	}

	if tail := strings.TrimSpace(string(runes[start:])); tail != "" {
		sentences = append(sentences, tail)
	}
	if len(sentences) == 0 {
		return []string{text}
	}
	return sentences
}

// hasOriginalScript reports whether s contains at least one rune in the
// Tibetan Unicode block, the reserved script range for embedded
// original-language spans.
func hasOriginalScript(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Tibetan, r) {
			return true
		}
	}
	return false
}

// EmbeddedSpan returns the content of the first parenthesized substring of
// sentence that contains original-script characters, or "" if none exists.
func EmbeddedSpan(sentence string) string {
	for _, span := range parenthesized(sentence) {
		if hasOriginalScript(span) {
			return span
		}
	}
	return ""
}

// StripOriginalSpans removes every parenthesized substring containing
// original-script characters, leaving the non-original-language portion of
// the sentence. Surrounding whitespace is collapsed.
func StripOriginalSpans(sentence string) string {
	var sb strings.Builder
	depth := 0
	spanStart := 0
	for i, r := range sentence {
		switch {
		case r == '(':
			if depth == 0 {
				spanStart = i
			}
			depth++
		case r == ')' && depth > 0:
			depth--
			if depth == 0 {
				inner := sentence[spanStart+1 : i]
				if !hasOriginalScript(inner) {
					sb.WriteString(sentence[spanStart : i+1])
				}
			}
		case depth == 0:
			sb.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(sb.String()), " ")
}

// parenthesized returns the contents of top-level (…) groups in s, in order.
func parenthesized(s string) []string {
	var spans []string
	depth := 0
	start := 0
	for i, r := range s {
		switch {
		case r == '(':
			if depth == 0 {
				start = i + 1
			}
			depth++
		case r == ')' && depth > 0:
			depth--
			if depth == 0 {
				spans = append(spans, s[start:i])
			}
		}
	}
	return spans
}

// Align splits the primary text and every helper candidate into sentences
// and matches helpers to each primary sentence position.
//
// Alignment is positional first: helper sentence i matches primary sentence
// i. When a helper has no sentence at position i, content alignment is
// attempted instead: an exact embedded-span match when the primary sentence
// carries one, otherwise the lexically most similar helper sentence above
// contentMatchThreshold. Positions with no usable helper sentence simply
// omit that helper. Output is deterministic for fixed inputs.
func Align(primaryText string, helpers []translator.Candidate) []SentenceAlignment {
	primarySentences := SplitSentences(primaryText)

	helperSentences := make([][]string, len(helpers))
	for i, h := range helpers {
		helperSentences[i] = SplitSentences(h.Text)
	}

	alignments := make([]SentenceAlignment, 0, len(primarySentences))
	for i, primary := range primarySentences {
		alignment := SentenceAlignment{
			Primary:      primary,
			EmbeddedSpan: EmbeddedSpan(primary),
		}

		for h, helper := range helpers {
			sentences := helperSentences[h]
			var matched string
			if i < len(sentences) {
				matched = sentences[i]
			} else {
				matched = contentMatch(primary, alignment.EmbeddedSpan, sentences)
			}
			if matched == "" {
				continue
			}
			alignment.Helpers = append(alignment.Helpers, HelperSentence{
				ModelID:    helper.ModelID,
				Sentence:   matched,
				Confidence: helper.Confidence,
			})
		}

		alignments = append(alignments, alignment)
	}
	return alignments
}

// contentMatch finds a helper sentence for a primary sentence that has no
// positional counterpart. With an embedded span the match must contain the
// exact span; otherwise the lexically closest sentence wins if it exceeds
// contentMatchThreshold.
func contentMatch(primary, span string, sentences []string) string {
	if span != "" {
		for _, s := range sentences {
			if strings.Contains(s, span) {
				return s
			}
		}
		return ""
	}

	reference := StripOriginalSpans(primary)
	best := ""
	bestSim := 0.0
	for _, s := range sentences {
		sim := Jaccard(reference, StripOriginalSpans(s))
		if sim > bestSim {
			best = s
			bestSim = sim
		}
	}
	if bestSim > contentMatchThreshold {
		return best
	}
	return ""
}
