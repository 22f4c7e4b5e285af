// Package validator checks that a candidate translation is in the expected target language.
package validator

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/Garblesnarff/Translate-sub007/internal/detector"
)

// minValidationLength is the minimum rune count required to attempt language
// detection. Shorter texts produce unreliable results and are accepted
// without validation.
const minValidationLength = 20

// Validator checks that a candidate translation is written in the expected
// target language. The underlying language detector is expensive to build;
// reuse the instance.
type Validator struct {
	det *detector.Detector
}

// New creates a Validator backed by the lingua-go language detector.
func New() *Validator {
	return &Validator{det: detector.New()}
}

// IsValid returns true when candidateText appears to be written in targetLang.
//
// Short texts, texts whose language cannot be determined, and texts carrying
// embedded original-script spans (which skew detection toward the source
// language) pass without error. When the detected language differs from
// targetLang the returned error names both codes.
func (v *Validator) IsValid(candidateText, targetLang string) (bool, error) {
	if targetLang == "" {
		return true, nil
	}

	text := strings.TrimSpace(candidateText)
	if text == "" {
		return false, fmt.Errorf("candidate translation is empty")
	}

	// Detector is unreliable for very short texts; skip validation.
	if len([]rune(text)) < minValidationLength {
		return true, nil
	}

	// Mixed-script candidates (translation plus parenthesized original
	// spans) confuse the detector; strip the original script first and
	// skip validation when little else remains.
	stripped := strings.TrimSpace(strings.Map(func(r rune) rune {
		if unicode.Is(unicode.Tibetan, r) {
			return -1
		}
		return r
	}, text))
	if len([]rune(stripped)) < minValidationLength {
		return true, nil
	}

	detected, ok := v.det.DetectISO(stripped)
	if !ok {
		// Ambiguous language, cannot validate; pass through.
		return true, nil
	}

	if !strings.EqualFold(detected, targetLang) {
		return false, fmt.Errorf("expected %s but detected %s", targetLang, detected)
	}

	return true, nil
}
