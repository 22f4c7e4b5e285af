// Package detector identifies the language of a text. It wraps lingua-go
// and adds a script-based shortcut for Tibetan, which lingua does not model.
package detector

import (
	"unicode"

	lingua "github.com/pemistahl/lingua-go"
)

// tibetanScriptRatio is the fraction of letters that must fall in the
// Tibetan Unicode block for the script shortcut to fire.
const tibetanScriptRatio = 0.5

type Detector struct {
	detector lingua.LanguageDetector
}

func New() *Detector {
	detector := lingua.NewLanguageDetectorBuilder().
		FromAllLanguages().
		Build()

	return &Detector{detector: detector}
}

func (d *Detector) Detect(text string) (lingua.Language, bool) {
	if text == "" {
		return lingua.Unknown, false
	}
	return d.detector.DetectLanguageOf(text)
}

// DetectISO returns the ISO 639-1 code of the detected language. Texts
// written predominantly in Tibetan script report "BO" directly, since the
// statistical detector has no Tibetan model.
func (d *Detector) DetectISO(text string) (string, bool) {
	if IsTibetan(text) {
		return "BO", true
	}
	lang, ok := d.Detect(text)
	if !ok {
		return "", false
	}
	return lang.IsoCode639_1().String(), true
}

// IsTibetan reports whether the majority of letters in text belong to the
// Tibetan Unicode block.
func IsTibetan(text string) bool {
	letters, tibetan := 0, 0
	for _, r := range text {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		if unicode.Is(unicode.Tibetan, r) {
			tibetan++
		}
	}
	return letters > 0 && float64(tibetan)/float64(letters) >= tibetanScriptRatio
}
