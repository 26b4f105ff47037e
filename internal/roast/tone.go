// Package roast turns a name and a tone into roast text. Generation falls
// back from the configured generative credentials to the stored corpus and
// finally to a built-in bank, so a request always produces text.
package roast

import (
	"slices"
	"strings"
)

// Tone selects the instruction template used for generation.
type Tone int

// Tones, in the order they are presented to clients.
const (
	Savage Tone = iota
	Friendly
	Professional
	Random
	Witty
	Gentle
	Epic
	Classic

	numTones
)

// DefaultTone is used for blank or unknown modes.
const DefaultTone = Savage

var toneNames = [numTones]string{
	Savage:       "Savage",
	Friendly:     "Friendly",
	Professional: "Professional",
	Random:       "Random",
	Witty:        "Witty",
	Gentle:       "Gentle",
	Epic:         "Epic",
	Classic:      "Classic",
}

// String returns the canonical tone name.
func (t Tone) String() string {
	if t < 0 || t >= numTones {
		return toneNames[DefaultTone]
	}
	return toneNames[t]
}

// Tones returns every tone in presentation order.
func Tones() []Tone {
	out := make([]Tone, numTones)
	for i := range out {
		out[i] = Tone(i)
	}
	return out
}

// ToneNames returns a copy of the canonical names of every tone.
func ToneNames() []string {
	return slices.Clone(toneNames[:])
}

// ParseTone matches mode against the tone names case-insensitively. Anything
// else, including the empty string, resolves to DefaultTone.
func ParseTone(mode string) Tone {
	mode = strings.TrimSpace(mode)
	for i, name := range toneNames {
		if strings.EqualFold(mode, name) {
			return Tone(i)
		}
	}
	return DefaultTone
}
