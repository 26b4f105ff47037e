package roast

import (
	"fmt"
	"strings"
)

// Personalization carries the stored facts about a person that are merged
// into the prompt.
type Personalization struct {
	Name       string
	SkinColor  string
	AnimalType string
	Traits     []string
}

// hasFacts reports whether p carries anything worth telling the model.
func (p *Personalization) hasFacts() bool {
	if p == nil {
		return false
	}
	if strings.TrimSpace(p.SkinColor) != "" || strings.TrimSpace(p.AnimalType) != "" {
		return true
	}
	for _, t := range p.Traits {
		if strings.TrimSpace(t) != "" {
			return true
		}
	}
	return false
}

const (
	contextStart = "[PERSONALIZATION CONTEXT]"
	contextEnd   = "[END PERSONALIZATION CONTEXT]"
)

// templates holds one instruction per tone; %s is the name.
var templates = [numTones]string{
	Savage: "Create a short (maximum 1 line), savage but hilarious roast for someone named %s. " +
		"Make it witty, clever, and brutally funny but not cruel. Use modern slang and make it sting in a playful way. Be concise and punchy.",
	Friendly: "Create a short (maximum 1 line), friendly, light-hearted roast for someone named %s. " +
		"Make it funny and teasing but warm and affectionate, like something you'd say to your best friend. Be concise and sweet.",
	Professional: "Create a short (maximum 1 line), professional but humorous roast for someone named %s. " +
		"Keep it workplace-appropriate, like office banter that is witty but respectful. Be concise and professional.",
	Random: "Create a short (maximum 1 line), completely random and absurd roast for someone named %s. " +
		"Be weird, unexpected, and hilariously nonsensical. Be concise and weird.",
	Witty: "Create a short (maximum 1 line), witty roast for someone named %s. " +
		"Rely on wordplay and a clever twist rather than insults. Be concise and sharp.",
	Gentle: "Create a short (maximum 1 line), gentle roast for someone named %s. " +
		"Tease softly so it makes them smile rather than wince. Be concise and kind.",
	Epic: "Create a short (maximum 1 line), epic roast for someone named %s. " +
		"Make it sound like a dramatic movie-trailer announcement of their flaws. Be concise and grandiose.",
	Classic: "Create a short (maximum 1 line), classic roast for someone named %s. " +
		"Use a timeless comedy-club setup and punchline. Be concise and clean.",
}

// Render builds the generation prompt for name in the given tone. When p
// carries at least one fact a delimited personalization block is appended;
// otherwise the prompt contains no personalization text at all.
func Render(name string, tone Tone, p *Personalization) string {
	if tone < 0 || tone >= numTones {
		tone = DefaultTone
	}

	var b strings.Builder
	fmt.Fprintf(&b, templates[tone], name)

	if !p.hasFacts() {
		return b.String()
	}

	b.WriteString("\n\n")
	b.WriteString(contextStart)
	b.WriteString("\nUse these facts about ")
	b.WriteString(name)
	b.WriteString(" to make the roast personal:\n")
	if s := strings.TrimSpace(p.SkinColor); s != "" {
		fmt.Fprintf(&b, "- Appearance: %s skin\n", s)
	}
	if a := strings.TrimSpace(p.AnimalType); a != "" {
		fmt.Fprintf(&b, "- Compare them to a %s\n", a)
	}
	traits := make([]string, 0, len(p.Traits))
	for _, t := range p.Traits {
		if t = strings.TrimSpace(t); t != "" {
			traits = append(traits, t)
		}
	}
	if len(traits) > 0 {
		fmt.Fprintf(&b, "- Traits: %s\n", strings.Join(traits, ", "))
	}
	b.WriteString(contextEnd)

	return b.String()
}
