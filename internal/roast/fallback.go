package roast

import "strings"

// Placeholder is replaced with the requested name in every returned roast.
const Placeholder = "{name}"

// DefaultName is used when the request carries no name.
const DefaultName = "friend"

var localRoasts = [...]string{
	"Hey {name}, you're like a participation trophy.\nEveryone gets one, but nobody really wants it! 🏆😂",
	"Yo {name}, if you were any more basic,\nyou'd be a pH strip! 🧪😆",
	"{name}, you're like Monday morning.\nNobody's excited to see you! ☕😴",
	"Listen {name}, you've got the personality\nof unsalted crackers! 🍘😊",
	"Oh {name}, you're like a broken GPS.\nAlways lost and giving wrong directions! 🧭🤦‍♂️",
	"Hey {name}, you're like a software update.\nEveryone ignores you until there's a problem! 💻😅",
	"{name}, you're like a math problem.\nComplicated, confusing, and most people skip you! 🧮😂",
	"Sup {name}, you're like a group project.\nSomeone always has to carry you! 📚🎒",
}

// LocalRoasts returns a copy of the built-in roast bank.
func LocalRoasts() []string {
	out := make([]string, len(localRoasts))
	copy(out, localRoasts[:])
	return out
}

// Substitute replaces every occurrence of Placeholder in text with name.
// Placeholder tokens inside name are dropped first so none survive.
func Substitute(text, name string) string {
	return strings.ReplaceAll(text, Placeholder, stripPlaceholder(name))
}

func stripPlaceholder(name string) string {
	for strings.Contains(name, Placeholder) {
		name = strings.ReplaceAll(name, Placeholder, "")
	}
	return name
}
