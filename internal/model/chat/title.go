package chat

import "strings"

// TitlePolicy derives a session title from the first user input. Two
// policies shipped in different builds of the mobile client; both are kept
// and selected by configuration.
type TitlePolicy func(text string) string

// TitleFirstChars truncates the trimmed input to at most limit runes.
func TitleFirstChars(limit int) TitlePolicy {
	return func(text string) string {
		runes := []rune(strings.TrimSpace(text))
		if len(runes) <= limit {
			return string(runes)
		}
		return string(runes[:limit])
	}
}

// TitleFirstWords keeps the first count whitespace-separated words and marks
// truncation with an ellipsis.
func TitleFirstWords(count int) TitlePolicy {
	return func(text string) string {
		words := strings.Fields(text)
		if len(words) <= count {
			return strings.Join(words, " ")
		}
		return strings.Join(words[:count], " ") + "…"
	}
}
