package line

import (
	"strings"
	"unicode/utf8"
)

// Trigger decides whether a chat message is addressed to the bot
type Trigger struct {
	prefix string
}

// NewTrigger creates a Trigger. An empty prefix accepts every message.
func NewTrigger(prefix string) *Trigger {
	return &Trigger{prefix: strings.TrimSpace(prefix)}
}

// Prefix returns the configured prefix
func (t *Trigger) Prefix() string {
	return t.prefix
}

// Extract returns the prompt carried by text. The prefix match is case
// insensitive and surrounding whitespace is dropped. ok is false when the
// prefix does not match or nothing is left after stripping it.
func (t *Trigger) Extract(text string) (prompt string, ok bool) {
	if t.prefix != "" {
		rest, matched := cutPrefixFold(text, t.prefix)
		if !matched {
			return "", false
		}
		text = rest
	}

	prompt = strings.TrimSpace(text)
	if prompt == "" {
		return "", false
	}
	return prompt, true
}

// cutPrefixFold strips prefix from s, comparing rune by rune under simple
// Unicode case folding. Byte lengths of folded pairs may differ.
func cutPrefixFold(s, prefix string) (string, bool) {
	for prefix != "" {
		if s == "" {
			return "", false
		}
		pr, pn := utf8.DecodeRuneInString(prefix)
		sr, sn := utf8.DecodeRuneInString(s)
		if !strings.EqualFold(string(pr), string(sr)) {
			return "", false
		}
		prefix, s = prefix[pn:], s[sn:]
	}
	return s, true
}
