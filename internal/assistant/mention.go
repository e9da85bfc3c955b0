package assistant

import (
	"regexp"
	"strings"
)

// MentionToken invokes the assistant when it appears in message text.
// Matching is case-insensitive.
const MentionToken = "@aura"

// Fallback is stored as the reply whenever the completion provider
// cannot answer.
const Fallback = "Sorry, I couldn't come up with an answer right now. Please try again in a moment."

// SystemPrompt primes the assistant for in-chat replies.
const SystemPrompt = `You are Aura, a helpful assistant inside a club messaging app.

Rules:
- Be concise and conversational. This is chat, not an essay.
- Plain text only: no markdown headers, no code fences unless asked.
- Answer from the conversation context when it is relevant.
- Keep answers under 150 words.`

var mentionRe = regexp.MustCompile(`(?i)` + regexp.QuoteMeta(MentionToken))

func ContainsMention(text string) bool {
	return mentionRe.MatchString(text)
}

// StripMention removes every occurrence of the token so the provider
// never sees it.
func StripMention(text string) string {
	return strings.TrimSpace(mentionRe.ReplaceAllString(text, ""))
}
