package music

import (
	"regexp"
	"strings"
)

// MaxPromptLength is the hard cap the generation API accepts for the
// description prompt, ellipsis included.
const MaxPromptLength = 200

var sentenceSplitter = regexp.MustCompile(`[.!?\n]+`)

var descriptiveCue = regexp.MustCompile(`(?i)\b(genre|mood|style|sound|sounds|feel|feels|feeling|vibe|tempo|beat|melody|instrument|instruments)\b`)

// BuildPrompt concatenates the user's text with the descriptive sentences of
// the agent's reply and enforces the length cap. Agent sentences without a
// descriptive cue are dropped so pleasantries never reach the generation API.
func BuildPrompt(userText, agentText string) string {
	parts := []string{strings.TrimSpace(userText)}

	for _, sentence := range sentenceSplitter.Split(agentText, -1) {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}
		if descriptiveCue.MatchString(sentence) {
			parts = append(parts, sentence)
		}
	}

	prompt := strings.Join(parts, ". ")
	return Truncate(prompt, MaxPromptLength)
}

// Truncate caps s at max characters, the 3-character ellipsis counted in.
// Counts runes, not bytes, so multibyte input is never split mid-character.
func Truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}
