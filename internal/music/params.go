package music

import (
	"regexp"
	"strings"

	"github.com/harmonygenie/api/internal/model"
)

var genrePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)genre:?\s*([a-zA-Z0-9 &-]+)`),
	regexp.MustCompile(`(?i)([a-zA-Z]+)\s+music`),
	regexp.MustCompile(`(?i)([a-zA-Z]+)\s+song`),
	regexp.MustCompile(`(?i)([a-zA-Z]+)\s+track`),
	regexp.MustCompile(`(?i)([a-zA-Z]+)\s+beat`),
}

var moodPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)mood:?\s*([a-zA-Z0-9 ]+)`),
	regexp.MustCompile(`(?i)feeling:?\s*([a-zA-Z0-9 ]+)`),
	regexp.MustCompile(`(?i)([a-zA-Z]+)\s+vibe`),
	regexp.MustCompile(`(?i)([a-zA-Z]+)\s+feeling`),
}

var titlePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)title:?\s*["']?([^"'\n]+)["']?`),
	regexp.MustCompile(`(?i)called:?\s*["']?([^"'\n]+)["']?`),
	regexp.MustCompile(`(?i)named:?\s*["']?([^"'\n]+)["']?`),
}

var instrumentalPattern = regexp.MustCompile(`(?i)instrumental|no vocals|without vocals|no singing|without singing`)

// commonTags is the fixed tag vocabulary matched as whole words against the
// combined text.
var commonTags = []string{
	"pop", "rock", "jazz", "hip hop", "rap", "electronic", "dance", "ambient",
	"lo-fi", "classical", "folk", "country", "r&b", "soul", "funk", "metal",
	"punk", "indie", "blues", "reggae", "disco", "techno", "house", "trance",
	"dubstep", "trap", "edm", "orchestral", "cinematic", "acoustic", "vocal",
	"upbeat", "sad", "happy", "energetic", "calm", "relaxing", "intense",
	"emotional", "dark", "bright", "dreamy", "nostalgic", "futuristic",
}

var tagPatterns = buildTagPatterns()

func buildTagPatterns() map[string]*regexp.Regexp {
	patterns := make(map[string]*regexp.Regexp, len(commonTags))
	for _, tag := range commonTags {
		patterns[tag] = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(tag) + `\b`)
	}
	return patterns
}

var musicKeywords = []string{
	"music", "song", "track", "beat", "melody", "tune", "audio",
	"generate", "create", "make", "compose", "produce",
	"ambient", "pop", "rock", "jazz", "hip hop", "lo-fi", "electronic",
}

// IsMusicRequest reports whether a user message looks like a request to
// generate music. Deliberately loose; false positives only cost an agent
// round-trip.
func IsMusicRequest(text string) bool {
	lower := strings.ToLower(text)
	for _, keyword := range musicKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}

// ExtractParams runs two independent extractions, one over the user's text
// and one over the agent's reply, and merges them field by field with the
// user's values winning on conflict. Tags come from the fixed vocabulary and
// are deduplicated across both texts.
func ExtractParams(userText, agentText string) model.GenerationParams {
	user := extractFrom(userText)
	agent := extractFrom(agentText)

	params := model.GenerationParams{
		Genre: pick(user.Genre, agent.Genre),
		Mood:  pick(user.Mood, agent.Mood),
		Title: pick(user.Title, agent.Title),
	}

	combined := userText + " " + agentText
	params.Instrumental = instrumentalPattern.MatchString(userText)

	for _, tag := range commonTags {
		if tagPatterns[tag].MatchString(combined) {
			params.Tags = append(params.Tags, tag)
		}
	}

	return params
}

func extractFrom(text string) model.GenerationParams {
	return model.GenerationParams{
		Genre: firstMatch(genrePatterns, text),
		Mood:  firstMatch(moodPatterns, text),
		Title: firstMatch(titlePatterns, text),
	}
}

func pick(preferred, fallback string) string {
	if preferred != "" {
		return preferred
	}
	return fallback
}

func firstMatch(patterns []*regexp.Regexp, text string) string {
	for _, pattern := range patterns {
		if m := pattern.FindStringSubmatch(text); m != nil && m[1] != "" {
			return strings.TrimSpace(m[1])
		}
	}
	return ""
}

// DeriveTitle falls back to a mood/genre based title when the conversation
// named no track.
func DeriveTitle(params model.GenerationParams) string {
	if params.Title != "" {
		return params.Title
	}
	mood := params.Mood
	if mood == "" {
		mood = "Ambient"
	}
	genre := params.Genre
	if genre == "" {
		genre = "Electronic"
	}
	return capitalize(mood) + " " + capitalize(genre) + " Experience"
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// ClassifyLyrics maps the extracted parameters to a lyrics mode.
func ClassifyLyrics(params model.GenerationParams) model.LyricsType {
	if params.Instrumental {
		return model.LyricsTypeInstrumental
	}
	return model.LyricsTypeGenerate
}
