package music

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/harmonygenie/api/internal/model"
)

func TestExtractParams_AmbientRelaxingScenario(t *testing.T) {
	userText := "create a relaxing ambient track with piano"
	agentText := "Sure! I'll make something with genre: ambient, mood: relaxing."

	params := ExtractParams(userText, agentText)

	if params.Genre != "ambient" {
		t.Errorf("expected genre %q, got %q", "ambient", params.Genre)
	}
	if params.Mood != "relaxing" {
		t.Errorf("expected mood %q, got %q", "relaxing", params.Mood)
	}
	if params.Instrumental {
		t.Error("expected instrumental false")
	}
}

func TestExtractParams_UserValuesWin(t *testing.T) {
	userText := "I want a jazz song"
	agentText := "How about some rock music instead?"

	params := ExtractParams(userText, agentText)

	if params.Genre != "jazz" {
		t.Errorf("expected user genre to win, got %q", params.Genre)
	}
}

func TestExtractParams_InstrumentalFromUserText(t *testing.T) {
	params := ExtractParams("make an instrumental lo-fi beat", "sure, with vocals maybe?")
	if !params.Instrumental {
		t.Error("expected instrumental true")
	}

	// Only the user's text counts for the instrumental cue.
	params = ExtractParams("make a lo-fi beat", "an instrumental would suit this")
	if params.Instrumental {
		t.Error("expected instrumental false when only the agent mentions it")
	}
}

func TestExtractParams_TagsFromVocabulary(t *testing.T) {
	params := ExtractParams("an upbeat pop track", "something energetic and happy")

	want := map[string]bool{"pop": true, "upbeat": true, "energetic": true, "happy": true}
	for _, tag := range params.Tags {
		if !want[tag] {
			t.Errorf("unexpected tag %q", tag)
		}
		delete(want, tag)
	}
	for tag := range want {
		t.Errorf("missing tag %q", tag)
	}
}

func TestIsMusicRequest(t *testing.T) {
	cases := []struct {
		text string
		want bool
	}{
		{"create a relaxing ambient track with piano", true},
		{"make me a song", true},
		{"what's the weather like", false},
		{"hello", false},
		{"I love Jazz", true},
	}

	for _, tc := range cases {
		if got := IsMusicRequest(tc.text); got != tc.want {
			t.Errorf("IsMusicRequest(%q) = %v, want %v", tc.text, got, tc.want)
		}
	}
}

func TestDeriveTitle(t *testing.T) {
	if got := DeriveTitle(model.GenerationParams{Title: "Night Drive"}); got != "Night Drive" {
		t.Errorf("expected explicit title, got %q", got)
	}

	got := DeriveTitle(model.GenerationParams{Genre: "ambient", Mood: "relaxing"})
	if got != "Relaxing Ambient Experience" {
		t.Errorf("unexpected derived title %q", got)
	}

	got = DeriveTitle(model.GenerationParams{})
	if got != "Ambient Electronic Experience" {
		t.Errorf("unexpected default title %q", got)
	}
}

func TestClassifyLyrics(t *testing.T) {
	if got := ClassifyLyrics(model.GenerationParams{Instrumental: true}); got != model.LyricsTypeInstrumental {
		t.Errorf("expected instrumental, got %q", got)
	}
	if got := ClassifyLyrics(model.GenerationParams{}); got != model.LyricsTypeGenerate {
		t.Errorf("expected generate, got %q", got)
	}
}

func TestBuildPrompt_KeepsDescriptiveSentences(t *testing.T) {
	userText := "create a relaxing ambient track with piano"
	agentText := "Happy to help! The mood will be calm and the sound dreamy. See you later."

	prompt := BuildPrompt(userText, agentText)

	if !strings.Contains(prompt, userText) {
		t.Error("expected prompt to contain the user text")
	}
	if !strings.Contains(prompt, "The mood will be calm and the sound dreamy") {
		t.Error("expected the descriptive agent sentence in the prompt")
	}
	if strings.Contains(prompt, "Happy to help") {
		t.Error("expected pleasantries to be dropped")
	}
	if strings.Contains(prompt, "See you later") {
		t.Error("expected non-descriptive sentences to be dropped")
	}
}

func TestBuildPrompt_TruncatesAt200(t *testing.T) {
	userText := strings.Repeat("a very long description of the music ", 10)
	prompt := BuildPrompt(userText, "")

	if got := utf8.RuneCountInString(prompt); got != MaxPromptLength {
		t.Fatalf("expected exactly %d characters, got %d", MaxPromptLength, got)
	}
	if !strings.HasSuffix(prompt, "...") {
		t.Error("expected the ellipsis suffix")
	}
}

func TestBuildPrompt_TruncatesMultibyteCleanly(t *testing.T) {
	userText := strings.Repeat("é", 250)
	prompt := BuildPrompt(userText, "")

	if !utf8.ValidString(prompt) {
		t.Fatal("expected valid UTF-8 after truncation")
	}
	if got := utf8.RuneCountInString(prompt); got != MaxPromptLength {
		t.Errorf("expected exactly %d characters, got %d", MaxPromptLength, got)
	}
	if !strings.HasSuffix(prompt, "...") {
		t.Error("expected the ellipsis suffix")
	}
}

func TestBuildPrompt_ShortPromptUntouched(t *testing.T) {
	prompt := BuildPrompt("short", "")
	if prompt != "short" {
		t.Errorf("expected %q, got %q", "short", prompt)
	}
}
