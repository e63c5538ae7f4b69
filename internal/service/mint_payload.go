package service

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/harmonygenie/api/internal/model"
)

// mintAttributes is the JSON blob embedded in the NFT's attributes argument.
type mintAttributes struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	MediaURL    string `json:"mediaUrl"`
	Genre       string `json:"genre"`
	Mood        string `json:"mood,omitempty"`
	CreatedAt   string `json:"createdAt"`
}

func buildMintAttributes(track *model.TrackData) (string, error) {
	genre := track.Metadata.Genre
	if genre == "" {
		genre = "AI Music"
	}
	mood := track.Metadata.Mood
	if mood == "" {
		mood = "unique"
	}

	attrs := mintAttributes{
		Title:       track.Metadata.Title,
		Description: fmt.Sprintf("A unique AI-generated %s track with %s mood.", genre, mood),
		MediaURL:    track.URL,
		Genre:       genre,
		Mood:        track.Metadata.Mood,
		CreatedAt:   time.Now().UTC().Format(time.RFC3339),
	}

	data, err := json.Marshal(attrs)
	if err != nil {
		return "", fmt.Errorf("failed to marshal attributes: %w", err)
	}
	return string(data), nil
}

// buildESDTNFTCreate assembles the @-delimited smart contract call. String
// arguments are hex-encoded UTF-8; numeric arguments are minimal big-endian
// hex padded to an even number of digits.
func buildESDTNFTCreate(collection string, quantity uint64, name string, royalties int, mediaURL, attributes string) string {
	args := []string{
		"ESDTNFTCreate",
		hexString(collection),
		hexUint(quantity),
		hexString(name),
		hexUint(uint64(royalties)),
		hexString(mediaURL),
		hexString(attributes),
	}
	return strings.Join(args, "@")
}

func hexString(s string) string {
	return hex.EncodeToString([]byte(s))
}

func hexUint(v uint64) string {
	if v == 0 {
		return "00"
	}
	s := fmt.Sprintf("%x", v)
	if len(s)%2 != 0 {
		s = "0" + s
	}
	return s
}
