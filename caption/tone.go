// Package caption holds the CaptionCraft domain types shared by the client,
// the session core and the captioning server.
package caption

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Tone is one of the fixed captioning styles a user can pick.
type Tone string

const (
	ToneCasual       Tone = "casual"
	ToneProfessional Tone = "professional"
	ToneWitty        Tone = "witty"
	TonePoetic       Tone = "poetic"
	ToneInstagram    Tone = "instagram"
)

// DefaultTone is selected when nothing else has been chosen
const DefaultTone = ToneCasual

// Tones lists every tone in display order
var Tones = []Tone{ToneCasual, ToneProfessional, ToneWitty, TonePoetic, ToneInstagram}

type toneInfo struct {
	label  string
	emoji  string
	prompt string
}

var toneTable = map[Tone]toneInfo{
	ToneCasual: {
		label: "Casual",
		emoji: "😊",
		prompt: "Generate a casual, friendly caption for this image. " +
			"Keep it conversational, like something you'd text a friend. " +
			"Warm and relatable. 1-2 sentences max.",
	},
	ToneProfessional: {
		label: "Professional",
		emoji: "💼",
		prompt: "Generate a polished, professional caption for this image. " +
			"Suitable for LinkedIn or a corporate blog. Thoughtful and articulate. " +
			"1-2 sentences max.",
	},
	ToneWitty: {
		label: "Witty",
		emoji: "😏",
		prompt: "Generate a clever, witty caption for this image. " +
			"Use humor, wordplay, or a sharp observation. " +
			"Make it the kind of caption that makes someone smirk. 1-2 sentences max.",
	},
	TonePoetic: {
		label: "Poetic",
		emoji: "✨",
		prompt: "Generate a lyrical, poetic caption for this image. " +
			"Use vivid imagery and evocative language. " +
			"It should feel like a line from a poem. 1-2 sentences max.",
	},
	ToneInstagram: {
		label: "Instagram",
		emoji: "📸",
		prompt: "Generate an Instagram-ready caption for this image. " +
			"Trendy, engaging, with relevant emojis and 3-5 hashtags. " +
			"The kind of caption that gets likes and comments.",
	},
}

// SystemPrompt is sent to every model provider alongside the tone instruction
const SystemPrompt = "You are CaptionCraft, an AI that generates perfect image captions. " +
	"You analyze images carefully and craft captions that match the requested tone. " +
	"Be creative, concise, and never generic. Every caption should feel tailored to the specific image."

// ParseTone converts user or wire input into a Tone. Matching ignores case and
// surrounding whitespace; anything outside the closed set is rejected.
func ParseTone(s string) (Tone, error) {
	t := Tone(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := toneTable[t]; !ok {
		return "", fmt.Errorf("invalid tone %q. Choose from: %s", s, strings.Join(ToneNames(), ", "))
	}
	return t, nil
}

// ToneNames returns the tone identifiers sorted alphabetically
func ToneNames() []string {
	names := make([]string, 0, len(Tones))
	for _, t := range Tones {
		names = append(names, string(t))
	}
	sort.Strings(names)
	return names
}

// Valid reports whether t is a member of the closed set
func (t Tone) Valid() bool {
	_, ok := toneTable[t]
	return ok
}

// Label is the human readable name, e.g. "Witty"
func (t Tone) Label() string {
	if info, ok := toneTable[t]; ok {
		return info.label
	}
	return string(t)
}

// Emoji returns the selector icon for the tone
func (t Tone) Emoji() string {
	return toneTable[t].emoji
}

// Prompt returns the model instruction for the tone.
// Unknown tones fall back to the casual instruction.
func (t Tone) Prompt() string {
	if info, ok := toneTable[t]; ok {
		return info.prompt
	}
	return toneTable[ToneCasual].prompt
}

func (t Tone) String() string { return string(t) }

// UnmarshalJSON rejects tones outside the closed set
func (t *Tone) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseTone(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
