package caption

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"testing"
)

func TestParseTone(t *testing.T) {
	tests := []struct {
		in      string
		want    Tone
		wantErr bool
	}{
		{"casual", ToneCasual, false},
		{"Witty", ToneWitty, false},
		{"  poetic ", TonePoetic, false},
		{"instagram", ToneInstagram, false},
		{"professional", ToneProfessional, false},
		{"sarcastic", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTone(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseTone(%q) = %q, want error", tt.in, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseTone(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseTone(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestToneNamesSorted(t *testing.T) {
	want := []string{"casual", "instagram", "poetic", "professional", "witty"}
	if got := ToneNames(); !reflect.DeepEqual(got, want) {
		t.Errorf("ToneNames() = %v, want %v", got, want)
	}
}

func TestToneMetadata(t *testing.T) {
	for _, tone := range Tones {
		if !tone.Valid() {
			t.Errorf("%q should be valid", tone)
		}
		if tone.Label() == "" || tone.Emoji() == "" || tone.Prompt() == "" {
			t.Errorf("%q is missing a label, emoji or prompt", tone)
		}
	}
	if got := ToneWitty.Label(); got != "Witty" {
		t.Errorf("Label() = %q, want Witty", got)
	}
	if Tone("bogus").Prompt() != ToneCasual.Prompt() {
		t.Error("unknown tone should fall back to the casual prompt")
	}
	if Tone("bogus").Valid() {
		t.Error("unknown tone reported valid")
	}
}

func TestToneUnmarshalRejectsUnknown(t *testing.T) {
	var e HistoryEntry
	if err := json.Unmarshal([]byte(`{"caption":"x","tone":"grumpy","preview":""}`), &e); err == nil {
		t.Error("unknown tone decoded without error")
	}

	if err := json.Unmarshal([]byte(`{"caption":"x","tone":"witty","preview":"data:"}`), &e); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if e.Tone != ToneWitty {
		t.Errorf("Tone = %q, want witty", e.Tone)
	}
}

func TestHistoryAddDedupesByCaption(t *testing.T) {
	h := History{
		{Caption: "A", Tone: ToneCasual},
		{Caption: "B", Tone: ToneWitty},
	}

	got := h.Add(HistoryEntry{Caption: "A", Tone: TonePoetic, Preview: "new"})

	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if want := (HistoryEntry{Caption: "A", Tone: TonePoetic, Preview: "new"}); got[0] != want {
		t.Errorf("got[0] = %+v, want %+v", got[0], want)
	}
	if got[1].Caption != "B" {
		t.Errorf("got[1].Caption = %q, want B", got[1].Caption)
	}
	// receiver untouched
	if h[0].Tone != ToneCasual {
		t.Errorf("receiver modified: %+v", h[0])
	}
}

func TestHistoryAddCaps(t *testing.T) {
	var h History
	for i := 0; i < MaxHistory+5; i++ {
		h = h.Add(HistoryEntry{Caption: fmt.Sprintf("caption %d", i), Tone: ToneCasual})
		if len(h) > MaxHistory {
			t.Fatalf("len = %d after %d adds, exceeds %d", len(h), i+1, MaxHistory)
		}
	}
	if len(h) != MaxHistory {
		t.Fatalf("len = %d, want %d", len(h), MaxHistory)
	}
	if want := fmt.Sprintf("caption %d", MaxHistory+4); h[0].Caption != want {
		t.Errorf("h[0] = %q, want %q", h[0].Caption, want)
	}
	if h[MaxHistory-1].Caption != "caption 5" {
		t.Errorf("last = %q, want caption 5", h[MaxHistory-1].Caption)
	}

	seen := map[string]bool{}
	for _, e := range h {
		if seen[e.Caption] {
			t.Errorf("duplicate caption %q", e.Caption)
		}
		seen[e.Caption] = true
	}
}

func TestHistoryTruncate(t *testing.T) {
	h := make(History, MaxHistory+3)
	if got := len(h.Truncate()); got != MaxHistory {
		t.Errorf("len(Truncate()) = %d, want %d", got, MaxHistory)
	}
	if got := len(h[:3].Truncate()); got != 3 {
		t.Errorf("len(Truncate()) = %d, want 3", got)
	}
}

func TestValidateUpload(t *testing.T) {
	tests := []struct {
		mediaType string
		size      int64
		wantErr   string
	}{
		{"image/png", 10, ""},
		{"image/jpeg", 10, ""},
		{"image/gif", 10, "Invalid file type 'image/gif'. Supported: JPG, PNG, WebP"},
		{"IMAGE/JPEG", 10, "Invalid file type 'IMAGE/JPEG'. Supported: JPG, PNG, WebP"},
		{"image/png; charset=binary", 10, "Invalid file type 'image/png; charset=binary'. Supported: JPG, PNG, WebP"},
		{"image/webp", MaxFileSize + 1, "File too large. Maximum size is 25 MB"},
		{"image/webp", MaxFileSize, ""},
		{"image/webp", 0, "Empty file"},
	}

	for _, tt := range tests {
		err := ValidateUpload(tt.mediaType, tt.size)
		switch {
		case tt.wantErr == "" && err != nil:
			t.Errorf("ValidateUpload(%q, %d) error = %v", tt.mediaType, tt.size, err)
		case tt.wantErr != "" && (err == nil || err.Error() != tt.wantErr):
			t.Errorf("ValidateUpload(%q, %d) error = %v, want %q", tt.mediaType, tt.size, err, tt.wantErr)
		}
	}
}

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"api detail", &APIError{StatusCode: 400, Detail: "Image too large"}, "Image too large"},
		{"api without detail", &APIError{StatusCode: 500}, GenericFailureMessage},
		{"wrapped api error", fmt.Errorf("wrapped: %w", &APIError{Detail: "Image too large"}), "Image too large"},
		{"plain error", errors.New("connection refused"), "connection refused"},
		{"blank error", errors.New("  "), GenericFailureMessage},
		{"nil", nil, GenericFailureMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ErrorMessage(tt.err); got != tt.want {
				t.Errorf("ErrorMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}
