package moderation

import "testing"

func TestClassifierIsFlagged(t *testing.T) {
	t.Parallel()

	classifier := NewClassifier()
	for _, tt := range []struct {
		name    string
		text    string
		flagged bool
	}{
		{"embedded term", "XXXmovie night", true},
		{"case folded", "PoRn link inside", true},
		{"clean text", "let's watch a movie tonight", false},
		{"empty", "", false},
		{"file path", "/tmp/downloads/nsfw_pack.zip", true},
	} {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := classifier.IsFlagged(tt.text); got != tt.flagged {
				t.Fatalf("IsFlagged(%q) = %v, want %v", tt.text, got, tt.flagged)
			}
		})
	}
}

func TestClassifierCustomDenylist(t *testing.T) {
	t.Parallel()

	classifier := NewClassifierWithDenylist([]string{"pineapple"})
	if !classifier.IsFlagged("Pineapple on pizza") {
		t.Fatal("custom term must match")
	}
	if classifier.IsFlagged("porn") {
		t.Fatal("default terms must not apply with a custom denylist")
	}
}
