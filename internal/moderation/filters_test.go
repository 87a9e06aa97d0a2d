package moderation

import (
	"context"
	"testing"

	"github.com/iamwavecut/gmbot/internal/db"
	"github.com/iamwavecut/gmbot/internal/db/memory"
)

func TestKeywordFilterTableMatching(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	table := NewKeywordFilterTable(memory.NewClient())

	if err := table.Set(ctx, &db.FilterEntry{ChatID: -1, Keyword: "  RuLeS ", MediaKind: "text", Caption: "read the pinned message"}); err != nil {
		t.Fatal(err)
	}

	for _, tt := range []struct {
		name string
		text string
		hit  bool
	}{
		{"case-folded containment", "What are the RULES here?", true},
		{"partial keyword", "one rule only", false},
		{"embedded keyword", "norules!", true},
		{"no match", "hello there", false},
		{"empty text", "", false},
	} {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			entry, err := table.MatchFirst(ctx, -1, tt.text)
			if err != nil {
				t.Fatal(err)
			}
			if (entry != nil) != tt.hit {
				t.Fatalf("match %q: got hit=%v, want %v", tt.text, entry != nil, tt.hit)
			}
		})
	}
}

func TestKeywordFilterTableRemove(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	table := NewKeywordFilterTable(memory.NewClient())

	if err := table.Set(ctx, &db.FilterEntry{ChatID: -1, Keyword: "promo", MediaKind: "text", Caption: "no ads"}); err != nil {
		t.Fatal(err)
	}

	removed, err := table.Remove(ctx, -1, "PROMO")
	if err != nil {
		t.Fatal(err)
	}
	if !removed {
		t.Fatal("existing keyword must report removal")
	}

	removed, err = table.Remove(ctx, -1, "promo")
	if err != nil {
		t.Fatal(err)
	}
	if removed {
		t.Fatal("missing keyword must not report removal")
	}
}

func TestKeywordFilterTableReplace(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	table := NewKeywordFilterTable(memory.NewClient())

	if err := table.Set(ctx, &db.FilterEntry{ChatID: -1, Keyword: "faq", MediaKind: "text", Caption: "old"}); err != nil {
		t.Fatal(err)
	}
	if err := table.Set(ctx, &db.FilterEntry{ChatID: -1, Keyword: "FAQ", MediaKind: "photo", FileID: "abc", Caption: "new"}); err != nil {
		t.Fatal(err)
	}

	entries, err := table.List(ctx, -1)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if entries[0].Caption != "new" || entries[0].MediaKind != "photo" {
		t.Fatalf("replacement not applied: %+v", entries[0])
	}
}

func TestKeywordFilterTableEmptyKeyword(t *testing.T) {
	t.Parallel()

	table := NewKeywordFilterTable(memory.NewClient())
	if err := table.Set(context.Background(), &db.FilterEntry{ChatID: -1, Keyword: "   "}); err == nil {
		t.Fatal("empty keyword must be rejected")
	}
}
