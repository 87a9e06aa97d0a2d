package moderation

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/iamwavecut/gmbot/internal/db"
	errs "github.com/iamwavecut/gmbot/internal/errors"
)

type filterStore interface {
	UpsertFilter(ctx context.Context, entry *db.FilterEntry) error
	DeleteFilter(ctx context.Context, chatID int64, keyword string) (bool, error)
	ListFilters(ctx context.Context, chatID int64) ([]*db.FilterEntry, error)
}

// KeywordFilterTable is the per-group auto-responder registry. Keywords
// are stored case-folded, matched by substring containment, and each
// maps to at most one stored response.
type KeywordFilterTable struct {
	store filterStore
}

func NewKeywordFilterTable(store filterStore) *KeywordFilterTable {
	return &KeywordFilterTable{store: store}
}

// NormalizeKeyword is the canonical form used for storage and matching.
func NormalizeKeyword(keyword string) string {
	return strings.ToLower(strings.TrimSpace(keyword))
}

// Set registers or replaces the response for a keyword.
func (t *KeywordFilterTable) Set(ctx context.Context, entry *db.FilterEntry) error {
	entry.Keyword = NormalizeKeyword(entry.Keyword)
	if entry.Keyword == "" {
		return errors.WithMessage(errs.ErrInvalidInput, "empty keyword")
	}
	return t.store.UpsertFilter(ctx, entry)
}

// Remove deletes a keyword, reporting whether it existed.
func (t *KeywordFilterTable) Remove(ctx context.Context, chatID int64, keyword string) (bool, error) {
	return t.store.DeleteFilter(ctx, chatID, NormalizeKeyword(keyword))
}

func (t *KeywordFilterTable) List(ctx context.Context, chatID int64) ([]*db.FilterEntry, error) {
	return t.store.ListFilters(ctx, chatID)
}

// MatchFirst scans the group's keywords against the case-folded text and
// returns the first containment hit, nil when nothing matches.
func (t *KeywordFilterTable) MatchFirst(ctx context.Context, chatID int64, text string) (*db.FilterEntry, error) {
	if text == "" {
		return nil, nil
	}
	entries, err := t.store.ListFilters(ctx, chatID)
	if err != nil {
		return nil, errors.WithMessage(err, "list filters")
	}
	folded := strings.ToLower(text)
	for _, entry := range entries {
		if entry.Keyword != "" && strings.Contains(folded, entry.Keyword) {
			return entry, nil
		}
	}
	return nil, nil
}
