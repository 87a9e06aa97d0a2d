package db

import "context"

// Client is the keyed store behind the moderation state. Implementations
// must make every single-key operation atomic; distinct keys may be
// mutated in parallel.
type Client interface {
	Close() error

	GetSettings(ctx context.Context, chatID int64) (*Settings, error)
	SetSettings(ctx context.Context, settings *Settings) error

	GetWarningCount(ctx context.Context, chatID, userID int64) (uint, error)
	SetWarningCount(ctx context.Context, chatID, userID int64, count uint) error

	GetRestrictions(ctx context.Context, chatID, userID int64) (*Restrictions, error)
	SetRestrictions(ctx context.Context, restrictions *Restrictions) error
	DeleteRestrictions(ctx context.Context, chatID, userID int64) error

	UpsertFilter(ctx context.Context, entry *FilterEntry) error
	DeleteFilter(ctx context.Context, chatID int64, keyword string) (bool, error)
	ListFilters(ctx context.Context, chatID int64) ([]*FilterEntry, error)
}
