package memory

import (
	"context"
	"sync"

	"github.com/iamwavecut/gmbot/internal/db"
)

// Client is the volatile reference store: mutex-guarded maps keyed by
// value-comparable composite keys. State lives for the process lifetime
// only.
type Client struct {
	mu           sync.RWMutex
	settings     map[int64]*db.Settings
	warnings     map[db.MemberKey]uint
	restrictions map[db.MemberKey]*db.Restrictions
	filters      map[int64]map[string]*db.FilterEntry
}

func NewClient() *Client {
	return &Client{
		settings:     map[int64]*db.Settings{},
		warnings:     map[db.MemberKey]uint{},
		restrictions: map[db.MemberKey]*db.Restrictions{},
		filters:      map[int64]map[string]*db.FilterEntry{},
	}
}

func (c *Client) Close() error {
	return nil
}

func (c *Client) GetSettings(ctx context.Context, chatID int64) (*db.Settings, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	settings, ok := c.settings[chatID]
	if !ok {
		return nil, nil
	}
	snapshot := *settings
	return &snapshot, nil
}

func (c *Client) SetSettings(ctx context.Context, settings *db.Settings) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	snapshot := *settings
	c.settings[settings.ID] = &snapshot
	return nil
}

func (c *Client) GetWarningCount(ctx context.Context, chatID, userID int64) (uint, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.warnings[db.MemberKey{ChatID: chatID, UserID: userID}], nil
}

func (c *Client) SetWarningCount(ctx context.Context, chatID, userID int64, count uint) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.warnings[db.MemberKey{ChatID: chatID, UserID: userID}] = count
	return nil
}

func (c *Client) GetRestrictions(ctx context.Context, chatID, userID int64) (*db.Restrictions, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	restrictions, ok := c.restrictions[db.MemberKey{ChatID: chatID, UserID: userID}]
	if !ok {
		return nil, nil
	}
	snapshot := *restrictions
	return &snapshot, nil
}

func (c *Client) SetRestrictions(ctx context.Context, restrictions *db.Restrictions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	snapshot := *restrictions
	c.restrictions[db.MemberKey{ChatID: restrictions.ChatID, UserID: restrictions.UserID}] = &snapshot
	return nil
}

func (c *Client) DeleteRestrictions(ctx context.Context, chatID, userID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.restrictions, db.MemberKey{ChatID: chatID, UserID: userID})
	return nil
}

func (c *Client) UpsertFilter(ctx context.Context, entry *db.FilterEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	chatFilters, ok := c.filters[entry.ChatID]
	if !ok {
		chatFilters = map[string]*db.FilterEntry{}
		c.filters[entry.ChatID] = chatFilters
	}
	snapshot := *entry
	chatFilters[entry.Keyword] = &snapshot
	return nil
}

func (c *Client) DeleteFilter(ctx context.Context, chatID int64, keyword string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	chatFilters, ok := c.filters[chatID]
	if !ok {
		return false, nil
	}
	if _, ok := chatFilters[keyword]; !ok {
		return false, nil
	}
	delete(chatFilters, keyword)
	return true, nil
}

func (c *Client) ListFilters(ctx context.Context, chatID int64) ([]*db.FilterEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	chatFilters := c.filters[chatID]
	entries := make([]*db.FilterEntry, 0, len(chatFilters))
	for _, entry := range chatFilters {
		snapshot := *entry
		entries = append(entries, &snapshot)
	}
	return entries, nil
}
