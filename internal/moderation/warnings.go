package moderation

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/iamwavecut/gmbot/internal/db"
	"github.com/iamwavecut/gmbot/internal/observability"
)

type warningStore interface {
	GetWarningCount(ctx context.Context, chatID, userID int64) (uint, error)
	SetWarningCount(ctx context.Context, chatID, userID int64, count uint) error
}

// SettingsSource returns the effective per-group settings, with defaults
// materialized for groups that were never configured.
type SettingsSource interface {
	GetSettings(ctx context.Context, chatID int64) (*db.Settings, error)
}

// WarningTracker keeps the escalating per-(chat,user) warning counter.
// Crossing the threshold resets the counter and reports a mute decision;
// issuing the actual mute is the caller's job.
type WarningTracker struct {
	store    warningStore
	settings SettingsSource
	locks    *keyedMutex
}

type WarningResult struct {
	Count        uint
	Threshold    uint
	Muted        bool
	MuteDuration time.Duration
}

func NewWarningTracker(store warningStore, settings SettingsSource) *WarningTracker {
	return &WarningTracker{
		store:    store,
		settings: settings,
		locks:    newKeyedMutex(),
	}
}

// RecordWarning increments the counter by one. When the incremented count
// reaches the group's threshold the stored count resets to zero within the
// same locked section, so the counter is never observable at or above the
// threshold.
func (t *WarningTracker) RecordWarning(ctx context.Context, chatID, userID int64) (WarningResult, error) {
	unlock := t.locks.Lock(db.MemberKey{ChatID: chatID, UserID: userID})
	defer unlock()

	settings, err := t.settings.GetSettings(ctx, chatID)
	if err != nil {
		return WarningResult{}, errors.WithMessage(err, "get settings")
	}
	threshold := settings.WarnThreshold
	if threshold == 0 {
		threshold = db.DefaultWarnThreshold
	}
	muteDuration := time.Duration(settings.MuteDurationHours) * time.Hour
	if muteDuration == 0 {
		muteDuration = db.DefaultMuteDurationHours * time.Hour
	}

	count, err := t.store.GetWarningCount(ctx, chatID, userID)
	if err != nil {
		return WarningResult{}, errors.WithMessage(err, "get warning count")
	}
	count++

	result := WarningResult{
		Count:        count,
		Threshold:    threshold,
		MuteDuration: muteDuration,
	}
	if count >= threshold {
		result.Muted = true
		count = 0
	}
	if err := t.store.SetWarningCount(ctx, chatID, userID, count); err != nil {
		return WarningResult{}, errors.WithMessage(err, "set warning count")
	}
	observability.RecordWarningIssued()
	return result, nil
}

// GetCount returns the stored counter, zero for unseen pairs.
func (t *WarningTracker) GetCount(ctx context.Context, chatID, userID int64) (uint, error) {
	return t.store.GetWarningCount(ctx, chatID, userID)
}

// Reset clears the counter without a mute decision.
func (t *WarningTracker) Reset(ctx context.Context, chatID, userID int64) error {
	unlock := t.locks.Lock(db.MemberKey{ChatID: chatID, UserID: userID})
	defer unlock()
	return t.store.SetWarningCount(ctx, chatID, userID, 0)
}
