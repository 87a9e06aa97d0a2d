package moderation

import (
	"context"

	"github.com/pkg/errors"

	"github.com/iamwavecut/gmbot/internal/db"
)

type restrictionStore interface {
	GetRestrictions(ctx context.Context, chatID, userID int64) (*db.Restrictions, error)
	SetRestrictions(ctx context.Context, restrictions *db.Restrictions) error
	DeleteRestrictions(ctx context.Context, chatID, userID int64) error
}

// RestrictionMatrix owns the per-(chat,user) capability flags. An absent
// record behaves exactly like an all-false one; presence only matters for
// the link-policy override.
type RestrictionMatrix struct {
	store restrictionStore
	locks *keyedMutex
}

func NewRestrictionMatrix(store restrictionStore) *RestrictionMatrix {
	return &RestrictionMatrix{
		store: store,
		locks: newKeyedMutex(),
	}
}

// GetFlags returns the stored flags, or an all-false set for unseen pairs.
func (m *RestrictionMatrix) GetFlags(ctx context.Context, chatID, userID int64) (*db.Restrictions, error) {
	flags, _, err := m.Lookup(ctx, chatID, userID)
	return flags, err
}

// Lookup additionally reports whether a record exists for the pair.
func (m *RestrictionMatrix) Lookup(ctx context.Context, chatID, userID int64) (*db.Restrictions, bool, error) {
	flags, err := m.store.GetRestrictions(ctx, chatID, userID)
	if err != nil {
		return nil, false, errors.WithMessage(err, "get restrictions")
	}
	if flags == nil {
		return &db.Restrictions{ChatID: chatID, UserID: userID}, false, nil
	}
	return flags, true, nil
}

// ToggleFlag flips one named flag, creating the record with all-false
// defaults when absent. Unknown flag names are a caller error.
func (m *RestrictionMatrix) ToggleFlag(ctx context.Context, chatID, userID int64, name string) (*db.Restrictions, error) {
	unlock := m.locks.Lock(db.MemberKey{ChatID: chatID, UserID: userID})
	defer unlock()

	flags, _, err := m.Lookup(ctx, chatID, userID)
	if err != nil {
		return nil, err
	}
	current, err := flags.Flag(name)
	if err != nil {
		return nil, err
	}
	if err := flags.SetFlag(name, !current); err != nil {
		return nil, err
	}
	if err := m.store.SetRestrictions(ctx, flags); err != nil {
		return nil, errors.WithMessage(err, "set restrictions")
	}
	return flags, nil
}

// EnsureRecord materializes an all-false record so later link-policy
// lookups see an explicit override.
func (m *RestrictionMatrix) EnsureRecord(ctx context.Context, chatID, userID int64) (*db.Restrictions, error) {
	unlock := m.locks.Lock(db.MemberKey{ChatID: chatID, UserID: userID})
	defer unlock()

	flags, found, err := m.Lookup(ctx, chatID, userID)
	if err != nil {
		return nil, err
	}
	if found {
		return flags, nil
	}
	if err := m.store.SetRestrictions(ctx, flags); err != nil {
		return nil, errors.WithMessage(err, "set restrictions")
	}
	return flags, nil
}

// Clear removes the record for the pair.
func (m *RestrictionMatrix) Clear(ctx context.Context, chatID, userID int64) error {
	unlock := m.locks.Lock(db.MemberKey{ChatID: chatID, UserID: userID})
	defer unlock()
	return m.store.DeleteRestrictions(ctx, chatID, userID)
}

// AllowsLinks reports whether the sender carries an explicit link=false
// override. With no record present links stay forbidden by default.
func (m *RestrictionMatrix) AllowsLinks(ctx context.Context, chatID, userID int64) (bool, error) {
	flags, found, err := m.Lookup(ctx, chatID, userID)
	if err != nil {
		return false, err
	}
	return found && !flags.Link, nil
}

// CapabilityGrant is the platform-permission projection of a flag set.
type CapabilityGrant struct {
	SendMessages       bool
	SendMedia          bool
	SendPolls          bool
	AddWebPagePreviews bool
	SendOther          bool
}

// ProjectCapabilities translates flags into a concrete grant/deny set:
// with no flag set the grant is full; otherwise media sending follows the
// media flag and polls/previews follow spam and link. Text sending is
// always granted. The flood, checks and night flags are tracked but map
// to no platform permission yet.
func ProjectCapabilities(flags *db.Restrictions) CapabilityGrant {
	if flags == nil || !flags.Any() {
		return CapabilityGrant{
			SendMessages:       true,
			SendMedia:          true,
			SendPolls:          true,
			AddWebPagePreviews: true,
			SendOther:          true,
		}
	}
	return CapabilityGrant{
		SendMessages:       true,
		SendMedia:          !flags.Media,
		SendPolls:          !(flags.Spam || flags.Link),
		AddWebPagePreviews: !(flags.Spam || flags.Link),
		SendOther:          !(flags.Sticker && flags.Gif),
	}
}
