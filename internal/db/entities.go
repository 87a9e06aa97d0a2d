package db

import (
	"github.com/pkg/errors"
)

type (
	// Settings is the per-group moderation configuration. Absent rows are
	// materialized from DefaultSettings by the accessor, never by callers.
	Settings struct {
		ID                    int64  `db:"id"`
		Language              string `db:"language"`
		WarnThreshold         uint   `db:"warn_threshold"`
		MuteDurationHours     uint   `db:"mute_duration_hours"`
		EditDeletionEnabled   bool   `db:"edit_deletion_enabled"`
		NSFWFilterEnabled     bool   `db:"nsfw_filter_enabled"`
		SelfDestructSeconds   uint   `db:"self_destruct_seconds"`
		ServiceMsgEnabled     bool   `db:"service_msg_enabled"`
		ServiceMsgDeleteAfter uint   `db:"service_msg_delete_after"`
		EventMsgEnabled       bool   `db:"event_msg_enabled"`
		EventMsgDeleteAfter   uint   `db:"event_msg_delete_after"`
		WelcomeText           string `db:"welcome_text"`
		WelcomeImageFileID    string `db:"welcome_image_file_id"`
		ServiceInfoText       string `db:"service_info_text"`
	}

	// MemberKey identifies a (group, user) pair with value equality.
	MemberKey struct {
		ChatID int64
		UserID int64
	}

	// Restrictions is the capability flag record of a chat member. A true
	// flag means the capability is forbidden. Absent records behave as
	// all-false.
	Restrictions struct {
		ChatID  int64 `db:"chat_id"`
		UserID  int64 `db:"user_id"`
		Flood   bool  `db:"flood"`
		Spam    bool  `db:"spam"`
		Media   bool  `db:"media"`
		Checks  bool  `db:"checks"`
		Night   bool  `db:"night"`
		Sticker bool  `db:"sticker"`
		Gif     bool  `db:"gif"`
		Link    bool  `db:"link"`
	}

	// FilterEntry binds a case-folded keyword to a stored media response.
	FilterEntry struct {
		ChatID    int64  `db:"chat_id"`
		Keyword   string `db:"keyword"`
		MediaKind string `db:"media_kind"`
		FileID    string `db:"file_id"`
		Caption   string `db:"caption"`
	}
)

const (
	FlagFlood   = "flood"
	FlagSpam    = "spam"
	FlagMedia   = "media"
	FlagChecks  = "checks"
	FlagNight   = "night"
	FlagSticker = "sticker"
	FlagGif     = "gif"
	FlagLink    = "link"
)

// RestrictionFlagNames lists the known flags in display order.
var RestrictionFlagNames = []string{
	FlagFlood, FlagSpam, FlagMedia, FlagChecks,
	FlagNight, FlagSticker, FlagGif, FlagLink,
}

var ErrUnknownFlag = errors.New("unknown restriction flag")

func (r *Restrictions) Flag(name string) (bool, error) {
	switch name {
	case FlagFlood:
		return r.Flood, nil
	case FlagSpam:
		return r.Spam, nil
	case FlagMedia:
		return r.Media, nil
	case FlagChecks:
		return r.Checks, nil
	case FlagNight:
		return r.Night, nil
	case FlagSticker:
		return r.Sticker, nil
	case FlagGif:
		return r.Gif, nil
	case FlagLink:
		return r.Link, nil
	}
	return false, errors.WithMessage(ErrUnknownFlag, name)
}

func (r *Restrictions) SetFlag(name string, value bool) error {
	switch name {
	case FlagFlood:
		r.Flood = value
	case FlagSpam:
		r.Spam = value
	case FlagMedia:
		r.Media = value
	case FlagChecks:
		r.Checks = value
	case FlagNight:
		r.Night = value
	case FlagSticker:
		r.Sticker = value
	case FlagGif:
		r.Gif = value
	case FlagLink:
		r.Link = value
	default:
		return errors.WithMessage(ErrUnknownFlag, name)
	}
	return nil
}

// Any reports whether at least one flag is set.
func (r *Restrictions) Any() bool {
	return r.Flood || r.Spam || r.Media || r.Checks ||
		r.Night || r.Sticker || r.Gif || r.Link
}

// Active returns the names of the set flags.
func (r *Restrictions) Active() []string {
	active := make([]string, 0, len(RestrictionFlagNames))
	for _, name := range RestrictionFlagNames {
		if set, _ := r.Flag(name); set {
			active = append(active, name)
		}
	}
	return active
}
