package chat

import (
	"context"
	"fmt"

	api "github.com/OvyFlash/telegram-bot-api"

	"github.com/iamwavecut/gmbot/internal/bot"
	"github.com/iamwavecut/gmbot/internal/db"
	"github.com/iamwavecut/gmbot/internal/i18n"
	"github.com/iamwavecut/gmbot/internal/moderation"
)

// stepNSFWGate deletes flagged content and warns the sender. Unlike
// every other step this one applies to privileged senders too.
func (m *Moderator) stepNSFWGate(ctx context.Context, env *policyEnv) stepResult {
	if !env.settings.NSFWFilterEnabled {
		return stepResult{}
	}

	scannable := env.content
	if fileID := mediaFileID(env.msg); fileID != "" {
		// The remote file path is a weak filename-based signal, the
		// bytes are never inspected.
		if path, err := m.gateway.ResolveFileURL(ctx, fileID); err == nil {
			scannable += " " + path
		}
	}
	if !m.classifier.IsFlagged(scannable) {
		return stepResult{}
	}

	m.punish(ctx, env, i18n.Get("this content is not allowed here.", env.lang))
	return stepResult{consumed: true, outcome: "nsfw"}
}

// stepRestrictionCheck enforces the sender's capability flags against
// the media kinds present in the message.
func (m *Moderator) stepRestrictionCheck(ctx context.Context, env *policyEnv) stepResult {
	if env.privileged {
		return stepResult{}
	}
	flags, found, err := m.restrictions.Lookup(ctx, env.chat.ID, env.user.ID)
	if err != nil {
		m.GetLogger().WithError(err).Error("cant lookup restrictions")
		return stepResult{}
	}
	if !found || !flags.Any() {
		return stepResult{}
	}

	for _, name := range restrictedFlagsFor(env.msg, env.content) {
		forbidden, flagErr := flags.Flag(name)
		if flagErr != nil || !forbidden {
			continue
		}
		m.punish(ctx, env, fmt.Sprintf(
			i18n.Get("you are not allowed to send %s content.", env.lang), name))
		return stepResult{consumed: true, outcome: "restricted"}
	}
	return stepResult{}
}

// stepLinkPolicy deletes link-bearing messages unless the sender holds
// an explicit link=false override. Privileged senders get the deletion
// without a warning.
func (m *Moderator) stepLinkPolicy(ctx context.Context, env *policyEnv) stepResult {
	if !containsLink(env.msg, env.content) {
		return stepResult{}
	}
	allowed, err := m.restrictions.AllowsLinks(ctx, env.chat.ID, env.user.ID)
	if err != nil {
		m.GetLogger().WithError(err).Error("cant check link override")
		return stepResult{}
	}
	if allowed {
		return stepResult{}
	}

	if env.privileged {
		bot.Softly(m.gateway.DeleteMessage(ctx, env.chat.ID, env.msg.MessageID))
		m.notifyGroup(ctx, env, fmt.Sprintf(
			i18n.Get("Removed a link posted by admin %s.", env.lang),
			bot.GetFullName(env.user)))
		bot.Softly(m.gateway.SendDirect(ctx, env.user.ID, fmt.Sprintf(
			i18n.Get("Your link in %s was removed. Links are disabled there.", env.lang),
			env.chat.Title)))
		return stepResult{consumed: true, outcome: "link_admin"}
	}

	m.punish(ctx, env, i18n.Get("links are not allowed here.", env.lang))
	return stepResult{consumed: true, outcome: "link"}
}

// stepEditPolicy deletes any edit when the group forbids them. Content
// is not re-inspected.
func (m *Moderator) stepEditPolicy(ctx context.Context, env *policyEnv) stepResult {
	if !env.edited || !env.settings.EditDeletionEnabled || env.privileged {
		return stepResult{}
	}
	m.punish(ctx, env, i18n.Get("editing messages is not allowed here.", env.lang))
	return stepResult{consumed: true, outcome: "edit"}
}

// stepKeywordFilter answers the first matching keyword with its stored
// response. Only new messages trigger filters.
func (m *Moderator) stepKeywordFilter(ctx context.Context, env *policyEnv) stepResult {
	if env.edited {
		return stepResult{}
	}
	text := env.msg.Text
	if text == "" {
		text = env.msg.Caption
	}
	entry, err := m.filters.MatchFirst(ctx, env.chat.ID, text)
	if err != nil {
		m.GetLogger().WithError(err).Error("cant match filters")
		return stepResult{}
	}
	if entry == nil {
		return stepResult{}
	}

	sent, err := m.gateway.SendMedia(ctx, env.chat.ID, entry.MediaKind, entry.FileID, entry.Caption)
	if err != nil {
		bot.Softly(err)
	} else {
		m.scheduleSelfDestruct(env, sent)
	}
	return stepResult{consumed: true, outcome: "filter"}
}

// restrictedFlagsFor maps the message's media kinds onto capability
// flag names, most specific first.
func restrictedFlagsFor(msg *api.Message, content string) []string {
	var names []string
	switch bot.GetMessageType(msg) {
	case bot.MessageTypeSticker:
		names = append(names, db.FlagSticker)
	case bot.MessageTypeAnimation:
		names = append(names, db.FlagGif)
	case bot.MessageTypePhoto, bot.MessageTypeVideo, bot.MessageTypeVideoNote,
		bot.MessageTypeAudio, bot.MessageTypeVoice, bot.MessageTypeDocument:
		names = append(names, db.FlagMedia)
	}
	if containsLink(msg, content) {
		names = append(names, db.FlagLink)
	}
	return names
}

// containsLink checks the platform's entity annotations first, then
// falls back to a pattern scan.
func containsLink(msg *api.Message, content string) bool {
	for _, entities := range [][]api.MessageEntity{msg.Entities, msg.CaptionEntities} {
		for _, entity := range entities {
			if entity.IsURL() || entity.IsTextLink() {
				return true
			}
		}
	}
	return moderation.ContainsLink(content)
}

func mediaFileID(msg *api.Message) string {
	switch {
	case len(msg.Photo) > 0:
		return msg.Photo[len(msg.Photo)-1].FileID
	case msg.Sticker != nil:
		return msg.Sticker.FileID
	case msg.Animation != nil:
		return msg.Animation.FileID
	case msg.Video != nil:
		return msg.Video.FileID
	case msg.Document != nil:
		return msg.Document.FileID
	}
	return ""
}
