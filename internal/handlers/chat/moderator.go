package chat

import (
	"context"
	"fmt"

	api "github.com/OvyFlash/telegram-bot-api"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/gmbot/internal/bot"
	"github.com/iamwavecut/gmbot/internal/db"
	"github.com/iamwavecut/gmbot/internal/handlers/base"
	"github.com/iamwavecut/gmbot/internal/i18n"
	"github.com/iamwavecut/gmbot/internal/moderation"
	"github.com/iamwavecut/gmbot/internal/observability"
	"github.com/iamwavecut/gmbot/internal/schedule"
)

// Moderator evaluates the per-message policy cascade: NSFW gate,
// capability restrictions, link policy, edit policy, keyword filters.
// The first step that deletes the message consumes the event.
type Moderator struct {
	*base.BaseHandler
	gateway      bot.Gateway
	warnings     *moderation.WarningTracker
	restrictions *moderation.RestrictionMatrix
	filters      *moderation.KeywordFilterTable
	classifier   *moderation.Classifier
	scheduler    *schedule.Registry
	steps        []policyStep
}

type policyEnv struct {
	msg        *api.Message
	chat       *api.Chat
	user       *api.User
	settings   *db.Settings
	lang       string
	privileged bool
	edited     bool
	content    string
}

type stepResult struct {
	consumed bool
	outcome  string
}

type policyStep struct {
	name     string
	evaluate func(ctx context.Context, env *policyEnv) stepResult
}

func NewModerator(
	s bot.Service,
	gateway bot.Gateway,
	warnings *moderation.WarningTracker,
	restrictions *moderation.RestrictionMatrix,
	filters *moderation.KeywordFilterTable,
	classifier *moderation.Classifier,
	scheduler *schedule.Registry,
) *Moderator {
	m := &Moderator{
		BaseHandler:  base.NewBaseHandler(s, "moderator"),
		gateway:      gateway,
		warnings:     warnings,
		restrictions: restrictions,
		filters:      filters,
		classifier:   classifier,
		scheduler:    scheduler,
	}
	m.steps = []policyStep{
		{name: "nsfw_gate", evaluate: m.stepNSFWGate},
		{name: "restriction_check", evaluate: m.stepRestrictionCheck},
		{name: "link_policy", evaluate: m.stepLinkPolicy},
		{name: "edit_policy", evaluate: m.stepEditPolicy},
		{name: "keyword_filter", evaluate: m.stepKeywordFilter},
	}
	return m
}

func (m *Moderator) Handle(ctx context.Context, u *api.Update, chat *api.Chat, user *api.User) (bool, error) {
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	default:
	}
	if err := m.ValidateUpdate(u, chat, user); err != nil {
		return true, nil
	}

	msg := u.Message
	edited := false
	if msg == nil {
		msg = u.EditedMessage
		edited = true
	}
	if msg == nil || user.IsBot {
		return true, nil
	}
	if !chat.IsGroup() && !chat.IsSuperGroup() {
		return true, nil
	}

	settings, err := m.GetService().GetSettings(ctx, chat.ID)
	if err != nil {
		return false, err
	}

	privileged, err := m.gateway.IsPrivileged(ctx, chat.ID, user.ID)
	if err != nil {
		m.GetLogger().WithError(err).Debug("cant resolve member status, assuming regular")
		privileged = false
	}

	env := &policyEnv{
		msg:        msg,
		chat:       chat,
		user:       user,
		settings:   settings,
		lang:       m.GetService().GetLanguage(ctx, chat.ID, user),
		privileged: privileged,
		edited:     edited,
		content:    bot.ExtractContentFromMessage(msg),
	}

	done := observability.StartPolicyEvaluation()
	for _, step := range m.steps {
		result := step.evaluate(ctx, env)
		if result.consumed {
			done(result.outcome)
			m.GetLogger().WithFields(log.Fields{
				"step":    step.name,
				"chat_id": chat.ID,
				"user_id": user.ID,
			}).Debug("message consumed")
			return false, nil
		}
	}
	done("pass")
	return true, nil
}

// punish deletes the message, records a warning, notifies group and
// user, and applies the mute when the threshold is crossed. Every
// transport call is best-effort.
func (m *Moderator) punish(ctx context.Context, env *policyEnv, reason string) {
	bot.Softly(m.gateway.DeleteMessage(ctx, env.chat.ID, env.msg.MessageID))

	result, err := m.warnings.RecordWarning(ctx, env.chat.ID, env.user.ID)
	if err != nil {
		m.GetLogger().WithError(err).Error("cant record warning")
		return
	}
	name := bot.GetFullName(env.user)
	if result.Muted {
		bot.Softly(m.gateway.Mute(ctx, env.chat.ID, env.user.ID, result.MuteDuration))
		m.notifyGroup(ctx, env, fmt.Sprintf(
			i18n.Get("%s reached %d warnings and is muted for %d hours.", env.lang),
			name, result.Threshold, int(result.MuteDuration.Hours())))
	} else {
		m.notifyGroup(ctx, env, fmt.Sprintf(
			i18n.Get("%s, %s Warnings: %d/%d", env.lang),
			name, reason, result.Count, result.Threshold))
	}
	bot.Softly(m.gateway.SendDirect(ctx, env.user.ID, fmt.Sprintf(
		i18n.Get("Your message in %s was removed: %s", env.lang),
		env.chat.Title, reason)))
}

func (m *Moderator) notifyGroup(ctx context.Context, env *policyEnv, text string) {
	sent, err := m.gateway.SendText(ctx, env.chat.ID, text)
	if err != nil {
		bot.Softly(err)
		return
	}
	m.scheduleSelfDestruct(env, sent)
}

// scheduleSelfDestruct queues deletion of a bot-sent message when the
// group opted into self-destructing responses.
func (m *Moderator) scheduleSelfDestruct(env *policyEnv, sent *api.Message) {
	seconds := env.settings.SelfDestructSeconds
	if seconds == 0 || sent == nil {
		return
	}
	chatID, messageID := sent.Chat.ID, sent.MessageID
	m.scheduler.After(
		schedule.DeletionKey(chatID, messageID),
		schedule.Seconds(seconds),
		func(taskCtx context.Context) {
			bot.Softly(m.gateway.DeleteMessage(taskCtx, chatID, messageID))
		})
}
