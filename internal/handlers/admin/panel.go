package admin

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	api "github.com/OvyFlash/telegram-bot-api"

	"github.com/iamwavecut/gmbot/internal/bot"
	"github.com/iamwavecut/gmbot/internal/db"
	"github.com/iamwavecut/gmbot/internal/i18n"
	"github.com/iamwavecut/gmbot/internal/moderation"
)

const (
	panelPrefix      = "free_"
	banStatusPrefix  = "banstatus_"
	muteStatusPrefix = "mutestatus_"
	actionPrefix     = "action_"
)

// restrictionKeyboard renders the flag toggle panel for one member.
// Each flag button flips on press; apply pushes the projection to the
// platform.
func restrictionKeyboard(userID int64, flags *db.Restrictions, lang string) api.InlineKeyboardMarkup {
	uid := strconv.FormatInt(userID, 10)
	rows := make([][]api.InlineKeyboardButton, 0, len(db.RestrictionFlagNames)/2+1)
	row := make([]api.InlineKeyboardButton, 0, 2)
	for _, name := range db.RestrictionFlagNames {
		set, _ := flags.Flag(name)
		mark := "✅"
		if set {
			mark = "🚫"
		}
		row = append(row, api.NewInlineKeyboardButtonData(
			fmt.Sprintf("%s %s", mark, name),
			panelPrefix+uid+"_"+name,
		))
		if len(row) == 2 {
			rows = append(rows, row)
			row = make([]api.InlineKeyboardButton, 0, 2)
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	rows = append(rows, []api.InlineKeyboardButton{
		api.NewInlineKeyboardButtonData(i18n.Get("Apply", lang), panelPrefix+uid+"_apply"),
		api.NewInlineKeyboardButtonData(i18n.Get("Clear", lang), panelPrefix+uid+"_clear"),
		api.NewInlineKeyboardButtonData(i18n.Get("Close", lang), panelPrefix+uid+"_close"),
	})
	return api.NewInlineKeyboardMarkup(rows...)
}

func (a *Admin) handleCallback(ctx context.Context, u *api.Update, chat *api.Chat, user *api.User) (bool, error) {
	cq := u.CallbackQuery
	data := cq.Data
	known := false
	for _, prefix := range []string{panelPrefix, banStatusPrefix, muteStatusPrefix, actionPrefix} {
		if strings.HasPrefix(data, prefix) {
			known = true
			break
		}
	}
	if !known {
		return true, nil
	}

	lang := a.GetService().GetLanguage(ctx, chat.ID, user)
	privileged, err := a.gateway.IsPrivileged(ctx, chat.ID, user.ID)
	if err != nil || !privileged {
		bot.Softly(a.gateway.AnswerCallback(ctx, cq.ID, i18n.Get("This panel is for admins only.", lang)))
		return false, nil
	}

	switch {
	case strings.HasPrefix(data, panelPrefix):
		a.handlePanelCallback(ctx, cq, chat, lang, strings.TrimPrefix(data, panelPrefix))
	case strings.HasPrefix(data, banStatusPrefix):
		if targetID, ok := parseID(strings.TrimPrefix(data, banStatusPrefix)); ok {
			bot.Softly(a.gateway.Unban(ctx, chat.ID, targetID))
			bot.Softly(a.gateway.AnswerCallback(ctx, cq.ID, i18n.Get("Unbanned.", lang)))
		}
	case strings.HasPrefix(data, muteStatusPrefix):
		if targetID, ok := parseID(strings.TrimPrefix(data, muteStatusPrefix)); ok {
			bot.Softly(a.gateway.Unmute(ctx, chat.ID, targetID))
			bot.Softly(a.gateway.AnswerCallback(ctx, cq.ID, i18n.Get("Unmuted.", lang)))
		}
	case strings.HasPrefix(data, actionPrefix):
		a.handleActionCallback(ctx, cq, chat, lang, strings.TrimPrefix(data, actionPrefix))
	}
	return false, nil
}

// handlePanelCallback processes "<uid>_<flag|apply|clear|close>".
func (a *Admin) handlePanelCallback(ctx context.Context, cq *api.CallbackQuery, chat *api.Chat, lang, payload string) {
	targetID, verb, ok := splitPayload(payload)
	if !ok {
		return
	}
	msg := cq.Message

	switch verb {
	case "apply":
		flags, err := a.restrictions.GetFlags(ctx, chat.ID, targetID)
		if err != nil {
			a.GetLogger().WithError(err).Error("cant get flags to apply")
			return
		}
		bot.Softly(a.gateway.ApplyCapabilities(ctx, chat.ID, targetID, moderation.ProjectCapabilities(flags)))
		bot.Softly(a.gateway.AnswerCallback(ctx, cq.ID, i18n.Get("Applied.", lang)))
	case "clear":
		if err := a.restrictions.Clear(ctx, chat.ID, targetID); err != nil {
			a.GetLogger().WithError(err).Error("cant clear flags")
			return
		}
		bot.Softly(a.gateway.ApplyCapabilities(ctx, chat.ID, targetID, moderation.ProjectCapabilities(nil)))
		if msg != nil {
			bot.Softly(a.gateway.EditMessageMarkup(ctx, chat.ID, msg.MessageID,
				restrictionKeyboard(targetID, &db.Restrictions{ChatID: chat.ID, UserID: targetID}, lang)))
		}
		bot.Softly(a.gateway.AnswerCallback(ctx, cq.ID, i18n.Get("Cleared.", lang)))
	case "close":
		if msg != nil {
			bot.Softly(a.gateway.DeleteMessage(ctx, chat.ID, msg.MessageID))
		}
	default:
		flags, err := a.restrictions.ToggleFlag(ctx, chat.ID, targetID, verb)
		if err != nil {
			bot.Softly(a.gateway.AnswerCallback(ctx, cq.ID, i18n.Get("Unknown flag.", lang)))
			return
		}
		if msg != nil {
			bot.Softly(a.gateway.EditMessageMarkup(ctx, chat.ID, msg.MessageID,
				restrictionKeyboard(targetID, flags, lang)))
		}
		bot.Softly(a.gateway.AnswerCallback(ctx, cq.ID, ""))
	}
}

// handleActionCallback processes "<uid>_<warn|mute|ban>" from /info.
func (a *Admin) handleActionCallback(ctx context.Context, cq *api.CallbackQuery, chat *api.Chat, lang, payload string) {
	targetID, verb, ok := splitPayload(payload)
	if !ok {
		return
	}
	switch verb {
	case "warn":
		result, err := a.warnings.RecordWarning(ctx, chat.ID, targetID)
		if err != nil {
			a.GetLogger().WithError(err).Error("cant record warning")
			return
		}
		if result.Muted {
			bot.Softly(a.gateway.Mute(ctx, chat.ID, targetID, result.MuteDuration))
		}
		bot.Softly(a.gateway.AnswerCallback(ctx, cq.ID, fmt.Sprintf(
			i18n.Get("Warnings: %d/%d", lang), result.Count, result.Threshold)))
	case "mute":
		settings, err := a.GetService().GetSettings(ctx, chat.ID)
		if err != nil {
			a.GetLogger().WithError(err).Error("cant get settings")
			return
		}
		bot.Softly(a.gateway.Mute(ctx, chat.ID, targetID, muteDuration(settings)))
		bot.Softly(a.gateway.AnswerCallback(ctx, cq.ID, i18n.Get("Muted.", lang)))
	case "ban":
		bot.Softly(a.gateway.Ban(ctx, chat.ID, targetID))
		bot.Softly(a.gateway.AnswerCallback(ctx, cq.ID, i18n.Get("Banned.", lang)))
	}
}

func splitPayload(payload string) (int64, string, bool) {
	parts := strings.SplitN(payload, "_", 2)
	if len(parts) != 2 {
		return 0, "", false
	}
	id, ok := parseID(parts[0])
	if !ok {
		return 0, "", false
	}
	return id, parts[1], true
}

func parseID(s string) (int64, bool) {
	id, err := strconv.ParseInt(s, 10, 64)
	return id, err == nil
}
