package admin

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/pkg/errors"

	"github.com/iamwavecut/gmbot/internal/bot"
	"github.com/iamwavecut/gmbot/internal/db"
	errs "github.com/iamwavecut/gmbot/internal/errors"
	"github.com/iamwavecut/gmbot/internal/i18n"
)

const helpText = `Moderation:
/warn /warnings /resetwarnings — warning management
/mute /unmute /ban /unban — direct enforcement
/free — restriction flag panel
/info /status — reports

Filters:
/filter <keyword> (reply) /filters /stopfilter <keyword>

Group setup:
/setwarnlimit /setmutehours /editdelete /nsfwfilter
/selfdestruct /servicemessages /eventmessages /setlang
/setwelcomemessage /setwelcomeimage /resetwelcome /resetwelcomeimage
/service /setservice /resetservice
/promote /demote /classify`

func (a *Admin) cmdHelp(ctx context.Context, req *commandRequest) error {
	bot.Softly(a.replyTo(ctx, req.msg, i18n.Get("Hi! I keep group chats tidy.", req.lang)+"\n\n"+helpText))
	return nil
}

func (a *Admin) cmdStatus(ctx context.Context, req *commandRequest) error {
	self := a.GetService().GetBot().Self
	privileged, err := a.gateway.IsPrivileged(ctx, req.chat.ID, self.ID)
	if err != nil {
		privileged = false
	}
	status := i18n.Get("I am a regular member here, most enforcement will fail.", req.lang)
	if privileged {
		status = i18n.Get("I am an admin here and fully operational.", req.lang)
	}
	bot.Softly(a.replyTo(ctx, req.msg, status))
	return nil
}

func (a *Admin) cmdInfo(ctx context.Context, req *commandRequest) error {
	target, err := ResolveTarget(req.msg)
	if err != nil {
		return err
	}

	count, err := a.warnings.GetCount(ctx, req.chat.ID, target.ID)
	if err != nil {
		return errors.WithMessage(err, "get count")
	}
	flags, _, err := a.restrictions.Lookup(ctx, req.chat.ID, target.ID)
	if err != nil {
		return errors.WithMessage(err, "lookup restrictions")
	}
	targetPrivileged, err := a.gateway.IsPrivileged(ctx, req.chat.ID, target.ID)
	if err != nil {
		targetPrivileged = false
	}

	role := i18n.Get("member", req.lang)
	if targetPrivileged {
		role = i18n.Get("admin", req.lang)
	}
	active := strings.Join(flags.Active(), ", ")
	if active == "" {
		active = i18n.Get("none", req.lang)
	}
	text := fmt.Sprintf(
		"%s (%d)\n%s: %s\n%s: %d\n%s: %s",
		bot.GetFullName(target), target.ID,
		i18n.Get("Role", req.lang), role,
		i18n.Get("Warnings", req.lang), count,
		i18n.Get("Restrictions", req.lang), active,
	)

	if targetPrivileged {
		bot.Softly(a.replyTo(ctx, req.msg, text))
		return nil
	}
	uid := strconv.FormatInt(target.ID, 10)
	markup := api.NewInlineKeyboardMarkup(
		api.NewInlineKeyboardRow(
			api.NewInlineKeyboardButtonData(i18n.Get("Warn", req.lang), actionPrefix+uid+"_warn"),
			api.NewInlineKeyboardButtonData(i18n.Get("Mute", req.lang), actionPrefix+uid+"_mute"),
			api.NewInlineKeyboardButtonData(i18n.Get("Ban", req.lang), actionPrefix+uid+"_ban"),
		),
	)
	_, err = a.gateway.SendTextWithMarkup(ctx, req.chat.ID, text, markup)
	bot.Softly(err)
	return nil
}

func (a *Admin) cmdBan(ctx context.Context, req *commandRequest) error {
	target, err := ResolveTarget(req.msg)
	if err != nil {
		return err
	}
	bot.Softly(a.gateway.Ban(ctx, req.chat.ID, target.ID))

	uid := strconv.FormatInt(target.ID, 10)
	markup := api.NewInlineKeyboardMarkup(api.NewInlineKeyboardRow(
		api.NewInlineKeyboardButtonData(i18n.Get("Unban", req.lang), banStatusPrefix+uid),
	))
	_, err = a.gateway.SendTextWithMarkup(ctx, req.chat.ID,
		fmt.Sprintf(i18n.Get("%s is banned.", req.lang), bot.GetFullName(target)), markup)
	bot.Softly(err)
	return nil
}

func (a *Admin) cmdUnban(ctx context.Context, req *commandRequest) error {
	target, err := ResolveTarget(req.msg)
	if err != nil {
		return err
	}
	bot.Softly(a.gateway.Unban(ctx, req.chat.ID, target.ID))
	bot.Softly(a.replyTo(ctx, req.msg,
		fmt.Sprintf(i18n.Get("%s is unbanned.", req.lang), bot.GetFullName(target))))
	return nil
}

func (a *Admin) cmdMute(ctx context.Context, req *commandRequest) error {
	target, err := ResolveTarget(req.msg)
	if err != nil {
		return err
	}
	duration := muteDuration(req.settings)
	bot.Softly(a.gateway.Mute(ctx, req.chat.ID, target.ID, duration))

	uid := strconv.FormatInt(target.ID, 10)
	markup := api.NewInlineKeyboardMarkup(api.NewInlineKeyboardRow(
		api.NewInlineKeyboardButtonData(i18n.Get("Unmute", req.lang), muteStatusPrefix+uid),
	))
	_, err = a.gateway.SendTextWithMarkup(ctx, req.chat.ID,
		fmt.Sprintf(i18n.Get("%s is muted for %d hours.", req.lang),
			bot.GetFullName(target), int(duration.Hours())), markup)
	bot.Softly(err)
	return nil
}

func (a *Admin) cmdUnmute(ctx context.Context, req *commandRequest) error {
	target, err := ResolveTarget(req.msg)
	if err != nil {
		return err
	}
	bot.Softly(a.gateway.Unmute(ctx, req.chat.ID, target.ID))
	bot.Softly(a.replyTo(ctx, req.msg,
		fmt.Sprintf(i18n.Get("%s is unmuted.", req.lang), bot.GetFullName(target))))
	return nil
}

func (a *Admin) cmdWarn(ctx context.Context, req *commandRequest) error {
	target, err := ResolveTarget(req.msg)
	if err != nil {
		return err
	}
	result, err := a.warnings.RecordWarning(ctx, req.chat.ID, target.ID)
	if err != nil {
		return errors.WithMessage(err, "record warning")
	}
	name := bot.GetFullName(target)
	if result.Muted {
		bot.Softly(a.gateway.Mute(ctx, req.chat.ID, target.ID, result.MuteDuration))
		bot.Softly(a.replyTo(ctx, req.msg, fmt.Sprintf(
			i18n.Get("%s reached %d warnings and is muted for %d hours.", req.lang),
			name, result.Threshold, int(result.MuteDuration.Hours()))))
		return nil
	}
	bot.Softly(a.replyTo(ctx, req.msg, fmt.Sprintf(
		i18n.Get("%s is warned. Warnings: %d/%d", req.lang),
		name, result.Count, result.Threshold)))
	return nil
}

func (a *Admin) cmdWarnings(ctx context.Context, req *commandRequest) error {
	target, err := ResolveTarget(req.msg)
	if err != nil {
		return err
	}
	count, err := a.warnings.GetCount(ctx, req.chat.ID, target.ID)
	if err != nil {
		return errors.WithMessage(err, "get count")
	}
	bot.Softly(a.replyTo(ctx, req.msg, fmt.Sprintf(
		i18n.Get("%s has %d warnings.", req.lang), bot.GetFullName(target), count)))
	return nil
}

func (a *Admin) cmdResetWarnings(ctx context.Context, req *commandRequest) error {
	target, err := ResolveTarget(req.msg)
	if err != nil {
		return err
	}
	if err := a.warnings.Reset(ctx, req.chat.ID, target.ID); err != nil {
		return errors.WithMessage(err, "reset warnings")
	}
	bot.Softly(a.replyTo(ctx, req.msg, fmt.Sprintf(
		i18n.Get("Warnings of %s are reset.", req.lang), bot.GetFullName(target))))
	return nil
}

func (a *Admin) cmdFree(ctx context.Context, req *commandRequest) error {
	target, err := ResolveTarget(req.msg)
	if err != nil {
		return err
	}
	flags, err := a.restrictions.EnsureRecord(ctx, req.chat.ID, target.ID)
	if err != nil {
		return errors.WithMessage(err, "ensure record")
	}
	_, err = a.gateway.SendTextWithMarkup(ctx, req.chat.ID,
		fmt.Sprintf(i18n.Get("Restrictions for %s:", req.lang), bot.GetFullName(target)),
		restrictionKeyboard(target.ID, flags, req.lang))
	bot.Softly(err)
	return nil
}

func (a *Admin) cmdFilter(ctx context.Context, req *commandRequest) error {
	fields := strings.Fields(req.args)
	if len(fields) == 0 {
		return errors.WithMessage(errs.ErrInvalidInput, "missing keyword")
	}
	keyword := fields[0]

	entry := &db.FilterEntry{ChatID: req.chat.ID, Keyword: keyword}
	reply := req.msg.ReplyToMessage
	switch {
	case reply != nil:
		kind, fileID, caption := filterPayload(reply)
		if kind == "" {
			return errors.WithMessage(errs.ErrInvalidInput, "unsupported reply content")
		}
		entry.MediaKind, entry.FileID, entry.Caption = kind, fileID, caption
	case len(fields) > 1:
		entry.MediaKind = "text"
		entry.Caption = strings.Join(fields[1:], " ")
	default:
		return errors.WithMessage(errs.ErrInvalidInput, "reply to a message or provide response text")
	}

	if err := a.filters.Set(ctx, entry); err != nil {
		return errors.WithMessage(err, "set filter")
	}
	bot.Softly(a.replyTo(ctx, req.msg, fmt.Sprintf(
		i18n.Get("Filter %q is set.", req.lang), entry.Keyword)))
	return nil
}

func (a *Admin) cmdFilters(ctx context.Context, req *commandRequest) error {
	entries, err := a.filters.List(ctx, req.chat.ID)
	if err != nil {
		return errors.WithMessage(err, "list filters")
	}
	if len(entries) == 0 {
		bot.Softly(a.replyTo(ctx, req.msg, i18n.Get("No filters are set.", req.lang)))
		return nil
	}
	lines := make([]string, 0, len(entries))
	for _, entry := range entries {
		lines = append(lines, fmt.Sprintf("%s (%s)", entry.Keyword, entry.MediaKind))
	}
	bot.Softly(a.replyTo(ctx, req.msg,
		i18n.Get("Active filters:", req.lang)+"\n"+strings.Join(lines, "\n")))
	return nil
}

func (a *Admin) cmdStopFilter(ctx context.Context, req *commandRequest) error {
	keyword := strings.TrimSpace(req.args)
	if keyword == "" {
		return errors.WithMessage(errs.ErrInvalidInput, "missing keyword")
	}
	removed, err := a.filters.Remove(ctx, req.chat.ID, keyword)
	if err != nil {
		return errors.WithMessage(err, "remove filter")
	}
	if !removed {
		bot.Softly(a.replyTo(ctx, req.msg, fmt.Sprintf(
			i18n.Get("There is no filter %q.", req.lang), keyword)))
		return nil
	}
	bot.Softly(a.replyTo(ctx, req.msg, fmt.Sprintf(
		i18n.Get("Filter %q is removed.", req.lang), keyword)))
	return nil
}

func (a *Admin) cmdSetWelcomeMessage(ctx context.Context, req *commandRequest) error {
	text := strings.TrimSpace(req.args)
	if text == "" {
		return errors.WithMessage(errs.ErrInvalidInput, "missing welcome text")
	}
	req.settings.WelcomeText = text
	if err := a.GetService().SetSettings(ctx, req.settings); err != nil {
		return errors.WithMessage(err, "save settings")
	}
	bot.Softly(a.replyTo(ctx, req.msg, i18n.Get("Welcome message is set.", req.lang)))
	return nil
}

func (a *Admin) cmdSetWelcomeImage(ctx context.Context, req *commandRequest) error {
	reply := req.msg.ReplyToMessage
	if reply == nil || len(reply.Photo) == 0 {
		return errors.WithMessage(errs.ErrInvalidInput, "reply to a photo")
	}
	req.settings.WelcomeImageFileID = reply.Photo[len(reply.Photo)-1].FileID
	if err := a.GetService().SetSettings(ctx, req.settings); err != nil {
		return errors.WithMessage(err, "save settings")
	}
	bot.Softly(a.replyTo(ctx, req.msg, i18n.Get("Welcome image is set.", req.lang)))
	return nil
}

func (a *Admin) cmdResetWelcome(ctx context.Context, req *commandRequest) error {
	req.settings.WelcomeText = ""
	req.settings.WelcomeImageFileID = ""
	if err := a.GetService().SetSettings(ctx, req.settings); err != nil {
		return errors.WithMessage(err, "save settings")
	}
	bot.Softly(a.replyTo(ctx, req.msg, i18n.Get("Welcome message is back to default.", req.lang)))
	return nil
}

func (a *Admin) cmdResetWelcomeImage(ctx context.Context, req *commandRequest) error {
	req.settings.WelcomeImageFileID = ""
	if err := a.GetService().SetSettings(ctx, req.settings); err != nil {
		return errors.WithMessage(err, "save settings")
	}
	bot.Softly(a.replyTo(ctx, req.msg, i18n.Get("Welcome image is removed.", req.lang)))
	return nil
}

func (a *Admin) cmdService(ctx context.Context, req *commandRequest) error {
	text := req.settings.ServiceInfoText
	if text == "" {
		text = i18n.Get("No service information is set for this group.", req.lang)
	}
	bot.Softly(a.replyTo(ctx, req.msg, text))
	return nil
}

func (a *Admin) cmdSetService(ctx context.Context, req *commandRequest) error {
	text := strings.TrimSpace(req.args)
	if text == "" {
		return errors.WithMessage(errs.ErrInvalidInput, "missing service text")
	}
	req.settings.ServiceInfoText = text
	if err := a.GetService().SetSettings(ctx, req.settings); err != nil {
		return errors.WithMessage(err, "save settings")
	}
	bot.Softly(a.replyTo(ctx, req.msg, i18n.Get("Service information is set.", req.lang)))
	return nil
}

func (a *Admin) cmdResetService(ctx context.Context, req *commandRequest) error {
	req.settings.ServiceInfoText = ""
	if err := a.GetService().SetSettings(ctx, req.settings); err != nil {
		return errors.WithMessage(err, "save settings")
	}
	bot.Softly(a.replyTo(ctx, req.msg, i18n.Get("Service information is removed.", req.lang)))
	return nil
}

func (a *Admin) cmdSetWarnLimit(ctx context.Context, req *commandRequest) error {
	limit, err := parsePositive(req.args)
	if err != nil {
		return err
	}
	req.settings.WarnThreshold = limit
	if err := a.GetService().SetSettings(ctx, req.settings); err != nil {
		return errors.WithMessage(err, "save settings")
	}
	bot.Softly(a.replyTo(ctx, req.msg, fmt.Sprintf(
		i18n.Get("Warning limit is %d now.", req.lang), limit)))
	return nil
}

func (a *Admin) cmdSetMuteHours(ctx context.Context, req *commandRequest) error {
	hours, err := parsePositive(req.args)
	if err != nil {
		return err
	}
	req.settings.MuteDurationHours = hours
	if err := a.GetService().SetSettings(ctx, req.settings); err != nil {
		return errors.WithMessage(err, "save settings")
	}
	bot.Softly(a.replyTo(ctx, req.msg, fmt.Sprintf(
		i18n.Get("Mute duration is %d hours now.", req.lang), hours)))
	return nil
}

func (a *Admin) cmdEditDelete(ctx context.Context, req *commandRequest) error {
	enabled, err := parseOnOff(req.args)
	if err != nil {
		return err
	}
	req.settings.EditDeletionEnabled = enabled
	if err := a.GetService().SetSettings(ctx, req.settings); err != nil {
		return errors.WithMessage(err, "save settings")
	}
	bot.Softly(a.replyTo(ctx, req.msg, onOffText(enabled,
		i18n.Get("Edited messages will be deleted.", req.lang),
		i18n.Get("Edited messages are left alone.", req.lang))))
	return nil
}

func (a *Admin) cmdNSFWFilter(ctx context.Context, req *commandRequest) error {
	enabled, err := parseOnOff(req.args)
	if err != nil {
		return err
	}
	req.settings.NSFWFilterEnabled = enabled
	if err := a.GetService().SetSettings(ctx, req.settings); err != nil {
		return errors.WithMessage(err, "save settings")
	}
	bot.Softly(a.replyTo(ctx, req.msg, onOffText(enabled,
		i18n.Get("NSFW filtering is on.", req.lang),
		i18n.Get("NSFW filtering is off.", req.lang))))
	return nil
}

func (a *Admin) cmdSelfDestruct(ctx context.Context, req *commandRequest) error {
	seconds, err := parseNonNegative(req.args)
	if err != nil {
		return err
	}
	req.settings.SelfDestructSeconds = seconds
	if err := a.GetService().SetSettings(ctx, req.settings); err != nil {
		return errors.WithMessage(err, "save settings")
	}
	if seconds == 0 {
		bot.Softly(a.replyTo(ctx, req.msg, i18n.Get("My responses will stay.", req.lang)))
		return nil
	}
	bot.Softly(a.replyTo(ctx, req.msg, fmt.Sprintf(
		i18n.Get("My responses will self-destruct after %d seconds.", req.lang), seconds)))
	return nil
}

func (a *Admin) cmdServiceMessages(ctx context.Context, req *commandRequest) error {
	enabled, delay, err := parseOnOffWithDelay(req.args, req.settings.ServiceMsgDeleteAfter)
	if err != nil {
		return err
	}
	req.settings.ServiceMsgEnabled = enabled
	req.settings.ServiceMsgDeleteAfter = delay
	if err := a.GetService().SetSettings(ctx, req.settings); err != nil {
		return errors.WithMessage(err, "save settings")
	}
	bot.Softly(a.replyTo(ctx, req.msg, onOffText(enabled,
		fmt.Sprintf(i18n.Get("Service messages stay for %d seconds.", req.lang), delay),
		i18n.Get("Service messages will be deleted right away.", req.lang))))
	return nil
}

func (a *Admin) cmdEventMessages(ctx context.Context, req *commandRequest) error {
	enabled, delay, err := parseOnOffWithDelay(req.args, req.settings.EventMsgDeleteAfter)
	if err != nil {
		return err
	}
	req.settings.EventMsgEnabled = enabled
	req.settings.EventMsgDeleteAfter = delay
	if err := a.GetService().SetSettings(ctx, req.settings); err != nil {
		return errors.WithMessage(err, "save settings")
	}
	bot.Softly(a.replyTo(ctx, req.msg, onOffText(enabled,
		fmt.Sprintf(i18n.Get("Event messages stay for %d seconds.", req.lang), delay),
		i18n.Get("Event messages will be deleted right away.", req.lang))))
	return nil
}

func (a *Admin) cmdSetLang(ctx context.Context, req *commandRequest) error {
	code := strings.ToLower(strings.TrimSpace(req.args))
	if len(code) != 2 {
		return errors.WithMessage(errs.ErrInvalidInput, "two-letter language code expected")
	}
	req.settings.Language = code
	if err := a.GetService().SetSettings(ctx, req.settings); err != nil {
		return errors.WithMessage(err, "save settings")
	}
	bot.Softly(a.replyTo(ctx, req.msg, i18n.Get("Language is set.", code)))
	return nil
}

func (a *Admin) cmdPromote(ctx context.Context, req *commandRequest) error {
	target, err := ResolveTarget(req.msg)
	if err != nil {
		return err
	}
	bot.Softly(a.gateway.Promote(ctx, req.chat.ID, target.ID))
	bot.Softly(a.replyTo(ctx, req.msg, fmt.Sprintf(
		i18n.Get("%s is promoted.", req.lang), bot.GetFullName(target))))
	return nil
}

func (a *Admin) cmdDemote(ctx context.Context, req *commandRequest) error {
	target, err := ResolveTarget(req.msg)
	if err != nil {
		return err
	}
	bot.Softly(a.gateway.Demote(ctx, req.chat.ID, target.ID))
	bot.Softly(a.replyTo(ctx, req.msg, fmt.Sprintf(
		i18n.Get("%s is demoted.", req.lang), bot.GetFullName(target))))
	return nil
}

// cmdClassify reports the deterministic verdict on the replied-to
// message, plus the advisor's second opinion when one is configured.
// Neither verdict triggers enforcement here.
func (a *Admin) cmdClassify(ctx context.Context, req *commandRequest) error {
	reply := req.msg.ReplyToMessage
	if reply == nil {
		return errors.WithMessage(errs.ErrInvalidInput, "reply to the message to classify")
	}
	content := bot.ExtractContentFromMessage(reply)

	verdict := i18n.Get("clean", req.lang)
	if a.classifier.IsFlagged(content) {
		verdict = i18n.Get("flagged", req.lang)
	}
	text := fmt.Sprintf(i18n.Get("Denylist verdict: %s", req.lang), verdict)

	if a.advisor != nil {
		advisorCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		defer cancel()
		flagged, err := a.advisor.Detect(advisorCtx, content)
		switch {
		case err != nil:
			text += "\n" + i18n.Get("Advisor: unavailable", req.lang)
		case flagged != nil && *flagged:
			text += "\n" + i18n.Get("Advisor: flagged", req.lang)
		default:
			text += "\n" + i18n.Get("Advisor: clean", req.lang)
		}
	}
	bot.Softly(a.replyTo(ctx, req.msg, text))
	return nil
}

func filterPayload(reply *api.Message) (kind, fileID, caption string) {
	switch {
	case len(reply.Photo) > 0:
		return "photo", reply.Photo[len(reply.Photo)-1].FileID, reply.Caption
	case reply.Sticker != nil:
		return "sticker", reply.Sticker.FileID, ""
	case reply.Animation != nil:
		return "animation", reply.Animation.FileID, reply.Caption
	case reply.Video != nil:
		return "video", reply.Video.FileID, reply.Caption
	case reply.Document != nil:
		return "document", reply.Document.FileID, reply.Caption
	case reply.Text != "":
		return "text", "", reply.Text
	}
	return "", "", ""
}

func parseOnOff(args string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(args)) {
	case "on", "yes", "true", "1":
		return true, nil
	case "off", "no", "false", "0":
		return false, nil
	}
	return false, errors.WithMessage(errs.ErrInvalidInput, "expected on or off")
}

func parseOnOffWithDelay(args string, currentDelay uint) (bool, uint, error) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return false, 0, errors.WithMessage(errs.ErrInvalidInput, "expected on or off")
	}
	enabled, err := parseOnOff(fields[0])
	if err != nil {
		return false, 0, err
	}
	delay := currentDelay
	if len(fields) > 1 {
		delay, err = parseNonNegative(fields[1])
		if err != nil {
			return false, 0, err
		}
	}
	return enabled, delay, nil
}

func parsePositive(args string) (uint, error) {
	value, err := parseNonNegative(args)
	if err != nil {
		return 0, err
	}
	if value == 0 {
		return 0, errors.WithMessage(errs.ErrInvalidInput, "expected a positive number")
	}
	return value, nil
}

func parseNonNegative(args string) (uint, error) {
	value, err := strconv.ParseUint(strings.TrimSpace(args), 10, 32)
	if err != nil {
		return 0, errors.WithMessage(errs.ErrInvalidInput, "expected a number")
	}
	return uint(value), nil
}

func onOffText(enabled bool, onText, offText string) string {
	if enabled {
		return onText
	}
	return offText
}
