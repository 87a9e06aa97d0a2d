package admin

import (
	"context"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/pkg/errors"

	"github.com/iamwavecut/gmbot/internal/adapters"
	"github.com/iamwavecut/gmbot/internal/bot"
	"github.com/iamwavecut/gmbot/internal/db"
	errs "github.com/iamwavecut/gmbot/internal/errors"
	"github.com/iamwavecut/gmbot/internal/handlers/base"
	"github.com/iamwavecut/gmbot/internal/i18n"
	"github.com/iamwavecut/gmbot/internal/moderation"
)

// Admin is the privileged command surface: configuration, manual
// enforcement, filters and the restriction panel.
type Admin struct {
	*base.BaseHandler
	gateway      bot.Gateway
	warnings     *moderation.WarningTracker
	restrictions *moderation.RestrictionMatrix
	filters      *moderation.KeywordFilterTable
	classifier   *moderation.Classifier
	advisor      adapters.LLM

	commands map[string]command
}

type command struct {
	public bool
	usage  string
	run    func(ctx context.Context, req *commandRequest) error
}

type commandRequest struct {
	msg      *api.Message
	chat     *api.Chat
	user     *api.User
	args     string
	lang     string
	settings *db.Settings
}

// NewAdmin wires the command table. The advisor may be nil; /classify
// then reports the deterministic verdict only.
func NewAdmin(
	s bot.Service,
	gateway bot.Gateway,
	warnings *moderation.WarningTracker,
	restrictions *moderation.RestrictionMatrix,
	filters *moderation.KeywordFilterTable,
	classifier *moderation.Classifier,
	advisor adapters.LLM,
) *Admin {
	a := &Admin{
		BaseHandler:  base.NewBaseHandler(s, "admin"),
		gateway:      gateway,
		warnings:     warnings,
		restrictions: restrictions,
		filters:      filters,
		classifier:   classifier,
		advisor:      advisor,
	}
	a.commands = map[string]command{
		"start":  {public: true, run: a.cmdHelp},
		"help":   {public: true, run: a.cmdHelp},
		"status": {run: a.cmdStatus},
		"info":   {usage: "/info (reply or ID)", run: a.cmdInfo},

		"ban":    {usage: "/ban (reply or ID)", run: a.cmdBan},
		"unban":  {usage: "/unban (reply or ID)", run: a.cmdUnban},
		"mute":   {usage: "/mute (reply or ID)", run: a.cmdMute},
		"unmute": {usage: "/unmute (reply or ID)", run: a.cmdUnmute},

		"warn":          {usage: "/warn (reply or ID)", run: a.cmdWarn},
		"warnings":      {usage: "/warnings (reply or ID)", run: a.cmdWarnings},
		"resetwarnings": {usage: "/resetwarnings (reply or ID)", run: a.cmdResetWarnings},

		"free": {usage: "/free (reply or ID)", run: a.cmdFree},

		"filter":     {usage: "/filter <keyword> (replying to the response)", run: a.cmdFilter},
		"filters":    {run: a.cmdFilters},
		"stopfilter": {usage: "/stopfilter <keyword>", run: a.cmdStopFilter},

		"setwelcomemessage": {usage: "/setwelcomemessage <text with {name} {mention} {username} {id} {group}>", run: a.cmdSetWelcomeMessage},
		"setwelcomeimage":   {usage: "/setwelcomeimage (replying to a photo)", run: a.cmdSetWelcomeImage},
		"resetwelcome":      {run: a.cmdResetWelcome},
		"resetwelcomeimage": {run: a.cmdResetWelcomeImage},

		"service":      {public: true, run: a.cmdService},
		"setservice":   {usage: "/setservice <text>", run: a.cmdSetService},
		"resetservice": {run: a.cmdResetService},

		"setwarnlimit":    {usage: "/setwarnlimit <N>", run: a.cmdSetWarnLimit},
		"setmutehours":    {usage: "/setmutehours <H>", run: a.cmdSetMuteHours},
		"editdelete":      {usage: "/editdelete on|off", run: a.cmdEditDelete},
		"nsfwfilter":      {usage: "/nsfwfilter on|off", run: a.cmdNSFWFilter},
		"selfdestruct":    {usage: "/selfdestruct <seconds, 0 to disable>", run: a.cmdSelfDestruct},
		"servicemessages": {usage: "/servicemessages on|off [delaySeconds]", run: a.cmdServiceMessages},
		"eventmessages":   {usage: "/eventmessages on|off [delaySeconds]", run: a.cmdEventMessages},
		"setlang":         {usage: "/setlang <code>", run: a.cmdSetLang},

		"promote":  {usage: "/promote (reply or ID)", run: a.cmdPromote},
		"demote":   {usage: "/demote (reply or ID)", run: a.cmdDemote},
		"classify": {usage: "/classify (replying to a message)", run: a.cmdClassify},
	}
	return a
}

func (a *Admin) Handle(ctx context.Context, u *api.Update, chat *api.Chat, user *api.User) (bool, error) {
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	default:
	}
	if err := a.ValidateUpdate(u, chat, user); err != nil {
		return true, nil
	}

	if u.CallbackQuery != nil {
		return a.handleCallback(ctx, u, chat, user)
	}

	msg := u.Message
	if msg == nil || !msg.IsCommand() {
		return true, nil
	}

	cmd, ok := a.commands[msg.Command()]
	if !ok {
		return true, nil
	}

	lang := a.GetService().GetLanguage(ctx, chat.ID, user)

	if chat.IsPrivate() {
		if !cmd.public {
			bot.Softly(a.replyTo(ctx, msg, i18n.Get("Group commands only work inside a group.", lang)))
			return false, nil
		}
	} else if !chat.IsGroup() && !chat.IsSuperGroup() {
		return true, nil
	}

	if !cmd.public {
		privileged, err := a.gateway.IsPrivileged(ctx, chat.ID, user.ID)
		if err != nil {
			a.GetLogger().WithError(err).Error("cant check privileges")
			return false, nil
		}
		if !privileged {
			bot.Softly(a.replyTo(ctx, msg, i18n.Get("This command is for admins only.", lang)))
			return false, nil
		}
	}

	settings, err := a.GetService().GetSettings(ctx, chat.ID)
	if err != nil {
		return false, err
	}

	req := &commandRequest{
		msg:      msg,
		chat:     chat,
		user:     user,
		args:     msg.CommandArguments(),
		lang:     lang,
		settings: settings,
	}
	if err := cmd.run(ctx, req); err != nil {
		a.reportCommandError(ctx, req, cmd, err)
	}
	return false, nil
}

// reportCommandError surfaces the taxonomy errors to the issuer; state
// is untouched by then, and transport errors are only logged.
func (a *Admin) reportCommandError(ctx context.Context, req *commandRequest, cmd command, err error) {
	switch {
	case errors.Is(err, errs.ErrUnresolvedTarget):
		bot.Softly(a.replyTo(ctx, req.msg,
			i18n.Get("I can't tell who you mean.", req.lang)+" "+cmd.usage))
	case errors.Is(err, errs.ErrInvalidInput):
		bot.Softly(a.replyTo(ctx, req.msg,
			i18n.Get("I can't parse that.", req.lang)+" "+cmd.usage))
	default:
		a.GetLogger().WithError(err).WithField("command", req.msg.Command()).Error("command failed")
	}
}

func (a *Admin) replyTo(ctx context.Context, msg *api.Message, text string) error {
	_, err := a.gateway.ReplyText(ctx, msg.Chat.ID, msg.MessageID, text)
	return err
}

func muteDuration(settings *db.Settings) time.Duration {
	hours := settings.MuteDurationHours
	if hours == 0 {
		hours = db.DefaultMuteDurationHours
	}
	return time.Duration(hours) * time.Hour
}
