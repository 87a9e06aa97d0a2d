package chat

import (
	"context"
	"strconv"
	"strings"

	api "github.com/OvyFlash/telegram-bot-api"

	"github.com/iamwavecut/gmbot/internal/bot"
	"github.com/iamwavecut/gmbot/internal/db"
	"github.com/iamwavecut/gmbot/internal/handlers/base"
	"github.com/iamwavecut/gmbot/internal/i18n"
	"github.com/iamwavecut/gmbot/internal/schedule"
)

// Greeter welcomes new members and auto-approves join requests.
type Greeter struct {
	*base.BaseHandler
	gateway   bot.Gateway
	scheduler *schedule.Registry
}

func NewGreeter(s bot.Service, gateway bot.Gateway, scheduler *schedule.Registry) *Greeter {
	return &Greeter{
		BaseHandler: base.NewBaseHandler(s, "greeter"),
		gateway:     gateway,
		scheduler:   scheduler,
	}
}

func (g *Greeter) Handle(ctx context.Context, u *api.Update, chat *api.Chat, user *api.User) (bool, error) {
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	default:
	}
	if u == nil || chat == nil {
		return true, nil
	}

	if u.ChatJoinRequest != nil {
		bot.Softly(g.gateway.ApproveJoinRequest(ctx, chat.ID, u.ChatJoinRequest.From.ID))
		return false, nil
	}

	msg := u.Message
	if msg == nil || len(msg.NewChatMembers) == 0 {
		return true, nil
	}
	if !chat.IsGroup() && !chat.IsSuperGroup() {
		return true, nil
	}

	settings, err := g.GetService().GetSettings(ctx, chat.ID)
	if err != nil {
		return false, err
	}
	lang := g.GetService().GetLanguage(ctx, chat.ID, user)

	for i := range msg.NewChatMembers {
		member := &msg.NewChatMembers[i]
		if member.IsBot {
			continue
		}
		g.welcome(ctx, chat, member, settings, lang)
	}
	return true, nil
}

func (g *Greeter) welcome(ctx context.Context, chat *api.Chat, member *api.User, settings *db.Settings, lang string) {
	text := settings.WelcomeText
	if text == "" {
		text = i18n.Get("Welcome to {group}, {mention}!", lang)
	}
	text = RenderWelcome(text, chat, member)

	var sent *api.Message
	var err error
	if settings.WelcomeImageFileID != "" {
		sent, err = g.gateway.SendMedia(ctx, chat.ID, "photo", settings.WelcomeImageFileID, text)
		if err != nil {
			// Image delivery can fail on stale file handles; fall back
			// to text-only delivery.
			bot.Softly(err)
			sent, err = g.gateway.SendText(ctx, chat.ID, text)
		}
	} else {
		sent, err = g.gateway.SendText(ctx, chat.ID, text)
	}
	if err != nil {
		bot.Softly(err)
		return
	}

	if settings.SelfDestructSeconds > 0 && sent != nil {
		chatID, messageID := sent.Chat.ID, sent.MessageID
		g.scheduler.After(
			schedule.DeletionKey(chatID, messageID),
			schedule.Seconds(settings.SelfDestructSeconds),
			func(taskCtx context.Context) {
				bot.Softly(g.gateway.DeleteMessage(taskCtx, chatID, messageID))
			})
	}
}

// RenderWelcome substitutes the admin-facing placeholders of a welcome
// template. Placeholders use brace syntax so group admins can type them
// directly in a command.
func RenderWelcome(template string, chat *api.Chat, member *api.User) string {
	mention := bot.GetFullName(member)
	if member.UserName != "" {
		mention = "@" + member.UserName
	}
	return strings.NewReplacer(
		"{name}", bot.GetFullName(member),
		"{mention}", mention,
		"{username}", bot.GetUN(member),
		"{id}", strconv.FormatInt(member.ID, 10),
		"{group}", chat.Title,
	).Replace(template)
}
