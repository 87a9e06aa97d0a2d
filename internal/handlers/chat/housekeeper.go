package chat

import (
	"context"

	api "github.com/OvyFlash/telegram-bot-api"

	"github.com/iamwavecut/gmbot/internal/bot"
	"github.com/iamwavecut/gmbot/internal/handlers/base"
	"github.com/iamwavecut/gmbot/internal/schedule"
)

// Housekeeper removes platform service notifications and low-signal
// event messages, immediately when disabled for the group or after the
// configured delay.
type Housekeeper struct {
	*base.BaseHandler
	gateway   bot.Gateway
	scheduler *schedule.Registry
}

func NewHousekeeper(s bot.Service, gateway bot.Gateway, scheduler *schedule.Registry) *Housekeeper {
	return &Housekeeper{
		BaseHandler: base.NewBaseHandler(s, "housekeeper"),
		gateway:     gateway,
		scheduler:   scheduler,
	}
}

func (h *Housekeeper) Handle(ctx context.Context, u *api.Update, chat *api.Chat, user *api.User) (bool, error) {
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	default:
	}
	if u == nil || u.Message == nil || chat == nil {
		return true, nil
	}
	if !chat.IsGroup() && !chat.IsSuperGroup() {
		return true, nil
	}

	msg := u.Message
	service := isServiceMessage(msg)
	event := !service && isEventMessage(msg)
	if !service && !event {
		return true, nil
	}

	settings, err := h.GetService().GetSettings(ctx, chat.ID)
	if err != nil {
		return false, err
	}

	enabled, deleteAfter := settings.ServiceMsgEnabled, settings.ServiceMsgDeleteAfter
	if event {
		enabled, deleteAfter = settings.EventMsgEnabled, settings.EventMsgDeleteAfter
	}

	switch {
	case !enabled:
		bot.Softly(h.gateway.DeleteMessage(ctx, chat.ID, msg.MessageID))
	case deleteAfter > 0:
		chatID, messageID := chat.ID, msg.MessageID
		h.scheduler.After(
			schedule.DeletionKey(chatID, messageID),
			schedule.Seconds(deleteAfter),
			func(taskCtx context.Context) {
				bot.Softly(h.gateway.DeleteMessage(taskCtx, chatID, messageID))
			})
	}
	return true, nil
}

func isServiceMessage(msg *api.Message) bool {
	return len(msg.NewChatMembers) > 0 ||
		msg.LeftChatMember != nil ||
		msg.NewChatTitle != "" ||
		len(msg.NewChatPhoto) > 0 ||
		msg.DeleteChatPhoto ||
		msg.GroupChatCreated ||
		msg.SuperGroupChatCreated ||
		msg.PinnedMessage != nil ||
		msg.MessageAutoDeleteTimerChanged != nil ||
		msg.VideoChatStarted != nil ||
		msg.VideoChatEnded != nil ||
		msg.VideoChatParticipantsInvited != nil
}

// Event messages carry neither conversation text nor shareable media.
func isEventMessage(msg *api.Message) bool {
	switch bot.GetMessageType(msg) {
	case bot.MessageTypeDice, bot.MessageTypeGame, bot.MessageTypeInvoice,
		bot.MessageTypeLocation, bot.MessageTypeContact, bot.MessageTypeVenue,
		bot.MessageTypeStory, bot.MessageTypePoll:
		return true
	}
	return false
}
