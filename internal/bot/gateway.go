package bot

import (
	"context"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	errs "github.com/iamwavecut/gmbot/internal/errors"
	"github.com/iamwavecut/gmbot/internal/moderation"
	"github.com/iamwavecut/gmbot/internal/observability"
)

// Gateway is the outbound surface towards the chat platform. Handlers
// depend on it instead of the raw client so tests can record actions.
type Gateway interface {
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
	SendText(ctx context.Context, chatID int64, text string) (*api.Message, error)
	ReplyText(ctx context.Context, chatID int64, replyToID int, text string) (*api.Message, error)
	SendTextWithMarkup(ctx context.Context, chatID int64, text string, markup api.InlineKeyboardMarkup) (*api.Message, error)
	SendMedia(ctx context.Context, chatID int64, kind, fileID, caption string) (*api.Message, error)
	SendDirect(ctx context.Context, userID int64, text string) error

	ApplyCapabilities(ctx context.Context, chatID, userID int64, grant moderation.CapabilityGrant) error
	Mute(ctx context.Context, chatID, userID int64, duration time.Duration) error
	Unmute(ctx context.Context, chatID, userID int64) error
	Ban(ctx context.Context, chatID, userID int64) error
	Unban(ctx context.Context, chatID, userID int64) error
	Promote(ctx context.Context, chatID, userID int64) error
	Demote(ctx context.Context, chatID, userID int64) error

	IsPrivileged(ctx context.Context, chatID, userID int64) (bool, error)
	ApproveJoinRequest(ctx context.Context, chatID, userID int64) error
	AnswerCallback(ctx context.Context, callbackID, text string) error
	EditMessageMarkup(ctx context.Context, chatID int64, messageID int, markup api.InlineKeyboardMarkup) error
	ResolveFileURL(ctx context.Context, fileID string) (string, error)
}

type apiGateway struct {
	bot *api.BotAPI
}

func NewGateway(bot *api.BotAPI) Gateway {
	return &apiGateway{bot: bot}
}

func (g *apiGateway) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		if _, err := g.bot.Request(api.NewDeleteMessage(chatID, messageID)); err != nil {
			return errors.WithMessage(err, "cant delete message")
		}
		observability.RecordEnforcementAction("delete_message")
		return nil
	}
}

func (g *apiGateway) SendText(ctx context.Context, chatID int64, text string) (*api.Message, error) {
	return g.send(ctx, api.NewMessage(chatID, text))
}

func (g *apiGateway) ReplyText(ctx context.Context, chatID int64, replyToID int, text string) (*api.Message, error) {
	msg := api.NewMessage(chatID, text)
	msg.ReplyParameters = api.ReplyParameters{MessageID: replyToID}
	return g.send(ctx, msg)
}

func (g *apiGateway) SendTextWithMarkup(ctx context.Context, chatID int64, text string, markup api.InlineKeyboardMarkup) (*api.Message, error) {
	msg := api.NewMessage(chatID, text)
	msg.ReplyMarkup = markup
	return g.send(ctx, msg)
}

func (g *apiGateway) SendMedia(ctx context.Context, chatID int64, kind, fileID, caption string) (*api.Message, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	file := api.FileID(fileID)
	var chattable api.Chattable
	switch kind {
	case "photo":
		media := api.NewPhoto(chatID, file)
		media.Caption = caption
		chattable = media
	case "sticker":
		chattable = api.NewSticker(chatID, file)
	case "animation":
		media := api.NewAnimation(chatID, file)
		media.Caption = caption
		chattable = media
	case "video":
		media := api.NewVideo(chatID, file)
		media.Caption = caption
		chattable = media
	case "document":
		media := api.NewDocument(chatID, file)
		media.Caption = caption
		chattable = media
	case "text", "":
		return g.SendText(ctx, chatID, caption)
	default:
		return nil, errors.WithMessagef(errs.ErrInvalidInput, "unknown media kind %q", kind)
	}

	sent, err := g.bot.Send(chattable)
	if err != nil {
		return nil, errors.WithMessage(err, "cant send media")
	}
	return &sent, nil
}

// SendDirect messages the user privately. Fails when the user never
// started a private chat with the bot, which callers treat as soft.
func (g *apiGateway) SendDirect(ctx context.Context, userID int64, text string) error {
	_, err := g.send(ctx, api.NewMessage(userID, text))
	return err
}

func (g *apiGateway) send(ctx context.Context, msg api.MessageConfig) (*api.Message, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
		sent, err := g.bot.Send(msg)
		if err != nil {
			return nil, errors.WithMessage(err, "cant send message")
		}
		return &sent, nil
	}
}

func (g *apiGateway) ApplyCapabilities(ctx context.Context, chatID, userID int64, grant moderation.CapabilityGrant) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		if _, err := g.bot.Request(api.RestrictChatMemberConfig{
			ChatMemberConfig: memberConfig(chatID, userID),
			Permissions: &api.ChatPermissions{
				CanSendMessages:       grant.SendMessages,
				CanSendAudios:         grant.SendMedia,
				CanSendDocuments:      grant.SendMedia,
				CanSendPhotos:         grant.SendMedia,
				CanSendVideos:         grant.SendMedia,
				CanSendVideoNotes:     grant.SendMedia,
				CanSendVoiceNotes:     grant.SendMedia,
				CanSendPolls:          grant.SendPolls,
				CanSendOtherMessages:  grant.SendOther,
				CanAddWebPagePreviews: grant.AddWebPagePreviews,
			},
		}); err != nil {
			return errors.WithMessage(err, "cant apply capabilities")
		}
		observability.RecordEnforcementAction("restrict")
		return nil
	}
}

func (g *apiGateway) Mute(ctx context.Context, chatID, userID int64, duration time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		if _, err := g.bot.Request(api.RestrictChatMemberConfig{
			ChatMemberConfig: memberConfig(chatID, userID),
			UntilDate:        time.Now().Add(duration).Unix(),
			Permissions: &api.ChatPermissions{
				CanSendMessages: false,
			},
		}); err != nil {
			return errors.WithMessage(err, "cant mute")
		}
		observability.RecordEnforcementAction("mute")
		return nil
	}
}

func (g *apiGateway) Unmute(ctx context.Context, chatID, userID int64) error {
	err := g.ApplyCapabilities(ctx, chatID, userID, moderation.ProjectCapabilities(nil))
	if err == nil {
		observability.RecordEnforcementAction("unmute")
	}
	return err
}

func (g *apiGateway) Ban(ctx context.Context, chatID, userID int64) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		if _, err := g.bot.Request(api.BanChatMemberConfig{
			ChatMemberConfig: memberConfig(chatID, userID),
		}); err != nil {
			return errors.WithMessage(err, "cant ban")
		}
		observability.RecordEnforcementAction("ban")
		return nil
	}
}

func (g *apiGateway) Unban(ctx context.Context, chatID, userID int64) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		if _, err := g.bot.Request(api.UnbanChatMemberConfig{
			ChatMemberConfig: memberConfig(chatID, userID),
			OnlyIfBanned:     true,
		}); err != nil {
			return errors.WithMessage(err, "cant unban")
		}
		observability.RecordEnforcementAction("unban")
		return nil
	}
}

func (g *apiGateway) Promote(ctx context.Context, chatID, userID int64) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		if _, err := g.bot.Request(api.PromoteChatMemberConfig{
			ChatMemberConfig:   memberConfig(chatID, userID),
			CanDeleteMessages:  true,
			CanRestrictMembers: true,
			CanInviteUsers:     true,
			CanPinMessages:     true,
		}); err != nil {
			return errors.WithMessage(err, "cant promote")
		}
		observability.RecordEnforcementAction("promote")
		return nil
	}
}

func (g *apiGateway) Demote(ctx context.Context, chatID, userID int64) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		if _, err := g.bot.Request(api.PromoteChatMemberConfig{
			ChatMemberConfig: memberConfig(chatID, userID),
		}); err != nil {
			return errors.WithMessage(err, "cant demote")
		}
		observability.RecordEnforcementAction("demote")
		return nil
	}
}

// IsPrivileged reports whether the user is the group's creator or an
// administrator.
func (g *apiGateway) IsPrivileged(ctx context.Context, chatID, userID int64) (bool, error) {
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	default:
		member, err := g.bot.GetChatMember(api.GetChatMemberConfig{
			ChatConfigWithUser: api.ChatConfigWithUser{
				ChatConfig: api.ChatConfig{ChatID: chatID},
				UserID:     userID,
			},
		})
		if err != nil {
			return false, errors.WithMessage(err, "cant get chat member")
		}
		return member.IsCreator() || member.IsAdministrator(), nil
	}
}

func (g *apiGateway) ApproveJoinRequest(ctx context.Context, chatID, userID int64) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		if _, err := g.bot.Request(api.ApproveChatJoinRequestConfig{
			ChatConfig: api.ChatConfig{ChatID: chatID},
			UserID:     userID,
		}); err != nil {
			return errors.WithMessage(err, "cant approve join request")
		}
		return nil
	}
}

func (g *apiGateway) AnswerCallback(ctx context.Context, callbackID, text string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		if _, err := g.bot.Request(api.NewCallback(callbackID, text)); err != nil {
			return errors.WithMessage(err, "cant answer callback")
		}
		return nil
	}
}

func (g *apiGateway) EditMessageMarkup(ctx context.Context, chatID int64, messageID int, markup api.InlineKeyboardMarkup) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		if _, err := g.bot.Request(api.NewEditMessageReplyMarkup(chatID, messageID, markup)); err != nil {
			return errors.WithMessage(err, "cant edit message markup")
		}
		return nil
	}
}

func (g *apiGateway) ResolveFileURL(ctx context.Context, fileID string) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
		url, err := g.bot.GetFileDirectURL(fileID)
		if err != nil {
			return "", errors.WithMessage(err, "cant resolve file url")
		}
		return url, nil
	}
}

func memberConfig(chatID, userID int64) api.ChatMemberConfig {
	return api.ChatMemberConfig{
		ChatConfig: api.ChatConfig{ChatID: chatID},
		UserID:     userID,
	}
}

// Softly runs a best-effort gateway call: transport failures are logged
// and dropped so one flaky send never aborts a policy decision.
func Softly(err error) {
	if err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Warn("gateway call failed")
	}
}
