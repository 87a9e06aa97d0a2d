package admin

import (
	"context"
	"strings"
	"testing"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"

	"github.com/iamwavecut/gmbot/internal/db"
	"github.com/iamwavecut/gmbot/internal/db/memory"
	"github.com/iamwavecut/gmbot/internal/moderation"
)

type fakeGateway struct {
	privileged map[int64]bool

	replies      []string
	markupTexts  []string
	mutes        []time.Duration
	applied      []moderation.CapabilityGrant
	bans, unbans []int64
	promoted     []int64
	deleted      []int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{privileged: map[int64]bool{}}
}

func (f *fakeGateway) DeleteMessage(_ context.Context, _ int64, messageID int) error {
	f.deleted = append(f.deleted, messageID)
	return nil
}

func (f *fakeGateway) SendText(_ context.Context, chatID int64, text string) (*api.Message, error) {
	f.replies = append(f.replies, text)
	return &api.Message{MessageID: 9000 + len(f.replies), Chat: api.Chat{ID: chatID}}, nil
}

func (f *fakeGateway) ReplyText(ctx context.Context, chatID int64, _ int, text string) (*api.Message, error) {
	return f.SendText(ctx, chatID, text)
}

func (f *fakeGateway) SendTextWithMarkup(_ context.Context, chatID int64, text string, _ api.InlineKeyboardMarkup) (*api.Message, error) {
	f.markupTexts = append(f.markupTexts, text)
	return &api.Message{MessageID: 9500 + len(f.markupTexts), Chat: api.Chat{ID: chatID}}, nil
}

func (f *fakeGateway) SendMedia(_ context.Context, chatID int64, _, _, _ string) (*api.Message, error) {
	return &api.Message{MessageID: 9900, Chat: api.Chat{ID: chatID}}, nil
}

func (f *fakeGateway) SendDirect(context.Context, int64, string) error { return nil }

func (f *fakeGateway) ApplyCapabilities(_ context.Context, _, _ int64, grant moderation.CapabilityGrant) error {
	f.applied = append(f.applied, grant)
	return nil
}

func (f *fakeGateway) Mute(_ context.Context, _, _ int64, duration time.Duration) error {
	f.mutes = append(f.mutes, duration)
	return nil
}

func (f *fakeGateway) Unmute(ctx context.Context, chatID, userID int64) error {
	return f.ApplyCapabilities(ctx, chatID, userID, moderation.ProjectCapabilities(nil))
}

func (f *fakeGateway) Ban(_ context.Context, _, userID int64) error {
	f.bans = append(f.bans, userID)
	return nil
}

func (f *fakeGateway) Unban(_ context.Context, _, userID int64) error {
	f.unbans = append(f.unbans, userID)
	return nil
}

func (f *fakeGateway) Promote(_ context.Context, _, userID int64) error {
	f.promoted = append(f.promoted, userID)
	return nil
}

func (f *fakeGateway) Demote(context.Context, int64, int64) error { return nil }

func (f *fakeGateway) IsPrivileged(_ context.Context, _, userID int64) (bool, error) {
	return f.privileged[userID], nil
}

func (f *fakeGateway) ApproveJoinRequest(context.Context, int64, int64) error { return nil }

func (f *fakeGateway) AnswerCallback(context.Context, string, string) error { return nil }

func (f *fakeGateway) EditMessageMarkup(context.Context, int64, int, api.InlineKeyboardMarkup) error {
	return nil
}

func (f *fakeGateway) ResolveFileURL(context.Context, string) (string, error) {
	return "https://files.example/documents/file_0.bin", nil
}

type fakeService struct {
	store    db.Client
	settings *db.Settings
}

func (s *fakeService) GetBot() *api.BotAPI { return nil }
func (s *fakeService) GetDB() db.Client    { return s.store }

func (s *fakeService) GetSettings(_ context.Context, chatID int64) (*db.Settings, error) {
	if s.settings != nil {
		return s.settings, nil
	}
	return db.DefaultSettings(chatID), nil
}

func (s *fakeService) SetSettings(_ context.Context, settings *db.Settings) error {
	s.settings = settings
	return nil
}

func (s *fakeService) GetLanguage(context.Context, int64, *api.User) string { return "en" }

type adminFixture struct {
	admin        *Admin
	gateway      *fakeGateway
	service      *fakeService
	filters      *moderation.KeywordFilterTable
	restrictions *moderation.RestrictionMatrix
}

func newAdminFixture(t *testing.T) *adminFixture {
	t.Helper()
	store := memory.NewClient()
	service := &fakeService{store: store}
	gateway := newFakeGateway()
	warnings := moderation.NewWarningTracker(store, service)
	restrictions := moderation.NewRestrictionMatrix(store)
	filters := moderation.NewKeywordFilterTable(store)
	return &adminFixture{
		admin: NewAdmin(
			service, gateway, warnings, restrictions, filters,
			moderation.NewClassifier(), nil),
		gateway:      gateway,
		service:      service,
		filters:      filters,
		restrictions: restrictions,
	}
}

func commandUpdate(text string) *api.Update {
	return &api.Update{Message: commandMessage(text)}
}

func adminChat() *api.Chat {
	return &api.Chat{ID: -100, Type: "supergroup", Title: "Test Group"}
}

func issuer() *api.User {
	return &api.User{ID: 1, FirstName: "Admin"}
}

func TestAdminRejectsUnprivilegedIssuer(t *testing.T) {
	t.Parallel()

	f := newAdminFixture(t)
	proceed, err := f.admin.Handle(context.Background(), commandUpdate("/ban 7"), adminChat(), issuer())
	if err != nil {
		t.Fatal(err)
	}
	if proceed {
		t.Fatal("known commands must be consumed even when rejected")
	}
	if len(f.gateway.bans) != 0 {
		t.Fatal("unprivileged issuer must not ban anyone")
	}
	if len(f.gateway.replies) != 1 {
		t.Fatalf("got %d replies, want the rejection notice", len(f.gateway.replies))
	}
}

func TestAdminBanByReply(t *testing.T) {
	t.Parallel()

	f := newAdminFixture(t)
	f.gateway.privileged[1] = true

	u := commandUpdate("/ban")
	u.Message.ReplyToMessage = &api.Message{From: &api.User{ID: 7, FirstName: "Plain"}}

	proceed, err := f.admin.Handle(context.Background(), u, adminChat(), issuer())
	if err != nil {
		t.Fatal(err)
	}
	if proceed {
		t.Fatal("command must be consumed")
	}
	if len(f.gateway.bans) != 1 || f.gateway.bans[0] != 7 {
		t.Fatalf("bans = %v, want [7]", f.gateway.bans)
	}
	if len(f.gateway.markupTexts) != 1 {
		t.Fatal("ban confirmation with the unban button is missing")
	}
}

func TestAdminBanUnresolvedTargetReportsUsage(t *testing.T) {
	t.Parallel()

	f := newAdminFixture(t)
	f.gateway.privileged[1] = true

	if _, err := f.admin.Handle(context.Background(), commandUpdate("/ban @someone"), adminChat(), issuer()); err != nil {
		t.Fatal(err)
	}
	if len(f.gateway.bans) != 0 {
		t.Fatal("nothing must be banned")
	}
	if len(f.gateway.replies) != 1 || !strings.Contains(f.gateway.replies[0], "/ban") {
		t.Fatalf("replies = %v, want the usage hint", f.gateway.replies)
	}
}

func TestAdminSetWarnLimit(t *testing.T) {
	t.Parallel()

	f := newAdminFixture(t)
	f.gateway.privileged[1] = true

	if _, err := f.admin.Handle(context.Background(), commandUpdate("/setwarnlimit 5"), adminChat(), issuer()); err != nil {
		t.Fatal(err)
	}
	if f.service.settings == nil || f.service.settings.WarnThreshold != 5 {
		t.Fatalf("settings = %+v, want WarnThreshold 5 persisted", f.service.settings)
	}
}

func TestAdminFilterLifecycle(t *testing.T) {
	t.Parallel()

	f := newAdminFixture(t)
	f.gateway.privileged[1] = true
	ctx := context.Background()

	u := commandUpdate("/filter rules")
	u.Message.ReplyToMessage = &api.Message{Text: "Read the pinned rules first."}
	if _, err := f.admin.Handle(ctx, u, adminChat(), issuer()); err != nil {
		t.Fatal(err)
	}

	entry, err := f.filters.MatchFirst(ctx, -100, "what are the RULES here")
	if err != nil {
		t.Fatal(err)
	}
	if entry == nil || entry.Caption != "Read the pinned rules first." {
		t.Fatalf("entry = %+v, want the stored response", entry)
	}

	if _, err := f.admin.Handle(ctx, commandUpdate("/stopfilter rules"), adminChat(), issuer()); err != nil {
		t.Fatal(err)
	}
	entry, err = f.filters.MatchFirst(ctx, -100, "what are the rules here")
	if err != nil {
		t.Fatal(err)
	}
	if entry != nil {
		t.Fatalf("filter survived removal: %+v", entry)
	}
}

func TestAdminUnknownCommandPassesThrough(t *testing.T) {
	t.Parallel()

	f := newAdminFixture(t)
	proceed, err := f.admin.Handle(context.Background(), commandUpdate("/dance"), adminChat(), issuer())
	if err != nil {
		t.Fatal(err)
	}
	if !proceed {
		t.Fatal("unknown commands must pass to the next handler")
	}
}

func TestAdminGroupCommandInPrivateChat(t *testing.T) {
	t.Parallel()

	f := newAdminFixture(t)
	u := commandUpdate("/ban 7")
	u.Message.Chat = api.Chat{ID: 1, Type: "private"}

	proceed, err := f.admin.Handle(context.Background(), u, &u.Message.Chat, issuer())
	if err != nil {
		t.Fatal(err)
	}
	if proceed {
		t.Fatal("command must be consumed")
	}
	if len(f.gateway.bans) != 0 {
		t.Fatal("group commands must not run in private chats")
	}
	if len(f.gateway.replies) != 1 {
		t.Fatal("issuer must be told the command is group only")
	}
}

func TestAdminPlainMessagePassesThrough(t *testing.T) {
	t.Parallel()

	f := newAdminFixture(t)
	proceed, err := f.admin.Handle(context.Background(),
		&api.Update{Message: &api.Message{MessageID: 42, Chat: *adminChat(), From: issuer(), Text: "hello"}},
		adminChat(), issuer())
	if err != nil {
		t.Fatal(err)
	}
	if !proceed {
		t.Fatal("plain messages are not for the admin handler")
	}
	if len(f.gateway.replies) != 0 {
		t.Fatal("plain messages must not trigger replies")
	}
}
