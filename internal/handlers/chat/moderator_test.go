package chat

import (
	"context"
	"testing"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"

	"github.com/iamwavecut/gmbot/internal/db"
	"github.com/iamwavecut/gmbot/internal/db/memory"
	"github.com/iamwavecut/gmbot/internal/moderation"
	"github.com/iamwavecut/gmbot/internal/schedule"
)

type fakeGateway struct {
	privileged map[int64]bool

	deleted      []int
	groupTexts   []string
	directTexts  []string
	mediaSent    []string
	mutes        []time.Duration
	applied      []moderation.CapabilityGrant
	bans, unbans []int64
	approvals    []int64
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{privileged: map[int64]bool{}}
}

func (f *fakeGateway) DeleteMessage(_ context.Context, _ int64, messageID int) error {
	f.deleted = append(f.deleted, messageID)
	return nil
}

func (f *fakeGateway) SendText(_ context.Context, chatID int64, text string) (*api.Message, error) {
	f.groupTexts = append(f.groupTexts, text)
	return &api.Message{MessageID: 9000 + len(f.groupTexts), Chat: api.Chat{ID: chatID}}, nil
}

func (f *fakeGateway) ReplyText(ctx context.Context, chatID int64, _ int, text string) (*api.Message, error) {
	return f.SendText(ctx, chatID, text)
}

func (f *fakeGateway) SendTextWithMarkup(ctx context.Context, chatID int64, text string, _ api.InlineKeyboardMarkup) (*api.Message, error) {
	return f.SendText(ctx, chatID, text)
}

func (f *fakeGateway) SendMedia(_ context.Context, chatID int64, kind, _, _ string) (*api.Message, error) {
	f.mediaSent = append(f.mediaSent, kind)
	return &api.Message{MessageID: 9500 + len(f.mediaSent), Chat: api.Chat{ID: chatID}}, nil
}

func (f *fakeGateway) SendDirect(_ context.Context, _ int64, text string) error {
	f.directTexts = append(f.directTexts, text)
	return nil
}

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

func (f *fakeGateway) Promote(context.Context, int64, int64) error { return nil }
func (f *fakeGateway) Demote(context.Context, int64, int64) error  { return nil }

func (f *fakeGateway) IsPrivileged(_ context.Context, _, userID int64) (bool, error) {
	return f.privileged[userID], nil
}

func (f *fakeGateway) ApproveJoinRequest(_ context.Context, _, userID int64) error {
	f.approvals = append(f.approvals, userID)
	return nil
}

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

type moderatorFixture struct {
	moderator    *Moderator
	gateway      *fakeGateway
	service      *fakeService
	store        *memory.Client
	warnings     *moderation.WarningTracker
	restrictions *moderation.RestrictionMatrix
	filters      *moderation.KeywordFilterTable
	scheduler    *schedule.Registry
}

func newModeratorFixture(t *testing.T) *moderatorFixture {
	t.Helper()
	store := memory.NewClient()
	service := &fakeService{store: store}
	gateway := newFakeGateway()
	scheduler := schedule.NewRegistry()
	if err := scheduler.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = scheduler.Stop(context.Background()) })

	warnings := moderation.NewWarningTracker(store, service)
	restrictions := moderation.NewRestrictionMatrix(store)
	filters := moderation.NewKeywordFilterTable(store)
	return &moderatorFixture{
		moderator: NewModerator(
			service, gateway, warnings, restrictions, filters,
			moderation.NewClassifier(), scheduler),
		gateway:      gateway,
		service:      service,
		store:        store,
		warnings:     warnings,
		restrictions: restrictions,
		filters:      filters,
		scheduler:    scheduler,
	}
}

func groupChat() *api.Chat {
	return &api.Chat{ID: -100, Type: "supergroup", Title: "Test Group"}
}

func memberUser() *api.User {
	return &api.User{ID: 7, FirstName: "Plain", LastName: "Member"}
}

func textUpdate(text string) *api.Update {
	return &api.Update{Message: &api.Message{
		MessageID: 42,
		Chat:      *groupChat(),
		From:      memberUser(),
		Text:      text,
	}}
}

func TestModeratorLinkPolicyDefaultDelete(t *testing.T) {
	t.Parallel()

	f := newModeratorFixture(t)
	ctx := context.Background()
	u := textUpdate("check this out http://example.com")

	proceed, err := f.moderator.Handle(ctx, u, groupChat(), memberUser())
	if err != nil {
		t.Fatal(err)
	}
	if proceed {
		t.Fatal("link deletion must consume the update")
	}
	if len(f.gateway.deleted) != 1 {
		t.Fatalf("got %d deletions, want 1", len(f.gateway.deleted))
	}
	if len(f.gateway.groupTexts) != 1 {
		t.Fatalf("got %d group notifications, want 1", len(f.gateway.groupTexts))
	}
	if len(f.gateway.directTexts) != 1 {
		t.Fatalf("got %d direct notifications, want 1", len(f.gateway.directTexts))
	}
	count, err := f.warnings.GetCount(ctx, -100, 7)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Fatalf("warning count = %d, want 1", count)
	}
}

func TestModeratorLinkOverrideAllows(t *testing.T) {
	t.Parallel()

	f := newModeratorFixture(t)
	ctx := context.Background()
	if _, err := f.restrictions.EnsureRecord(ctx, -100, 7); err != nil {
		t.Fatal(err)
	}

	proceed, err := f.moderator.Handle(ctx, textUpdate("see http://example.com"), groupChat(), memberUser())
	if err != nil {
		t.Fatal(err)
	}
	if !proceed {
		t.Fatal("explicit link=false override must let the message through")
	}
	if len(f.gateway.deleted) != 0 {
		t.Fatal("message must not be deleted")
	}
}

func TestModeratorLinkPolicyPrivilegedNoWarning(t *testing.T) {
	t.Parallel()

	f := newModeratorFixture(t)
	f.gateway.privileged[7] = true
	ctx := context.Background()

	proceed, err := f.moderator.Handle(ctx, textUpdate("http://example.com"), groupChat(), memberUser())
	if err != nil {
		t.Fatal(err)
	}
	if proceed {
		t.Fatal("admin link deletion must still consume the update")
	}
	if len(f.gateway.deleted) != 1 {
		t.Fatalf("got %d deletions, want 1", len(f.gateway.deleted))
	}
	count, err := f.warnings.GetCount(ctx, -100, 7)
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Fatalf("privileged sender must not be warned, count = %d", count)
	}
}

func TestModeratorNSFWGatePrecedence(t *testing.T) {
	t.Parallel()

	f := newModeratorFixture(t)
	ctx := context.Background()

	settings := db.DefaultSettings(-100)
	settings.NSFWFilterEnabled = true
	f.service.settings = settings
	if _, err := f.restrictions.ToggleFlag(ctx, -100, 7, db.FlagSticker); err != nil {
		t.Fatal(err)
	}

	u := &api.Update{Message: &api.Message{
		MessageID: 42,
		Chat:      *groupChat(),
		From:      memberUser(),
		Sticker:   &api.Sticker{FileID: "sticker-1"},
		Caption:   "hot porn pack",
	}}
	proceed, err := f.moderator.Handle(ctx, u, groupChat(), memberUser())
	if err != nil {
		t.Fatal(err)
	}
	if proceed {
		t.Fatal("flagged sticker must consume the update")
	}
	if len(f.gateway.deleted) != 1 {
		t.Fatalf("got %d deletions, want exactly 1", len(f.gateway.deleted))
	}
	count, err := f.warnings.GetCount(ctx, -100, 7)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Fatalf("got %d warnings, want exactly 1", count)
	}
}

func TestModeratorNSFWGateAppliesToPrivileged(t *testing.T) {
	t.Parallel()

	f := newModeratorFixture(t)
	f.gateway.privileged[7] = true
	ctx := context.Background()

	settings := db.DefaultSettings(-100)
	settings.NSFWFilterEnabled = true
	f.service.settings = settings

	proceed, err := f.moderator.Handle(ctx, textUpdate("fresh porn here"), groupChat(), memberUser())
	if err != nil {
		t.Fatal(err)
	}
	if proceed {
		t.Fatal("content gate must consume the update")
	}
	count, err := f.warnings.GetCount(ctx, -100, 7)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Fatal("content gate must warn privileged senders too")
	}
}

func TestModeratorRestrictedStickerDeleted(t *testing.T) {
	t.Parallel()

	f := newModeratorFixture(t)
	ctx := context.Background()
	if _, err := f.restrictions.ToggleFlag(ctx, -100, 7, db.FlagSticker); err != nil {
		t.Fatal(err)
	}

	u := &api.Update{Message: &api.Message{
		MessageID: 42,
		Chat:      *groupChat(),
		From:      memberUser(),
		Sticker:   &api.Sticker{FileID: "sticker-1"},
	}}
	proceed, err := f.moderator.Handle(ctx, u, groupChat(), memberUser())
	if err != nil {
		t.Fatal(err)
	}
	if proceed {
		t.Fatal("restricted sticker must consume the update")
	}
	if len(f.gateway.deleted) != 1 {
		t.Fatalf("got %d deletions, want 1", len(f.gateway.deleted))
	}
}

func TestModeratorEditPolicy(t *testing.T) {
	t.Parallel()

	f := newModeratorFixture(t)
	ctx := context.Background()

	settings := db.DefaultSettings(-100)
	settings.EditDeletionEnabled = true
	f.service.settings = settings

	u := &api.Update{EditedMessage: &api.Message{
		MessageID: 42,
		Chat:      *groupChat(),
		From:      memberUser(),
		Text:      "totally harmless now",
	}}
	proceed, err := f.moderator.Handle(ctx, u, groupChat(), memberUser())
	if err != nil {
		t.Fatal(err)
	}
	if proceed {
		t.Fatal("forbidden edit must consume the update")
	}
	if len(f.gateway.deleted) != 1 {
		t.Fatalf("got %d deletions, want 1", len(f.gateway.deleted))
	}
}

func TestModeratorEditPolicyDisabledByDefault(t *testing.T) {
	t.Parallel()

	f := newModeratorFixture(t)
	u := &api.Update{EditedMessage: &api.Message{
		MessageID: 42,
		Chat:      *groupChat(),
		From:      memberUser(),
		Text:      "edited",
	}}
	proceed, err := f.moderator.Handle(context.Background(), u, groupChat(), memberUser())
	if err != nil {
		t.Fatal(err)
	}
	if !proceed {
		t.Fatal("edits must pass with edit deletion off")
	}
	if len(f.gateway.deleted) != 0 {
		t.Fatal("nothing must be deleted")
	}
}

func TestModeratorKeywordFilterResponds(t *testing.T) {
	t.Parallel()

	f := newModeratorFixture(t)
	ctx := context.Background()
	if err := f.filters.Set(ctx, &db.FilterEntry{
		ChatID: -100, Keyword: "rules", MediaKind: "photo", FileID: "rules-img",
	}); err != nil {
		t.Fatal(err)
	}

	proceed, err := f.moderator.Handle(ctx, textUpdate("where are the RULES?"), groupChat(), memberUser())
	if err != nil {
		t.Fatal(err)
	}
	if proceed {
		t.Fatal("filter hit must consume the update")
	}
	if len(f.gateway.deleted) != 0 {
		t.Fatal("filter hit must not delete the trigger message")
	}
	if len(f.gateway.mediaSent) != 1 || f.gateway.mediaSent[0] != "photo" {
		t.Fatalf("got media %v, want one photo", f.gateway.mediaSent)
	}
}

func TestModeratorEscalationMutes(t *testing.T) {
	t.Parallel()

	f := newModeratorFixture(t)
	ctx := context.Background()

	for i := 0; i < int(db.DefaultWarnThreshold); i++ {
		if _, err := f.moderator.Handle(ctx, textUpdate("spam http://example.com"), groupChat(), memberUser()); err != nil {
			t.Fatal(err)
		}
	}
	if len(f.gateway.mutes) != 1 {
		t.Fatalf("got %d mutes, want exactly 1", len(f.gateway.mutes))
	}
	if f.gateway.mutes[0] != db.DefaultMuteDurationHours*time.Hour {
		t.Fatalf("mute duration = %v, want %v", f.gateway.mutes[0], db.DefaultMuteDurationHours*time.Hour)
	}
	count, err := f.warnings.GetCount(ctx, -100, 7)
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Fatalf("count after escalation = %d, want 0", count)
	}
}

func TestModeratorCleanMessagePasses(t *testing.T) {
	t.Parallel()

	f := newModeratorFixture(t)
	proceed, err := f.moderator.Handle(context.Background(), textUpdate("good morning all"), groupChat(), memberUser())
	if err != nil {
		t.Fatal(err)
	}
	if !proceed {
		t.Fatal("clean message must pass through")
	}
	if len(f.gateway.deleted)+len(f.gateway.groupTexts)+len(f.gateway.directTexts) != 0 {
		t.Fatal("clean message must trigger no side effects")
	}
}
