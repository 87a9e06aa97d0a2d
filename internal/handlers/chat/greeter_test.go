package chat

import (
	"context"
	"strings"
	"testing"

	api "github.com/OvyFlash/telegram-bot-api"

	"github.com/iamwavecut/gmbot/internal/db"
	"github.com/iamwavecut/gmbot/internal/db/memory"
	"github.com/iamwavecut/gmbot/internal/schedule"
)

func newGreeterFixture(t *testing.T) (*Greeter, *fakeGateway, *fakeService) {
	t.Helper()
	service := &fakeService{store: memory.NewClient()}
	gateway := newFakeGateway()
	scheduler := schedule.NewRegistry()
	if err := scheduler.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = scheduler.Stop(context.Background()) })
	return NewGreeter(service, gateway, scheduler), gateway, service
}

func TestRenderWelcome(t *testing.T) {
	t.Parallel()

	chat := &api.Chat{ID: -100, Title: "Go Talks"}
	member := &api.User{ID: 55, FirstName: "Jo", UserName: "jodoe"}

	got := RenderWelcome("Hi {name} ({mention}, {username}, {id}) welcome to {group}!", chat, member)
	want := "Hi Jo (@jodoe, jodoe, 55) welcome to Go Talks!"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestRenderWelcomeWithoutUsername(t *testing.T) {
	t.Parallel()

	chat := &api.Chat{ID: -100, Title: "Go Talks"}
	member := &api.User{ID: 55, FirstName: "Jo", LastName: "Doe"}

	got := RenderWelcome("{mention}", chat, member)
	if got != "Jo Doe" {
		t.Fatalf("mention fallback = %q, want full name", got)
	}
}

func TestGreeterWelcomesNewMembers(t *testing.T) {
	t.Parallel()

	greeter, gateway, service := newGreeterFixture(t)
	ctx := context.Background()
	settings := db.DefaultSettings(-100)
	settings.WelcomeText = "Welcome {name} to {group}"
	service.settings = settings

	u := &api.Update{Message: &api.Message{
		MessageID: 42,
		Chat:      *groupChat(),
		From:      memberUser(),
		NewChatMembers: []api.User{
			{ID: 55, FirstName: "Jo"},
			{ID: 56, FirstName: "Robo", IsBot: true},
		},
	}}
	proceed, err := greeter.Handle(ctx, u, groupChat(), memberUser())
	if err != nil {
		t.Fatal(err)
	}
	if !proceed {
		t.Fatal("welcome must not consume the update, housekeeping still runs")
	}
	if len(gateway.groupTexts) != 1 {
		t.Fatalf("got %d welcomes, want 1 (bots are skipped)", len(gateway.groupTexts))
	}
	if !strings.Contains(gateway.groupTexts[0], "Jo") || !strings.Contains(gateway.groupTexts[0], "Test Group") {
		t.Fatalf("unrendered welcome: %q", gateway.groupTexts[0])
	}
}

func TestGreeterDeliversWelcomeImage(t *testing.T) {
	t.Parallel()

	greeter, gateway, service := newGreeterFixture(t)
	ctx := context.Background()
	settings := db.DefaultSettings(-100)
	settings.WelcomeImageFileID = "stale-photo"
	service.settings = settings

	u := &api.Update{Message: &api.Message{
		MessageID: 42,
		Chat:      *groupChat(),
		From:      memberUser(),
		NewChatMembers: []api.User{
			{ID: 55, FirstName: "Jo"},
		},
	}}
	if _, err := greeter.Handle(ctx, u, groupChat(), memberUser()); err != nil {
		t.Fatal(err)
	}
	if len(gateway.mediaSent) != 1 {
		t.Fatalf("got %d media sends, want 1", len(gateway.mediaSent))
	}
}

func TestGreeterApprovesJoinRequests(t *testing.T) {
	t.Parallel()

	greeter, gateway, _ := newGreeterFixture(t)
	u := &api.Update{ChatJoinRequest: &api.ChatJoinRequest{
		Chat: *groupChat(),
		From: api.User{ID: 55, FirstName: "Jo"},
	}}
	proceed, err := greeter.Handle(context.Background(), u, groupChat(), &api.User{ID: 55})
	if err != nil {
		t.Fatal(err)
	}
	if proceed {
		t.Fatal("join request handling must consume the update")
	}
	if len(gateway.approvals) != 1 || gateway.approvals[0] != 55 {
		t.Fatalf("approvals = %v, want [55]", gateway.approvals)
	}
}
