package discord

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"

	"github.com/tawnybot/tawnybot/internal/core/models"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{
			name: "unknown role code",
			err: &discordgo.RESTError{
				Response: &http.Response{StatusCode: http.StatusNotFound},
				Message:  &discordgo.APIErrorMessage{Code: discordgo.ErrCodeUnknownRole, Message: "Unknown Role"},
			},
			want: models.ErrLookup,
		},
		{
			name: "plain not found",
			err:  &discordgo.RESTError{Response: &http.Response{StatusCode: http.StatusNotFound}},
			want: models.ErrLookup,
		},
		{
			name: "rate limited",
			err:  &discordgo.RESTError{Response: &http.Response{StatusCode: http.StatusTooManyRequests}},
			want: models.ErrTransientPlatform,
		},
		{
			name: "network",
			err:  errors.New("connection reset by peer"),
			want: models.ErrTransientPlatform,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify("error doing thing", tt.err)
			if !errors.Is(got, tt.want) {
				t.Errorf("classify() = %v, want it to match %v", got, tt.want)
			}
			if !errors.Is(got, tt.err) {
				t.Errorf("classify() = %v, lost the original error", got)
			}
		})
	}
}

func TestToMessageSent(t *testing.T) {
	ev := &discordgo.MessageCreate{Message: &discordgo.Message{
		ID:        "msg-1",
		ChannelID: "chan-1",
		GuildID:   "guild-1",
		Content:   "hoot",
		Author:    &discordgo.User{ID: "user-1", Username: "tawny"},
		Member:    &discordgo.Member{Roles: []string{"R1", "R2"}},
	}}

	got, ok := toMessageSent(ev)
	if !ok {
		t.Fatalf("toMessageSent() dropped the message")
	}
	want := models.MessageSent{
		UserID:      "user-1",
		GuildID:     "guild-1",
		ChannelID:   "chan-1",
		DisplayName: "tawny",
		Content:     "hoot",
		RoleIDs:     []string{"R1", "R2"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("toMessageSent() mismatch (-want +got):\n%s", diff)
	}

	if _, ok := toMessageSent(&discordgo.MessageCreate{Message: &discordgo.Message{}}); ok {
		t.Errorf("toMessageSent() kept a message without an author")
	}
}

type fakeMessages struct {
	got   []models.MessageSent
	err   error
	panic bool
}

func (f *fakeMessages) HandleMessage(_ context.Context, msg models.MessageSent) error {
	if f.panic {
		panic("boom")
	}
	f.got = append(f.got, msg)
	return f.err
}

type fakeCommands struct {
	handled []string
}

func (f *fakeCommands) Args(content string) (string, bool) {
	if content == "!tawnybot list levels" {
		return "list levels", true
	}
	return "", false
}

func (f *fakeCommands) Handle(_ context.Context, msg models.MessageSent) string {
	f.handled = append(f.handled, msg.Content)
	return "No levels found"
}

type fakeNotifier struct {
	sent []string
}

func (f *fakeNotifier) SendText(_ context.Context, channelID, text string) error {
	f.sent = append(f.sent, channelID+": "+text)
	return nil
}

type fakeForgetter struct {
	forgot []string
}

func (f *fakeForgetter) Forget(guildID string) {
	f.forgot = append(f.forgot, guildID)
}

func TestRoute(t *testing.T) {
	messages := &fakeMessages{}
	commands := &fakeCommands{}
	notifier := &fakeNotifier{}
	guilds := &fakeForgetter{}
	r := NewRouter(messages, commands, guilds, notifier, zap.NewNop().Sugar())
	ctx := context.Background()

	r.Route(ctx, models.MessageSent{UserID: "user-1", GuildID: "guild-1", ChannelID: "chan-1", Content: "!tawnybot list levels"})
	r.Route(ctx, models.MessageSent{UserID: "user-1", GuildID: "guild-1", ChannelID: "chan-1", Content: "hello"})
	r.Route(ctx, models.MessageSent{UserID: "bot-1", GuildID: "guild-1", AuthorIsBot: true, Content: "beep"})
	r.Route(ctx, models.MessageSent{UserID: "user-1", Content: "direct message"})

	if diff := cmp.Diff([]string{"!tawnybot list levels"}, commands.handled); diff != "" {
		t.Errorf("commands mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"chan-1: No levels found"}, notifier.sent); diff != "" {
		t.Errorf("replies mismatch (-want +got):\n%s", diff)
	}
	if len(messages.got) != 1 || messages.got[0].Content != "hello" {
		t.Errorf("counted messages = %+v, want only the plain one", messages.got)
	}

	r.onGuildDelete(nil, &discordgo.GuildDelete{Guild: &discordgo.Guild{ID: "guild-1"}})
	if diff := cmp.Diff([]string{"guild-1"}, guilds.forgot); diff != "" {
		t.Errorf("forgotten guilds mismatch (-want +got):\n%s", diff)
	}
}

func TestRouteSurvivesFailures(t *testing.T) {
	messages := &fakeMessages{err: models.ErrLookup}
	r := NewRouter(messages, &fakeCommands{}, &fakeForgetter{}, &fakeNotifier{}, zap.NewNop().Sugar())
	msg := models.MessageSent{UserID: "user-1", GuildID: "guild-1", Content: "hello"}

	r.Route(context.Background(), msg)

	messages.panic = true
	r.Route(context.Background(), msg)
}
