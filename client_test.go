package dogehouse

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/PiggyPlex/dogehouse/message"
)

type sentPost struct {
	text  string
	delay time.Duration
}

type sentWhisper struct {
	username string
	text     string
}

// fakeSender records dispatches instead of driving a browser.
type fakeSender struct {
	posts    []sentPost
	whispers []sentWhisper
	err      error
}

func (f *fakeSender) Post(_ context.Context, text string, delay time.Duration) error {
	f.posts = append(f.posts, sentPost{text, delay})
	return f.err
}

func (f *fakeSender) Whisper(_ context.Context, username, text string) error {
	f.whispers = append(f.whispers, sentWhisper{username, text})
	return f.err
}

func testClient(t *testing.T) (*Client, *fakeSender) {
	t.Helper()
	c := New(&Config{Room: "room-1", Token: "tok"}, nil)
	f := &fakeSender{}
	c.disp = f
	c.user = &message.ClientUser{User: message.User{ID: "u1", Username: "alice", RoomID: "room-1"}}
	return c, f
}

func rec(author, content string) message.Record {
	return message.Record{Type: message.TypeMessage, RoomID: "room-1", Author: author, Content: content}
}

func TestHandleBatchEmitsExactlyOnce(t *testing.T) {
	c, _ := testClient(t)

	var got []*message.Message
	c.OnMessage(func(m *message.Message) { got = append(got, m) })

	c.handleBatch([]message.Record{rec("bob", "hello")})
	if len(got) != 1 {
		t.Fatalf("events after first batch: got %d, want 1", len(got))
	}

	// Unchanged reconstruction: no duplicate delivery.
	c.handleBatch([]message.Record{rec("bob", "hello")})
	if len(got) != 1 {
		t.Fatalf("events after unchanged batch: got %d, want 1", len(got))
	}

	// Appended record: one more event, carrying the new record unchanged.
	c.handleBatch([]message.Record{rec("bob", "hello"), rec("carol", "<b>hey</b>")})
	if len(got) != 2 {
		t.Fatalf("events after append: got %d, want 2", len(got))
	}

	m := got[1]
	if m.Author.Username != "carol" {
		t.Errorf("author: got %q", m.Author.Username)
	}
	if m.Content != "<b>hey</b>" {
		t.Errorf("content: got %q", m.Content)
	}
	if m.Text != "**hey**" {
		t.Errorf("text: got %q", m.Text)
	}
	if m.Room.ID != "room-1" {
		t.Errorf("room: got %q", m.Room.ID)
	}
	if !strings.HasPrefix(m.ID, "msg_") {
		t.Errorf("id: got %q, want msg_ prefix", m.ID)
	}
	if want := "https://dogehouse.tv/u/carol"; m.Author.ProfileURL() != want {
		t.Errorf("profile url: got %q, want %q", m.Author.ProfileURL(), want)
	}
}

func TestSendMessageSelfDelay(t *testing.T) {
	c, f := testClient(t)
	ctx := context.Background()

	self := &message.Message{Author: message.User{ID: "u1", Username: "alice"}}
	if err := c.SendMessage(ctx, "echo", self); err != nil {
		t.Fatal(err)
	}
	if f.posts[0].delay != c.cfg.Delays.SelfMessage {
		t.Errorf("self trigger delay: got %v, want %v", f.posts[0].delay, c.cfg.Delays.SelfMessage)
	}

	other := &message.Message{Author: message.User{ID: "u2", Username: "bob"}}
	if err := c.SendMessage(ctx, "hi", other); err != nil {
		t.Fatal(err)
	}
	if f.posts[1].delay != 0 {
		t.Errorf("other trigger delay: got %v, want 0", f.posts[1].delay)
	}

	if err := c.SendMessage(ctx, "plain", nil); err != nil {
		t.Fatal(err)
	}
	if f.posts[2].delay != 0 {
		t.Errorf("no trigger delay: got %v, want 0", f.posts[2].delay)
	}
}

func TestSendMessageSelfMatchByUsername(t *testing.T) {
	c, f := testClient(t)

	// No ids on the trigger side: the username fallback still matches.
	trigger := &message.Message{Author: message.User{Username: "alice"}}
	if err := c.SendMessage(context.Background(), "echo", trigger); err != nil {
		t.Fatal(err)
	}
	if f.posts[0].delay != c.cfg.Delays.SelfMessage {
		t.Errorf("delay: got %v, want %v", f.posts[0].delay, c.cfg.Delays.SelfMessage)
	}
}

func TestWhisperToSelfRoutesAsDelayedSend(t *testing.T) {
	c, f := testClient(t)

	if err := c.Whisper(context.Background(), "alice", "note to self"); err != nil {
		t.Fatal(err)
	}

	if len(f.whispers) != 0 {
		t.Fatalf("whisper sequence used for self: %+v", f.whispers)
	}
	if len(f.posts) != 1 {
		t.Fatalf("posts: got %d, want 1", len(f.posts))
	}
	if f.posts[0].delay != c.cfg.Delays.SelfWhisper {
		t.Errorf("delay: got %v, want %v", f.posts[0].delay, c.cfg.Delays.SelfWhisper)
	}
}

func TestWhisperToOther(t *testing.T) {
	c, f := testClient(t)

	if err := c.Whisper(context.Background(), "bob", "psst"); err != nil {
		t.Fatal(err)
	}

	if len(f.posts) != 0 {
		t.Fatalf("plain send used for remote whisper: %+v", f.posts)
	}
	if len(f.whispers) != 1 || f.whispers[0].username != "bob" || f.whispers[0].text != "psst" {
		t.Fatalf("whispers: got %+v", f.whispers)
	}
}

func TestSayAndReply(t *testing.T) {
	c, f := testClient(t)
	ctx := context.Background()

	msg := &message.Message{
		Room:   message.Room{ID: "room-1"},
		Author: message.User{Username: "bob"},
	}

	if err := c.Say(ctx, msg, "in-room"); err != nil {
		t.Fatal(err)
	}
	if len(f.posts) != 1 || f.posts[0].text != "in-room" {
		t.Fatalf("posts: got %+v", f.posts)
	}

	if err := c.Reply(ctx, msg, "privately"); err != nil {
		t.Fatal(err)
	}
	if len(f.whispers) != 1 || f.whispers[0].username != "bob" {
		t.Fatalf("whispers: got %+v", f.whispers)
	}
}

func TestSendBeforeReady(t *testing.T) {
	c := New(&Config{Room: "r", Token: "t"}, nil)

	if err := c.SendMessage(context.Background(), "hi", nil); !errors.Is(err, ErrNotReady) {
		t.Errorf("SendMessage: got %v, want ErrNotReady", err)
	}
	if err := c.Whisper(context.Background(), "bob", "hi"); !errors.Is(err, ErrNotReady) {
		t.Errorf("Whisper: got %v, want ErrNotReady", err)
	}
}

func TestDispatchErrorPropagates(t *testing.T) {
	c, f := testClient(t)
	boom := errors.New("input gone")
	f.err = boom

	if err := c.SendMessage(context.Background(), "hi", nil); !errors.Is(err, boom) {
		t.Errorf("got %v, want %v", err, boom)
	}
}

func TestReadyEvent(t *testing.T) {
	c, _ := testClient(t)

	var got *message.ClientUser
	c.OnReady(func(u *message.ClientUser) { got = u })
	c.emitReady(c.user)

	if got == nil || got.Username != "alice" {
		t.Fatalf("ready payload: got %+v", got)
	}
}
