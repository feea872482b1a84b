package transcript

import (
	"testing"

	"github.com/PiggyPlex/dogehouse/message"
)

func rec(author, content string) message.Record {
	return message.Record{Type: message.TypeMessage, RoomID: "r", Author: author, Content: content}
}

func TestCacheAppendEmitsLast(t *testing.T) {
	c := NewCache()
	a, b, x := rec("u", "A"), rec("u", "B"), rec("u", "C")

	c.Advance([]message.Record{a, b})

	got, ok := c.Advance([]message.Record{a, b, x})
	if !ok {
		t.Fatal("expected emission for appended record")
	}
	if !got.Equal(x) {
		t.Errorf("emitted: got %+v, want %+v", got, x)
	}
}

func TestCacheUnchangedEmitsNothing(t *testing.T) {
	c := NewCache()
	gen := []message.Record{rec("u", "A"), rec("u", "B"), rec("u", "C")}

	c.Advance(gen)

	if _, ok := c.Advance([]message.Record{rec("u", "A"), rec("u", "B"), rec("u", "C")}); ok {
		t.Error("unchanged generation must not emit")
	}
}

func TestCacheReplacedLastTreatedAsNew(t *testing.T) {
	// An edited last element is indistinguishable from a new message;
	// the last-element comparison emits it.
	c := NewCache()
	c.Advance([]message.Record{rec("u", "A"), rec("u", "B"), rec("u", "C")})

	got, ok := c.Advance([]message.Record{rec("u", "A"), rec("u", "B"), rec("u", "D")})
	if !ok {
		t.Fatal("expected emission for replaced last element")
	}
	if got.Content != "D" {
		t.Errorf("emitted content: got %q, want %q", got.Content, "D")
	}
}

func TestCacheFirstGenerationEmits(t *testing.T) {
	c := NewCache()

	got, ok := c.Advance([]message.Record{rec("u", "A"), rec("u", "B")})
	if !ok {
		t.Fatal("first non-empty generation must emit its last element")
	}
	if got.Content != "B" {
		t.Errorf("emitted content: got %q, want %q", got.Content, "B")
	}
}

func TestCacheEmptyGeneration(t *testing.T) {
	c := NewCache()
	if _, ok := c.Advance(nil); ok {
		t.Error("empty generation must not emit")
	}

	c.Advance([]message.Record{rec("u", "A")})
	if _, ok := c.Advance(nil); ok {
		t.Error("empty generation after non-empty must not emit")
	}
}

func TestCacheBurstSurfacesOnlyLast(t *testing.T) {
	// Two messages landing in one mutation batch surface only the last.
	// Known limitation, kept deliberately.
	c := NewCache()
	c.Advance([]message.Record{rec("u", "A")})

	got, ok := c.Advance([]message.Record{rec("u", "A"), rec("u", "B"), rec("u", "C")})
	if !ok {
		t.Fatal("expected emission")
	}
	if got.Content != "C" {
		t.Errorf("emitted content: got %q, want %q", got.Content, "C")
	}
}

func TestCacheGenerations(t *testing.T) {
	c := NewCache()
	gen := []message.Record{rec("u", "A"), rec("u", "B")}
	c.Advance(gen)

	if c.Len() != 2 {
		t.Errorf("Len: got %d, want 2", c.Len())
	}
	if cur := c.Current(); len(cur) != 2 || !cur[1].Equal(gen[1]) {
		t.Errorf("Current: got %+v", cur)
	}
}

func TestCacheParsePipeline(t *testing.T) {
	// Differ + cache end to end over synthetic snapshots: a re-parse of
	// unchanged DOM yields no emission, an appended row yields one.
	c := NewCache()

	snap1 := chatPanel(messageRow("alice", "hello"))
	recs, err := Parse(snap1, "r")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := c.Advance(recs); !ok {
		t.Fatal("initial pass should emit the latest row")
	}

	recs, err = Parse(snap1, "r")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := c.Advance(recs); ok {
		t.Error("re-parse of unchanged DOM must not emit")
	}

	snap2 := chatPanel(messageRow("alice", "hello"), whisperRow("bob", "hi"))
	recs, err = Parse(snap2, "r")
	if err != nil {
		t.Fatal(err)
	}
	got, ok := c.Advance(recs)
	if !ok {
		t.Fatal("appended row should emit")
	}
	if got.Type != message.TypeWhisper || got.Author != "bob" {
		t.Errorf("emitted: got %+v", got)
	}
}
