// Package transcript reconstructs message records from the chat panel's
// rendered DOM and decides which record is genuinely new.
//
// transcript is pure: it never touches a browser. The observer ships the
// chat container's serialised HTML here, Parse rebuilds the full ordered
// row list, and Cache compares generations. Everything above this
// package is independent of the scraping strategy and can be driven
// with synthetic HTML or record slices.
package transcript

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/PiggyPlex/dogehouse/message"
)

// whisperMarker is the label DogeHouse renders in the header position of
// a directed message row.
const whisperMarker = "Whisper"

// ErrNotHydrated reports that the chat panel still contains unpopulated
// placeholder rows. The pass halts rather than emitting a partial list;
// the next mutation batch retries from scratch.
var ErrNotHydrated = errors.New("transcript: chat rows not hydrated")

// Parse rebuilds the complete ordered message-record list from the chat
// container's serialised DOM. Rows are visited in document order; each
// is classified as a plain message or a whisper by the marker label in
// its header position.
func Parse(raw []byte, roomID string) ([]message.Record, error) {
	doc, err := html.Parse(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("transcript: parse html: %w", err)
	}

	container := findContainer(doc)
	if container == nil {
		return nil, fmt.Errorf("transcript: no chat container in snapshot")
	}

	var recs []message.Record
	for _, row := range elementChildren(container) {
		rec, err := parseRow(row, roomID)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// parseRow extracts one record from a chat row. Layout, as rendered:
//
//	row > wrapper > group-holder > group > [author, sep, content]
//
// Whisper rows carry an extra header element before the group holder
// whose text is the whisper marker.
func parseRow(row *html.Node, roomID string) (message.Record, error) {
	wrapper := firstElementChild(row)
	if wrapper == nil {
		return message.Record{}, ErrNotHydrated
	}

	parts := elementChildren(wrapper)
	if len(parts) == 0 {
		return message.Record{}, ErrNotHydrated
	}

	typ := message.TypeMessage
	body := parts[0]
	if textContent(parts[0]) == whisperMarker {
		if len(parts) < 2 {
			return message.Record{}, ErrNotHydrated
		}
		typ = message.TypeWhisper
		body = parts[1]
	}

	group := firstElementChild(body)
	if group == nil {
		return message.Record{}, ErrNotHydrated
	}

	fields := elementChildren(group)
	if len(fields) < 3 {
		return message.Record{}, ErrNotHydrated
	}

	return message.Record{
		Type:    typ,
		RoomID:  roomID,
		Author:  textContent(fields[0]),
		Content: message.TrimContent(innerHTML(fields[2])),
	}, nil
}

// findContainer locates the chat container element: the snapshot is the
// container's own outerHTML, so it is the first element under <body>
// after the fragment is wrapped into a full document.
func findContainer(doc *html.Node) *html.Node {
	var body *html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.Body {
			body = n
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	if body == nil {
		return nil
	}
	return firstElementChild(body)
}

// elementChildren returns the element-node children of n in order.
func elementChildren(n *html.Node) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			out = append(out, c)
		}
	}
	return out
}

// firstElementChild returns the first element-node child of n, or nil.
func firstElementChild(n *html.Node) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			return c
		}
	}
	return nil
}

// textContent collects the visible text of a subtree, whitespace-joined.
func textContent(n *html.Node) string {
	var sb strings.Builder
	var f func(*html.Node)
	f = func(n *html.Node) {
		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				if sb.Len() > 0 {
					sb.WriteByte(' ')
				}
				sb.WriteString(text)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			f(c)
		}
	}
	f(n)
	return sb.String()
}

// innerHTML serialises the children of n, mirroring the DOM innerHTML
// property.
func innerHTML(n *html.Node) string {
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&sb, c); err != nil {
			return sb.String()
		}
	}
	return sb.String()
}
