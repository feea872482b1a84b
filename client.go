// Package dogehouse drives a headless browser session against a live
// DogeHouse chat room and exposes it as an event-driven messaging API.
//
// The pipeline: the page renders chat → a mutation hook ships the chat
// container's DOM to the host → transcript rebuilds the full ordered
// record list → a two-generation cache picks out the one new message →
// the record is enriched into a message.Message and delivered to
// subscribers. Outbound sends flow the other way, as simulated
// keystrokes through the room's input field.
//
// One Client owns one browser session and one room. Response operations
// (Say, Reply) take the triggering event as an argument; events carry
// plain data only.
package dogehouse

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/PiggyPlex/dogehouse/idgen"
	"github.com/PiggyPlex/dogehouse/internal/browser"
	"github.com/PiggyPlex/dogehouse/internal/dispatch"
	"github.com/PiggyPlex/dogehouse/internal/observer"
	"github.com/PiggyPlex/dogehouse/internal/profile"
	"github.com/PiggyPlex/dogehouse/message"
	"github.com/PiggyPlex/dogehouse/transcript"
	"golang.org/x/time/rate"
)

// localStorage keys the site reads its session tokens from.
const (
	tokenKey   = "@toum/token"
	refreshKey = "@toum/refresh-token"
)

// ErrNotReady is returned by send operations before Init completes.
var ErrNotReady = errors.New("dogehouse: session not ready")

// sender is the slice of the dispatch protocol the client consumes.
type sender interface {
	Post(ctx context.Context, text string, delay time.Duration) error
	Whisper(ctx context.Context, username, text string) error
}

// Client is one authenticated session in one room.
type Client struct {
	cfg    *Config
	logger *slog.Logger
	newID  idgen.Generator

	mgr  *browser.Manager
	page *browser.Page
	obs  *observer.Observer

	cache *transcript.Cache
	events

	mu   sync.RWMutex
	user *message.ClientUser
	disp sender
}

// New creates a Client. Call Init to bootstrap the session.
func New(cfg *Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	cfg.applyDefaults()

	return &Client{
		cfg:    cfg,
		logger: logger,
		newID:  idgen.Message,
		mgr: browser.NewManager(browser.Config{
			RemoteURL: cfg.Browser.Remote,
			Headful:   cfg.Browser.Headful,
			Logger:    logger,
		}),
		cache: transcript.NewCache(),
	}
}

// Init performs the full session bootstrap, strictly in order: load the
// site, inject the session tokens, scrape the authenticated user from
// the dashboard, join the room, and attach the transcript observer.
// Ready handlers fire before Init returns. Any failure is fatal to the
// session; there is no partial-ready state.
func (c *Client) Init(ctx context.Context) error {
	if err := c.cfg.Validate(); err != nil {
		return err
	}

	if _, err := c.mgr.Start(); err != nil {
		return fmt.Errorf("dogehouse: init: %w", err)
	}

	page, err := c.mgr.OpenPage(ctx, c.cfg.BaseURL)
	if err != nil {
		return fmt.Errorf("dogehouse: init: %w", err)
	}
	c.page = page

	tokens := map[string]string{tokenKey: c.cfg.Token}
	if c.cfg.RefreshToken != "" {
		tokens[refreshKey] = c.cfg.RefreshToken
	}
	if err := page.SetLocalStorage(ctx, tokens); err != nil {
		return fmt.Errorf("dogehouse: init: %w", err)
	}

	user, err := c.scrapeProfile(ctx)
	if err != nil {
		return err
	}
	user.RoomID = c.cfg.Room
	c.mu.Lock()
	c.user = user
	c.mu.Unlock()
	c.logger.Info("dogehouse: authenticated", "username", user.Username)

	if err := page.Navigate(ctx, c.cfg.BaseURL+"/room/"+c.cfg.Room); err != nil {
		return fmt.Errorf("dogehouse: init: join room: %w", err)
	}
	if err := page.WaitVisible(ctx, c.cfg.Selectors.Chat); err != nil {
		return fmt.Errorf("dogehouse: init: chat panel: %w", err)
	}

	c.mu.Lock()
	c.disp = dispatch.New(page, c.cfg.Selectors.Input,
		dispatch.WithLogger(c.logger),
		dispatch.WithRate(rate.Limit(c.cfg.Send.Rate), c.cfg.Send.Burst),
	)
	c.mu.Unlock()

	c.obs = observer.New(observer.Config{
		Page:     page,
		RoomID:   c.cfg.Room,
		Selector: c.cfg.Selectors.Chat,
		Logger:   c.logger,
	})
	if err := c.obs.Start(ctx); err != nil {
		return fmt.Errorf("dogehouse: init: %w", err)
	}
	go c.pump(ctx)

	c.logger.Info("dogehouse: ready", "room", c.cfg.Room)
	c.emitReady(user)
	return nil
}

// scrapeProfile reads the authenticated user off the dashboard.
func (c *Client) scrapeProfile(ctx context.Context) (*message.ClientUser, error) {
	if err := c.page.Navigate(ctx, c.cfg.BaseURL+"/dash"); err != nil {
		return nil, fmt.Errorf("dogehouse: init: dashboard: %w", err)
	}
	if err := c.page.WaitVisible(ctx, c.cfg.Selectors.ProfileCard); err != nil {
		return nil, fmt.Errorf("dogehouse: init: profile card: %w", err)
	}

	text, err := c.page.EvalString(ctx,
		`(sel) => document.querySelector(sel).innerText`, c.cfg.Selectors.ProfileCard)
	if err != nil {
		return nil, fmt.Errorf("dogehouse: init: read profile card: %w", err)
	}

	user, err := profile.ParseCard(text)
	if err != nil {
		return nil, fmt.Errorf("dogehouse: init: %w", err)
	}
	return user, nil
}

// pump runs the observation pipeline: one goroutine advancing the cache
// over incoming transcript passes and delivering the new message, if
// any, to subscribers.
func (c *Client) pump(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case recs, ok := <-c.obs.Records():
			if !ok {
				return
			}
			c.handleBatch(recs)
		}
	}
}

func (c *Client) handleBatch(recs []message.Record) {
	rec, ok := c.cache.Advance(recs)
	if !ok {
		return
	}
	msg := c.enrich(rec)
	c.logger.Debug("dogehouse: message observed",
		"id", msg.ID, "type", msg.Type, "author", msg.Author.Username)
	c.emitMessage(msg)
}

// enrich turns a raw record into the event delivered to subscribers: a
// fresh User for the author, sanitised text rendering, event ID and
// observation timestamp.
func (c *Client) enrich(rec message.Record) *message.Message {
	return &message.Message{
		ID:   c.newID(),
		Type: rec.Type,
		Room: message.Room{ID: rec.RoomID},
		Author: message.User{
			Username: rec.Author,
			RoomID:   rec.RoomID,
		},
		Content:   rec.Content,
		Text:      transcript.RenderText(rec.Content),
		Timestamp: time.Now().UnixMilli(),
	}
}

// OnReady subscribes to session bootstrap completion.
func (c *Client) OnReady(h ReadyHandler) { c.onReady(h) }

// OnMessage subscribes to observed chat messages.
func (c *Client) OnMessage(h MessageHandler) { c.onMessage(h) }

// User returns the authenticated session user, or nil before ready.
func (c *Client) User() *message.ClientUser {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.user
}

func (c *Client) sender() (sender, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.disp == nil {
		return nil, ErrNotReady
	}
	return c.disp, nil
}

// SendMessage posts content into the current room. When trigger is a
// message authored by the session user (matched by id, then username),
// the send waits out the self-message delay first; otherwise it goes
// immediately. The error value is the only failure signal — there is no
// delivery confirmation and no retry.
func (c *Client) SendMessage(ctx context.Context, content string, trigger *message.Message) error {
	d, err := c.sender()
	if err != nil {
		return err
	}

	var delay time.Duration
	if trigger != nil && c.User().Is(trigger.Author) {
		delay = c.cfg.Delays.SelfMessage
	}
	return d.Post(ctx, content, delay)
}

// Whisper posts content privately to username. Whispering the session
// user routes as a delayed plain send — a self-note needs no
// addressing.
func (c *Client) Whisper(ctx context.Context, username, content string) error {
	d, err := c.sender()
	if err != nil {
		return err
	}

	if u := c.User(); u != nil && u.Username != "" && u.Username == username {
		return d.Post(ctx, content, c.cfg.Delays.SelfWhisper)
	}
	return d.Whisper(ctx, username, content)
}

// Say posts text into the room the message was observed in, applying
// the self-message delay when the message was the session's own.
func (c *Client) Say(ctx context.Context, msg *message.Message, text string) error {
	return c.SendMessage(ctx, text, msg)
}

// Reply whispers text back to the message's author.
func (c *Client) Reply(ctx context.Context, msg *message.Message, text string) error {
	return c.Whisper(ctx, msg.Author.Username, text)
}

// Close tears the session down: observer, page, browser.
func (c *Client) Close() error {
	if c.obs != nil {
		c.obs.Stop()
	}
	if c.page != nil {
		c.page.Close()
	}
	return c.mgr.Close()
}
