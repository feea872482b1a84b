// Command dogebot is an example prefix-command bot built on the client.
//
// Usage:
//
//	dogebot -config dogebot.yaml                 # full YAML config
//	dogebot -room <id> -token <tok> -prefix !    # quick start from flags
//
// A small status endpoint (/healthz, /stats) is served when -status is
// set.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/PiggyPlex/dogehouse"
	"github.com/PiggyPlex/dogehouse/message"
)

func main() {
	configPath := flag.String("config", "", "path to dogebot.yaml config file")
	room := flag.String("room", "", "room id to join")
	token := flag.String("token", "", "session token")
	refresh := flag.String("refresh", "", "session refresh token")
	prefix := flag.String("prefix", "!", "command prefix")
	statusAddr := flag.String("status", "", "address for the status endpoint (empty = disabled)")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, *configPath, *room, *token, *refresh, *prefix, *statusAddr); err != nil {
		logger.Error("dogebot: fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, configPath, room, token, refresh, prefix, statusAddr string) error {
	var cfg *dogehouse.Config
	if configPath != "" {
		loaded, err := dogehouse.LoadConfigFile(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	} else {
		cfg = &dogehouse.Config{Room: room, Token: token, RefreshToken: refresh}
	}

	client := dogehouse.New(cfg, logger)
	defer client.Close()

	bot := newBot(client, prefix, logger)

	client.OnReady(func(u *message.ClientUser) {
		logger.Info("dogebot: ready", "display_name", u.DisplayName, "username", u.Username)
	})
	client.OnMessage(func(m *message.Message) {
		bot.handle(ctx, m)
	})

	if statusAddr != "" {
		go serveStatus(ctx, logger, statusAddr, bot)
	}

	if err := client.Init(ctx); err != nil {
		return fmt.Errorf("init: %w", err)
	}

	<-ctx.Done()
	return nil
}

// bot dispatches prefix commands from observed room messages.
type bot struct {
	client     *dogehouse.Client
	prefix     string
	logger     *slog.Logger
	httpClient *http.Client
	started    time.Time

	seen    atomic.Int64
	handled atomic.Int64
}

func newBot(client *dogehouse.Client, prefix string, logger *slog.Logger) *bot {
	return &bot{
		client:     client,
		prefix:     prefix,
		logger:     logger,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		started:    time.Now(),
	}
}

func (b *bot) handle(ctx context.Context, m *message.Message) {
	b.seen.Add(1)

	if m.Type != message.TypeMessage {
		return
	}
	if !strings.HasPrefix(m.Text, b.prefix) {
		return
	}

	parts := strings.Fields(strings.TrimPrefix(m.Text, b.prefix))
	if len(parts) == 0 {
		return
	}
	command, args := parts[0], parts[1:]
	b.handled.Add(1)

	var err error
	switch command {
	case "ping":
		err = b.client.Say(ctx, m, "pong")
	case "foo":
		err = b.client.Say(ctx, m, "bar")
	case "say":
		err = b.client.Say(ctx, m,
			fmt.Sprintf("%s asked me to say `%s`.", m.Author.Username, strings.Join(args, " ")))
	case "joke":
		err = b.joke(ctx, m, args)
	case "bored":
		err = b.bored(ctx, m)
	case "tableflip":
		err = b.client.Say(ctx, m, "(╯°□°）╯︵ ┻━┻")
	case "shrug":
		err = b.client.Say(ctx, m, `¯\_(ツ)_/¯`)
	default:
		return
	}

	if err != nil {
		b.logger.Warn("dogebot: command failed",
			"command", command, "author", m.Author.Username, "error", err)
	}
}

var jokeCategories = map[string]bool{
	"any": true, "misc": true, "programming": true,
	"dark": true, "pun": true, "spooky": true, "christmas": true,
}

// joke fetches a one- or two-part joke. Two-part jokes deliver the
// punchline after a beat.
func (b *bot) joke(ctx context.Context, m *message.Message, args []string) error {
	category := "any"
	if len(args) > 0 && jokeCategories[strings.ToLower(args[0])] {
		category = strings.ToLower(args[0])
	}

	var payload struct {
		Joke     string `json:"joke"`
		Setup    string `json:"setup"`
		Delivery string `json:"delivery"`
	}
	if err := b.getJSON(ctx, "https://v2.jokeapi.dev/joke/"+category, &payload); err != nil {
		return err
	}

	if payload.Joke != "" {
		return b.client.Say(ctx, m, payload.Joke)
	}
	if payload.Setup != "" {
		if err := b.client.Say(ctx, m, payload.Setup); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(1500 * time.Millisecond):
		}
		return b.client.Say(ctx, m, payload.Delivery)
	}
	return nil
}

// bored whispers an activity suggestion back to the asker.
func (b *bot) bored(ctx context.Context, m *message.Message) error {
	var payload struct {
		Activity string `json:"activity"`
	}
	if err := b.getJSON(ctx, "https://www.boredapi.com/api/activity", &payload); err != nil {
		return err
	}
	return b.client.Reply(ctx, m, payload.Activity)
}

func (b *bot) getJSON(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	res, err := b.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: status %d", url, res.StatusCode)
	}
	return json.NewDecoder(res.Body).Decode(out)
}

func serveStatus(ctx context.Context, logger *slog.Logger, addr string, b *bot) {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Get("/stats", func(w http.ResponseWriter, _ *http.Request) {
		stats := map[string]interface{}{
			"uptime":           time.Since(b.started).String(),
			"messages_seen":    b.seen.Load(),
			"commands_handled": b.handled.Load(),
		}
		if u := b.client.User(); u != nil {
			stats["username"] = u.Username
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(stats)
	})

	srv := &http.Server{Addr: addr, Handler: r}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info("dogebot: status endpoint", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("dogebot: status server", "error", err)
	}
}
