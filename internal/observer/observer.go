// Package observer attaches a MutationObserver to the chat container
// and turns every mutation batch into a full transcript pass.
//
// The page-side hook ships the container's serialised DOM through a CDP
// Runtime binding; the host side parses it with transcript.Parse and
// delivers ordered record batches on a channel. The observer observes,
// it does not interpret: deduplication happens downstream in the
// client's pipeline.
package observer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-rod/rod/lib/proto"

	"github.com/PiggyPlex/dogehouse/internal/browser"
	"github.com/PiggyPlex/dogehouse/message"
	"github.com/PiggyPlex/dogehouse/transcript"
)

const bindingName = "__dogehouseTranscript"

// observerJS runs in page context: one full emission at attach time,
// then one per childList/subtree mutation batch for the lifetime of the
// room session. No polling.
const observerJS = `(sel, binding) => {
	const root = document.querySelector(sel);
	if (!root) throw new Error('chat container not found: ' + sel);
	const emit = () => window[binding](root.outerHTML);
	const Observer = window.MutationObserver || window.WebKitMutationObserver;
	new Observer(emit).observe(root, { childList: true, subtree: true });
	emit();
}`

// Config for creating an Observer.
type Config struct {
	Page     *browser.Page
	RoomID   string
	Selector string // chat container selector
	Buffer   int    // record channel capacity
	Logger   *slog.Logger
}

// Observer manages the page-side hook for a single room session.
type Observer struct {
	page     *browser.Page
	roomID   string
	selector string
	logger   *slog.Logger
	out      chan []message.Record
	ctx      context.Context
	cancel   context.CancelFunc
}

// New creates an Observer for the given page.
func New(cfg Config) *Observer {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = 64
	}
	return &Observer{
		page:     cfg.Page,
		roomID:   cfg.RoomID,
		selector: cfg.Selector,
		logger:   cfg.Logger,
		out:      make(chan []message.Record, cfg.Buffer),
	}
}

// Start registers the binding, begins listening for emissions, and
// injects the page-side hook. The initial pass arrives on Records
// shortly after Start returns.
func (o *Observer) Start(ctx context.Context) error {
	o.ctx, o.cancel = context.WithCancel(ctx)

	err := proto.RuntimeAddBinding{Name: bindingName}.Call(o.page.Rod())
	if err != nil {
		o.logger.Warn("observer: add binding failed (may already exist)", "error", err)
	}

	go o.listenBinding()

	if _, err := o.page.Rod().Context(o.ctx).Eval(observerJS, o.selector, bindingName); err != nil {
		o.cancel()
		return fmt.Errorf("observer: inject hook: %w", err)
	}

	o.logger.Info("observer: attached", "room", o.roomID, "selector", o.selector)
	return nil
}

// Records is the stream of full transcript reconstructions, one per
// mutation batch.
func (o *Observer) Records() <-chan []message.Record {
	return o.out
}

// Stop detaches the host side. The page-side hook stays installed but
// its emissions go nowhere.
func (o *Observer) Stop() {
	if o.cancel != nil {
		o.cancel()
	}
}

// listenBinding receives container snapshots via Runtime.bindingCalled
// and parses each into a record batch.
func (o *Observer) listenBinding() {
	page := o.page.Rod()
	page.Context(o.ctx).EachEvent(func(e *proto.RuntimeBindingCalled) {
		if e.Name != bindingName {
			return
		}

		recs, err := transcript.Parse([]byte(e.Payload), o.roomID)
		if err != nil {
			if errors.Is(err, transcript.ErrNotHydrated) {
				// Rows still hydrating; the next mutation retries.
				o.logger.Debug("observer: pass skipped, rows not hydrated")
				return
			}
			o.logger.Warn("observer: parse snapshot", "error", err)
			return
		}

		select {
		case o.out <- recs:
		case <-o.ctx.Done():
		}
	})()
}
