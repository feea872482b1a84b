package browser

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/PiggyPlex/dogehouse/internal/dispatch"
)

// Page wraps the session's single Rod page: navigation, selector waits,
// script evaluation, storage injection, and the keyboard surface the
// dispatch protocol types through.
type Page struct {
	page *rod.Page
}

// OpenPage creates the session page with stealth applied and navigates
// it to the given URL.
func (m *Manager) OpenPage(ctx context.Context, pageURL string) (*Page, error) {
	b := m.Browser()
	if b == nil {
		return nil, fmt.Errorf("browser: no active browser")
	}

	page, err := stealth.Page(b)
	if err != nil {
		return nil, fmt.Errorf("browser: create page: %w", err)
	}

	err = page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             1920,
		Height:            1080,
		DeviceScaleFactor: 1,
	})
	if err != nil {
		m.cfg.Logger.Warn("browser: set viewport failed", "error", err)
	}

	p := &Page{page: page}
	if err := p.Navigate(ctx, pageURL); err != nil {
		page.Close()
		return nil, err
	}
	return p, nil
}

// Navigate loads url and waits for the load event.
func (p *Page) Navigate(ctx context.Context, url string) error {
	if err := p.page.Context(ctx).Navigate(url); err != nil {
		return fmt.Errorf("browser: navigate %s: %w", url, err)
	}
	if err := p.page.Context(ctx).WaitLoad(); err != nil {
		return fmt.Errorf("browser: wait load %s: %w", url, err)
	}
	return nil
}

// WaitVisible blocks until an element matching selector exists. The
// wait is unbounded; callers bound it through ctx.
func (p *Page) WaitVisible(ctx context.Context, selector string) error {
	if _, err := p.page.Context(ctx).Element(selector); err != nil {
		return fmt.Errorf("browser: wait for %q: %w", selector, err)
	}
	return nil
}

// EvalString evaluates a JS function in page context and returns its
// string result.
func (p *Page) EvalString(ctx context.Context, js string, args ...interface{}) (string, error) {
	res, err := p.page.Context(ctx).Eval(js, args...)
	if err != nil {
		return "", fmt.Errorf("browser: eval: %w", err)
	}
	return res.Value.Str(), nil
}

// SetLocalStorage writes the given keys into the page's localStorage.
// The page must already be on the target origin.
func (p *Page) SetLocalStorage(ctx context.Context, items map[string]string) error {
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("browser: marshal storage items: %w", err)
	}
	_, err = p.page.Context(ctx).Eval(`(raw) => {
		const items = JSON.parse(raw);
		Object.entries(items).forEach(([k, v]) => localStorage.setItem(k, v));
	}`, string(data))
	if err != nil {
		return fmt.Errorf("browser: set local storage: %w", err)
	}
	return nil
}

// Rod exposes the underlying page for the observer's CDP wiring.
func (p *Page) Rod() *rod.Page {
	return p.page
}

// Close closes the page.
func (p *Page) Close() error {
	if p.page != nil {
		return p.page.Close()
	}
	return nil
}

// keymap translates the dispatch protocol's symbolic key names to CDP
// key identities.
var keymap = map[string]input.Key{
	dispatch.KeyShift:     input.ShiftLeft,
	dispatch.KeyHome:      input.Home,
	dispatch.KeyBackspace: input.Backspace,
	dispatch.KeyTab:       input.Tab,
	dispatch.KeyEnter:     input.Enter,
}

func lookupKey(name string) (input.Key, error) {
	k, ok := keymap[name]
	if !ok {
		var zero input.Key
		return zero, fmt.Errorf("browser: unknown key %q", name)
	}
	return k, nil
}

// Focus gives keyboard focus to the element at selector.
func (p *Page) Focus(ctx context.Context, selector string) error {
	el, err := p.page.Context(ctx).Element(selector)
	if err != nil {
		return fmt.Errorf("browser: element %q: %w", selector, err)
	}
	if err := el.Focus(); err != nil {
		return fmt.Errorf("browser: focus %q: %w", selector, err)
	}
	return nil
}

// Type types text into the element at selector, appending to whatever
// is already there.
func (p *Page) Type(ctx context.Context, selector, text string) error {
	el, err := p.page.Context(ctx).Element(selector)
	if err != nil {
		return fmt.Errorf("browser: element %q: %w", selector, err)
	}
	if err := el.Input(text); err != nil {
		return fmt.Errorf("browser: input into %q: %w", selector, err)
	}
	return nil
}

// Down holds a key.
func (p *Page) Down(ctx context.Context, key string) error {
	k, err := lookupKey(key)
	if err != nil {
		return err
	}
	if err := p.page.Context(ctx).Keyboard.Press(k); err != nil {
		return fmt.Errorf("browser: key down %s: %w", key, err)
	}
	return nil
}

// Up releases a key.
func (p *Page) Up(ctx context.Context, key string) error {
	k, err := lookupKey(key)
	if err != nil {
		return err
	}
	if err := p.page.Context(ctx).Keyboard.Release(k); err != nil {
		return fmt.Errorf("browser: key up %s: %w", key, err)
	}
	return nil
}

// Press taps a key.
func (p *Page) Press(ctx context.Context, key string) error {
	k, err := lookupKey(key)
	if err != nil {
		return err
	}
	if err := p.page.Context(ctx).Keyboard.Type(k); err != nil {
		return fmt.Errorf("browser: key press %s: %w", key, err)
	}
	return nil
}
