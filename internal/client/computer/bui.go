// Package computer is the client side of the stationary computer window.
package computer

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/zeusync/contentpack/internal/client/bui"
	"github.com/zeusync/contentpack/internal/content/computer"
	"github.com/zeusync/contentpack/internal/core/i18n"
)

// BUI binds a Window to a computer on the server.
type BUI struct {
	bui.Base
	loc i18n.Localizer

	mu     sync.Mutex
	window *Window
}

func New(entity uint64, sender bui.Sender, loc i18n.Localizer) *BUI {
	return &BUI{
		Base:   bui.NewBase(entity, computer.UiKey, sender),
		loc:    loc,
		window: NewWindow(),
	}
}

// UpdateState repopulates the window from a pushed snapshot.
func (b *BUI) UpdateState(raw json.RawMessage) error {
	var st computer.State
	if err := json.Unmarshal(raw, &st); err != nil {
		return fmt.Errorf("decode computer state: %w", err)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.window.Populate(st, b.loc)
	return nil
}

// Window runs fn with the window held. Renderers and key handlers go
// through here.
func (b *BUI) Window(fn func(w *Window)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fn(b.window)
}

// Submit sends the input line as a command. It reports false when there was
// nothing to send.
func (b *BUI) Submit(ctx context.Context) (bool, error) {
	b.mu.Lock()
	line, ok := b.window.Submit()
	root := b.window.Root()
	b.mu.Unlock()
	if !ok {
		return false, nil
	}
	if err := b.SendMessage(ctx, line.Message(root)); err != nil {
		b.mu.Lock()
		b.window.Unlock()
		b.mu.Unlock()
		return true, err
	}
	return true, nil
}
