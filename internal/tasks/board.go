package tasks

import (
	"log/slog"
	"sync"

	"github.com/s1natex/taskorbit/internal/kv"
)

// Board is the state of one authenticated session: the store plus the drag
// and view state layered on top of it.
type Board struct {
	Store *Store
	Drag  *Dragger
	View  *ViewState
	Cache *ViewCache
}

func NewBoard(store *kv.Store, logger *slog.Logger, opts ...Option) *Board {
	if logger == nil {
		logger = slog.Default()
	}
	s := NewStore(store, append([]Option{WithLogger(logger)}, opts...)...)
	s.Init()
	return &Board{
		Store: s,
		Drag:  NewDragger(s, logger),
		View:  &ViewState{},
		Cache: &ViewCache{},
	}
}

// Visible returns the board's projection under its live filter.
func (b *Board) Visible() []Task {
	return b.Cache.Get(b.Store, b.View.Filter())
}

// Handle owns the lifetime of the current Board: Open on login, Close on
// logout.
type Handle struct {
	mu     sync.Mutex
	kv     *kv.Store
	logger *slog.Logger
	opts   []Option
	board  *Board
}

func NewHandle(store *kv.Store, logger *slog.Logger, opts ...Option) *Handle {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handle{kv: store, logger: logger, opts: opts}
}

// Open loads a fresh board from the kv store. An already open board is kept.
func (h *Handle) Open() *Board {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.board == nil {
		h.board = NewBoard(h.kv, h.logger, h.opts...)
		h.logger.Info("board_opened", slog.String("backend", h.kv.Backend()))
	}
	return h.board
}

func (h *Handle) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.board != nil {
		h.board = nil
		h.logger.Info("board_closed")
	}
}

func (h *Handle) Board() (*Board, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.board, h.board != nil
}
