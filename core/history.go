package core

import (
	"fmt"
	"sync"
	"time"

	"github.com/HiddyTiddy/bottom/types"
	"github.com/HiddyTiddy/bottom/vm"
	"go.uber.org/zap"
)

// RunRecord is the outcome of one run.
type RunRecord struct {
	ID       string
	Hash     types.Hash
	Result   vm.Result
	Err      string
	Started  time.Time
	Duration time.Duration
}

// History keeps the most recent runs in insertion order. Once full, adding
// a record drops the oldest one.
type History struct {
	lock   sync.RWMutex
	lookup map[string]*RunRecord
	order  *types.Deque[string]
	max    int
	logger *zap.Logger
}

type HistoryOpt func(*History) *History

func HistoryLogger(l *zap.Logger) HistoryOpt {
	return func(h *History) *History {
		if l != nil {
			h.logger = l
		}
		return h
	}
}

// MaxHistoryDepth bounds the number of kept records. Values below 1 are
// ignored.
func MaxHistoryDepth(m int) HistoryOpt {
	return func(h *History) *History {
		if m > 0 {
			h.max = m
		}
		return h
	}
}

func NewHistory(opts ...HistoryOpt) *History {
	h := &History{
		lookup: make(map[string]*RunRecord),
		logger: zap.L(),
		max:    1000,
	}
	for _, opt := range opts {
		h = opt(h)
	}
	h.order = types.NewDeque[string](min(h.max, 1024))
	h.logger = h.logger.Named("history")
	return h
}

// Add stores rec. Records with an id that is already present are rejected.
func (h *History) Add(rec *RunRecord) error {
	if rec.ID == "" {
		return fmt.Errorf("history: record without id")
	}

	h.lock.Lock()
	defer h.lock.Unlock()

	if _, exists := h.lookup[rec.ID]; exists {
		return fmt.Errorf("history: duplicate run id %s", rec.ID)
	}
	if h.order.Len() == h.max {
		// newest records sit at the front
		oldest, err := h.order.PopBack()
		if err != nil {
			return fmt.Errorf("history: %w", err)
		}
		h.logger.Debug("rolling over history",
			zap.String("remove", oldest),
			zap.String("add", rec.ID))
		delete(h.lookup, oldest)
	}
	h.order.PushFront(rec.ID)
	h.lookup[rec.ID] = rec
	return nil
}

func (h *History) Get(id string) (*RunRecord, error) {
	h.lock.RLock()
	defer h.lock.RUnlock()

	rec, ok := h.lookup[id]
	if !ok {
		return nil, fmt.Errorf("history: run %s: %w", id, ErrNotFound)
	}
	return rec, nil
}

// Recent returns up to n records, newest first. n <= 0 returns all.
func (h *History) Recent(n int) []*RunRecord {
	h.lock.RLock()
	defer h.lock.RUnlock()

	if n <= 0 || n > h.order.Len() {
		n = h.order.Len()
	}
	out := make([]*RunRecord, 0, n)
	for i := 0; i < n; i++ {
		id, _ := h.order.Get(i)
		out = append(out, h.lookup[id])
	}
	return out
}

func (h *History) Len() int {
	h.lock.RLock()
	defer h.lock.RUnlock()
	return h.order.Len()
}

func (h *History) Clear() {
	h.lock.Lock()
	defer h.lock.Unlock()
	h.lookup = make(map[string]*RunRecord)
	h.order.Clear()
}
