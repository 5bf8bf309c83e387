package resolve

import (
	"context"
	"sync"
	"time"

	"github.com/wonny/xray/internal/contracts"
	"github.com/wonny/xray/pkg/logger"
)

// writebackItem is one externally-resolved identifier queued for
// cache write-back and optional community contribution.
type writebackItem struct {
	Ticker      string
	Name        string
	CanonicalID string
	Source      contracts.ResolutionSource
	Contribute  bool
}

// Writeback persists resolved identifiers off the critical path.
// Enqueue never blocks: when the queue is full the item is dropped
// with a warning. Failures are logged, not propagated.
type Writeback struct {
	ch        chan writebackItem
	cache     contracts.IdentifierCache
	community contracts.CommunityService
	logger    *logger.Logger

	wg      sync.WaitGroup
	dropped int
	mu      sync.Mutex
}

const defaultWritebackQueueSize = 256

// NewWriteback starts the write-back worker. community may be nil
// when contribution is disabled.
func NewWriteback(cache contracts.IdentifierCache, community contracts.CommunityService, log *logger.Logger) *Writeback {
	w := &Writeback{
		ch:        make(chan writebackItem, defaultWritebackQueueSize),
		cache:     cache,
		community: community,
		logger:    log,
	}

	w.wg.Add(1)
	go w.run()

	return w
}

// Enqueue queues an item without blocking
func (w *Writeback) Enqueue(item writebackItem) {
	select {
	case w.ch <- item:
	default:
		w.mu.Lock()
		w.dropped++
		w.mu.Unlock()
		w.logger.WithFields(map[string]interface{}{
			"ticker": item.Ticker,
			"id":     item.CanonicalID,
		}).Warn("Write-back queue full, dropping item")
	}
}

// Dropped returns how many items were dropped due to a full queue
func (w *Writeback) Dropped() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.dropped
}

// Close drains the queue and stops the worker
func (w *Writeback) Close() {
	close(w.ch)
	w.wg.Wait()
}

func (w *Writeback) run() {
	defer w.wg.Done()

	for item := range w.ch {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)

		if w.cache != nil {
			if err := w.cache.Put(ctx, item.Ticker, item.Name, item.CanonicalID, item.Source); err != nil {
				w.logger.WithError(err).WithField("ticker", item.Ticker).Warn("Cache write-back failed")
			}
		}

		if item.Contribute && w.community != nil {
			if err := w.community.ContributeIdentifier(ctx, item.Ticker, item.CanonicalID); err != nil {
				w.logger.WithError(err).WithField("ticker", item.Ticker).Warn("Community contribution failed")
			}
		}

		cancel()
	}
}
