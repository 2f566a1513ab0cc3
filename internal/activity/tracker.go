package activity

import (
	"log/slog"
	"sync"
	"time"

	"github.com/khanglvm/afm-viewer/internal/storage"
)

const (
	// eventQueueSize is the buffer size for the event queue.
	// If full, events are dropped (non-blocking).
	eventQueueSize = 1000

	// batchFlushSize is the number of events that triggers an immediate flush.
	batchFlushSize = 10

	// flushInterval is how often pending events are written.
	flushInterval = 50 * time.Millisecond
)

// Recorder persists activity events.
type Recorder interface {
	RecordActivity(event storage.ActivityEvent) error
}

// Tracker records activity in the background with non-blocking writes.
type Tracker struct {
	recorder   Recorder
	logger     *slog.Logger
	eventQueue chan Event
	stopChan   chan struct{}
	stopOnce   sync.Once
	wg         sync.WaitGroup
	enabled    bool
	mu         sync.RWMutex
}

// NewTracker creates a tracker that writes to rec. A nil rec yields a
// disabled tracker.
func NewTracker(rec Recorder, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	t := &Tracker{
		recorder:   rec,
		logger:     logger,
		eventQueue: make(chan Event, eventQueueSize),
		stopChan:   make(chan struct{}),
		enabled:    rec != nil,
	}

	t.wg.Add(1)
	go t.processEvents()

	return t
}

// Track queues an event. If the queue is full, the event is dropped.
func (t *Tracker) Track(event Event) {
	if !t.IsEnabled() {
		return
	}

	select {
	case t.eventQueue <- event:
	default:
		t.logger.Warn("activity queue full, dropping event", "kind", event.Kind, "tool", event.Tool)
	}
}

// Stop flushes queued events and shuts the tracker down.
func (t *Tracker) Stop() {
	t.stopOnce.Do(func() {
		close(t.stopChan)
		t.wg.Wait()
	})
}

// Disable makes Track ignore events.
func (t *Tracker) Disable() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enabled = false
}

// IsEnabled returns whether tracking is enabled.
func (t *Tracker) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled && t.recorder != nil
}

// QueueLen returns the number of events waiting to be written.
func (t *Tracker) QueueLen() int {
	return len(t.eventQueue)
}

func (t *Tracker) processEvents() {
	defer t.wg.Done()

	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	batch := make([]Event, 0, batchFlushSize)

	for {
		select {
		case event := <-t.eventQueue:
			batch = append(batch, event)
			if len(batch) >= batchFlushSize {
				t.flush(batch)
				batch = batch[:0]
			}

		case <-ticker.C:
			if len(batch) > 0 {
				t.flush(batch)
				batch = batch[:0]
			}

		case <-t.stopChan:
			for {
				select {
				case event := <-t.eventQueue:
					batch = append(batch, event)
					if len(batch) >= batchFlushSize {
						t.flush(batch)
						batch = batch[:0]
					}
				default:
					t.flush(batch)
					return
				}
			}
		}
	}
}

func (t *Tracker) flush(events []Event) {
	for _, event := range events {
		if err := t.recorder.RecordActivity(event.ToStorage()); err != nil {
			t.logger.Warn("failed to record activity", "kind", event.Kind, "error", err)
		}
	}
}
