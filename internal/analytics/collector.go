package analytics

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/Dunglqd/vexera-ai-system-test/internal/models"
	"github.com/Dunglqd/vexera-ai-system-test/pkg/utils"
)

const (
	defaultBufferSize    = 10000
	defaultBatchSize     = 100
	defaultFlushInterval = time.Second
)

// Collector buffers events and flushes them in batches from a background
// goroutine. Track never blocks.
type Collector struct {
	pub           Publisher
	events        chan models.AnswerEvent
	batchSize     int
	flushInterval time.Duration
	logger        *zap.Logger

	dropped atomic.Int64
	mu      sync.RWMutex
	closed  bool
	once    sync.Once
	done    chan struct{}
}

// NewCollector returns a collector with room for bufferSize pending events.
func NewCollector(pub Publisher, bufferSize int, logger *zap.Logger) *Collector {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	return &Collector{
		pub:           pub,
		events:        make(chan models.AnswerEvent, bufferSize),
		batchSize:     defaultBatchSize,
		flushInterval: defaultFlushInterval,
		logger:        utils.OrNop(logger).With(zap.String("component", "analytics-collector")),
		done:          make(chan struct{}),
	}
}

// Start launches the flush loop. It runs until Close is called.
func (c *Collector) Start() {
	go c.run()
	c.logger.Info("analytics collector started", zap.Int("buffer_size", cap(c.events)))
}

// Track enqueues ev, dropping it when the buffer is full or the collector
// is closed.
func (c *Collector) Track(ev models.AnswerEvent) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		c.dropped.Add(1)
		return
	}
	select {
	case c.events <- ev:
	default:
		if n := c.dropped.Add(1); n == 1 || n%1000 == 0 {
			c.logger.Warn("analytics event dropped, buffer full", zap.Int64("dropped_total", n))
		}
	}
}

// Dropped returns the number of events discarded so far.
func (c *Collector) Dropped() int64 {
	return c.dropped.Load()
}

// Close stops accepting events, flushes what is buffered and closes the
// publisher.
func (c *Collector) Close() error {
	c.once.Do(func() {
		c.mu.Lock()
		c.closed = true
		close(c.events)
		c.mu.Unlock()
	})
	<-c.done
	return c.pub.Close()
}

func (c *Collector) run() {
	defer close(c.done)
	ticker := time.NewTicker(c.flushInterval)
	defer ticker.Stop()

	batch := make([]models.AnswerEvent, 0, c.batchSize)
	for {
		select {
		case ev, ok := <-c.events:
			if !ok {
				c.flush(batch)
				return
			}
			batch = append(batch, ev)
			if len(batch) >= c.batchSize {
				c.flush(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				c.flush(batch)
				batch = batch[:0]
			}
		}
	}
}

func (c *Collector) flush(batch []models.AnswerEvent) {
	if len(batch) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.pub.Publish(ctx, batch); err != nil {
		c.logger.Error("failed to publish analytics events", zap.Int("count", len(batch)), zap.Error(err))
	}
}
