package analytics

import (
	"context"
	"log/slog"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/pkg/kafka"
)

// Publisher sends events to the query event topic.
type Publisher interface {
	Publish(ctx context.Context, events ...kafka.Event) error
}

// Collector buffers query events, feeds them to the local aggregator and
// forwards them to a Publisher from a single background goroutine. Track
// never blocks; events are dropped when the buffer is full or the collector
// is closed.
type Collector struct {
	publisher  Publisher
	aggregator *Aggregator
	eventCh    chan QueryEvent
	logger     *slog.Logger
	done       chan struct{}
	mu         sync.RWMutex
	closed     bool
}

// NewCollector creates a Collector. publisher may be nil, in which case
// events are only aggregated locally.
func NewCollector(publisher Publisher, aggregator *Aggregator, bufferSize int) *Collector {
	if bufferSize <= 0 {
		bufferSize = 10000
	}
	return &Collector{
		publisher:  publisher,
		aggregator: aggregator,
		eventCh:    make(chan QueryEvent, bufferSize),
		logger:     slog.Default().With("component", "analytics-collector"),
		done:       make(chan struct{}),
	}
}

func (c *Collector) Start(ctx context.Context) {
	go func() {
		defer close(c.done)
		for {
			select {
			case event, ok := <-c.eventCh:
				if !ok {
					return
				}
				c.handle(ctx, event)
			case <-ctx.Done():
				c.drainRemaining()
				return
			}
		}
	}()
	c.logger.Info("analytics collector started", "buffer_size", cap(c.eventCh))
}

func (c *Collector) Track(event QueryEvent) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		c.logger.Debug("analytics event dropped (collector closed)", "query", event.Query)
		return
	}
	select {
	case c.eventCh <- event:
	default:
		c.logger.Warn("analytics event dropped (buffer full)", "query", event.Query)
	}
}

// Close stops accepting events and waits for buffered ones to be handled.
func (c *Collector) Close() {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.eventCh)
	}
	c.mu.Unlock()
	<-c.done
}

func (c *Collector) handle(ctx context.Context, event QueryEvent) {
	if c.aggregator != nil {
		c.aggregator.Record(event)
	}
	if c.publisher == nil {
		return
	}
	if err := c.publisher.Publish(ctx, kafka.Event{Key: event.Query, Value: event}); err != nil {
		c.logger.Error("failed to publish query event", "error", err)
	}
}

func (c *Collector) drainRemaining() {
	for {
		select {
		case event, ok := <-c.eventCh:
			if !ok {
				return
			}
			c.handle(context.Background(), event)
		default:
			return
		}
	}
}
