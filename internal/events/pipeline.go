package events

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Sink receives batches of game events
type Sink interface {
	WriteEvents(ctx context.Context, batch []GameEvent) error
}

// PipelineConfig holds buffering and batching settings for the event pipeline
type PipelineConfig struct {
	BufferSize    int
	BatchSize     int
	FlushInterval time.Duration
	WriteTimeout  time.Duration
}

// DefaultPipelineConfig returns default pipeline configuration
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		BufferSize:    1024,
		BatchSize:     64,
		FlushInterval: time.Second,
		WriteTimeout:  5 * time.Second,
	}
}

// Pipeline is an asynchronous event processor: Record enqueues without
// blocking, a worker batches by size and interval and fans batches out to
// every sink. Events are dropped when the buffer is full.
type Pipeline struct {
	config PipelineConfig
	sinks  []Sink
	logger zerolog.Logger

	events chan GameEvent
	quit   chan struct{}
	once   sync.Once
	wg     sync.WaitGroup

	mu      sync.Mutex
	dropped int64
}

// NewPipeline creates and starts an event pipeline over the given sinks
func NewPipeline(config PipelineConfig, logger zerolog.Logger, sinks ...Sink) *Pipeline {
	if config.BufferSize <= 0 {
		config.BufferSize = DefaultPipelineConfig().BufferSize
	}
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultPipelineConfig().BatchSize
	}
	if config.FlushInterval <= 0 {
		config.FlushInterval = DefaultPipelineConfig().FlushInterval
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = DefaultPipelineConfig().WriteTimeout
	}

	p := &Pipeline{
		config: config,
		sinks:  sinks,
		logger: logger.With().Str("component", "event_pipeline").Logger(),
		events: make(chan GameEvent, config.BufferSize),
		quit:   make(chan struct{}),
	}

	p.wg.Add(1)
	go p.run()

	return p
}

// Record implements Recorder. It never blocks; events are dropped when the
// buffer is full.
func (p *Pipeline) Record(event GameEvent) {
	select {
	case p.events <- event:
	default:
		p.mu.Lock()
		p.dropped++
		p.mu.Unlock()
	}
}

// Dropped returns how many events were discarded due to a full buffer
func (p *Pipeline) Dropped() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dropped
}

// Close flushes buffered events and stops the worker
func (p *Pipeline) Close() {
	p.once.Do(func() { close(p.quit) })
	p.wg.Wait()
}

func (p *Pipeline) run() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.config.FlushInterval)
	defer ticker.Stop()

	batch := make([]GameEvent, 0, p.config.BatchSize)

	flush := func() {
		if len(batch) == 0 {
			return
		}
		p.dispatch(batch)
		batch = batch[:0]
	}

	for {
		select {
		case event := <-p.events:
			batch = append(batch, event)
			if len(batch) >= p.config.BatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-p.quit:
			// Drain whatever is still buffered, then flush
			for {
				select {
				case event := <-p.events:
					batch = append(batch, event)
					if len(batch) >= p.config.BatchSize {
						flush()
					}
				default:
					flush()
					return
				}
			}
		}
	}
}

func (p *Pipeline) dispatch(batch []GameEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), p.config.WriteTimeout)
	defer cancel()

	for _, sink := range p.sinks {
		if err := sink.WriteEvents(ctx, batch); err != nil {
			p.logger.Error().Err(err).Int("batch", len(batch)).Msg("sink write failed")
		}
	}
}
