package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memorySink collects batches in memory
type memorySink struct {
	mu      sync.Mutex
	batches [][]GameEvent
}

func (s *memorySink) WriteEvents(ctx context.Context, batch []GameEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := append([]GameEvent(nil), batch...)
	s.batches = append(s.batches, copied)
	return nil
}

func (s *memorySink) total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, b := range s.batches {
		n += len(b)
	}
	return n
}

func TestNewGameEventStamps(t *testing.T) {
	event := NewGameEvent(TypeClaimAccepted, "game-1")

	assert.NotEmpty(t, event.ID)
	assert.Equal(t, TypeClaimAccepted, event.Type)
	assert.Equal(t, "game-1", event.GameID)
	assert.Equal(t, -1, event.Player)
	assert.False(t, event.Timestamp.IsZero())
}

func TestPipelineFlushesOnBatchSize(t *testing.T) {
	sink := &memorySink{}
	p := NewPipeline(PipelineConfig{
		BufferSize:    16,
		BatchSize:     4,
		FlushInterval: time.Hour,
	}, zerolog.Nop(), sink)
	defer p.Close()

	for i := 0; i < 4; i++ {
		p.Record(NewGameEvent(TypeCardsDealt, "game-1"))
	}

	require.Eventually(t, func() bool {
		return sink.total() == 4
	}, 2*time.Second, 10*time.Millisecond)
}

func TestPipelineFlushesOnInterval(t *testing.T) {
	sink := &memorySink{}
	p := NewPipeline(PipelineConfig{
		BufferSize:    16,
		BatchSize:     100,
		FlushInterval: 20 * time.Millisecond,
	}, zerolog.Nop(), sink)
	defer p.Close()

	p.Record(NewGameEvent(TypeGameStarted, "game-1"))

	require.Eventually(t, func() bool {
		return sink.total() == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestPipelineCloseFlushesBuffered(t *testing.T) {
	sink := &memorySink{}
	p := NewPipeline(PipelineConfig{
		BufferSize:    16,
		BatchSize:     100,
		FlushInterval: time.Hour,
	}, zerolog.Nop(), sink)

	for i := 0; i < 7; i++ {
		p.Record(NewGameEvent(TypeClaimRejected, "game-1"))
	}
	p.Close()

	assert.Equal(t, 7, sink.total())
}

func TestPipelineDropsOnFullBuffer(t *testing.T) {
	// No sink drain: a tiny buffer must overflow
	blocked := make(chan struct{})
	slowSink := sinkFunc(func(ctx context.Context, batch []GameEvent) error {
		<-blocked
		return nil
	})

	p := NewPipeline(PipelineConfig{
		BufferSize:    2,
		BatchSize:     1,
		FlushInterval: time.Hour,
	}, zerolog.Nop(), slowSink)

	for i := 0; i < 50; i++ {
		p.Record(NewGameEvent(TypeCardsDealt, "game-1"))
	}

	assert.Greater(t, p.Dropped(), int64(0))
	close(blocked)
	p.Close()
}

type sinkFunc func(ctx context.Context, batch []GameEvent) error

func (f sinkFunc) WriteEvents(ctx context.Context, batch []GameEvent) error {
	return f(ctx, batch)
}
