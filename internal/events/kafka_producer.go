package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/IBM/sarama"
)

// KafkaProducerConfig holds Kafka producer configuration
type KafkaProducerConfig struct {
	Brokers        []string
	Topic          string
	MaxRetries     int
	RetryBackoff   time.Duration
	FlushFrequency time.Duration
	FlushMessages  int
	RequiredAcks   sarama.RequiredAcks
	Compression    sarama.CompressionCodec
	AsyncMode      bool
}

// DefaultKafkaProducerConfig returns default producer configuration
func DefaultKafkaProducerConfig(brokers []string, topic string) KafkaProducerConfig {
	return KafkaProducerConfig{
		Brokers:        brokers,
		Topic:          topic,
		MaxRetries:     3,
		RetryBackoff:   100 * time.Millisecond,
		FlushFrequency: 500 * time.Millisecond,
		FlushMessages:  64,
		RequiredAcks:   sarama.WaitForAll,
		Compression:    sarama.CompressionSnappy,
	}
}

// KafkaProducer publishes game events to Kafka
type KafkaProducer struct {
	producer sarama.SyncProducer
	async    sarama.AsyncProducer
	topic    string
	mu       sync.Mutex
	stats    ProducerStats
}

// ProducerStats tracks Kafka producer statistics
type ProducerStats struct {
	MessagesSent    int64
	MessagesFailed  int64
	BytesSent       int64
	LastMessageTime time.Time
}

// NewKafkaProducer creates a new Kafka game-event producer
func NewKafkaProducer(config KafkaProducerConfig) (*KafkaProducer, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.Return.Errors = true
	saramaConfig.Producer.Retry.Max = config.MaxRetries
	saramaConfig.Producer.Retry.Backoff = config.RetryBackoff
	saramaConfig.Producer.Flush.Frequency = config.FlushFrequency
	saramaConfig.Producer.Flush.Messages = config.FlushMessages
	saramaConfig.Producer.RequiredAcks = config.RequiredAcks
	saramaConfig.Producer.Compression = config.Compression

	// Enable idempotent producer for exactly-once semantics
	if config.RequiredAcks == sarama.WaitForAll {
		saramaConfig.Producer.Idempotent = true
		saramaConfig.Net.MaxOpenRequests = 1
	}

	var producer sarama.SyncProducer
	var async sarama.AsyncProducer
	var err error

	if config.AsyncMode {
		async, err = sarama.NewAsyncProducer(config.Brokers, saramaConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to create async Kafka producer: %w", err)
		}
	} else {
		producer, err = sarama.NewSyncProducer(config.Brokers, saramaConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to create sync Kafka producer: %w", err)
		}
	}

	p := &KafkaProducer{
		producer: producer,
		async:    async,
		topic:    config.Topic,
	}

	if async != nil {
		go p.handleErrors()
	}

	return p, nil
}

// handleErrors processes errors from the async producer
func (p *KafkaProducer) handleErrors() {
	for range p.async.Errors() {
		p.mu.Lock()
		p.stats.MessagesFailed++
		p.mu.Unlock()
	}
}

// WriteEvents implements Sink: each event in the batch becomes one Kafka
// message, keyed by game id so a game's events stay ordered per partition.
func (p *KafkaProducer) WriteEvents(ctx context.Context, batch []GameEvent) error {
	for i := range batch {
		if err := p.publish(ctx, &batch[i]); err != nil {
			return err
		}
	}
	return nil
}

func (p *KafkaProducer) publish(ctx context.Context, event *GameEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	kafkaMsg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(event.GameID),
		Value: sarama.ByteEncoder(data),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event_type"), Value: []byte(event.Type)},
		},
		Timestamp: event.Timestamp,
	}

	if p.async != nil {
		select {
		case p.async.Input() <- kafkaMsg:
		case <-ctx.Done():
			return ctx.Err()
		}
		p.mu.Lock()
		p.stats.MessagesSent++
		p.stats.BytesSent += int64(len(data))
		p.stats.LastMessageTime = time.Now()
		p.mu.Unlock()
		return nil
	}

	if _, _, err := p.producer.SendMessage(kafkaMsg); err != nil {
		p.mu.Lock()
		p.stats.MessagesFailed++
		p.mu.Unlock()
		return fmt.Errorf("failed to send message to Kafka: %w", err)
	}

	p.mu.Lock()
	p.stats.MessagesSent++
	p.stats.BytesSent += int64(len(data))
	p.stats.LastMessageTime = time.Now()
	p.mu.Unlock()

	return nil
}

// Stats returns a copy of the producer statistics
func (p *KafkaProducer) Stats() ProducerStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

// Close shuts the underlying producer down
func (p *KafkaProducer) Close() error {
	if p.async != nil {
		p.async.AsyncClose()
		return nil
	}
	return p.producer.Close()
}
