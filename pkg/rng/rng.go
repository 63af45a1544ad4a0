package rng

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"
	"sync"
	"time"
)

// System provides cryptographically secure random numbers for dealing and
// shuffling operations
type System struct {
	cipher  cipher.Block
	counter uint64
	mu      sync.Mutex
	audit   *AuditLogger
}

// NewSystem creates a new RNG system with hardware seed
func NewSystem(audit *AuditLogger) (*System, error) {
	// Obtain seed from hardware RNG
	seed, err := getHardwareSeed(32)
	if err != nil {
		return nil, fmt.Errorf("failed to get hardware seed: %w", err)
	}

	block, err := aes.NewCipher(seed)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}

	return &System{
		cipher: block,
		audit:  audit,
	}, nil
}

// NewSystemWithSeed creates a System keyed by a specific seed. Each block also
// mixes in the current time, so the output is not reproducible from the seed.
func NewSystemWithSeed(seed []byte, audit *AuditLogger) (*System, error) {
	// Ensure seed is exactly 32 bytes for AES-256
	if len(seed) != 32 {
		hash := sha256.Sum256(seed)
		seed = hash[:]
	}

	block, err := aes.NewCipher(seed)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}

	return &System{
		cipher: block,
		audit:  audit,
	}, nil
}

// getHardwareSeed obtains entropy from system CSPRNG
func getHardwareSeed(n int) ([]byte, error) {
	seed := make([]byte, n)
	// crypto/rand reads from /dev/urandom on Linux, which pools entropy
	// from hardware sources (RDSEED, RDRAND, etc.)
	nRead, err := io.ReadFull(rand.Reader, seed)
	if err != nil {
		return nil, err
	}
	if nRead != n {
		return nil, fmt.Errorf("short read from CSPRNG: %d/%d", nRead, n)
	}
	return seed, nil
}

// RandomUint64 returns a cryptographically secure random uint64
func (s *System) RandomUint64() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextUint64()
}

// nextUint64 produces the next counter-mode block. Callers must hold s.mu.
func (s *System) nextUint64() uint64 {
	counterBytes := make([]byte, 16)
	binary.BigEndian.PutUint64(counterBytes[:8], s.counter)
	binary.BigEndian.PutUint64(counterBytes[8:], uint64(time.Now().UnixNano()))

	output := make([]byte, 16)
	s.cipher.Encrypt(output, counterBytes)

	s.counter++

	return binary.BigEndian.Uint64(output[:8])
}

// RandomInt returns a random int in range [0, max)
func (s *System) RandomInt(max int) int {
	if max <= 0 {
		return 0
	}
	return int(s.RandomUint64() % uint64(max))
}

// Shuffle permutes the given slice in place using Fisher-Yates
func (s *System) Shuffle(cards []int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := len(cards) - 1; i > 0; i-- {
		j := int(s.nextUint64() % uint64(i+1))
		cards[i], cards[j] = cards[j], cards[i]
	}
}

// RandomBytes returns cryptographically secure random bytes
func (s *System) RandomBytes(n int) ([]byte, error) {
	result := make([]byte, n)
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := 0; i < n; i += 16 {
		counterBytes := make([]byte, 16)
		binary.BigEndian.PutUint64(counterBytes[:8], s.counter)
		binary.BigEndian.PutUint64(counterBytes[8:], uint64(time.Now().UnixNano()))

		chunk := make([]byte, 16)
		s.cipher.Encrypt(chunk, counterBytes)
		s.counter++

		copyLen := 16
		if i+copyLen > n {
			copyLen = n - i
		}
		copy(result[i:i+copyLen], chunk[:copyLen])
	}

	return result, nil
}

// AuditLogger records shuffle events for certification compliance
type AuditLogger struct {
	enabled bool
}

// NewAuditLogger creates a new audit logger
func NewAuditLogger() *AuditLogger {
	return &AuditLogger{enabled: true}
}

// LogShuffleEvent records a shuffle operation for audit
func (a *AuditLogger) LogShuffleEvent(event *ShuffleAuditEvent) error {
	if !a.enabled {
		return nil
	}
	// In production, this would write to an append-only table in PostgreSQL
	fmt.Printf("RNG_AUDIT: %+v\n", event)
	return nil
}

// ShuffleAuditEvent represents a single shuffle operation for audit
type ShuffleAuditEvent struct {
	Timestamp  time.Time `json:"timestamp"`
	GameID     string    `json:"game_id"`
	RoundID    string    `json:"round_id"`
	SeedHash   string    `json:"seed_hash"` // SHA-256 of the draw, hex encoded
	DeckBefore []int     `json:"deck_before"`
	DeckAfter  []int     `json:"deck_after"`
	Algorithm  string    `json:"algorithm"` // "Fisher-Yates"
	PRNG       string    `json:"prng"`      // "AES-CTR-256"
	ServerID   string    `json:"server_id"`
}

// CreateAuditEntry creates a structured audit entry for a shuffle
func (s *System) CreateAuditEntry(gameID, roundID, serverID string, deckBefore, deckAfter []int) *ShuffleAuditEvent {
	draw, _ := s.RandomBytes(32)
	hash := sha256.Sum256(draw)

	return &ShuffleAuditEvent{
		Timestamp:  time.Now().UTC(),
		GameID:     gameID,
		RoundID:    roundID,
		SeedHash:   fmt.Sprintf("%x", hash[:]),
		DeckBefore: deckBefore,
		DeckAfter:  deckAfter,
		Algorithm:  "Fisher-Yates",
		PRNG:       "AES-CTR-256",
		ServerID:   serverID,
	}
}
