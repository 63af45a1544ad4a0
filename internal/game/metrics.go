package game

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Claim Metrics
	ClaimsExaminedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "set_game_claims_examined_total",
		Help: "Total number of claims examined by the dealer",
	}, []string{"result"})

	ClaimLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "set_game_claim_latency_seconds",
		Help:    "Time between claim submission and dealer examination",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 2.0},
	})

	// Key-press Metrics
	KeyPressesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "set_game_key_presses_total",
		Help: "Total number of key presses by admission outcome",
	}, []string{"outcome"})

	// Table Metrics
	CardsOnTable = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "set_game_cards_on_table",
		Help: "Number of non-empty slots on the table",
	})

	DeckRemaining = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "set_game_deck_remaining",
		Help: "Number of cards remaining in the deck",
	})

	// Round Metrics
	RoundsPlayedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "set_game_rounds_played_total",
		Help: "Total number of completed rounds",
	})

	RoundDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "set_game_round_duration_seconds",
		Help:    "Duration of a round from deal to reshuffle",
		Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
	})

	// Player Metrics
	PlayerScore = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "set_game_player_score",
		Help: "Current score per player",
	}, []string{"player"})

	PlayerFreezesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "set_game_player_freezes_total",
		Help: "Total number of freezes per kind",
	}, []string{"kind"})
)

// RecordClaim records the outcome and latency of an examined claim
func RecordClaim(result string, latencySeconds float64) {
	ClaimsExaminedTotal.WithLabelValues(result).Inc()
	if latencySeconds >= 0 {
		ClaimLatency.Observe(latencySeconds)
	}
}

// RecordKeyPress records a key press admission outcome
func RecordKeyPress(outcome string) {
	KeyPressesTotal.WithLabelValues(outcome).Inc()
}

// RecordScore updates the score gauge for a player
func RecordScore(player, score int) {
	PlayerScore.WithLabelValues(strconv.Itoa(player)).Set(float64(score))
}

// RecordFreeze records a freeze being applied to a player
func RecordFreeze(kind string) {
	PlayerFreezesTotal.WithLabelValues(kind).Inc()
}

// RecordRound records a completed round
func RecordRound(durationSeconds float64) {
	RoundsPlayedTotal.Inc()
	RoundDuration.Observe(durationSeconds)
}
