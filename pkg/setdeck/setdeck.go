package setdeck

import "fmt"

// Card is an opaque card identifier in [0, deckSize). A card's features are
// the base-featureSize digits of the identifier, one digit per feature.
type Card = int

// Judge evaluates card combinations for a fixed feature geometry. A card has
// featureCount features with featureSize possible values each; a legal
// combination contains featureSize cards.
type Judge struct {
	featureSize  int
	featureCount int
}

// NewJudge creates a judge for featureCount features with featureSize values each
func NewJudge(featureSize, featureCount int) (*Judge, error) {
	if featureSize < 2 {
		return nil, fmt.Errorf("feature size must be at least 2, got %d", featureSize)
	}
	if featureCount < 1 {
		return nil, fmt.Errorf("feature count must be at least 1, got %d", featureCount)
	}
	return &Judge{featureSize: featureSize, featureCount: featureCount}, nil
}

// FeatureSize returns the number of values per feature, which is also the
// number of cards in a legal combination
func (j *Judge) FeatureSize() int {
	return j.featureSize
}

// FeatureCount returns the number of features per card
func (j *Judge) FeatureCount() int {
	return j.featureCount
}

// DeckSize returns featureSize^featureCount, the number of distinct cards
func (j *Judge) DeckSize() int {
	size := 1
	for i := 0; i < j.featureCount; i++ {
		size *= j.featureSize
	}
	return size
}

// NewDeck returns the full ordered deck [0, DeckSize())
func (j *Judge) NewDeck() []Card {
	deck := make([]Card, j.DeckSize())
	for i := range deck {
		deck[i] = i
	}
	return deck
}

// Features decomposes a card into its feature values
func (j *Judge) Features(card Card) []int {
	features := make([]int, j.featureCount)
	for i := 0; i < j.featureCount; i++ {
		features[i] = card % j.featureSize
		card /= j.featureSize
	}
	return features
}

// TestSet reports whether the given cards form a legal combination: exactly
// featureSize distinct cards where every feature is either uniform or
// pairwise distinct across the cards.
func (j *Judge) TestSet(cards []Card) bool {
	if len(cards) != j.featureSize {
		return false
	}
	seen := make(map[Card]bool, len(cards))
	for _, c := range cards {
		if c < 0 || c >= j.DeckSize() || seen[c] {
			return false
		}
		seen[c] = true
	}

	features := make([][]int, len(cards))
	for i, c := range cards {
		features[i] = j.Features(c)
	}

	for f := 0; f < j.featureCount; f++ {
		allSame := true
		allDiff := true
		values := make(map[int]bool, len(cards))
		for i := range cards {
			v := features[i][f]
			if v != features[0][f] {
				allSame = false
			}
			if values[v] {
				allDiff = false
			}
			values[v] = true
		}
		if !allSame && !allDiff {
			return false
		}
	}
	return true
}

// FindSets returns up to limit legal combinations drawable from cards, in
// lexicographic combination order. A non-positive limit means unlimited.
func (j *Judge) FindSets(cards []Card, limit int) [][]Card {
	var found [][]Card
	if len(cards) < j.featureSize {
		return found
	}

	indices := make([]int, j.featureSize)
	for i := range indices {
		indices[i] = i
	}

	for {
		candidate := make([]Card, j.featureSize)
		for i, idx := range indices {
			candidate[i] = cards[idx]
		}
		if j.TestSet(candidate) {
			found = append(found, candidate)
			if limit > 0 && len(found) >= limit {
				return found
			}
		}

		// Advance to the next combination of indices
		i := j.featureSize - 1
		for i >= 0 && indices[i] == len(cards)-j.featureSize+i {
			i--
		}
		if i < 0 {
			return found
		}
		indices[i]++
		for k := i + 1; k < j.featureSize; k++ {
			indices[k] = indices[k-1] + 1
		}
	}
}
