package loadgen

import (
	"crypto/rand"
	"math/big"
	"strconv"

	"github.com/google/uuid"
)

// Constants for random number generation.
const (
	randomFloatDivisor = 1000000
	tierDivisor        = 8
)

// Efficiency tiers, as [min, min+range).
const (
	casualMin   = 100
	casualRange = 900
	regularMin  = 1000
	regularSpan = 2000
	strongMin   = 3000
	strongRange = 2000
	eliteMin    = 5000
	eliteRange  = 1000
)

// getRandomFloat returns a random float64 between 0.0 and 1.0 using crypto/rand.
func getRandomFloat() float64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(randomFloatDivisor))
	return float64(n.Int64()) / float64(randomFloatDivisor)
}

func randomIndex(n int) int {
	if n <= 1 {
		return 0
	}
	v, _ := rand.Int(rand.Reader, big.NewInt(int64(n)))
	return int(v.Int64())
}

// Generate builds cfg.Submissions submissions spread over cfg.Players
// players and cfg.Modes. Every player appears at least once when there are
// at least as many submissions as players.
func Generate(cfg *Config) []Submission {
	players := make([]string, max(cfg.Players, 1))
	for i := range players {
		players[i] = "player-" + uuid.NewString()[:8] + "-" + strconv.Itoa(i)
	}

	subs := make([]Submission, cfg.Submissions)
	for i := range subs {
		name := players[i%len(players)]
		if i >= len(players) {
			name = players[randomIndex(len(players))]
		}
		subs[i] = generateSingle(cfg.Modes[randomIndex(len(cfg.Modes))], name)
	}
	return subs
}

// generateSingle creates one submission for name in mode.
func generateSingle(mode, name string) Submission {
	eff := generateEfficiency()
	return Submission{
		Mode:       mode,
		Name:       name,
		Score:      eff * int64(1+randomIndex(4)),
		Accuracy:   strconv.FormatFloat(50+getRandomFloat()*50, 'f', 1, 64) + "%",
		Efficiency: eff,
	}
}

// generateEfficiency draws from a skewed tier distribution; elite scores are rare.
func generateEfficiency() int64 {
	var lo, span float64
	switch randomIndex(tierDivisor) {
	case 0, 1, 2:
		lo, span = casualMin, casualRange
	case 3, 4, 5:
		lo, span = regularMin, regularSpan
	case 6:
		lo, span = strongMin, strongRange
	default:
		lo, span = eliteMin, eliteRange
	}
	return int64(lo + getRandomFloat()*span)
}
