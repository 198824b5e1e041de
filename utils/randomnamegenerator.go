package utils

import (
	"math/rand"

	"github.com/Pallinder/go-randomdata"
)

// RandomNameGenerator yields unique names. The sequence is the same for
// the same seed.
type RandomNameGenerator struct {
	used map[string]struct{}
}

func NewRandomNameGenerator(seed int64) *RandomNameGenerator {
	randomdata.CustomRand(rand.New(rand.NewSource(seed)))
	return &RandomNameGenerator{used: make(map[string]struct{})}
}

func (rng *RandomNameGenerator) RandomName() string {
	for {
		name := randomdata.SillyName()
		// avoid duplicate names
		if _, exists := rng.used[name]; !exists {
			rng.used[name] = struct{}{}
			return name
		}
	}
}

// RandomFloat returns a value in [min, max) rounded to three decimals.
func (rng *RandomNameGenerator) RandomFloat(min, max float64) float64 {
	return randomdata.Decimal(int(min), int(max), 3)
}
