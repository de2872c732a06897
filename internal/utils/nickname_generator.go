package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

var adjectives = []string{
	"Quantum", "Cosmic", "Stellar", "Lunar", "Solar",
	"Astral", "Nebular", "Orbital", "Temporal", "Eternal",
	"Radiant", "Crimson", "Azure", "Obsidian", "Golden",
	"Silent", "Swift", "Bold", "Arcane", "Prime",
}

var nouns = []string{
	"Oracle", "Voyager", "Pioneer", "Prophet", "Seeker",
	"Trader", "Pilot", "Nomad", "Sentinel", "Herald",
	"Comet", "Pulsar", "Quasar", "Nova", "Horizon",
	"Vector", "Cipher", "Beacon", "Drifter", "Warden",
}

// GenerateNickname creates a random nickname in the format "Adjective_Noun_XXXX"
// where XXXX is a random 4-digit number
func GenerateNickname() (string, error) {
	adjIdx, err := rand.Int(rand.Reader, big.NewInt(int64(len(adjectives))))
	if err != nil {
		return "", fmt.Errorf("failed to generate random adjective: %w", err)
	}

	nounIdx, err := rand.Int(rand.Reader, big.NewInt(int64(len(nouns))))
	if err != nil {
		return "", fmt.Errorf("failed to generate random noun: %w", err)
	}

	suffix, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		return "", fmt.Errorf("failed to generate random suffix: %w", err)
	}

	nickname := fmt.Sprintf("%s_%s_%04d",
		adjectives[adjIdx.Int64()],
		nouns[nounIdx.Int64()],
		suffix.Int64(),
	)

	return nickname, nil
}
