package idhash

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
)

// ComputePredictionID computes a deterministic prediction_id using SHA256.
// Formula: SHA256(fixture_id|generated_at|winner_model_id|score_model_id)
// Returns hex-encoded hash (64 characters).
func ComputePredictionID(
	fixtureID string,
	generatedAt string,
	winnerModelID string,
	scoreModelID string,
) string {
	data := fmt.Sprintf("%s|%s|%s|%s",
		fixtureID,
		generatedAt,
		winnerModelID,
		scoreModelID,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// FixtureSeed derives a stable random seed from a fixture and its players,
// so neutral default predictions repeat across runs.
func FixtureSeed(fixtureID, homeID, awayID string) int64 {
	hash := sha256.Sum256([]byte(fixtureID + "|" + homeID + "|" + awayID))
	return int64(binary.BigEndian.Uint64(hash[:8]) >> 1)
}
