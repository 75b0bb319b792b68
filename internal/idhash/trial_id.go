package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeTrialID computes a deterministic trial_id using SHA256.
// Formula: SHA256(run_id|task|index)
// Returns hex-encoded hash (64 characters).
func ComputeTrialID(
	runID string,
	task string,
	index int,
) string {
	data := fmt.Sprintf("%s|%s|%d",
		runID,
		task,
		index,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
