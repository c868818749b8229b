package common

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
	"github.com/ternarybob/taberna/internal/models"
)

// NewDocumentID derives a deterministic document ID from the identity of a
// chunk. Re-indexing the same source record yields the same IDs, so upserts
// overwrite instead of duplicating.
// Format: doc_<first 24 hex chars of sha256(storeID|dataType|sourceID|chunkIndex)>
func NewDocumentID(storeID string, dataType models.DataType, sourceID string, chunkIndex int) string {
	sum := sha256.Sum256(fmt.Appendf(nil, "%s|%s|%s|%d", storeID, dataType, sourceID, chunkIndex))
	return "doc_" + hex.EncodeToString(sum[:])[:24]
}

// NewJobNonce returns the short submission nonce appended to job IDs so
// independent submissions of the same (type, store) pair stay distinguishable
// from retries.
func NewJobNonce() string {
	return uuid.New().String()[:8]
}
