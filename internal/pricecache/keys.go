package pricecache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"
)

const keyNamespace = "price"

// ErrNoPlanIDs is returned when key derivation is attempted with an empty
// plan id list. That is always a caller bug, never a cache state.
var ErrNoPlanIDs = errors.New("pricecache: plan id list must not be empty")

// GenerateKey derives the cache key for a tenant and a set of plan ids.
// The derivation is pure and order-independent: the ids are sorted before
// hashing, so [a,b] and [b,a] map to the same key. Duplicates are hashed
// as-is; callers own set semantics. Format: price:<tenantID>:<16 hex chars>.
func GenerateKey(tenantID string, planIDs []string) (string, error) {
	if len(planIDs) == 0 {
		return "", ErrNoPlanIDs
	}

	sorted := make([]string, len(planIDs))
	copy(sorted, planIDs)
	sort.Strings(sorted)

	sum := sha256.Sum256([]byte(strings.Join(sorted, ",")))
	digest := hex.EncodeToString(sum[:])[:16]

	return fmt.Sprintf("%s:%s:%s", keyNamespace, tenantID, digest), nil
}
