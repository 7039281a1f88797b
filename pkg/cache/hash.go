package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/regraft/regraft/pkg/graph"
	"github.com/regraft/regraft/pkg/homomorphism"
)

// hashKey generates a cache key by hashing the components.
// The key format is: prefix:hash(parts...)
func hashKey(prefix string, parts ...interface{}) string {
	data, _ := json.Marshal(parts)
	hash := sha256.Sum256(data)
	return fmt.Sprintf("%s:%s", prefix, hex.EncodeToString(hash[:]))
}

// Hash computes a SHA-256 hash of the input data.
// Returns the full 64-character hex string.
func Hash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// GraphHash computes a content hash of a graph. Two graphs that are Equal
// produce the same hash: the JSON form sorts nodes, edges and attribute
// values, and json.Marshal emits map keys in sorted order.
func GraphHash(g *graph.Graph) string {
	data, err := graph.Marshal(g)
	if err != nil {
		// Marshal only fails on unencodable values, which the graph
		// model cannot contain.
		return hashKey("graph-err", err.Error())
	}
	return Hash(data)
}

// TypingHash computes a content hash of a set of typing constraints.
// The map is serialized with sorted target keys for determinism.
func TypingHash(typing map[string]homomorphism.Mapping) string {
	targets := make([]string, 0, len(typing))
	for id := range typing {
		targets = append(targets, id)
	}
	sort.Strings(targets)

	parts := make([]interface{}, 0, 2*len(targets))
	for _, id := range targets {
		parts = append(parts, id, typing[id])
	}
	data, _ := json.Marshal(parts)
	return Hash(data)
}
