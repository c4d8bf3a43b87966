package cache

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Key joins parts into a namespaced cache key.
func Key(parts ...string) string {
	return strings.Join(parts, ":")
}

// HashKey produces a stable key from any JSON-encodable value. Struct fields
// encode in declaration order and map keys are sorted, so two semantically
// identical values always collide on the same key. Callers are responsible
// for normalizing the value first (sorting slices, canonicalizing strings).
func HashKey(prefix string, v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("cache: failed to encode key material: %w", err)
	}

	return prefix + ":" + strconv.FormatUint(xxhash.Sum64(data), 16), nil
}
