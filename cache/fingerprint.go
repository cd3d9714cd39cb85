package cache

import (
	"encoding/hex"

	"github.com/go-crypt/x/blake2b"
)

// Fingerprint derives the deterministic cache key for a (chunk, schema)
// pair using BLAKE2b-256. A collision would serve a wrong cached result,
// so a cryptographic hash keeps that probability negligible. The schema
// identity must itself be stable; the prompt builder guarantees this.
func Fingerprint(chunkText, schemaID string) string {
	h, _ := blake2b.New(32, nil)
	h.Write([]byte(chunkText))
	h.Write([]byte{0})
	h.Write([]byte(schemaID))
	return hex.EncodeToString(h.Sum(nil))
}
