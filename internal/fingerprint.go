package internal

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint hashes the current message text and the ordered (direction, text)
// pairs of its context into the key used for caching and coalescing.
func Fingerprint(current Message, contextWindow []Message) string {
	h := sha256.New()

	h.Write([]byte(current.Text))
	for _, msg := range contextWindow {
		h.Write([]byte{0})
		h.Write([]byte(msg.Direction))
		h.Write([]byte{0})
		h.Write([]byte(msg.Text))
	}

	return hex.EncodeToString(h.Sum(nil))
}
