package idempotency

import (
	"crypto/sha256"
	"encoding/hex"
)

// MessageKey identifies one inbound message from one identity. Channels reuse
// message ids across chats, so the identity is part of the key.
func MessageKey(identity, messageID string) string {
	sum := sha256.Sum256([]byte(identity + "\x00" + messageID))
	return "inbound:" + hex.EncodeToString(sum[:])
}
