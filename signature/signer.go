// Package signature provides optional HMAC-SHA256 signing of outbound sync
// payloads and the matching receiver-side verification.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Header names set on signed deliveries.
const (
	HeaderSignature = "X-Usersync-Signature"
	HeaderTimestamp = "X-Usersync-Timestamp"
)

// Sign generates the HMAC-SHA256 signature for the given body.
// The content to sign is "{timestamp}.{body}".
// Returns a versioned signature in the format "v1=<hex>".
func Sign(body []byte, secret string, timestamp int64) string {
	content := fmt.Sprintf("%d.%s", timestamp, body)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(content))
	return "v1=" + hex.EncodeToString(mac.Sum(nil))
}
