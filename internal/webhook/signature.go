package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const signaturePrefix = "sha256="

// GenerateSignedPayload serializes event and signs it with HMAC-SHA256.
// Returns the JSON payload, the signature header value and the signing timestamp.
func GenerateSignedPayload(secret string, event WebhookEvent, now time.Time) (payload []byte, signature string, timestamp int64, err error) {
	payload, err = json.Marshal(event)
	if err != nil {
		return nil, "", 0, fmt.Errorf("failed to marshal event: %w", err)
	}

	timestamp = now.Unix()
	return payload, Sign(secret, timestamp, event.EventID, payload), timestamp, nil
}

// Sign computes the signature header value over "{timestamp}.{event_id}.{body}"
func Sign(secret string, timestamp int64, eventID string, payload []byte) string {
	h := hmac.New(sha256.New, []byte(secret))
	_, _ = fmt.Fprintf(h, "%d.%s.", timestamp, eventID)
	h.Write(payload)
	return signaturePrefix + hex.EncodeToString(h.Sum(nil))
}

// VerifySignature checks a received signature header in constant time
func VerifySignature(secret string, signature string, timestamp int64, eventID string, payload []byte) bool {
	if !strings.HasPrefix(signature, signaturePrefix) {
		return false
	}
	expected := Sign(secret, timestamp, eventID, payload)
	return hmac.Equal([]byte(expected), []byte(signature))
}
