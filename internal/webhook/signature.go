package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Verify checks a Mailgun callback signature: the hex HMAC-SHA256 of
// timestamp||token keyed with the shared API key. The comparison is
// constant-time. Any empty input fails verification outright.
func Verify(apiKey, token, timestamp, signature string) bool {
	if apiKey == "" || token == "" || timestamp == "" || signature == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(apiKey))
	mac.Write([]byte(timestamp + token))
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}
