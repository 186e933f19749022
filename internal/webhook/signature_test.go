package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
)

func sign(apiKey, timestamp, token string) string {
	mac := hmac.New(sha256.New, []byte(apiKey))
	mac.Write([]byte(timestamp + token))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyAcceptsCorrectSignature(t *testing.T) {
	apiKey := "key-abc123"
	token := "t0k3n"
	timestamp := "1696000000"

	signature := sign(apiKey, timestamp, token)

	assert.True(t, Verify(apiKey, token, timestamp, signature))
}

func TestVerifyRejectsTamperedSignature(t *testing.T) {
	apiKey := "key-abc123"
	token := "t0k3n"
	timestamp := "1696000000"

	signature := sign(apiKey, timestamp, token)

	// Flip one hex character.
	tampered := []byte(signature)
	if tampered[0] == 'a' {
		tampered[0] = 'b'
	} else {
		tampered[0] = 'a'
	}

	assert.False(t, Verify(apiKey, token, timestamp, string(tampered)))
}

func TestVerifyRejectsWrongKey(t *testing.T) {
	signature := sign("right-key", "123", "t")

	assert.False(t, Verify("wrong-key", "t", "123", signature))
}

func TestVerifyRejectsMissingInputs(t *testing.T) {
	signature := sign("key", "123", "t")

	assert.False(t, Verify("key", "", "123", signature), "missing token")
	assert.False(t, Verify("key", "t", "", signature), "missing timestamp")
	assert.False(t, Verify("key", "t", "123", ""), "missing signature")
	assert.False(t, Verify("", "t", "123", signature), "missing key")
}

func TestVerifyMatchesScenarioFromProvider(t *testing.T) {
	// recipient a@b.com, token "t", timestamp "123": message is "123t"
	signature := sign("secret", "123", "t")

	assert.True(t, Verify("secret", "t", "123", signature))
}
