// Package signature verifies the HMAC-SHA256 signatures attached to
// inbound webhook deliveries from each supported channel. Every channel
// composes its signed payload slightly differently, so each gets its own
// verify function rather than one generic one.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

const whatsappPrefix = "sha256="

// VerifyWhatsApp checks a Meta/WhatsApp-style X-Hub-Signature-256 header
// against HMAC-SHA256(appSecret, body). The header must carry the
// "sha256=" prefix.
func VerifyWhatsApp(appSecret, body []byte, header string) bool {
	hexDigest, ok := strings.CutPrefix(header, whatsappPrefix)
	if !ok {
		return false
	}
	return verifyHexMAC(appSecret, body, hexDigest)
}

// VerifyNextcloudTalk checks an X-Nextcloud-Talk-Signature header against
// HMAC-SHA256(secret, random+body), where random is the accompanying
// X-Nextcloud-Talk-Random header value. No "sha256=" prefix is used.
func VerifyNextcloudTalk(secret []byte, random string, body []byte, header string) bool {
	payload := append([]byte(random), body...)
	return verifyHexMAC(secret, payload, header)
}

// VerifyLinq checks an X-Webhook-Signature header against
// HMAC-SHA256(secret, timestamp+body), where timestamp is the
// accompanying X-Webhook-Timestamp header value. No prefix is used.
func VerifyLinq(secret []byte, timestamp string, body []byte, header string) bool {
	if timestamp == "" {
		return false
	}
	payload := append([]byte(timestamp), body...)
	return verifyHexMAC(secret, payload, header)
}

func verifyHexMAC(secret, payload []byte, hexDigest string) bool {
	expected, err := hex.DecodeString(hexDigest)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, secret)
	mac.Write(payload)
	return hmac.Equal(mac.Sum(nil), expected)
}

// HashSecret returns the SHA-256 hex digest of a trimmed shared secret, so
// it can be compared and stored without ever holding the plaintext value.
func HashSecret(secret string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(secret)))
	return hex.EncodeToString(sum[:])
}

// ConstantTimeEqual compares two strings without leaking timing
// information about where they first differ.
func ConstantTimeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
