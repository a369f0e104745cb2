package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"
)

func hexHMAC(secret, payload []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyWhatsApp(t *testing.T) {
	secret := []byte("app-secret")
	body := []byte(`{"hello":"world"}`)
	header := "sha256=" + hexHMAC(secret, body)

	if !VerifyWhatsApp(secret, body, header) {
		t.Fatal("expected valid signature to verify")
	}
	if VerifyWhatsApp(secret, body, "sha256=deadbeef") {
		t.Fatal("expected mismatched signature to fail")
	}
	if VerifyWhatsApp(secret, body, hexHMAC(secret, body)) {
		t.Fatal("expected missing sha256= prefix to fail")
	}
}

func TestVerifyNextcloudTalk(t *testing.T) {
	secret := []byte("nc-secret")
	random := "r4nd0m"
	body := []byte(`{"type":"message"}`)
	header := hexHMAC(secret, append([]byte(random), body...))

	if !VerifyNextcloudTalk(secret, random, body, header) {
		t.Fatal("expected valid nextcloud-talk signature to verify")
	}
	if VerifyNextcloudTalk(secret, "other-random", body, header) {
		t.Fatal("expected wrong random to fail")
	}
}

func TestVerifyLinq(t *testing.T) {
	secret := []byte("linq-secret")
	timestamp := "1699999999"
	body := []byte(`{"msg":"hi"}`)
	header := hexHMAC(secret, append([]byte(timestamp), body...))

	if !VerifyLinq(secret, timestamp, body, header) {
		t.Fatal("expected valid linq signature to verify")
	}
	if VerifyLinq(secret, "1699999998", body, header) {
		t.Fatal("expected wrong timestamp to fail")
	}
}

func TestHashSecretTrims(t *testing.T) {
	if HashSecret("  abc  ") != HashSecret("abc") {
		t.Fatal("expected whitespace to be trimmed before hashing")
	}
}
