package line

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
)

// SignatureHeader carries the webhook body signature
const SignatureHeader = "X-Line-Signature"

var (
	// ErrMissingSignature is returned when the signature header is absent
	ErrMissingSignature = errors.New("missing webhook signature")

	// ErrInvalidSignature is returned when the signature does not match the body
	ErrInvalidSignature = errors.New("invalid webhook signature")

	// ErrMissingChannelSecret is returned when no channel secret is configured
	ErrMissingChannelSecret = errors.New("channel secret not configured")
)

// Sign returns base64(HMAC-SHA256(channelSecret, body))
func Sign(channelSecret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(channelSecret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks the webhook signature in constant time.
// Every body is rejected while the channel secret is empty.
func VerifySignature(channelSecret string, body []byte, signature string) error {
	if channelSecret == "" {
		return ErrMissingChannelSecret
	}
	if signature == "" {
		return ErrMissingSignature
	}
	decoded, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return ErrInvalidSignature
	}

	mac := hmac.New(sha256.New, []byte(channelSecret))
	mac.Write(body)
	if !hmac.Equal(decoded, mac.Sum(nil)) {
		return ErrInvalidSignature
	}
	return nil
}
