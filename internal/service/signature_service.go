package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// HMACSignatureService implements ports.SignatureService using HMAC-SHA256
// over raw request bytes. Gateways sign the body exactly as delivered, so
// payloads are never re-encoded before signing.
type HMACSignatureService struct{}

// NewHMACSignatureService creates a new HMAC-SHA256 signature service.
func NewHMACSignatureService() *HMACSignatureService {
	return &HMACSignatureService{}
}

// Sign returns the lowercase hex HMAC-SHA256 of payload under secret.
func (s *HMACSignatureService) Sign(secret string, payload []byte) string {
	return hex.EncodeToString(s.mac(secret, payload))
}

// Verify reports whether signature is the lowercase hex HMAC of payload.
// Any other encoding, including uppercase hex, is rejected.
func (s *HMACSignatureService) Verify(secret string, payload []byte, signature string) bool {
	if len(signature) != hex.EncodedLen(sha256.Size) || !isLowerHex(signature) {
		return false
	}
	got, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	return hmac.Equal(s.mac(secret, payload), got)
}

func (s *HMACSignatureService) mac(secret string, payload []byte) []byte {
	m := hmac.New(sha256.New, []byte(secret))
	m.Write(payload)
	return m.Sum(nil)
}

func isLowerHex(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
