package service

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math"

	"palmpay/pkg/apperror"
)

const (
	vaultBlobVersion byte = 1
	vaultKeySize          = 32 // AES-256
	vectorCountSize       = 4  // uint32 element count
	vectorElemSize        = 8  // float64
)

// AESEmbeddingVault implements ports.EmbeddingVault using AES-256-GCM.
//
// Blob layout: version(1) | nonce(12) | ciphertext | tag(16).
// Plaintext layout: count(uint32 BE) | count * float64 (IEEE-754, LE).
type AESEmbeddingVault struct {
	aead cipher.AEAD
}

// NewAESEmbeddingVault creates the vault from a 32-byte secret encoded as
// 64 hex characters or as base64. Any other size is rejected.
func NewAESEmbeddingVault(encodedKey string) (*AESEmbeddingVault, error) {
	key, err := decodeVaultKey(encodedKey)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("creating GCM: %w", err)
	}
	return &AESEmbeddingVault{aead: aead}, nil
}

func decodeVaultKey(encoded string) ([]byte, error) {
	if encoded == "" {
		return nil, errors.New("vault key is empty")
	}
	if len(encoded) == hex.EncodedLen(vaultKeySize) {
		if key, err := hex.DecodeString(encoded); err == nil {
			return key, nil
		}
	}
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("vault key must be 64 hex chars or base64: %w", err)
	}
	if len(key) != vaultKeySize {
		return nil, fmt.Errorf("vault key must be %d bytes, got %d", vaultKeySize, len(key))
	}
	return key, nil
}

// Encrypt seals the vector under a fresh random nonce.
func (v *AESEmbeddingVault) Encrypt(vector []float64) ([]byte, error) {
	if len(vector) == 0 {
		return nil, errors.New("cannot encrypt an empty vector")
	}

	plaintext := make([]byte, vectorCountSize+vectorElemSize*len(vector))
	binary.BigEndian.PutUint32(plaintext, uint32(len(vector)))
	for i, f := range vector {
		binary.LittleEndian.PutUint64(plaintext[vectorCountSize+i*vectorElemSize:], math.Float64bits(f))
	}

	nonceSize := v.aead.NonceSize()
	blob := make([]byte, 1+nonceSize, 1+nonceSize+len(plaintext)+v.aead.Overhead())
	blob[0] = vaultBlobVersion
	nonce := blob[1 : 1+nonceSize]
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("generating nonce: %w", err)
	}

	return v.aead.Seal(blob, nonce, plaintext, []byte{vaultBlobVersion}), nil
}

// Decrypt opens a blob produced by Encrypt. Any failure (wrong key, tampering,
// truncation, unknown version or malformed plaintext) is an integrity error
// and no partial vector is returned.
func (v *AESEmbeddingVault) Decrypt(blob []byte) ([]float64, error) {
	nonceSize := v.aead.NonceSize()
	if len(blob) < 1+nonceSize+v.aead.Overhead() {
		return nil, apperror.ErrIntegrity(errors.New("ciphertext too short"))
	}
	if blob[0] != vaultBlobVersion {
		return nil, apperror.ErrIntegrity(fmt.Errorf("unknown blob version %d", blob[0]))
	}

	nonce, sealed := blob[1:1+nonceSize], blob[1+nonceSize:]
	plaintext, err := v.aead.Open(nil, nonce, sealed, []byte{vaultBlobVersion})
	if err != nil {
		return nil, apperror.ErrIntegrity(fmt.Errorf("decrypting: %w", err))
	}

	if len(plaintext) < vectorCountSize {
		return nil, apperror.ErrIntegrity(errors.New("plaintext missing length prefix"))
	}
	n := int(binary.BigEndian.Uint32(plaintext))
	if n == 0 || len(plaintext) != vectorCountSize+n*vectorElemSize {
		return nil, apperror.ErrIntegrity(fmt.Errorf("plaintext length %d does not hold %d elements", len(plaintext), n))
	}

	vector := make([]float64, n)
	for i := range vector {
		vector[i] = math.Float64frombits(binary.LittleEndian.Uint64(plaintext[vectorCountSize+i*vectorElemSize:]))
	}
	return vector, nil
}
