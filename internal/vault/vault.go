// Package vault seals host and carrier secrets at rest with AES-GCM.
package vault

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

const envelopePrefix = "wctpgw.secret.v1:"

// ErrDecrypt is returned for any secret that cannot be opened.
var ErrDecrypt = errors.New("vault: unable to decrypt secret")

// Decrypter is what the ingress and the workers need from the vault.
type Decrypter interface {
	Decrypt(secret string) (string, error)
}

type Option func(*Vault)

// Vault is stateless apart from its key.
type Vault struct {
	key     []byte
	keyID   string
	version int
}

type envelope struct {
	KeyID      string `json:"kid"`
	Version    int    `json:"ver"`
	Algorithm  string `json:"alg"`
	Nonce      string `json:"nonce"`
	Ciphertext string `json:"ciphertext"`
}

func WithKeyID(id string) Option {
	return func(v *Vault) {
		if trimmed := strings.TrimSpace(id); trimmed != "" {
			v.keyID = trimmed
		}
	}
}

func WithVersion(version int) Option {
	return func(v *Vault) {
		if version > 0 {
			v.version = version
		}
	}
}

func New(keyMaterial string, opts ...Option) (*Vault, error) {
	key := bytes.TrimSpace([]byte(keyMaterial))
	if len(key) == 0 {
		return nil, fmt.Errorf("vault: key material is required")
	}
	v := &Vault{
		key:     normalizeKey(key),
		keyID:   "app-key",
		version: 1,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(v)
		}
	}
	return v, nil
}

func (v *Vault) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", fmt.Errorf("vault: plaintext is required")
	}
	gcm, err := v.aead()
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("vault: nonce generation failed: %w", err)
	}

	sealed := gcm.Seal(nil, nonce, []byte(plaintext), nil)
	data, err := json.Marshal(envelope{
		KeyID:      v.keyID,
		Version:    v.version,
		Algorithm:  "aes-256-gcm",
		Nonce:      base64.StdEncoding.EncodeToString(nonce),
		Ciphertext: base64.StdEncoding.EncodeToString(sealed),
	})
	if err != nil {
		return "", fmt.Errorf("vault: encode envelope: %w", err)
	}

	return envelopePrefix + base64.RawURLEncoding.EncodeToString(data), nil
}

// Decrypt opens a sealed secret. Every failure wraps ErrDecrypt.
func (v *Vault) Decrypt(secret string) (string, error) {
	if v == nil {
		return "", fmt.Errorf("%w: vault is nil", ErrDecrypt)
	}
	payload, ok := strings.CutPrefix(strings.TrimSpace(secret), envelopePrefix)
	if !ok {
		return "", fmt.Errorf("%w: missing envelope prefix", ErrDecrypt)
	}
	raw, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return "", fmt.Errorf("%w: decode envelope: %v", ErrDecrypt, err)
	}

	var parsed envelope
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("%w: decode envelope: %v", ErrDecrypt, err)
	}
	if parsed.KeyID != "" && parsed.KeyID != v.keyID {
		return "", fmt.Errorf("%w: key id mismatch: got %q want %q", ErrDecrypt, parsed.KeyID, v.keyID)
	}
	if parsed.Version > 0 && parsed.Version != v.version {
		return "", fmt.Errorf("%w: key version mismatch: got %d want %d", ErrDecrypt, parsed.Version, v.version)
	}

	nonce, err := base64.StdEncoding.DecodeString(parsed.Nonce)
	if err != nil {
		return "", fmt.Errorf("%w: decode nonce: %v", ErrDecrypt, err)
	}
	sealed, err := base64.StdEncoding.DecodeString(parsed.Ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: decode ciphertext: %v", ErrDecrypt, err)
	}

	gcm, err := v.aead()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	if len(nonce) != gcm.NonceSize() {
		return "", fmt.Errorf("%w: bad nonce size", ErrDecrypt)
	}
	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("%w: open payload: %v", ErrDecrypt, err)
	}
	return string(plaintext), nil
}

func (v *Vault) aead() (cipher.AEAD, error) {
	block, err := aes.NewCipher(v.key)
	if err != nil {
		return nil, fmt.Errorf("vault: create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("vault: create gcm: %w", err)
	}
	return gcm, nil
}

func normalizeKey(value []byte) []byte {
	if len(value) == 32 {
		key := make([]byte, len(value))
		copy(key, value)
		return key
	}
	sum := sha256.Sum256(value)
	return sum[:]
}

var _ Decrypter = (*Vault)(nil)
