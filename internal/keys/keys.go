// Package keys derives journal addresses from private secrets.
//
// Access control is possession based: the public key is a one-way hash of the
// private key and doubles as the storage address. Nothing here encrypts content.
package keys

import (
	"crypto/sha1"
	"encoding/hex"

	"github.com/google/uuid"
)

// PublicKeyLen is the length of a hex encoded SHA-1 digest.
const PublicKeyLen = sha1.Size * 2

// KeyPair binds a private key to the public key derived from it.
type KeyPair struct {
	PrivateKey string
	PublicKey  string
}

// GeneratePrivateKey returns a fresh random secret (UUID v4).
func GeneratePrivateKey() string {
	return uuid.NewString()
}

// DerivePublicKey returns the hex SHA-1 of secret.
func DerivePublicKey(secret string) string {
	sum := sha1.Sum([]byte(secret))
	return hex.EncodeToString(sum[:])
}

// NewKeyPair mints a private key and derives its public key.
func NewKeyPair() KeyPair {
	secret := GeneratePrivateKey()
	return KeyPair{PrivateKey: secret, PublicKey: DerivePublicKey(secret)}
}

// Valid reports whether PublicKey is the address of PrivateKey.
func (k KeyPair) Valid() bool {
	return k.PrivateKey != "" && DerivePublicKey(k.PrivateKey) == k.PublicKey
}

// IsPublicKey reports whether s looks like a public key: 40 lowercase hex characters.
func IsPublicKey(s string) bool {
	if len(s) != PublicKeyLen {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
