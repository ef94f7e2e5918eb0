package factory

import (
	"crypto/ed25519"
	"fmt"

	"github.com/mr-tron/base58"
)

// IdentitySize is the width in bytes of an encoded Identity.
const IdentitySize = 32

// Identity is a cryptographic public identity (an ed25519 public key). Its
// text form is base58.
type Identity [IdentitySize]byte

// Unset is the sentinel identity used for fields that have not been
// configured yet, such as FeeRecipient right after initialization.
var Unset Identity

// ParseIdentity decodes a base58 identity.
func ParseIdentity(value string) (Identity, error) {
	var id Identity
	raw, err := base58.Decode(value)
	if err != nil {
		return id, fmt.Errorf("factory: parse identity %q: %w", value, err)
	}
	if len(raw) != IdentitySize {
		return id, fmt.Errorf("factory: parse identity %q: expected %d bytes, got %d", value, IdentitySize, len(raw))
	}
	copy(id[:], raw)
	return id, nil
}

// MustParseIdentity is ParseIdentity for constants and tests.
func MustParseIdentity(value string) Identity {
	id, err := ParseIdentity(value)
	if err != nil {
		panic(err)
	}
	return id
}

// IdentityFromPublicKey converts an ed25519 public key.
func IdentityFromPublicKey(key ed25519.PublicKey) (Identity, error) {
	var id Identity
	if len(key) != ed25519.PublicKeySize {
		return id, fmt.Errorf("factory: public key must be %d bytes, got %d", ed25519.PublicKeySize, len(key))
	}
	copy(id[:], key)
	return id, nil
}

// PublicKey returns the identity as an ed25519 public key.
func (id Identity) PublicKey() ed25519.PublicKey {
	out := make(ed25519.PublicKey, IdentitySize)
	copy(out, id[:])
	return out
}

// IsUnset reports whether id is the Unset sentinel.
func (id Identity) IsUnset() bool {
	return id == Unset
}

func (id Identity) String() string {
	return base58.Encode(id[:])
}

// MarshalText implements encoding.TextMarshaler.
func (id Identity) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *Identity) UnmarshalText(text []byte) error {
	parsed, err := ParseIdentity(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
