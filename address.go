package factory

import (
	"crypto/sha256"
	"fmt"

	"filippo.io/edwards25519"
)

// FactoryStateSeed is the fixed label the factory record address derives from.
const FactoryStateSeed = "factory_state"

const (
	// MaxSeedLength bounds a single seed.
	MaxSeedLength = 32
	// MaxSeeds bounds the seed count, nonce byte excluded.
	MaxSeeds = 15

	addressMarker = "ProgramDerivedAddress"
)

// Address is a deterministically derived storage location together with the
// nonce that produced it.
type Address struct {
	Key   Identity
	Nonce uint8
}

// IsZero reports whether a is the zero Address.
func (a Address) IsZero() bool {
	return a.Key.IsUnset() && a.Nonce == 0
}

func (a Address) String() string {
	return fmt.Sprintf("%s#%d", a.Key, a.Nonce)
}

// DeriveAddress searches nonces from 255 down to 0 and returns the first
// candidate that is not a point on the ed25519 curve, so no private key can
// ever sign for it. The search is bounded to 256 attempts.
func DeriveAddress(programID Identity, seeds ...[]byte) (Address, error) {
	if err := checkSeeds(seeds); err != nil {
		return Address{}, err
	}
	for nonce := 255; nonce >= 0; nonce-- {
		key := hashAddress(programID, seeds, uint8(nonce))
		if !onCurve(key) {
			return Address{Key: key, Nonce: uint8(nonce)}, nil
		}
	}
	return Address{}, fmt.Errorf("%w: program %s", ErrAddressExhausted, programID)
}

// CreateAddress recomputes the address for a known nonce. It fails when the
// candidate lies on the curve.
func CreateAddress(programID Identity, nonce uint8, seeds ...[]byte) (Identity, error) {
	if err := checkSeeds(seeds); err != nil {
		return Identity{}, err
	}
	key := hashAddress(programID, seeds, nonce)
	if onCurve(key) {
		return Identity{}, fmt.Errorf("%w: nonce %d yields an on-curve key", ErrAddressMismatch, nonce)
	}
	return key, nil
}

// Verify confirms that the persisted nonce reproduces a.Key for the seeds.
func (a Address) Verify(programID Identity, seeds ...[]byte) error {
	key, err := CreateAddress(programID, a.Nonce, seeds...)
	if err != nil {
		return err
	}
	if key != a.Key {
		return fmt.Errorf("%w: nonce %d derives %s, expected %s", ErrAddressMismatch, a.Nonce, key, a.Key)
	}
	return nil
}

func hashAddress(programID Identity, seeds [][]byte, nonce uint8) Identity {
	h := sha256.New()
	for _, seed := range seeds {
		h.Write(seed)
	}
	h.Write([]byte{nonce})
	h.Write(programID[:])
	h.Write([]byte(addressMarker))
	var out Identity
	copy(out[:], h.Sum(nil))
	return out
}

func onCurve(key Identity) bool {
	_, err := new(edwards25519.Point).SetBytes(key[:])
	return err == nil
}

func checkSeeds(seeds [][]byte) error {
	if len(seeds) > MaxSeeds {
		return fmt.Errorf("factory: at most %d seeds allowed, got %d", MaxSeeds, len(seeds))
	}
	for i, seed := range seeds {
		if len(seed) > MaxSeedLength {
			return fmt.Errorf("factory: seed %d exceeds %d bytes", i, MaxSeedLength)
		}
	}
	return nil
}
