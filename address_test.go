package factory

import (
	"bytes"
	"errors"
	"testing"
)

func TestDeriveAddressIsDeterministicAndOffCurve(t *testing.T) {
	program := newTestKey(t, 0x50).id
	seed := []byte(FactoryStateSeed)

	first, err := DeriveAddress(program, seed)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	second, err := DeriveAddress(program, seed)
	if err != nil {
		t.Fatalf("derive again: %v", err)
	}
	if first != second {
		t.Fatalf("expected identical addresses, got %s and %s", first, second)
	}
	if onCurve(first.Key) {
		t.Fatalf("derived key %s lies on the curve", first.Key)
	}
	if err := first.Verify(program, seed); err != nil {
		t.Fatalf("verify: %v", err)
	}

	// Every nonce above the winner must have been rejected as on-curve.
	for nonce := 255; nonce > int(first.Nonce); nonce-- {
		if !onCurve(hashAddress(program, [][]byte{seed}, uint8(nonce))) {
			t.Fatalf("nonce %d is off-curve but the search returned %d", nonce, first.Nonce)
		}
	}
}

func TestDeriveAddressDependsOnInputs(t *testing.T) {
	programA := newTestKey(t, 0x50).id
	programB := newTestKey(t, 0x51).id

	a, err := DeriveAddress(programA, []byte(FactoryStateSeed))
	if err != nil {
		t.Fatalf("derive a: %v", err)
	}
	b, err := DeriveAddress(programB, []byte(FactoryStateSeed))
	if err != nil {
		t.Fatalf("derive b: %v", err)
	}
	c, err := DeriveAddress(programA, []byte("other_state"))
	if err != nil {
		t.Fatalf("derive c: %v", err)
	}
	if a.Key == b.Key || a.Key == c.Key {
		t.Fatalf("expected distinct addresses: %s %s %s", a, b, c)
	}
}

func TestAddressVerifyRejectsWrongNonce(t *testing.T) {
	program := newTestKey(t, 0x50).id
	addr, err := DeriveAddress(program, []byte(FactoryStateSeed))
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	wrong := Address{Key: addr.Key, Nonce: addr.Nonce - 1}
	if err := wrong.Verify(program, []byte(FactoryStateSeed)); !errors.Is(err, ErrAddressMismatch) {
		t.Fatalf("expected ErrAddressMismatch, got %v", err)
	}
}

func TestCreateAddressMatchesDerivation(t *testing.T) {
	program := newTestKey(t, 0x50).id
	addr, err := DeriveAddress(program, []byte(FactoryStateSeed))
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	key, err := CreateAddress(program, addr.Nonce, []byte(FactoryStateSeed))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if key != addr.Key {
		t.Fatalf("expected %s, got %s", addr.Key, key)
	}
}

func TestSeedLimits(t *testing.T) {
	program := newTestKey(t, 0x50).id
	if _, err := DeriveAddress(program, bytes.Repeat([]byte{'x'}, MaxSeedLength+1)); err == nil {
		t.Fatalf("expected oversized seed to fail")
	}
	seeds := make([][]byte, MaxSeeds+1)
	for i := range seeds {
		seeds[i] = []byte{byte(i)}
	}
	if _, err := DeriveAddress(program, seeds...); err == nil {
		t.Fatalf("expected too many seeds to fail")
	}
	if _, err := DeriveAddress(program, seeds[:MaxSeeds]...); err != nil {
		t.Fatalf("expected %d seeds to pass, got %v", MaxSeeds, err)
	}
}

func TestAddressZeroAndString(t *testing.T) {
	if !(Address{}).IsZero() {
		t.Fatalf("expected zero address")
	}
	addr := Address{Key: Identity{1}, Nonce: 254}
	if addr.IsZero() {
		t.Fatalf("expected non-zero address")
	}
	if got, want := addr.String(), addr.Key.String()+"#254"; got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}
