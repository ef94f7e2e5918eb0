package main

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"os"
	"path/filepath"

	factory "github.com/goliatone/go-factory"
	"github.com/mr-tron/base58"
	"gopkg.in/yaml.v3"
)

// keyFile is the on-disk operator key. Seed is the base58 ed25519 seed.
type keyFile struct {
	Identity factory.Identity `yaml:"identity"`
	Seed     string           `yaml:"seed"`
}

func generateKey(path string) (factory.Identity, error) {
	_, private, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return factory.Identity{}, fmt.Errorf("generate key: %w", err)
	}
	id, err := factory.IdentityFromPublicKey(private.Public().(ed25519.PublicKey))
	if err != nil {
		return factory.Identity{}, err
	}
	data, err := yaml.Marshal(keyFile{Identity: id, Seed: base58.Encode(private.Seed())})
	if err != nil {
		return factory.Identity{}, fmt.Errorf("marshal key: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return factory.Identity{}, fmt.Errorf("create key directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return factory.Identity{}, fmt.Errorf("write key: %w", err)
	}
	return id, nil
}

func loadKey(path string) (ed25519.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read key: %w", err)
	}
	var kf keyFile
	if err := yaml.Unmarshal(data, &kf); err != nil {
		return nil, fmt.Errorf("parse key %s: %w", path, err)
	}
	seed, err := base58.Decode(kf.Seed)
	if err != nil || len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("parse key %s: seed must be %d base58 bytes", path, ed25519.SeedSize)
	}
	private := ed25519.NewKeyFromSeed(seed)
	id, err := factory.IdentityFromPublicKey(private.Public().(ed25519.PublicKey))
	if err != nil {
		return nil, err
	}
	if !kf.Identity.IsUnset() && kf.Identity != id {
		return nil, fmt.Errorf("parse key %s: identity %s does not match seed", path, kf.Identity)
	}
	return private, nil
}
