// Package wallet implements the wallet-side operations around the
// BDHKE core: keyset tracking, blind message assembly, proof
// construction and lifecycle, amount selection and restore scanning.
// It performs no network calls; callers feed it mint responses.
package wallet

import (
	"errors"
	"fmt"
	"sync"

	"github.com/SparrowTek/CoreCashu-sub005/crypto"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

var (
	ErrUnknownKeyset    = errors.New("unknown keyset")
	ErrKeysetIdMismatch = errors.New("keyset id does not match its keys")
	ErrImmutableKeyset  = errors.New("keyset id already registered with different keys")
	ErrNoActiveKeyset   = errors.New("no active keyset")
)

// KeysetManager tracks the keysets a wallet has seen. Registration
// recomputes the keyset id from the keys so a substituted key is
// caught before any proof references it. Safe for concurrent use.
type KeysetManager struct {
	mu       sync.RWMutex
	keysets  map[string]crypto.WalletKeyset
	activeId string
}

func NewKeysetManager() *KeysetManager {
	return &KeysetManager{keysets: make(map[string]crypto.WalletKeyset)}
}

// Register adds a keyset after verifying that its id matches its
// keys. Registering the same keyset twice is a no-op; registering a
// different set of keys under a known id is rejected, since keysets
// are immutable once published. A keyset marked active replaces the
// previous active one; re-registering the active keyset as inactive
// retires it, leaving no active keyset until a new one arrives.
func (km *KeysetManager) Register(keyset crypto.WalletKeyset) error {
	derivedId := crypto.DeriveKeysetId(keyset.PublicKeys)
	if derivedId != keyset.Id {
		return fmt.Errorf("%w: derived '%v' for keyset '%v'", ErrKeysetIdMismatch, derivedId, keyset.Id)
	}

	km.mu.Lock()
	defer km.mu.Unlock()

	if existing, ok := km.keysets[keyset.Id]; ok {
		if existing.MintURL != keyset.MintURL || existing.Unit != keyset.Unit ||
			existing.InputFeePpk != keyset.InputFeePpk ||
			!samePublicKeys(existing.PublicKeys, keyset.PublicKeys) {
			return fmt.Errorf("%w: %v", ErrImmutableKeyset, keyset.Id)
		}
	}

	km.keysets[keyset.Id] = keyset
	if keyset.Active {
		if km.activeId != "" && km.activeId != keyset.Id {
			previous := km.keysets[km.activeId]
			previous.Active = false
			km.keysets[km.activeId] = previous
		}
		km.activeId = keyset.Id
	} else if km.activeId == keyset.Id {
		// the active keyset was retired
		km.activeId = ""
	}
	return nil
}

// Resolve returns the keyset with the given id.
func (km *KeysetManager) Resolve(id string) (crypto.WalletKeyset, error) {
	km.mu.RLock()
	defer km.mu.RUnlock()

	keyset, ok := km.keysets[id]
	if !ok {
		return crypto.WalletKeyset{}, fmt.Errorf("%w: %v", ErrUnknownKeyset, id)
	}
	return keyset, nil
}

// ActiveKeyset returns the keyset new outputs should be built for.
func (km *KeysetManager) ActiveKeyset() (crypto.WalletKeyset, error) {
	km.mu.RLock()
	defer km.mu.RUnlock()

	if km.activeId == "" {
		return crypto.WalletKeyset{}, ErrNoActiveKeyset
	}
	return km.keysets[km.activeId], nil
}

// Keysets returns all registered keysets.
func (km *KeysetManager) Keysets() []crypto.WalletKeyset {
	km.mu.RLock()
	defer km.mu.RUnlock()

	keysets := make([]crypto.WalletKeyset, 0, len(km.keysets))
	for _, keyset := range km.keysets {
		keysets = append(keysets, keyset)
	}
	return keysets
}

// SetCounter records the derivation counter for a keyset, keeping the
// highest value seen so restored wallets never reuse a counter.
func (km *KeysetManager) SetCounter(id string, counter uint32) error {
	km.mu.Lock()
	defer km.mu.Unlock()

	keyset, ok := km.keysets[id]
	if !ok {
		return fmt.Errorf("%w: %v", ErrUnknownKeyset, id)
	}
	if counter > keyset.Counter {
		keyset.Counter = counter
		km.keysets[id] = keyset
	}
	return nil
}

func samePublicKeys(a, b map[uint64]*secp256k1.PublicKey) bool {
	if len(a) != len(b) {
		return false
	}
	for amount, key := range a {
		other, ok := b[amount]
		if !ok || !key.IsEqual(other) {
			return false
		}
	}
	return true
}
