// Package nut13 implements deterministic derivation of secrets and
// blinding factors from a seed, so a wallet can be restored from its
// mnemonic alone. See https://github.com/cashubtc/nuts/blob/main/13.md
package nut13

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// DeriveKeysetPath derives the path m/129372'/0'/keyset_k_int' for a
// keyset id. The derivation is fixed by NUT-13 so that any wallet
// holding the seed regenerates the same secrets.
func DeriveKeysetPath(master *hdkeychain.ExtendedKey, keysetId string) (*hdkeychain.ExtendedKey, error) {
	keysetBytes, err := hex.DecodeString(keysetId)
	if err != nil {
		return nil, fmt.Errorf("invalid keyset id: %v", err)
	}
	if len(keysetBytes) < 8 {
		return nil, fmt.Errorf("invalid keyset id length: %v", len(keysetBytes))
	}
	bigEndianBytes := binary.BigEndian.Uint64(keysetBytes)
	keysetIdInt := bigEndianBytes % (1<<31 - 1)

	// m/129372'
	purpose, err := master.Derive(hdkeychain.HardenedKeyStart + 129372)
	if err != nil {
		return nil, err
	}

	// m/129372'/0'
	coinType, err := purpose.Derive(hdkeychain.HardenedKeyStart + 0)
	if err != nil {
		return nil, err
	}

	// m/129372'/0'/keyset_k_int'
	keysetPath, err := coinType.Derive(hdkeychain.HardenedKeyStart + uint32(keysetIdInt))
	if err != nil {
		return nil, err
	}

	return keysetPath, nil
}

// DeriveBlindingFactor derives r at
// m/129372'/0'/keyset_k_int'/counter'/1
func DeriveBlindingFactor(keysetPath *hdkeychain.ExtendedKey, counter uint32) (*secp256k1.PrivateKey, error) {
	counterPath, err := keysetPath.Derive(hdkeychain.HardenedKeyStart + counter)
	if err != nil {
		return nil, err
	}

	rDerivationPath, err := counterPath.Derive(1)
	if err != nil {
		return nil, err
	}

	rkey, err := rDerivationPath.ECPrivKey()
	if err != nil {
		return nil, err
	}

	return rkey, nil
}

// DeriveSecret derives the hex secret at
// m/129372'/0'/keyset_k_int'/counter'/0
func DeriveSecret(keysetPath *hdkeychain.ExtendedKey, counter uint32) (string, error) {
	counterPath, err := keysetPath.Derive(hdkeychain.HardenedKeyStart + counter)
	if err != nil {
		return "", err
	}

	secretDerivationPath, err := counterPath.Derive(0)
	if err != nil {
		return "", err
	}

	secretKey, err := secretDerivationPath.ECPrivKey()
	if err != nil {
		return "", err
	}

	secret := hex.EncodeToString(secretKey.Serialize())
	return secret, nil
}

// Derive returns the (secret, r) pair for a counter under a keyset
// path. For a fixed (seed, keysetId, counter) the output is identical
// across implementations.
func Derive(keysetPath *hdkeychain.ExtendedKey, counter uint32) (string, *secp256k1.PrivateKey, error) {
	secret, err := DeriveSecret(keysetPath, counter)
	if err != nil {
		return "", nil, err
	}
	r, err := DeriveBlindingFactor(keysetPath, counter)
	if err != nil {
		return "", nil, err
	}
	return secret, r, nil
}
