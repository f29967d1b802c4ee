package crypto

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// number of power-of-two denominations in a keyset
const MaxOrder = 64

type KeyPair struct {
	PrivateKey *secp256k1.PrivateKey
	PublicKey  *secp256k1.PublicKey
}

// MintKeyset holds the mint-side key material, one key pair per
// power-of-two amount.
type MintKeyset struct {
	Id                string
	Unit              string
	Active            bool
	DerivationPathIdx uint32
	Keys              map[uint64]KeyPair
	InputFeePpk       uint
}

// WalletKeyset is the wallet-side view of a mint keyset: public keys
// only, plus the counter used for deterministic secret derivation.
type WalletKeyset struct {
	Id          string
	MintURL     string
	Unit        string
	Active      bool
	PublicKeys  map[uint64]*secp256k1.PublicKey
	Counter     uint32
	InputFeePpk uint
}

type walletKeysetJSON struct {
	Id          string            `json:"id"`
	MintURL     string            `json:"mint_url"`
	Unit        string            `json:"unit"`
	Active      bool              `json:"active"`
	PublicKeys  map[uint64]string `json:"public_keys"`
	Counter     uint32            `json:"counter"`
	InputFeePpk uint              `json:"input_fee_ppk"`
}

func (wk *WalletKeyset) MarshalJSON() ([]byte, error) {
	publicKeys := make(map[uint64]string, len(wk.PublicKeys))
	for amount, key := range wk.PublicKeys {
		publicKeys[amount] = hex.EncodeToString(key.SerializeCompressed())
	}
	return json.Marshal(walletKeysetJSON{
		Id:          wk.Id,
		MintURL:     wk.MintURL,
		Unit:        wk.Unit,
		Active:      wk.Active,
		PublicKeys:  publicKeys,
		Counter:     wk.Counter,
		InputFeePpk: wk.InputFeePpk,
	})
}

func (wk *WalletKeyset) UnmarshalJSON(data []byte) error {
	var temp walletKeysetJSON
	if err := json.Unmarshal(data, &temp); err != nil {
		return err
	}

	publicKeys, err := MapPubKeys(temp.PublicKeys)
	if err != nil {
		return err
	}

	wk.Id = temp.Id
	wk.MintURL = temp.MintURL
	wk.Unit = temp.Unit
	wk.Active = temp.Active
	wk.PublicKeys = publicKeys
	wk.Counter = temp.Counter
	wk.InputFeePpk = temp.InputFeePpk
	return nil
}

// DeriveKeysetPath derives the path m/0'/0'/idx' from which a
// keyset's per-amount keys are derived.
func DeriveKeysetPath(key *hdkeychain.ExtendedKey, idx uint32) (*hdkeychain.ExtendedKey, error) {
	// m/0'
	child, err := key.Derive(hdkeychain.HardenedKeyStart + 0)
	if err != nil {
		return nil, err
	}

	// m/0'/0'
	unitPath, err := child.Derive(hdkeychain.HardenedKeyStart + 0)
	if err != nil {
		return nil, err
	}

	// m/0'/0'/idx'
	keysetPath, err := unitPath.Derive(hdkeychain.HardenedKeyStart + idx)
	if err != nil {
		return nil, err
	}

	return keysetPath, nil
}

// GenerateKeyset derives a new mint keyset from the master key at the
// given derivation path index.
func GenerateKeyset(master *hdkeychain.ExtendedKey, idx uint32, inputFeePpk uint) (*MintKeyset, error) {
	keys := make(map[uint64]KeyPair, MaxOrder)

	keysetPath, err := DeriveKeysetPath(master, idx)
	if err != nil {
		return nil, err
	}

	for i := 0; i < MaxOrder; i++ {
		amount := uint64(1) << i
		amountPath, err := keysetPath.Derive(uint32(i))
		if err != nil {
			return nil, err
		}
		privKey, err := amountPath.ECPrivKey()
		if err != nil {
			return nil, err
		}
		keys[amount] = KeyPair{PrivateKey: privKey, PublicKey: privKey.PubKey()}
	}

	keyset := &MintKeyset{
		Unit:              "sat",
		Active:            true,
		DerivationPathIdx: idx,
		Keys:              keys,
		InputFeePpk:       inputFeePpk,
	}
	keyset.Id = DeriveKeysetId(keyset.PublicKeys())
	return keyset, nil
}

// PublicKeys returns the public part of the keyset.
func (ks *MintKeyset) PublicKeys() map[uint64]*secp256k1.PublicKey {
	pubkeys := make(map[uint64]*secp256k1.PublicKey, len(ks.Keys))
	for amount, key := range ks.Keys {
		pubkeys[amount] = key.PublicKey
	}
	return pubkeys
}

// DeriveKeysetId derives the keyset id from the public keys: version
// byte "00" followed by the first 14 hex chars of the hash of the
// compressed public keys concatenated in ascending amount order.
// Recomputing this id is what lets a wallet detect substituted keys.
func DeriveKeysetId(keys map[uint64]*secp256k1.PublicKey) string {
	amounts := make([]uint64, 0, len(keys))
	for amount := range keys {
		amounts = append(amounts, amount)
	}
	slices.Sort(amounts)

	pubkeys := make([]byte, 0, len(keys)*33)
	for _, amount := range amounts {
		pubkeys = append(pubkeys, keys[amount].SerializeCompressed()...)
	}
	hash := sha256.Sum256(pubkeys)

	return "00" + hex.EncodeToString(hash[:])[:14]
}

// MapPubKeys parses a map of hex public keys as received from a mint.
func MapPubKeys(keys map[uint64]string) (map[uint64]*secp256k1.PublicKey, error) {
	parsedKeys := make(map[uint64]*secp256k1.PublicKey, len(keys))
	for amount, key := range keys {
		pkbytes, err := hex.DecodeString(key)
		if err != nil {
			return nil, fmt.Errorf("invalid public key for amount %v: %v", amount, err)
		}
		pubkey, err := secp256k1.ParsePubKey(pkbytes)
		if err != nil {
			return nil, fmt.Errorf("invalid public key for amount %v: %v", amount, err)
		}
		parsedKeys[amount] = pubkey
	}
	return parsedKeys, nil
}
