// Package testutils holds helpers shared by tests, chiefly an
// in-process mint that signs blinded messages with a real keyset.
package testutils

import (
	"encoding/hex"
	"fmt"

	"github.com/SparrowTek/CoreCashu-sub005/cashu"
	"github.com/SparrowTek/CoreCashu-sub005/crypto"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// TestMint holds a mint keyset and signs blinded messages with it,
// standing in for a real mint in tests. It tracks the secrets it has
// seen so double spends are caught.
type TestMint struct {
	Keyset *crypto.MintKeyset
	spent  map[string]bool
}

func NewTestMint() (*TestMint, error) {
	seed, err := hdkeychain.GenerateSeed(hdkeychain.RecommendedSeedLen)
	if err != nil {
		return nil, err
	}
	master, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		return nil, err
	}
	keyset, err := crypto.GenerateKeyset(master, 0, 0)
	if err != nil {
		return nil, err
	}

	return &TestMint{Keyset: keyset, spent: make(map[string]bool)}, nil
}

// WalletKeyset returns the wallet-side view of the mint's keyset.
func (m *TestMint) WalletKeyset() crypto.WalletKeyset {
	return crypto.WalletKeyset{
		Id:         m.Keyset.Id,
		MintURL:    "http://testmint.local",
		Unit:       m.Keyset.Unit,
		Active:     true,
		PublicKeys: m.Keyset.PublicKeys(),
	}
}

// SignBlindedMessages signs each blinded message with the key for its
// amount, attaching a DLEQ proof when asked to.
func (m *TestMint) SignBlindedMessages(
	blindedMessages cashu.BlindedMessages,
	includeDLEQ bool,
) (cashu.BlindedSignatures, error) {

	blindedSignatures := make(cashu.BlindedSignatures, len(blindedMessages))
	for i, msg := range blindedMessages {
		key, ok := m.Keyset.Keys[msg.Amount]
		if !ok {
			return nil, cashu.InvalidBlindedMessageAmount
		}

		B_bytes, err := hex.DecodeString(msg.B_)
		if err != nil {
			return nil, cashu.BuildCashuError(err.Error(), cashu.StandardErrCode)
		}
		B_, err := secp256k1.ParsePubKey(B_bytes)
		if err != nil {
			return nil, cashu.BuildCashuError(err.Error(), cashu.StandardErrCode)
		}

		C_ := crypto.SignBlindedMessage(B_, key.PrivateKey)

		blindedSignature := cashu.BlindedSignature{
			Amount: msg.Amount,
			C_:     hex.EncodeToString(C_.SerializeCompressed()),
			Id:     m.Keyset.Id,
		}

		if includeDLEQ {
			e, s, err := crypto.GenerateDLEQ(key.PrivateKey, B_, C_)
			if err != nil {
				return nil, err
			}
			blindedSignature.DLEQ = &cashu.DLEQProof{
				E: hex.EncodeToString(e.Serialize()),
				S: hex.EncodeToString(s.Serialize()),
			}
		}

		blindedSignatures[i] = blindedSignature
	}

	return blindedSignatures, nil
}

// VerifyProofs checks each proof's signature against the keyset and
// marks its secret spent. A repeated secret is a double spend.
func (m *TestMint) VerifyProofs(proofs cashu.Proofs) error {
	for _, proof := range proofs {
		if m.spent[proof.Secret] {
			return cashu.ProofAlreadyUsedErr
		}
		if proof.Id != m.Keyset.Id {
			return cashu.UnknownKeysetErr
		}

		key, ok := m.Keyset.Keys[proof.Amount]
		if !ok {
			return cashu.InvalidProofErr
		}

		Cbytes, err := hex.DecodeString(proof.C)
		if err != nil {
			return fmt.Errorf("invalid C: %v", err)
		}
		C, err := secp256k1.ParsePubKey(Cbytes)
		if err != nil {
			return fmt.Errorf("invalid C: %v", err)
		}

		if !crypto.Verify(proof.Secret, key.PrivateKey, C) {
			return cashu.InvalidProofErr
		}
	}

	for _, proof := range proofs {
		m.spent[proof.Secret] = true
	}
	return nil
}
