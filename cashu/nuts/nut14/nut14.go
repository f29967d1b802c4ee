// Package nut14 implements Hash-Time-Locked-Contract spending
// conditions. See https://github.com/cashubtc/nuts/blob/main/14.md
package nut14

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/SparrowTek/CoreCashu-sub005/cashu"
	"github.com/SparrowTek/CoreCashu-sub005/cashu/nuts/nut10"
	"github.com/SparrowTek/CoreCashu-sub005/cashu/nuts/nut11"
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
)

const NUT14ErrCode cashu.CashuErrCode = 30002

var (
	InvalidPreimageErr = cashu.Error{Detail: "invalid preimage for HTLC lock", Code: NUT14ErrCode}
	InvalidKindErr     = cashu.Error{Detail: "not an HTLC locked secret", Code: NUT14ErrCode}
	EmptyWitnessErr    = cashu.Error{Detail: "missing witness on locked secret", Code: NUT14ErrCode}
	InvalidWitnessErr  = cashu.Error{Detail: "invalid witness", Code: NUT14ErrCode}
)

type HTLCWitness struct {
	Preimage   string   `json:"preimage"`
	Signatures []string `json:"signatures,omitempty"`
}

// HTLCSecret returns a secret locked to the sha256 hash of the
// preimage. Additional conditions (pubkeys, locktime, refund) go in
// the tags.
func HTLCSecret(hash string, tags [][]string) (string, error) {
	spendingCondition := nut10.SpendingCondition{
		Kind: nut10.HTLC,
		Data: hash,
		Tags: tags,
	}
	return nut10.NewSecretFromSpendingCondition(spendingCondition)
}

// AddWitnessHTLC attaches the preimage, and a signature if the lock
// names signing keys, to each proof.
func AddWitnessHTLC(
	proofs cashu.Proofs,
	preimage string,
	signingKey *btcec.PrivateKey,
) (cashu.Proofs, error) {
	for i, proof := range proofs {
		htlcWitness := HTLCWitness{Preimage: preimage}

		if signingKey != nil {
			hash := sha256.Sum256([]byte(proof.Secret))
			signature, err := schnorr.Sign(signingKey, hash[:])
			if err != nil {
				return nil, err
			}
			htlcWitness.Signatures = []string{hex.EncodeToString(signature.Serialize())}
		}

		witness, err := json.Marshal(htlcWitness)
		if err != nil {
			return nil, err
		}
		proof.Witness = string(witness)
		proofs[i] = proof
	}

	return proofs, nil
}

// VerifyHTLCWitness checks an HTLC locked proof: the witness preimage
// must hash to the lock, and if the lock names public keys the
// witness must also carry enough valid signatures. After the
// locktime, refund keys take over; with no refund keys an expired
// lock is spendable by anyone.
func VerifyHTLCWitness(proof cashu.Proof) error {
	secret, err := nut10.DeserializeSecret(proof.Secret)
	if err != nil {
		return cashu.BuildCashuError(err.Error(), NUT14ErrCode)
	}
	if secret.Kind != nut10.HTLC {
		return InvalidKindErr
	}

	p2pkTags, err := nut11.ParseP2PKTags(secret.Data.Tags)
	if err != nil {
		return err
	}

	if p2pkTags.Locktime > 0 && time.Now().Unix() >= p2pkTags.Locktime {
		if len(p2pkTags.Refund) == 0 {
			return nil
		}
		return verifySignatures(proof, 1, p2pkTags.Refund)
	}

	if len(proof.Witness) == 0 {
		return EmptyWitnessErr
	}
	var witness HTLCWitness
	if err := json.Unmarshal([]byte(proof.Witness), &witness); err != nil {
		return InvalidWitnessErr
	}

	preimageBytes, err := hex.DecodeString(witness.Preimage)
	if err != nil || len(preimageBytes) != 32 {
		return InvalidPreimageErr
	}
	hash := sha256.Sum256(preimageBytes)
	if hex.EncodeToString(hash[:]) != secret.Data.Data {
		return InvalidPreimageErr
	}

	// if the lock also names signing keys, check signatures
	if len(p2pkTags.Pubkeys) > 0 {
		signaturesRequired := 1
		if p2pkTags.NSigs > 0 {
			signaturesRequired = p2pkTags.NSigs
		}
		return verifySignatures(proof, signaturesRequired, p2pkTags.Pubkeys)
	}

	return nil
}

func verifySignatures(proof cashu.Proof, nSigs int, keys []*btcec.PublicKey) error {
	if len(proof.Witness) == 0 {
		return EmptyWitnessErr
	}
	var witness HTLCWitness
	if err := json.Unmarshal([]byte(proof.Witness), &witness); err != nil {
		return InvalidWitnessErr
	}
	if len(witness.Signatures) == 0 {
		return EmptyWitnessErr
	}

	hash := sha256.Sum256([]byte(proof.Secret))
	p2pkWitness := nut11.P2PKWitness{Signatures: witness.Signatures}
	if !nut11.HasValidSignatures(hash[:], p2pkWitness, nSigs, keys) {
		return nut11.NotEnoughSignaturesErr
	}
	return nil
}
