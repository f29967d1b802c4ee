// Package nut11 implements Pay-to-Public-Key spending conditions:
// lock construction, witness signing and witness verification.
// See https://github.com/cashubtc/nuts/blob/main/11.md
package nut11

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/SparrowTek/CoreCashu-sub005/cashu"
	"github.com/SparrowTek/CoreCashu-sub005/cashu/nuts/nut10"
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
)

const (
	// supported tags
	SIGFLAG  = "sigflag"
	NSIGS    = "n_sigs"
	PUBKEYS  = "pubkeys"
	LOCKTIME = "locktime"
	REFUND   = "refund"

	// SIGFLAG types
	SIGINPUTS = "SIG_INPUTS"
	SIGALL    = "SIG_ALL"

	// Error code
	NUT11ErrCode cashu.CashuErrCode = 30001
)

type SigFlag int

const (
	SigInputs SigFlag = iota
	SigAll
	Unknown
)

// errors
var (
	InvalidTagErr          = cashu.Error{Detail: "invalid tag", Code: NUT11ErrCode}
	TooManyTagsErr         = cashu.Error{Detail: "too many tags", Code: NUT11ErrCode}
	NSigsMustBePositiveErr = cashu.Error{Detail: "n_sigs must be a positive integer", Code: NUT11ErrCode}
	EmptyWitnessErr        = cashu.Error{Detail: "missing witness on locked secret", Code: NUT11ErrCode}
	InvalidWitnessErr      = cashu.Error{Detail: "invalid witness", Code: NUT11ErrCode}
	NotEnoughSignaturesErr = cashu.Error{Detail: "not enough valid signatures provided", Code: NUT11ErrCode}
	InvalidKindErr         = cashu.Error{Detail: "not a P2PK locked secret", Code: NUT11ErrCode}
)

type P2PKWitness struct {
	Signatures []string `json:"signatures"`
}

type P2PKTags struct {
	Sigflag  string
	NSigs    int
	Pubkeys  []*btcec.PublicKey
	Locktime int64
	Refund   []*btcec.PublicKey
}

// P2PKSecret returns a secret with a spending condition
// that will lock ecash to a public key
func P2PKSecret(pubkey string) (string, error) {
	spendingCondition := nut10.SpendingCondition{Kind: nut10.P2PK, Data: pubkey}
	return nut10.NewSecretFromSpendingCondition(spendingCondition)
}

func ParseP2PKTags(tags [][]string) (*P2PKTags, error) {
	if len(tags) > 5 {
		return nil, TooManyTagsErr
	}

	p2pkTags := P2PKTags{}

	for _, tag := range tags {
		if len(tag) < 2 {
			return nil, InvalidTagErr
		}
		tagType := tag[0]
		switch tagType {
		case SIGFLAG:
			sigflagType := tag[1]
			if sigflagType == SIGINPUTS || sigflagType == SIGALL {
				p2pkTags.Sigflag = sigflagType
			} else {
				errmsg := fmt.Sprintf("invalid sigflag: %v", sigflagType)
				return nil, cashu.BuildCashuError(errmsg, NUT11ErrCode)
			}
		case NSIGS:
			nstr := tag[1]
			nsig, err := strconv.ParseInt(nstr, 10, 8)
			if err != nil {
				errmsg := fmt.Sprintf("invalid n_sigs value: %v", err)
				return nil, cashu.BuildCashuError(errmsg, NUT11ErrCode)
			}
			if nsig < 0 {
				return nil, NSigsMustBePositiveErr
			}
			p2pkTags.NSigs = int(nsig)
		case PUBKEYS:
			pubkeys := make([]*btcec.PublicKey, 0, len(tag)-1)
			for i := 1; i < len(tag); i++ {
				pubkey, err := ParsePublicKey(tag[i])
				if err != nil {
					return nil, err
				}
				pubkeys = append(pubkeys, pubkey)
			}
			p2pkTags.Pubkeys = pubkeys
		case LOCKTIME:
			locktimestr := tag[1]
			locktime, err := strconv.ParseInt(locktimestr, 10, 64)
			if err != nil {
				errmsg := fmt.Sprintf("invalid locktime: %v", err)
				return nil, cashu.BuildCashuError(errmsg, NUT11ErrCode)
			}
			p2pkTags.Locktime = locktime
		case REFUND:
			refundKeys := make([]*btcec.PublicKey, 0, len(tag)-1)
			for i := 1; i < len(tag); i++ {
				pubkey, err := ParsePublicKey(tag[i])
				if err != nil {
					return nil, err
				}
				refundKeys = append(refundKeys, pubkey)
			}
			p2pkTags.Refund = refundKeys
		}
	}

	return &p2pkTags, nil
}

// AddSignatureToInputs signs each proof's secret and attaches the
// signature as a P2PK witness.
func AddSignatureToInputs(inputs cashu.Proofs, signingKey *btcec.PrivateKey) (cashu.Proofs, error) {
	for i, proof := range inputs {
		hash := sha256.Sum256([]byte(proof.Secret))
		signature, err := schnorr.Sign(signingKey, hash[:])
		if err != nil {
			return nil, err
		}

		p2pkWitness := P2PKWitness{
			Signatures: []string{hex.EncodeToString(signature.Serialize())},
		}

		witness, err := json.Marshal(p2pkWitness)
		if err != nil {
			return nil, err
		}
		proof.Witness = string(witness)
		inputs[i] = proof
	}

	return inputs, nil
}

// AddSignatureToOutputs signs each blinded message's B_ for SIG_ALL
// spends.
func AddSignatureToOutputs(
	outputs cashu.BlindedMessages,
	signingKey *btcec.PrivateKey,
) (cashu.BlindedMessages, error) {
	for i, output := range outputs {
		msgToSign, err := hex.DecodeString(output.B_)
		if err != nil {
			return nil, err
		}

		hash := sha256.Sum256(msgToSign)
		signature, err := schnorr.Sign(signingKey, hash[:])
		if err != nil {
			return nil, err
		}

		p2pkWitness := P2PKWitness{
			Signatures: []string{hex.EncodeToString(signature.Serialize())},
		}

		witness, err := json.Marshal(p2pkWitness)
		if err != nil {
			return nil, err
		}
		output.Witness = string(witness)
		outputs[i] = output
	}

	return outputs, nil
}

// VerifyP2PKWitness checks the witness on a P2PK locked proof: the
// witness signatures over the secret must meet the n_sigs threshold
// for the authorized keys, or, past the locktime, for the refund
// keys. A lock whose locktime passed with no refund keys becomes
// spendable by anyone.
func VerifyP2PKWitness(proof cashu.Proof) error {
	secret, err := nut10.DeserializeSecret(proof.Secret)
	if err != nil {
		return cashu.BuildCashuError(err.Error(), NUT11ErrCode)
	}
	if secret.Kind != nut10.P2PK {
		return InvalidKindErr
	}

	p2pkTags, err := ParseP2PKTags(secret.Data.Tags)
	if err != nil {
		return err
	}

	signaturesRequired := 1
	var keys []*btcec.PublicKey

	if p2pkTags.Locktime > 0 && time.Now().Unix() >= p2pkTags.Locktime {
		if len(p2pkTags.Refund) == 0 {
			// locktime expired with no refund keys
			return nil
		}
		keys = p2pkTags.Refund
	} else {
		if p2pkTags.NSigs > 0 {
			signaturesRequired = p2pkTags.NSigs
		}
		keys, err = PublicKeys(secret)
		if err != nil {
			return err
		}
	}

	if len(proof.Witness) == 0 {
		return EmptyWitnessErr
	}
	var witness P2PKWitness
	if err := json.Unmarshal([]byte(proof.Witness), &witness); err != nil {
		return InvalidWitnessErr
	}
	if len(witness.Signatures) == 0 {
		return EmptyWitnessErr
	}

	hash := sha256.Sum256([]byte(proof.Secret))
	if !HasValidSignatures(hash[:], witness, signaturesRequired, keys) {
		return NotEnoughSignaturesErr
	}
	return nil
}

// PublicKeys returns the list of public keys that can sign
// a P2PK locked proof
func PublicKeys(secret nut10.WellKnownSecret) ([]*btcec.PublicKey, error) {
	p2pkTags, err := ParseP2PKTags(secret.Data.Tags)
	if err != nil {
		return nil, err
	}

	pubkey, err := ParsePublicKey(secret.Data.Data)
	if err != nil {
		return nil, err
	}
	pubkeys := append([]*btcec.PublicKey{pubkey}, p2pkTags.Pubkeys...)
	return pubkeys, nil
}

func IsSecretP2PK(proof cashu.Proof) bool {
	return nut10.SecretType(proof) == nut10.P2PK
}

// ProofsSigAll returns true if at least one of the proofs
// in the list has a SIG_ALL flag
func ProofsSigAll(proofs cashu.Proofs) bool {
	for _, proof := range proofs {
		secret, err := nut10.DeserializeSecret(proof.Secret)
		if err != nil {
			return false
		}

		if IsSigAll(secret) {
			return true
		}
	}
	return false
}

func IsSigAll(secret nut10.WellKnownSecret) bool {
	for _, tag := range secret.Data.Tags {
		if len(tag) == 2 {
			if tag[0] == SIGFLAG && tag[1] == SIGALL {
				return true
			}
		}
	}

	return false
}

// CanSign reports whether the key is the one named in the secret's
// data field.
func CanSign(secret nut10.WellKnownSecret, key *btcec.PrivateKey) bool {
	publicKey, err := ParsePublicKey(secret.Data.Data)
	if err != nil {
		return false
	}

	return publicKey.IsEqual(key.PubKey())
}

// HasValidSignatures counts distinct valid signatures over hash,
// consuming each matched pubkey so one key cannot satisfy a
// multisig threshold twice.
func HasValidSignatures(hash []byte, witness P2PKWitness, nSigs int, pubkeys []*btcec.PublicKey) bool {
	pubkeysCopy := make([]*btcec.PublicKey, len(pubkeys))
	copy(pubkeysCopy, pubkeys)

	validSignatures := 0
	for _, signature := range witness.Signatures {
		sig, err := ParseSignature(signature)
		if err != nil {
			continue
		}

		for i, pubkey := range pubkeysCopy {
			if sig.Verify(hash, pubkey) {
				validSignatures++
				pubkeysCopy = slices.Delete(pubkeysCopy, i, i+1)
				break
			}
		}
	}

	return validSignatures >= nSigs
}

func ParsePublicKey(key string) (*btcec.PublicKey, error) {
	hexPubkey, err := hex.DecodeString(key)
	if err != nil {
		errmsg := fmt.Sprintf("invalid public key: %v", err)
		return nil, cashu.BuildCashuError(errmsg, NUT11ErrCode)
	}
	pubkey, err := btcec.ParsePubKey(hexPubkey)
	if err != nil {
		errmsg := fmt.Sprintf("invalid public key: %v", err)
		return nil, cashu.BuildCashuError(errmsg, NUT11ErrCode)
	}
	return pubkey, nil
}

func ParseSignature(signature string) (*schnorr.Signature, error) {
	hexSig, err := hex.DecodeString(signature)
	if err != nil {
		errmsg := fmt.Sprintf("invalid signature: %v", err)
		return nil, cashu.BuildCashuError(errmsg, NUT11ErrCode)
	}
	sig, err := schnorr.ParseSignature(hexSig)
	if err != nil {
		errmsg := fmt.Sprintf("invalid signature: %v", err)
		return nil, cashu.BuildCashuError(errmsg, NUT11ErrCode)
	}

	return sig, nil
}
