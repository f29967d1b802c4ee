package wallet

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/SparrowTek/CoreCashu-sub005/cashu"
	"github.com/SparrowTek/CoreCashu-sub005/cashu/nuts/nut12"
	"github.com/SparrowTek/CoreCashu-sub005/cashu/nuts/nut13"
	"github.com/SparrowTek/CoreCashu-sub005/crypto"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

var (
	ErrLengthMismatch = errors.New("lengths do not match")
	ErrInvalidDLEQ    = errors.New("got blinded signature with invalid DLEQ proof")
)

// CreateBlindedMessages splits the amount into power-of-two
// denominations and builds a blinded message for each with a fresh
// random secret. Returns the messages with the matching secrets and
// blinding factors, sorted by ascending amount.
func CreateBlindedMessages(amount uint64, keysetId string) (
	cashu.BlindedMessages, []string, []*secp256k1.PrivateKey, error) {

	splitAmounts := cashu.AmountSplit(amount)
	splitLen := len(splitAmounts)

	blindedMessages := make(cashu.BlindedMessages, splitLen)
	secrets := make([]string, splitLen)
	rs := make([]*secp256k1.PrivateKey, splitLen)

	for i, amt := range splitAmounts {
		secretBytes, err := cashu.GenerateRandomBytes()
		if err != nil {
			return nil, nil, nil, err
		}
		secret := hex.EncodeToString(secretBytes)

		r, err := secp256k1.GeneratePrivateKey()
		if err != nil {
			return nil, nil, nil, err
		}

		B_, r, err := crypto.BlindMessage(secret, r)
		if err != nil {
			return nil, nil, nil, err
		}

		blindedMessages[i] = cashu.NewBlindedMessage(keysetId, amt, B_)
		secrets[i] = secret
		rs[i] = r
	}

	cashu.SortBlindedMessages(blindedMessages, secrets, rs)
	return blindedMessages, secrets, rs, nil
}

// CreateBlindedMessagesDeterministic builds blinded messages whose
// secrets and blinding factors are derived from the keyset path and a
// counter, so they can be regenerated from the seed alone. The
// counter advances by one per message.
func CreateBlindedMessagesDeterministic(
	amount uint64,
	keysetId string,
	keysetPath *hdkeychain.ExtendedKey,
	counter uint32,
) (cashu.BlindedMessages, []string, []*secp256k1.PrivateKey, error) {

	splitAmounts := cashu.AmountSplit(amount)
	splitLen := len(splitAmounts)

	blindedMessages := make(cashu.BlindedMessages, splitLen)
	secrets := make([]string, splitLen)
	rs := make([]*secp256k1.PrivateKey, splitLen)

	for i, amt := range splitAmounts {
		secret, r, err := nut13.Derive(keysetPath, counter)
		if err != nil {
			return nil, nil, nil, err
		}

		B_, r, err := crypto.BlindMessage(secret, r)
		if err != nil {
			return nil, nil, nil, err
		}

		blindedMessages[i] = cashu.NewBlindedMessage(keysetId, amt, B_)
		secrets[i] = secret
		rs[i] = r
		counter++
	}

	cashu.SortBlindedMessages(blindedMessages, secrets, rs)
	return blindedMessages, secrets, rs, nil
}

// ConstructProofs unblinds the signatures into proofs. A signature
// carrying a DLEQ proof is verified against the keyset key before
// unblinding; an invalid proof rejects the whole batch, since it
// means the mint signed with a key it did not publish.
func ConstructProofs(
	blindedSignatures cashu.BlindedSignatures,
	secrets []string,
	rs []*secp256k1.PrivateKey,
	keyset *crypto.WalletKeyset,
) (cashu.Proofs, error) {

	if len(blindedSignatures) != len(secrets) || len(blindedSignatures) != len(rs) {
		return nil, ErrLengthMismatch
	}

	proofs := make(cashu.Proofs, len(blindedSignatures))
	for i, blindedSignature := range blindedSignatures {
		K, ok := keyset.PublicKeys[blindedSignature.Amount]
		if !ok {
			return nil, fmt.Errorf("keyset has no key for amount %v", blindedSignature.Amount)
		}

		if blindedSignature.DLEQ != nil {
			B_, _, err := crypto.BlindMessage(secrets[i], rs[i])
			if err != nil {
				return nil, err
			}
			B_str := hex.EncodeToString(B_.SerializeCompressed())
			if !nut12.VerifyBlindSignatureDLEQ(*blindedSignature.DLEQ, K, B_str, blindedSignature.C_) {
				return nil, ErrInvalidDLEQ
			}
		}

		C_bytes, err := hex.DecodeString(blindedSignature.C_)
		if err != nil {
			return nil, err
		}
		C_, err := secp256k1.ParsePubKey(C_bytes)
		if err != nil {
			return nil, err
		}

		C := crypto.UnblindSignature(C_, rs[i], K)

		proof := cashu.Proof{
			Amount: blindedSignature.Amount,
			Secret: secrets[i],
			C:      hex.EncodeToString(C.SerializeCompressed()),
			Id:     blindedSignature.Id,
		}
		if blindedSignature.DLEQ != nil {
			proof.DLEQ = &cashu.DLEQProof{
				E: blindedSignature.DLEQ.E,
				S: blindedSignature.DLEQ.S,
				R: hex.EncodeToString(rs[i].Serialize()),
			}
		}
		proofs[i] = proof
	}

	return proofs, nil
}
