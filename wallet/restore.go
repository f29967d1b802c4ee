package wallet

import (
	"encoding/hex"

	"github.com/SparrowTek/CoreCashu-sub005/cashu"
	"github.com/SparrowTek/CoreCashu-sub005/cashu/nuts/nut13"
	"github.com/SparrowTek/CoreCashu-sub005/crypto"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// RestoreBatchSize is the number of blinded messages a restore batch
// holds by default.
const RestoreBatchSize = 100

// RestoreScanner regenerates the deterministic blinded messages a
// wallet may have used with a keyset, batch by batch. The caller
// submits each batch to the mint, unblinds whatever signatures come
// back with ConstructProofs, and stops after enough consecutive empty
// batches. The scanner only tracks the derivation counter; it does no
// I/O itself.
type RestoreScanner struct {
	keysetId   string
	keysetPath *hdkeychain.ExtendedKey
	counter    uint32
}

func NewRestoreScanner(
	master *hdkeychain.ExtendedKey,
	keysetId string,
	startCounter uint32,
) (*RestoreScanner, error) {
	keysetPath, err := nut13.DeriveKeysetPath(master, keysetId)
	if err != nil {
		return nil, err
	}
	return &RestoreScanner{
		keysetId:   keysetId,
		keysetPath: keysetPath,
		counter:    startCounter,
	}, nil
}

// NextBatch derives the next window of blinded messages and advances
// the counter past it.
func (rs *RestoreScanner) NextBatch(size int) (
	cashu.BlindedMessages, []string, []*secp256k1.PrivateKey, error) {

	if size <= 0 {
		size = RestoreBatchSize
	}

	blindedMessages := make(cashu.BlindedMessages, size)
	secrets := make([]string, size)
	blindingFactors := make([]*secp256k1.PrivateKey, size)

	for i := 0; i < size; i++ {
		secret, r, err := nut13.Derive(rs.keysetPath, rs.counter)
		if err != nil {
			return nil, nil, nil, err
		}
		B_, r, err := crypto.BlindMessage(secret, r)
		if err != nil {
			return nil, nil, nil, err
		}

		blindedMessages[i] = cashu.BlindedMessage{
			B_: hex.EncodeToString(B_.SerializeCompressed()),
			Id: rs.keysetId,
		}
		secrets[i] = secret
		blindingFactors[i] = r
		rs.counter++
	}

	return blindedMessages, secrets, blindingFactors, nil
}

// Counter returns the next unused derivation counter. After a restore
// finishes this is the high-water mark to persist for the keyset.
func (rs *RestoreScanner) Counter() uint32 {
	return rs.counter
}
