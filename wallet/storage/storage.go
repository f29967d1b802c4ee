// Package storage defines the persistence surface a wallet depends
// on and a bbolt-backed implementation. Proofs are keyed by Y, the
// curve point of their secret, which is also the identifier mints use
// for state checks.
package storage

import (
	"github.com/SparrowTek/CoreCashu-sub005/cashu"
	"github.com/SparrowTek/CoreCashu-sub005/crypto"
)

type DB interface {
	SaveMnemonicSeed(mnemonic string, seed []byte) error
	GetMnemonic() string
	GetSeed() []byte

	SaveProofs(cashu.Proofs) error
	GetProofs() cashu.Proofs
	GetProofsByKeysetId(id string) cashu.Proofs
	DeleteProof(Y string) error

	AddPendingProofs(cashu.Proofs) error
	GetPendingProofs() cashu.Proofs
	DeletePendingProofs(Ys []string) error

	SaveKeyset(*crypto.WalletKeyset) error
	GetKeysets() map[string]crypto.WalletKeyset
	GetKeyset(id string) *crypto.WalletKeyset
	IncrementKeysetCounter(id string, num uint32) error
	GetKeysetCounter(id string) uint32

	Close() error
}
