package nut14

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/SparrowTek/CoreCashu-sub005/cashu"
	"github.com/SparrowTek/CoreCashu-sub005/cashu/nuts/nut11"
	"github.com/btcsuite/btcd/btcec/v2"
)

func newPreimage(t *testing.T) (string, string) {
	t.Helper()
	preimage := make([]byte, 32)
	if _, err := rand.Read(preimage); err != nil {
		t.Fatal(err)
	}
	hash := sha256.Sum256(preimage)
	return hex.EncodeToString(preimage), hex.EncodeToString(hash[:])
}

func newHTLCProof(t *testing.T, hash string, tags [][]string) cashu.Proof {
	t.Helper()
	secret, err := HTLCSecret(hash, tags)
	if err != nil {
		t.Fatal(err)
	}
	return cashu.Proof{Amount: 1, Id: "009a1f293253e41e", Secret: secret}
}

func TestVerifyHTLCWitness(t *testing.T) {
	preimage, hash := newPreimage(t)
	proof := newHTLCProof(t, hash, nil)

	if err := VerifyHTLCWitness(proof); !errors.Is(err, EmptyWitnessErr) {
		t.Errorf("expected empty witness error, got %v", err)
	}

	proofs, err := AddWitnessHTLC(cashu.Proofs{proof}, preimage, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := VerifyHTLCWitness(proofs[0]); err != nil {
		t.Errorf("expected valid witness but got error: %v", err)
	}

	// wrong preimage
	wrongPreimage, _ := newPreimage(t)
	proofs, err = AddWitnessHTLC(cashu.Proofs{proof}, wrongPreimage, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := VerifyHTLCWitness(proofs[0]); !errors.Is(err, InvalidPreimageErr) {
		t.Errorf("expected invalid preimage error, got %v", err)
	}

	// preimage of the wrong length
	proofs, err = AddWitnessHTLC(cashu.Proofs{proof}, "abcd", nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := VerifyHTLCWitness(proofs[0]); !errors.Is(err, InvalidPreimageErr) {
		t.Errorf("expected invalid preimage error, got %v", err)
	}
}

func TestVerifyHTLCWitnessSignatures(t *testing.T) {
	lockKey, err := btcec.NewPrivateKey()
	if err != nil {
		t.Fatal(err)
	}
	preimage, hash := newPreimage(t)
	tags := [][]string{
		{nut11.PUBKEYS, hex.EncodeToString(lockKey.PubKey().SerializeCompressed())},
	}
	proof := newHTLCProof(t, hash, tags)

	// preimage alone is not enough when the lock names a key
	proofs, err := AddWitnessHTLC(cashu.Proofs{proof}, preimage, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := VerifyHTLCWitness(proofs[0]); !errors.Is(err, nut11.NotEnoughSignaturesErr) {
		t.Errorf("expected not enough signatures error, got %v", err)
	}

	// a signature from the wrong key does not count
	otherKey, err := btcec.NewPrivateKey()
	if err != nil {
		t.Fatal(err)
	}
	proofs, err = AddWitnessHTLC(cashu.Proofs{proof}, preimage, otherKey)
	if err != nil {
		t.Fatal(err)
	}
	if err := VerifyHTLCWitness(proofs[0]); !errors.Is(err, nut11.NotEnoughSignaturesErr) {
		t.Errorf("expected not enough signatures error, got %v", err)
	}

	proofs, err = AddWitnessHTLC(cashu.Proofs{proof}, preimage, lockKey)
	if err != nil {
		t.Fatal(err)
	}
	if err := VerifyHTLCWitness(proofs[0]); err != nil {
		t.Errorf("expected valid witness but got error: %v", err)
	}
}

func TestVerifyHTLCWitnessLocktime(t *testing.T) {
	lockKey, err := btcec.NewPrivateKey()
	if err != nil {
		t.Fatal(err)
	}
	refundKey, err := btcec.NewPrivateKey()
	if err != nil {
		t.Fatal(err)
	}
	_, hash := newPreimage(t)

	expired := strconv.FormatInt(time.Now().Add(-time.Minute).Unix(), 10)
	tags := [][]string{
		{nut11.PUBKEYS, hex.EncodeToString(lockKey.PubKey().SerializeCompressed())},
		{nut11.LOCKTIME, expired},
		{nut11.REFUND, hex.EncodeToString(refundKey.PubKey().SerializeCompressed())},
	}
	proof := newHTLCProof(t, hash, tags)

	// after the locktime the refund key can spend without the preimage
	proofs, err := AddWitnessHTLC(cashu.Proofs{proof}, "", refundKey)
	if err != nil {
		t.Fatal(err)
	}
	if err := VerifyHTLCWitness(proofs[0]); err != nil {
		t.Errorf("expected refund spend to verify but got error: %v", err)
	}

	// the lock key is not a refund key
	proofs, err = AddWitnessHTLC(cashu.Proofs{proof}, "", lockKey)
	if err != nil {
		t.Fatal(err)
	}
	if err := VerifyHTLCWitness(proofs[0]); !errors.Is(err, nut11.NotEnoughSignaturesErr) {
		t.Errorf("expected not enough signatures error, got %v", err)
	}

	// expired lock with no refund keys is spendable by anyone
	noRefundTags := [][]string{{nut11.LOCKTIME, expired}}
	anyoneProof := newHTLCProof(t, hash, noRefundTags)
	if err := VerifyHTLCWitness(anyoneProof); err != nil {
		t.Errorf("expected expired lock without refund keys to verify, got %v", err)
	}
}

func TestVerifyHTLCWitnessNotHTLC(t *testing.T) {
	key, err := btcec.NewPrivateKey()
	if err != nil {
		t.Fatal(err)
	}
	secret, err := nut11.P2PKSecret(hex.EncodeToString(key.PubKey().SerializeCompressed()))
	if err != nil {
		t.Fatal(err)
	}
	proof := cashu.Proof{Amount: 1, Id: "009a1f293253e41e", Secret: secret}

	if err := VerifyHTLCWitness(proof); !errors.Is(err, InvalidKindErr) {
		t.Errorf("expected invalid kind error, got %v", err)
	}
}
