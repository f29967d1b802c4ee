package crypto

import (
	"encoding/hex"
	"testing"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

func TestHashToCurve(t *testing.T) {
	tests := []struct {
		message  string
		expected string
	}{
		{message: "0000000000000000000000000000000000000000000000000000000000000000",
			expected: "024cce997d3b518f739663b757deaec95bcd9473c30a14ac2fd04023a739d1a725"},
		{message: "0000000000000000000000000000000000000000000000000000000000000001",
			expected: "022e7158e11c9506f1aa4248bf531298daa7febd6194f003edcd9b93ade6253acf"},
		{message: "0000000000000000000000000000000000000000000000000000000000000002",
			expected: "026cdbe15362df59cd1dd3c9c11de8aedac2106eca69236ecd9fbe117af897be4f"},
	}

	for _, test := range tests {
		msgBytes, err := hex.DecodeString(test.message)
		if err != nil {
			t.Fatalf("error decoding msg: %v", err)
		}

		pk, err := HashToCurve(msgBytes)
		if err != nil {
			t.Fatalf("HashToCurve: %v", err)
		}
		hexStr := hex.EncodeToString(pk.SerializeCompressed())
		if hexStr != test.expected {
			t.Errorf("expected '%v' but got '%v' instead\n", test.expected, hexStr)
		}
	}
}

func TestBlindSignRoundTrip(t *testing.T) {
	secrets := []string{
		"test_message",
		"hello",
		"9becd3a8ce24b53beaf8ffb3b7afad1b3bb4inner",
	}

	for _, secret := range secrets {
		r, err := secp256k1.GeneratePrivateKey()
		if err != nil {
			t.Fatal(err)
		}
		k, err := secp256k1.GeneratePrivateKey()
		if err != nil {
			t.Fatal(err)
		}

		B_, r, err := BlindMessage(secret, r)
		if err != nil {
			t.Fatalf("BlindMessage: %v", err)
		}

		C_ := SignBlindedMessage(B_, k)
		C := UnblindSignature(C_, r, k.PubKey())

		// C should equal k * HashToCurve(secret)
		if !Verify(secret, k, C) {
			t.Errorf("failed verification for secret '%v'", secret)
		}

		// and verification must fail for a different key
		wrongKey, err := secp256k1.GeneratePrivateKey()
		if err != nil {
			t.Fatal(err)
		}
		if Verify(secret, wrongKey, C) {
			t.Errorf("verification passed with wrong mint key for secret '%v'", secret)
		}
	}
}

// different blinding factors over the same secret must produce
// different blinded messages
func TestBlindMessageNoCollapse(t *testing.T) {
	secret := "same_secret"

	r1, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		t.Fatal(err)
	}
	r2, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		t.Fatal(err)
	}

	B1, _, err := BlindMessage(secret, r1)
	if err != nil {
		t.Fatal(err)
	}
	B2, _, err := BlindMessage(secret, r2)
	if err != nil {
		t.Fatal(err)
	}

	if B1.IsEqual(B2) {
		t.Error("blinded messages with different blinding factors collapsed to same point")
	}
}

func TestDLEQ(t *testing.T) {
	for i := 0; i < 10; i++ {
		k, err := secp256k1.GeneratePrivateKey()
		if err != nil {
			t.Fatal(err)
		}
		r, err := secp256k1.GeneratePrivateKey()
		if err != nil {
			t.Fatal(err)
		}

		B_, _, err := BlindMessage("dleq_test_secret", r)
		if err != nil {
			t.Fatal(err)
		}
		C_ := SignBlindedMessage(B_, k)

		e, s, err := GenerateDLEQ(k, B_, C_)
		if err != nil {
			t.Fatalf("GenerateDLEQ: %v", err)
		}

		if !VerifyDLEQ(e, s, k.PubKey(), B_, C_) {
			t.Error("rejected honestly generated DLEQ proof")
		}

		// proof generated with a different private key than the one
		// behind the published public key must be rejected
		kPrime, err := secp256k1.GeneratePrivateKey()
		if err != nil {
			t.Fatal(err)
		}
		CPrime := SignBlindedMessage(B_, kPrime)
		ePrime, sPrime, err := GenerateDLEQ(kPrime, B_, CPrime)
		if err != nil {
			t.Fatal(err)
		}
		if VerifyDLEQ(ePrime, sPrime, k.PubKey(), B_, CPrime) {
			t.Error("accepted DLEQ proof from a different private key")
		}
	}
}
