package cashu

import (
	"encoding/hex"
	"reflect"
	"testing"
)

// test vector from NUT-00
const tokenV4String = "cashuBpGF0gaJhaUgArSaMTR9YJmFwgaNhYQFhc3hAOWE2ZGJiODQ3YmQyMzJiYTc2ZGIwZGYxOTcyMTZiMjlkM2I4Y2MxNDU1M2NkMjc4MjdmYzFjYzk0MmZlZGI0ZWFjWCEDhhhUP_trhpXfStS6vN6So0qWvc2X3O4NfM-Y1HISZ5JhZGlUaGFuayB5b3VhbXVodHRwOi8vbG9jYWxob3N0OjMzMzhhdWNzYXQ"

func TestTokenV4RoundTrip(t *testing.T) {
	keysetIdBytes, _ := hex.DecodeString("00ad268c4d1f5826")
	Cbytes, _ := hex.DecodeString("038618543ffb6b8695df4ad4babcde92a34a96bdcd97dcee0d7ccf98d472126792")

	expected := TokenV4{
		MintURL: "http://localhost:3338",
		TokenProofs: []TokenV4Proof{
			{
				Id: keysetIdBytes,
				Proofs: []ProofV4{
					{
						Amount: 1,
						Secret: "9a6dbb847bd232ba76db0df197216b29d3b8cc14553cd27827fc1cc942fedb4e",
						C:      Cbytes,
					},
				},
			},
		},
		Unit: "sat",
		Memo: "Thank you",
	}

	token, err := DecodeTokenV4(tokenV4String)
	if err != nil {
		t.Fatalf("DecodeTokenV4: %v", err)
	}

	if token.Mint() != expected.MintURL {
		t.Errorf("expected mint '%v' but got '%v'", expected.MintURL, token.Mint())
	}
	if token.Memo != expected.Memo {
		t.Errorf("expected memo '%v' but got '%v'", expected.Memo, token.Memo)
	}
	if token.Amount() != 1 {
		t.Errorf("expected amount 1 but got %v", token.Amount())
	}
	if !reflect.DeepEqual(token.Proofs(), expected.Proofs()) {
		t.Errorf("decoded proofs do not match: %v vs %v", token.Proofs(), expected.Proofs())
	}

	serialized, err := expected.Serialize()
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if serialized != tokenV4String {
		t.Errorf("expected '%v'\n\n but got '%v' instead", tokenV4String, serialized)
	}
}

func TestDecodeTokenV3(t *testing.T) {
	// test vector from NUT-00, with and without base64 padding
	tokenString := "cashuAeyJ0b2tlbiI6W3sibWludCI6Imh0dHBzOi8vODMzMy5zcGFjZTozMzM4IiwicHJvb2ZzIjpbeyJhbW91bnQiOjIsImlkIjoiMDA5YTFmMjkzMjUzZTQxZSIsInNlY3JldCI6IjQwNzkxNWJjMjEyYmU2MWE3N2UzZTZkMmFlYjRjNzI3OTgwYmRhNTFjZDA2YTZhZmMyOWUyODYxNzY4YTc4MzciLCJDIjoiMDJiYzkwOTc5OTdkODFhZmIyY2M3MzQ2YjVlNDM0NWE5MzQ2YmQyYTUwNmViNzk1ODU5OGE3MmYwY2Y4NTE2M2VhIn0seyJhbW91bnQiOjgsImlkIjoiMDA5YTFmMjkzMjUzZTQxZSIsInNlY3JldCI6ImZlMTUxMDkzMTRlNjFkNzc1NmIwZjhlZTBmMjNhNjI0YWNhYTNmNGUwNDJmNjE0MzNjNzI4YzcwNTdiOTMxYmUiLCJDIjoiMDI5ZThlNTA1MGI4OTBhN2Q2YzA5NjhkYjE2YmMxZDVkNWZhMDQwZWExZGUyODRmNmVjNjlkNjEyOTlmNjcxMDU5In1dfV0sInVuaXQiOiJzYXQiLCJtZW1vIjoiVGhhbmsgeW91IHZlcnkgbXVjaC4ifQ"
	tokenWithPadding := tokenString + "=="

	token, err := DecodeTokenV3(tokenString)
	if err != nil {
		t.Fatalf("DecodeTokenV3: %v", err)
	}

	if token.Mint() != "https://8333.space:3338" {
		t.Errorf("unexpected mint '%v'", token.Mint())
	}
	if token.Unit != "sat" {
		t.Errorf("unexpected unit '%v'", token.Unit)
	}
	if token.Memo != "Thank you very much." {
		t.Errorf("unexpected memo '%v'", token.Memo)
	}
	if token.Amount() != 10 {
		t.Errorf("expected amount 10 but got %v", token.Amount())
	}

	tokenPadding, err := DecodeTokenV3(tokenWithPadding)
	if err != nil {
		t.Fatalf("DecodeTokenV3 with padding: %v", err)
	}
	if !reflect.DeepEqual(token, tokenPadding) {
		t.Error("decoded tokens do not match")
	}
}

func TestDecodeTokenInvalid(t *testing.T) {
	invalid := []string{
		"",
		"cashu",
		"cashuC000000",
		"cashuBnot-valid-base64!!",
	}
	for _, tokenstr := range invalid {
		if _, err := DecodeToken(tokenstr); err == nil {
			t.Errorf("expected error decoding '%v'", tokenstr)
		}
	}
}

func TestAmountSplit(t *testing.T) {
	tests := []struct {
		amount   uint64
		expected []uint64
	}{
		{amount: 13, expected: []uint64{1, 4, 8}},
		{amount: 64, expected: []uint64{64}},
		{amount: 255, expected: []uint64{1, 2, 4, 8, 16, 32, 64, 128}},
		{amount: 0, expected: []uint64{}},
	}

	for _, test := range tests {
		split := AmountSplit(test.amount)
		if !reflect.DeepEqual(split, test.expected) {
			t.Errorf("expected '%v' but got '%v' instead", test.expected, split)
		}
	}
}

func TestCheckDuplicateProofs(t *testing.T) {
	proof := Proof{Amount: 1, Id: "00ad268c4d1f5826", Secret: "secret1", C: "c1"}
	other := Proof{Amount: 2, Id: "00ad268c4d1f5826", Secret: "secret2", C: "c2"}

	if CheckDuplicateProofs(Proofs{proof, other}) {
		t.Error("reported duplicates on distinct proofs")
	}
	if !CheckDuplicateProofs(Proofs{proof, other, proof}) {
		t.Error("did not detect duplicate proofs")
	}

	// the same proof carried with separate DLEQ allocations is still
	// a duplicate: identity is the secret
	withDLEQ := proof
	withDLEQ.DLEQ = &DLEQProof{E: "e1", S: "s1"}
	alsoWithDLEQ := proof
	alsoWithDLEQ.DLEQ = &DLEQProof{E: "e1", S: "s1"}
	if !CheckDuplicateProofs(Proofs{withDLEQ, alsoWithDLEQ}) {
		t.Error("did not detect duplicate proofs with distinct DLEQ allocations")
	}
}

func TestProofsAmount(t *testing.T) {
	proofs := Proofs{
		{Amount: 1}, {Amount: 4}, {Amount: 16},
	}
	if proofs.Amount() != 21 {
		t.Errorf("expected 21 but got %v", proofs.Amount())
	}
}
