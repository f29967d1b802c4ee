// Package nut10 implements the structured "well-known" secret format
// that carries spending conditions.
// See https://github.com/cashubtc/nuts/blob/main/10.md
package nut10

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/SparrowTek/CoreCashu-sub005/cashu"
)

type SecretKind int

const (
	AnyoneCanSpend SecretKind = iota
	P2PK
	HTLC
)

func (kind SecretKind) String() string {
	switch kind {
	case P2PK:
		return "P2PK"
	case HTLC:
		return "HTLC"
	default:
		return "anyonecanspend"
	}
}

func StringToKind(kind string) SecretKind {
	switch kind {
	case "P2PK":
		return P2PK
	case "HTLC":
		return HTLC
	}
	return AnyoneCanSpend
}

// WellKnownSecret is a secret carrying a spending condition. Its
// serialized form is '["<kind>", {"nonce": ..., "data": ..., "tags": ...}]'.
// Field order is fixed because the serialized bytes are hashed into
// the BDHKE computation.
type WellKnownSecret struct {
	Kind SecretKind
	Data SecretData
}

type SecretData struct {
	Nonce string     `json:"nonce"`
	Data  string     `json:"data"`
	Tags  [][]string `json:"tags,omitempty"`
}

// SecretType returns the kind of secret in the proof. A secret that
// does not parse as a well-known secret is a plain random secret.
func SecretType(proof cashu.Proof) SecretKind {
	secret, err := DeserializeSecret(proof.Secret)
	if err != nil {
		return AnyoneCanSpend
	}
	return secret.Kind
}

// SerializeSecret returns the json string to be put in the secret field of a proof
func SerializeSecret(kind SecretKind, secretData SecretData) (string, error) {
	jsonSecret, err := json.Marshal(secretData)
	if err != nil {
		return "", err
	}

	secret := fmt.Sprintf("[\"%s\", %v]", kind.String(), string(jsonSecret))
	return secret, nil
}

// DeserializeSecret parses a well-known secret.
// It returns an error if it's not valid according to NUT-10.
func DeserializeSecret(secret string) (WellKnownSecret, error) {
	var rawJsonSecret []json.RawMessage
	if err := json.Unmarshal([]byte(secret), &rawJsonSecret); err != nil {
		return WellKnownSecret{}, err
	}

	// Well-known secret should have a length of at least 2
	if len(rawJsonSecret) < 2 {
		return WellKnownSecret{}, errors.New("invalid secret: length < 2")
	}

	var kind string
	if err := json.Unmarshal(rawJsonSecret[0], &kind); err != nil {
		return WellKnownSecret{}, errors.New("invalid kind for secret")
	}

	var secretData SecretData
	if err := json.Unmarshal(rawJsonSecret[1], &secretData); err != nil {
		return WellKnownSecret{}, fmt.Errorf("invalid secret: %v", err)
	}

	return WellKnownSecret{Kind: StringToKind(kind), Data: secretData}, nil
}

// SpendingCondition is the caller-facing description of a lock to
// place on new ecash.
type SpendingCondition struct {
	Kind SecretKind
	Data string
	Tags [][]string
}

// NewSecretFromSpendingCondition serializes the spending condition
// into a secret with a fresh random nonce.
func NewSecretFromSpendingCondition(spendingCondition SpendingCondition) (string, error) {
	if spendingCondition.Kind != P2PK && spendingCondition.Kind != HTLC {
		return "", fmt.Errorf("invalid kind '%s' to create new secret", spendingCondition.Kind)
	}

	nonceBytes, err := cashu.GenerateRandomBytes()
	if err != nil {
		return "", err
	}

	secretData := SecretData{
		Nonce: hex.EncodeToString(nonceBytes),
		Data:  spendingCondition.Data,
		Tags:  spendingCondition.Tags,
	}

	return SerializeSecret(spendingCondition.Kind, secretData)
}
