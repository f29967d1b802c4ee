// Package crypto implements the Blind Diffie-Hellman Key Exchange
// scheme used by the Cashu protocol and the DLEQ proofs that let a
// wallet verify a mint signed with the key it published.
package crypto

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// domain separator for hash to curve per NUT-00
const hashToCurveDomainSeparator = "Secp256k1_HashToCurve_Cashu_"

// iteration cap for finding a valid point. Hitting this is an
// internal error, not something a caller can recover from.
const maxHashToCurveIterations = 1 << 16

var ErrNoValidPoint = errors.New("no valid point found for message")

// HashToCurve maps a message to a point on the curve by hashing the
// domain-separated message with an incrementing counter until the
// result parses as a valid compressed point.
func HashToCurve(message []byte) (*secp256k1.PublicKey, error) {
	msgToHash := sha256.Sum256(append([]byte(hashToCurveDomainSeparator), message...))

	counterBytes := make([]byte, 4)
	for counter := uint32(0); counter < maxHashToCurveIterations; counter++ {
		binary.LittleEndian.PutUint32(counterBytes, counter)
		hash := sha256.Sum256(append(msgToHash[:], counterBytes...))

		// parse hash as the x coordinate of an even-y point
		pkhash := append([]byte{0x02}, hash[:]...)
		point, err := secp256k1.ParsePubKey(pkhash)
		if err == nil {
			return point, nil
		}
	}
	return nil, ErrNoValidPoint
}

// BlindMessage computes B_ = Y + rG where Y = HashToCurve(secret).
func BlindMessage(secret string, r *secp256k1.PrivateKey) (
	*secp256k1.PublicKey, *secp256k1.PrivateKey, error) {

	var ypoint, rpoint, blindedMessage secp256k1.JacobianPoint

	Y, err := HashToCurve([]byte(secret))
	if err != nil {
		return nil, nil, err
	}
	Y.AsJacobian(&ypoint)
	r.PubKey().AsJacobian(&rpoint)

	// B_ = Y + rG
	secp256k1.AddNonConst(&ypoint, &rpoint, &blindedMessage)
	blindedMessage.ToAffine()
	B_ := secp256k1.NewPublicKey(&blindedMessage.X, &blindedMessage.Y)

	return B_, r, nil
}

// SignBlindedMessage computes C_ = kB_.
func SignBlindedMessage(B_ *secp256k1.PublicKey, k *secp256k1.PrivateKey) *secp256k1.PublicKey {
	var bpoint, result secp256k1.JacobianPoint
	B_.AsJacobian(&bpoint)

	secp256k1.ScalarMultNonConst(&k.Key, &bpoint, &result)
	result.ToAffine()
	C_ := secp256k1.NewPublicKey(&result.X, &result.Y)

	return C_
}

// UnblindSignature computes C = C_ - rK.
func UnblindSignature(C_ *secp256k1.PublicKey, r *secp256k1.PrivateKey,
	K *secp256k1.PublicKey) *secp256k1.PublicKey {

	var Kpoint, rKPoint, CPoint secp256k1.JacobianPoint
	K.AsJacobian(&Kpoint)

	var rNeg secp256k1.ModNScalar
	rNeg.NegateVal(&r.Key)

	secp256k1.ScalarMultNonConst(&rNeg, &Kpoint, &rKPoint)

	var C_Point secp256k1.JacobianPoint
	C_.AsJacobian(&C_Point)
	secp256k1.AddNonConst(&C_Point, &rKPoint, &CPoint)
	CPoint.ToAffine()

	C := secp256k1.NewPublicKey(&CPoint.X, &CPoint.Y)
	return C
}

// Verify checks C == k * HashToCurve(secret). Only the mint can run
// this since it requires the private key; wallets rely on DLEQ proofs
// for local verification.
func Verify(secret string, k *secp256k1.PrivateKey, C *secp256k1.PublicKey) bool {
	var Ypoint, result secp256k1.JacobianPoint
	Y, err := HashToCurve([]byte(secret))
	if err != nil {
		return false
	}
	Y.AsJacobian(&Ypoint)

	secp256k1.ScalarMultNonConst(&k.Key, &Ypoint, &result)
	result.ToAffine()
	pk := secp256k1.NewPublicKey(&result.X, &result.Y)

	return C.IsEqual(pk)
}

// e = SHA256(R1 || R2 || A || C_) with the points serialized as
// uncompressed hex per NUT-12
func hashE(pubkeys []*secp256k1.PublicKey) [32]byte {
	var b strings.Builder
	for _, pubkey := range pubkeys {
		b.WriteString(hex.EncodeToString(pubkey.SerializeUncompressed()))
	}
	return sha256.Sum256([]byte(b.String()))
}

// GenerateDLEQ proves that the k behind the published A = kG is the
// same k that produced C_ = kB_. Returns the challenge e and
// response s.
func GenerateDLEQ(k *secp256k1.PrivateKey, B_, C_ *secp256k1.PublicKey) (
	*secp256k1.PrivateKey, *secp256k1.PrivateKey, error) {

	r, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, nil, err
	}

	// R1 = rG
	R1 := r.PubKey()

	// R2 = rB_
	var bpoint, r2point secp256k1.JacobianPoint
	B_.AsJacobian(&bpoint)
	secp256k1.ScalarMultNonConst(&r.Key, &bpoint, &r2point)
	r2point.ToAffine()
	R2 := secp256k1.NewPublicKey(&r2point.X, &r2point.Y)

	ehash := hashE([]*secp256k1.PublicKey{R1, R2, k.PubKey(), C_})
	e := secp256k1.PrivKeyFromBytes(ehash[:])

	// s = r + ek
	var sk secp256k1.ModNScalar
	sk.Mul2(&e.Key, &k.Key).Add(&r.Key)
	s := secp256k1.NewPrivateKey(&sk)

	return e, s, nil
}

// VerifyDLEQ checks that (e, s) proves log_G(A) == log_B_(C_):
//
//	R1 = sG - eA
//	R2 = sB_ - eC_
//	e == hash(R1, R2, A, C_)
func VerifyDLEQ(e, s *secp256k1.PrivateKey,
	A, B_, C_ *secp256k1.PublicKey) bool {

	var eNeg secp256k1.ModNScalar
	eNeg.NegateVal(&e.Key)

	// R1 = sG - eA
	var apoint, eApoint, sGpoint, r1point secp256k1.JacobianPoint
	A.AsJacobian(&apoint)
	secp256k1.ScalarMultNonConst(&eNeg, &apoint, &eApoint)
	s.PubKey().AsJacobian(&sGpoint)
	secp256k1.AddNonConst(&sGpoint, &eApoint, &r1point)
	r1point.ToAffine()
	R1 := secp256k1.NewPublicKey(&r1point.X, &r1point.Y)

	// R2 = sB_ - eC_
	var bpoint, cpoint, eCpoint, sBpoint, r2point secp256k1.JacobianPoint
	B_.AsJacobian(&bpoint)
	C_.AsJacobian(&cpoint)
	secp256k1.ScalarMultNonConst(&eNeg, &cpoint, &eCpoint)
	secp256k1.ScalarMultNonConst(&s.Key, &bpoint, &sBpoint)
	secp256k1.AddNonConst(&sBpoint, &eCpoint, &r2point)
	r2point.ToAffine()
	R2 := secp256k1.NewPublicKey(&r2point.X, &r2point.Y)

	ehash := hashE([]*secp256k1.PublicKey{R1, R2, A, C_})
	expected := secp256k1.PrivKeyFromBytes(ehash[:])
	return e.Key.Equals(&expected.Key)
}
