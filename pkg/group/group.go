// Package group implements arithmetic over a prime-order multiplicative
// subgroup of (Z/pZ)*, the cryptographic substrate the Lagrange protocol
// runs its secret sharing and reconstruction over.
package group

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	"github.com/cronokirby/saferith"
)

// ErrRNGUnavailable is returned when the OS randomness source cannot be
// read.
var ErrRNGUnavailable = errors.New("group: rng unavailable")

// ErrNotInvertible is returned by InvScalar when the operand shares a
// nontrivial factor with the group order. For a prime order and a nonzero
// operand this cannot happen; the check exists to catch misconfigured
// (non-prime, or zero-operand) parameters rather than to handle a real
// arithmetic case.
var ErrNotInvertible = errors.New("group: not invertible")

// Params holds the public parameters of the subgroup: a modulus p, a
// subgroup order q dividing p-1, and a generator g of the order-q
// subgroup. All element arithmetic reduces modulo p; all exponents (and
// all Scalar arithmetic) reduce modulo q.
type Params struct {
	p *saferith.Modulus
	q *saferith.Modulus
	g *Element

	pBig *big.Int
	qBig *big.Int

	// scalarLen is ceil(log2(q)/8), the fixed byte width a Scalar
	// marshals to on the wire.
	scalarLen int
}

// NewParams builds Params from a modulus p, a subgroup order q, and a
// generator g, all given as big.Ints. The caller is responsible for
// ensuring g^q ≡ 1 (mod p) and q | p-1; NewParams does not re-derive
// primality, it only wraps the values.
func NewParams(p, q, g *big.Int) *Params {
	pm := saferith.ModulusFromBytes(p.Bytes())
	qm := saferith.ModulusFromBytes(q.Bytes())
	gp := &Params{p: pm, q: qm, pBig: new(big.Int).Set(p), qBig: new(big.Int).Set(q)}
	gp.scalarLen = (q.BitLen() + 7) / 8
	gp.g = gp.newElement(new(saferith.Nat).SetBytes(g.Bytes()))
	return gp
}

// P returns the group modulus.
func (gp *Params) P() *big.Int { return new(big.Int).Set(gp.pBig) }

// Q returns the subgroup order.
func (gp *Params) Q() *big.Int { return new(big.Int).Set(gp.qBig) }

// Generator returns the subgroup generator g.
func (gp *Params) Generator() *Element { return gp.g }

// ScalarLen is the fixed byte width of an encoded Scalar: ceil(log2(q)/8).
func (gp *Params) ScalarLen() int { return gp.scalarLen }

// Scalar is an exponent, an integer in [0, q). Scalars are the domain of
// secret shares.
type Scalar struct {
	p *Params
	n *saferith.Nat
}

// Element is a member of the order-q subgroup, an integer in [1, p-1].
type Element struct {
	p *Params
	n *saferith.Nat
}

// Big returns the Element's value as a big.Int.
func (e *Element) Big() *big.Int { return e.n.Big() }

// Equal reports whether two elements hold the same value.
func (e *Element) Equal(other *Element) bool { return e.n.Big().Cmp(other.n.Big()) == 0 }

func (gp *Params) newScalar(n *saferith.Nat) *Scalar {
	s := &Scalar{p: gp, n: new(saferith.Nat).SetNat(n)}
	s.n.Mod(gp.q)
	return s
}

func (gp *Params) newElement(n *saferith.Nat) *Element {
	e := &Element{p: gp, n: new(saferith.Nat).SetNat(n)}
	e.n.Mod(gp.p)
	return e
}

// ScalarFromBig wraps a big.Int as a Scalar, reducing it modulo q.
func (gp *Params) ScalarFromBig(x *big.Int) *Scalar {
	return gp.newScalar(new(saferith.Nat).SetBytes(x.Bytes()))
}

// ScalarFromBytes decodes a big-endian encoded Scalar of ScalarLen()
// bytes, as found in a wire frame's value field.
func (gp *Params) ScalarFromBytes(b []byte) *Scalar {
	return gp.newScalar(new(saferith.Nat).SetBytes(b))
}

// Bytes encodes the Scalar as a fixed-width, big-endian byte slice of
// ScalarLen() bytes, matching the wire frame's value field layout.
func (s *Scalar) Bytes() []byte {
	buf := make([]byte, s.p.scalarLen)
	return s.n.FillBytes(buf)
}

// Big returns the Scalar's value as a big.Int.
func (s *Scalar) Big() *big.Int { return s.n.Big() }

// IsZero reports whether the scalar is the additive identity.
func (s *Scalar) IsZero() bool { return s.n.Big().Sign() == 0 }

// Equal reports whether two scalars hold the same value.
func (s *Scalar) Equal(other *Scalar) bool { return s.n.Big().Cmp(other.n.Big()) == 0 }

// Arith exposes the modular arithmetic operations over a Params. It is a
// thin, stateless wrapper: isolating these operations behind a single
// surface keeps the cryptographic contract auditable and lets the prime
// parameters change without touching protocol code.
type Arith struct {
	p *Params
}

// NewArith returns an Arith bound to the given Params.
func NewArith(p *Params) *Arith { return &Arith{p: p} }

// RandomScalar draws a scalar uniform in [0, q) using the OS randomness
// source.
func (a *Arith) RandomScalar() (*Scalar, error) {
	n, err := rand.Int(rand.Reader, a.p.qBig)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRNGUnavailable, err)
	}
	return a.p.ScalarFromBig(n), nil
}

// AddScalar returns a+b mod q.
func (a *Arith) AddScalar(x, y *Scalar) *Scalar {
	out := new(saferith.Nat)
	out.ModAdd(x.n, y.n, a.p.q)
	return a.p.newScalar(out)
}

// SubScalar returns a-b mod q.
func (a *Arith) SubScalar(x, y *Scalar) *Scalar {
	out := new(saferith.Nat)
	out.ModSub(x.n, y.n, a.p.q)
	return a.p.newScalar(out)
}

// MulScalar returns a*b mod q.
func (a *Arith) MulScalar(x, y *Scalar) *Scalar {
	out := new(saferith.Nat)
	out.ModMul(x.n, y.n, a.p.q)
	return a.p.newScalar(out)
}

// InvScalar returns the modular inverse of x mod q via the extended
// Euclidean algorithm. Fails with ErrNotInvertible when gcd(x, q) ≠ 1;
// for a prime q that happens only for x = 0.
func (a *Arith) InvScalar(x *Scalar) (*Scalar, error) {
	if new(big.Int).GCD(nil, nil, x.Big(), a.p.qBig).Cmp(big.NewInt(1)) != 0 {
		return nil, ErrNotInvertible
	}
	out := new(saferith.Nat)
	out.ModInverse(x.n, a.p.q)
	return a.p.newScalar(out), nil
}

// Pow computes base^exp mod p. Constant-time execution is not required
// under the semi-honest model this protocol targets.
func (a *Arith) Pow(base *Element, exp *Scalar) *Element {
	out := new(saferith.Nat)
	out.Exp(base.n, exp.n, a.p.p)
	return a.p.newElement(out)
}

// LagrangeCoefficient computes λ_i = ∏_{j≠i} (evalAt - xs[j]) * (xs[i] -
// xs[j])^-1 mod q, the public weight attached to party i's secret when
// reconstructing the interpolated polynomial at evalAt.
func (a *Arith) LagrangeCoefficient(xs []*Scalar, i int, evalAt *Scalar) (*Scalar, error) {
	num := a.p.ScalarFromBig(big.NewInt(1))
	den := a.p.ScalarFromBig(big.NewInt(1))
	for j := range xs {
		if j == i {
			continue
		}
		num = a.MulScalar(num, a.SubScalar(evalAt, xs[j]))
		den = a.MulScalar(den, a.SubScalar(xs[i], xs[j]))
	}
	denInv, err := a.InvScalar(den)
	if err != nil {
		return nil, fmt.Errorf("lagrange coefficient for party %d: %w", i, err)
	}
	return a.MulScalar(num, denInv), nil
}
