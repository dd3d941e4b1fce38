package group

import "math/big"

// ToyParams returns the toy parameters used throughout this project's test
// suite and in the specification's worked example: p=23, q=11, g=2. These
// satisfy 2^11 ≡ 1 (mod 23) and generate the order-11 subgroup of (Z/23Z)*.
func ToyParams() *Params {
	return NewParams(big.NewInt(23), big.NewInt(11), big.NewInt(2))
}

// modp2048Hex is the 2048-bit MODP group from RFC 3526 §3, a safe prime p
// = 2q+1 with q prime; used here as a production-sized group so that
// benchmark runs exercise realistic operand sizes without requiring the
// caller to generate their own safe prime.
const modp2048Hex = "" +
	"FFFFFFFFFFFFFFFFC90FDAA22168C234C4C6628B80DC1CD" +
	"129024E088A67CC74020BBEA63B139B22514A08798E3404" +
	"DDEF9519B3CD3A431B302B0A6DF25F14374FE1356D6D51C" +
	"245E485B576625E7EC6F44C42E9A637ED6B0BFF5CB6F406" +
	"B7EDEE386BFB5A899FA5AE9F24117C4B1FE649286651ECE" +
	"45B3DC2007CB8A163BF0598DA48361C55D39A69163FA8FD" +
	"24CF5F83655D23DCA3AD961C62F356208552BB9ED529077" +
	"096966D670C354E4ABC9804F1746C08CA18217C32905E46" +
	"2E36CE3BE39E772C180E86039B2783A2EC07A28FB5C55DF" +
	"06F4C52C9DE2BCBF6955817183995497CEA956AE515D226" +
	"1898FA051015728E5A8AACAA68FFFFFFFFFFFFFFFF"

// Production2048Params returns the order-q subgroup of the RFC 3526
// Group 14 (2048-bit) MODP group, generator g=2, q=(p-1)/2.
func Production2048Params() *Params {
	p, ok := new(big.Int).SetString(modp2048Hex, 16)
	if !ok {
		panic("group: invalid embedded modp2048 constant")
	}
	q := new(big.Int).Rsh(p, 1) // q = (p-1)/2 since p = 2q+1
	return NewParams(p, q, big.NewInt(2))
}
