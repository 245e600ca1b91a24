package launchpad

import (
	"bytes"
	"encoding/binary"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// HashPair hashes two nodes with the smaller value first.
func HashPair(a, b [32]byte) [32]byte {
	if bytes.Compare(a[:], b[:]) > 0 {
		a, b = b, a
	}
	var out [32]byte
	copy(out[:], ethcrypto.Keccak256(a[:], b[:]))
	return out
}

// VerifyProof folds leaf through the ordered sibling list and reports whether
// the result equals root.
func VerifyProof(leaf [32]byte, proof [][32]byte, root [32]byte) bool {
	acc := leaf
	for _, sibling := range proof {
		acc = HashPair(acc, sibling)
	}
	return acc == root
}

// BuyerLeaf is the whitelist leaf used for buy and bid eligibility.
func BuyerLeaf(addr [20]byte) [32]byte {
	var leaf [32]byte
	copy(leaf[:], ethcrypto.Keccak256(addr[:]))
	return leaf
}

// ClaimLeaf commits to an address together with a claimable total encoded as
// little-endian uint64.
func ClaimLeaf(addr [20]byte, total uint64) [32]byte {
	var amount [8]byte
	binary.LittleEndian.PutUint64(amount[:], total)
	var leaf [32]byte
	copy(leaf[:], ethcrypto.Keccak256(addr[:], amount[:]))
	return leaf
}

// WhitelistTree builds sorted-pair roots and proofs compatible with
// VerifyProof. Odd nodes are promoted to the next level unchanged.
type WhitelistTree struct {
	levels [][][32]byte
}

// NewWhitelistTree builds a tree over the supplied leaves in order.
func NewWhitelistTree(leaves [][32]byte) *WhitelistTree {
	level := append([][32]byte(nil), leaves...)
	tree := &WhitelistTree{levels: [][][32]byte{level}}
	for len(level) > 1 {
		next := make([][32]byte, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			if i+1 == len(level) {
				next = append(next, level[i])
				continue
			}
			next = append(next, HashPair(level[i], level[i+1]))
		}
		tree.levels = append(tree.levels, next)
		level = next
	}
	return tree
}

// Root returns the committed root. An empty tree has a zero root.
func (t *WhitelistTree) Root() [32]byte {
	if t == nil || len(t.levels) == 0 {
		return [32]byte{}
	}
	top := t.levels[len(t.levels)-1]
	if len(top) == 0 {
		return [32]byte{}
	}
	return top[0]
}

// Proof returns the sibling path for the leaf at index.
func (t *WhitelistTree) Proof(index int) ([][32]byte, bool) {
	if t == nil || len(t.levels) == 0 || index < 0 || index >= len(t.levels[0]) {
		return nil, false
	}
	var proof [][32]byte
	for _, level := range t.levels[:len(t.levels)-1] {
		sibling := index ^ 1
		if sibling < len(level) {
			proof = append(proof, level[sibling])
		}
		index /= 2
	}
	return proof, true
}
