package launchpad

import (
	"encoding/binary"
	"testing"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

func TestWhitelistTreeProofsVerify(t *testing.T) {
	var leaves [][32]byte
	for i := byte(1); i <= 5; i++ {
		leaves = append(leaves, BuyerLeaf(newTestAddress(i)))
	}
	tree := NewWhitelistTree(leaves)
	root := tree.Root()
	for i, leaf := range leaves {
		proof, ok := tree.Proof(i)
		if !ok {
			t.Fatalf("missing proof for leaf %d", i)
		}
		if !VerifyProof(leaf, proof, root) {
			t.Fatalf("proof for leaf %d did not verify", i)
		}
	}

	proof, _ := tree.Proof(0)
	if VerifyProof(BuyerLeaf(newTestAddress(9)), proof, root) {
		t.Fatalf("foreign leaf verified")
	}
	proof[0][0] ^= 0xFF
	if VerifyProof(leaves[0], proof, root) {
		t.Fatalf("tampered proof verified")
	}
}

func TestWhitelistSingleLeafRoot(t *testing.T) {
	leaf := BuyerLeaf(newTestAddress(7))
	tree := NewWhitelistTree([][32]byte{leaf})
	if tree.Root() != leaf {
		t.Fatalf("single leaf tree should use the leaf as root")
	}
	proof, ok := tree.Proof(0)
	if !ok || len(proof) != 0 {
		t.Fatalf("expected empty proof, got %v", proof)
	}
	if !VerifyProof(leaf, proof, leaf) {
		t.Fatalf("empty proof should verify against the leaf")
	}
}

func TestHashPairIsOrderIndependent(t *testing.T) {
	a := BuyerLeaf(newTestAddress(1))
	b := BuyerLeaf(newTestAddress(2))
	if HashPair(a, b) != HashPair(b, a) {
		t.Fatalf("sorted pair hash must not depend on argument order")
	}
}

func TestLeafConstruction(t *testing.T) {
	addr := newTestAddress(0x42)
	var want [32]byte
	copy(want[:], ethcrypto.Keccak256(addr[:]))
	if BuyerLeaf(addr) != want {
		t.Fatalf("buyer leaf mismatch")
	}
	buf := append([]byte(nil), addr[:]...)
	buf = binary.LittleEndian.AppendUint64(buf, 500)
	copy(want[:], ethcrypto.Keccak256(buf))
	if ClaimLeaf(addr, 500) != want {
		t.Fatalf("claim leaf mismatch")
	}
}
