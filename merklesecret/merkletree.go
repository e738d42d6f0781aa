package merklesecret

import (
	"github.com/0xPolygonHermez/zkevm-swap-service/commitment"
	"github.com/0xPolygonHermez/zkevm-swap-service/gerror"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

// merkleTree keeps every layer of a binary tree, leaves first.
type merkleTree struct {
	// layers[0] are the leaves, layers[len-1] holds the root
	layers [][]common.Hash
}

func hash(left, right common.Hash) common.Hash {
	return commitment.Hash(left.Bytes(), right.Bytes())
}

// buildTree hashes the leaves pairwise up to a single root. When a layer has
// an odd number of nodes the last one is paired with itself.
func buildTree(leaves []common.Hash) (*merkleTree, error) {
	if len(leaves) == 0 {
		return nil, errors.Wrap(gerror.ErrInvalidSegments, "no leaves")
	}
	cur := make([]common.Hash, len(leaves))
	copy(cur, leaves)
	layers := [][]common.Hash{cur}
	for len(cur) > 1 {
		next := make([]common.Hash, 0, (len(cur)+1)/2) //nolint:gomnd
		for i := 0; i < len(cur); i += 2 {
			if i+1 < len(cur) {
				next = append(next, hash(cur[i], cur[i+1]))
			} else {
				next = append(next, hash(cur[i], cur[i]))
			}
		}
		layers = append(layers, next)
		cur = next
	}
	return &merkleTree{layers: layers}, nil
}

func (mt *merkleTree) root() common.Hash {
	return mt.layers[len(mt.layers)-1][0]
}

func (mt *merkleTree) depth() uint8 {
	return uint8(len(mt.layers) - 1)
}

// proof returns the sibling of index on every layer below the root.
func (mt *merkleTree) proof(index uint64) ([]common.Hash, error) {
	if index >= uint64(len(mt.layers[0])) {
		return nil, errors.Wrapf(gerror.ErrInvalidProof, "leaf index %d out of range", index)
	}
	proof := make([]common.Hash, 0, mt.depth())
	cur := index
	for height := 0; height < len(mt.layers)-1; height++ {
		layer := mt.layers[height]
		sibling := cur ^ 1
		if sibling >= uint64(len(layer)) {
			sibling = cur
		}
		proof = append(proof, layer[sibling])
		cur /= 2
	}
	return proof, nil
}

// VerifyProof checks that leaf sits at index under root.
func VerifyProof(root, leaf common.Hash, index uint64, proof []common.Hash) bool {
	cur := leaf
	for _, sibling := range proof {
		if index%2 == 0 {
			cur = hash(cur, sibling)
		} else {
			cur = hash(sibling, cur)
		}
		index /= 2
	}
	return index == 0 && cur == root
}
