// Package merklesecret generates the per-fill secrets of partially fillable
// orders and commits to all of them through a single merkle root.
package merklesecret

import (
	"encoding/hex"
	"math/big"

	"github.com/0xPolygonHermez/zkevm-swap-service/commitment"
	"github.com/0xPolygonHermez/zkevm-swap-service/gerror"
	"github.com/0xPolygonHermez/zkevm-swap-service/log"
	mapset "github.com/deckarep/golang-set"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

const (
	// MaxSegments bounds the number of fill slices of an order
	MaxSegments = 256
	// maxCollisionRetries is how many times a colliding secret is regenerated
	maxCollisionRetries = 3
)

// TreeSecrets are the secrets of one order and their merkle commitment.
type TreeSecrets struct {
	// Secrets has Segments+1 entries; Secrets[i] unlocks fills up to slice i
	Secrets [][]byte
	// Leaves are the commitments of Secrets
	Leaves []common.Hash
	// Root commits to every leaf
	Root common.Hash
	// Depth of the tree
	Depth uint8
	// Segments the order is split into
	Segments uint

	tree *merkleTree
}

// Manager hands out secrets that were never handed out before by this process.
type Manager struct {
	used mapset.Set
}

// NewManager creates a Manager with an empty used-secret set.
func NewManager() *Manager {
	return &Manager{used: mapset.NewSet()}
}

// Generate creates segments+1 random secrets for an order of orderAmount and
// builds their merkle tree.
func (m *Manager) Generate(orderAmount *big.Int, segments uint) (*TreeSecrets, error) {
	if orderAmount == nil || orderAmount.Sign() <= 0 {
		return nil, gerror.ErrInvalidAmount
	}
	if segments == 0 || segments > MaxSegments {
		return nil, errors.Wrapf(gerror.ErrInvalidSegments, "%d not in [1,%d]", segments, MaxSegments)
	}
	if orderAmount.Cmp(new(big.Int).SetUint64(uint64(segments))) < 0 {
		return nil, errors.Wrapf(gerror.ErrInvalidSegments, "amount %s cannot be split in %d segments", orderAmount, segments)
	}

	secrets := make([][]byte, 0, segments+1)
	for i := uint(0); i <= segments; i++ {
		secret, err := m.fresh()
		if err != nil {
			return nil, err
		}
		secrets = append(secrets, secret)
	}
	leaves, err := commitment.BatchCommit(secrets)
	if err != nil {
		return nil, err
	}
	tree, err := buildTree(leaves)
	if err != nil {
		return nil, err
	}
	log.Debugf("generated %d fill secrets, root %s", len(secrets), tree.root().String())
	return &TreeSecrets{
		Secrets:  secrets,
		Leaves:   leaves,
		Root:     tree.root(),
		Depth:    tree.depth(),
		Segments: segments,
		tree:     tree,
	}, nil
}

func (m *Manager) fresh() ([]byte, error) {
	for i := 0; i < maxCollisionRetries; i++ {
		secret, err := commitment.GenerateSecret()
		if err != nil {
			return nil, err
		}
		if m.used.Add(hex.EncodeToString(secret)) {
			return secret, nil
		}
		log.Warnf("secret collision detected, retrying (%d)", i+1)
	}
	return nil, gerror.ErrSecretCollision
}

// IsUsed reports whether secret was handed out by this manager.
func (m *Manager) IsUsed(secret []byte) bool {
	return m.used.Contains(hex.EncodeToString(secret))
}

// SecretForFillPercentage maps pct linearly onto a segment and returns its secret.
// Percentages above 100 are clamped to the last segment.
func SecretForFillPercentage(secrets [][]byte, pct uint64) ([]byte, error) {
	idx, err := IndexForFillPercentage(uint64(len(secrets)), pct)
	if err != nil {
		return nil, err
	}
	return secrets[idx], nil
}

// IndexForFillPercentage returns the secret index for pct among n secrets.
func IndexForFillPercentage(n, pct uint64) (uint64, error) {
	if n == 0 {
		return 0, errors.Wrap(gerror.ErrInvalidSegments, "no secrets")
	}
	if pct > 100 { //nolint:gomnd
		pct = 100
	}
	segments := n - 1
	idx := pct * segments / 100 //nolint:gomnd
	if idx > segments {
		idx = segments
	}
	return idx, nil
}

// Proof returns the merkle proof of the secret at index.
func (ts *TreeSecrets) Proof(index uint64) ([]common.Hash, error) {
	if ts.tree == nil {
		tree, err := buildTree(ts.Leaves)
		if err != nil {
			return nil, err
		}
		ts.tree = tree
	}
	return ts.tree.proof(index)
}

// VerifySecret checks that secret is the leaf at index under root.
func VerifySecret(root common.Hash, secret []byte, index uint64, proof []common.Hash) error {
	leaf, err := commitment.Commit(secret)
	if err != nil {
		return err
	}
	if !VerifyProof(root, leaf, index, proof) {
		return gerror.ErrInvalidProof
	}
	return nil
}
