// Package commitment implements the one-way hash commitments that lock every
// vault. Commitments are SHA-256 so EVM and Move chains can recompute the
// same value on chain.
package commitment

import (
	"crypto/sha256"
	"crypto/subtle"

	"github.com/0xPolygonHermez/zkevm-swap-service/gerror"
	"github.com/0xPolygonHermez/zkevm-swap-service/utils"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

const (
	// SecretLen is the length of generated secrets
	SecretLen = 32
	// MaxIterations bounds multilayer commitments
	MaxIterations = 10
)

// Hash returns the sha256 of the concatenation of data.
func Hash(data ...[]byte) common.Hash {
	h := sha256.New()
	for _, d := range data {
		h.Write(d) //nolint:errcheck,gosec
	}
	return common.BytesToHash(h.Sum(nil))
}

// GenerateSecret returns a fresh random secret.
func GenerateSecret() ([]byte, error) {
	secret, err := utils.RandomBytes(SecretLen)
	if err != nil {
		return nil, errors.Wrap(err, "generate secret")
	}
	return secret, nil
}

// Commit returns the commitment of secret.
func Commit(secret []byte) (common.Hash, error) {
	if len(secret) == 0 {
		return common.Hash{}, gerror.ErrEmptySecret
	}
	return Hash(secret), nil
}

// Verify checks secret against hash. Empty inputs never verify.
func Verify(secret []byte, hash common.Hash) bool {
	if len(secret) == 0 || hash == (common.Hash{}) {
		return false
	}
	return equal(Hash(secret), hash)
}

// CommitSalted commits to secret||salt.
func CommitSalted(secret, salt []byte) (common.Hash, error) {
	if len(secret) == 0 {
		return common.Hash{}, gerror.ErrEmptySecret
	}
	return Hash(secret, salt), nil
}

// VerifySalted checks secret and salt against hash.
func VerifySalted(secret, salt []byte, hash common.Hash) bool {
	if len(secret) == 0 || hash == (common.Hash{}) {
		return false
	}
	return equal(Hash(secret, salt), hash)
}

// CommitMultilayer hashes secret iterations times.
func CommitMultilayer(secret []byte, iterations int) (common.Hash, error) {
	if len(secret) == 0 {
		return common.Hash{}, gerror.ErrEmptySecret
	}
	if iterations < 1 || iterations > MaxIterations {
		return common.Hash{}, errors.Wrapf(gerror.ErrInvalidIterations, "%d not in [1,%d]", iterations, MaxIterations)
	}
	h := Hash(secret)
	for i := 1; i < iterations; i++ {
		h = Hash(h.Bytes())
	}
	return h, nil
}

// VerifyMultilayer checks a multilayer commitment. Out of range iteration counts never verify.
func VerifyMultilayer(secret []byte, iterations int, hash common.Hash) bool {
	if hash == (common.Hash{}) {
		return false
	}
	h, err := CommitMultilayer(secret, iterations)
	if err != nil {
		return false
	}
	return equal(h, hash)
}

// SecretsEqual compares two secrets in constant time.
func SecretsEqual(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}

func equal(a, b common.Hash) bool {
	return subtle.ConstantTimeCompare(a.Bytes(), b.Bytes()) == 1
}
