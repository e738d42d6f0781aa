package commitment

import (
	"github.com/0xPolygonHermez/zkevm-swap-service/gerror"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

// BatchCommit commits every secret, failing on the first empty one.
func BatchCommit(secrets [][]byte) ([]common.Hash, error) {
	hashes := make([]common.Hash, 0, len(secrets))
	for i, s := range secrets {
		h, err := Commit(s)
		if err != nil {
			return nil, errors.Wrapf(err, "secret %d", i)
		}
		hashes = append(hashes, h)
	}
	return hashes, nil
}

// BatchVerify verifies secrets[i] against hashes[i]. It reports true only if
// every pair verifies.
func BatchVerify(secrets [][]byte, hashes []common.Hash) (bool, error) {
	if len(secrets) != len(hashes) {
		return false, errors.Wrapf(gerror.ErrLengthMismatch, "%d secrets, %d hashes", len(secrets), len(hashes))
	}
	for i := range secrets {
		if !Verify(secrets[i], hashes[i]) {
			return false, nil
		}
	}
	return true, nil
}

// BatchCommitSalted commits secrets[i]||salts[i].
func BatchCommitSalted(secrets, salts [][]byte) ([]common.Hash, error) {
	if len(secrets) != len(salts) {
		return nil, errors.Wrapf(gerror.ErrLengthMismatch, "%d secrets, %d salts", len(secrets), len(salts))
	}
	hashes := make([]common.Hash, 0, len(secrets))
	for i := range secrets {
		h, err := CommitSalted(secrets[i], salts[i])
		if err != nil {
			return nil, errors.Wrapf(err, "secret %d", i)
		}
		hashes = append(hashes, h)
	}
	return hashes, nil
}
