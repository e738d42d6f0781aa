package gerror

import "errors"

// Kind classifies an error into the protocol failure taxonomy.
type Kind string

const (
	KindValidation    Kind = "validation"
	KindAuthorization Kind = "authorization"
	KindTemporal      Kind = "temporal"
	KindCryptographic Kind = "cryptographic"
	KindSecurity      Kind = "security"
	KindResource      Kind = "resource"
	KindNotFound      Kind = "not_found"
	KindInternal      Kind = "internal"
)

var kinds = []struct {
	kind Kind
	errs []error
}{
	{KindValidation, []error{ErrInvalidAmount, ErrInvalidExpiration, ErrInvalidCommitment, ErrEmptySecret,
		ErrInvalidIterations, ErrLengthMismatch, ErrInvalidSequence, ErrInvalidDuration, ErrInvalidConfig,
		ErrInvalidSegments, ErrInvalidTimelocks, ErrUnknownChain, ErrInvalidRequest}},
	{KindAuthorization, []error{ErrUnauthorized, ErrUnauthorizedResolver, ErrResolverInactive}},
	{KindTemporal, []error{ErrVaultExpired, ErrVaultNotExpired, ErrOrderExpired, ErrAuctionNotActive}},
	{KindCryptographic, []error{ErrInvalidSecret, ErrSecretConsumed, ErrSecretMismatch, ErrSecretCollision, ErrInvalidProof}},
	{KindSecurity, []error{ErrReentrantCall, ErrSystemPaused}},
	{KindResource, []error{ErrInvalidWithdrawalAmount, ErrInsufficientBalance, ErrVaultSettled,
		ErrInvalidOrderStatus, ErrNotProfitable, ErrDepositSettled, ErrAlreadyExists, ErrNoMarketRate}},
	{KindNotFound, []error{ErrStorageNotFound}},
}

// KindOf returns the taxonomy bucket of err, KindInternal when it is not a protocol error.
func KindOf(err error) Kind {
	for _, k := range kinds {
		for _, e := range k.errs {
			if errors.Is(err, e) {
				return k.kind
			}
		}
	}
	return KindInternal
}
