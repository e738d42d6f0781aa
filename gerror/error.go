package gerror

import "errors"

// Input validation
var (
	// ErrInvalidAmount is used when an amount is zero, negative or missing
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrInvalidExpiration is used when an expiration is in the past or beyond the maximum duration
	ErrInvalidExpiration = errors.New("invalid expiration")
	// ErrInvalidCommitment is used when a commitment hash is empty
	ErrInvalidCommitment = errors.New("invalid commitment")
	// ErrEmptySecret is used when committing to an empty secret
	ErrEmptySecret = errors.New("empty secret")
	// ErrInvalidIterations is used when a multilayer commitment asks for an unsupported number of rounds
	ErrInvalidIterations = errors.New("invalid number of hash iterations")
	// ErrLengthMismatch is used when batch inputs have different lengths
	ErrLengthMismatch = errors.New("input length mismatch")
	// ErrInvalidSequence is used when a time window starts after it ends
	ErrInvalidSequence = errors.New("invalid time sequence")
	// ErrInvalidDuration is used when a custom duration is outside the allowed bounds
	ErrInvalidDuration = errors.New("invalid duration")
	// ErrInvalidConfig is used when a subsystem configuration does not validate
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrInvalidSegments is used when a secret tree is requested with an unsupported number of segments
	ErrInvalidSegments = errors.New("invalid number of segments")
	// ErrInvalidTimelocks is used when the source timelock does not leave room for the destination one
	ErrInvalidTimelocks = errors.New("source timelock must outlive destination timelock plus margin")
	// ErrInvalidRequest is used when an API request cannot be decoded
	ErrInvalidRequest = errors.New("invalid request")
)

// Authorization
var (
	// ErrUnauthorized is used when the caller is not allowed to perform the operation
	ErrUnauthorized = errors.New("unauthorized")
	// ErrUnauthorizedResolver is used when a resolver is not in the whitelist
	ErrUnauthorizedResolver = errors.New("unauthorized resolver")
	// ErrResolverInactive is used when an inactive or unstaked resolver tries to act
	ErrResolverInactive = errors.New("resolver is not active")
)

// Temporal
var (
	// ErrVaultExpired is used when claiming a vault after its expiration
	ErrVaultExpired = errors.New("vault expired")
	// ErrVaultNotExpired is used when recovering or terminating a vault before its expiration
	ErrVaultNotExpired = errors.New("vault not expired")
	// ErrOrderExpired is used when acting on an order whose timelock is over
	ErrOrderExpired = errors.New("order expired")
	// ErrAuctionNotActive is used when a fill is attempted outside the auction window
	ErrAuctionNotActive = errors.New("auction not active")
)

// Cryptographic
var (
	// ErrInvalidSecret is used when a secret does not match the stored commitment
	ErrInvalidSecret = errors.New("secret does not match commitment")
	// ErrSecretConsumed is used when a secret was already used to unlock another vault
	ErrSecretConsumed = errors.New("secret already consumed")
	// ErrSecretMismatch is used when a secret differs from the one already revealed for the vault
	ErrSecretMismatch = errors.New("secret differs from revealed secret")
	// ErrSecretCollision is used when a freshly generated secret was already handed out
	ErrSecretCollision = errors.New("secret collision")
	// ErrInvalidProof is used when a merkle proof does not lead to the expected root
	ErrInvalidProof = errors.New("invalid merkle proof")
)

// Concurrency and security
var (
	// ErrReentrantCall is used when the same transaction is already in flight
	ErrReentrantCall = errors.New("reentrant call")
	// ErrSystemPaused is used when mutations are refused because of an emergency pause
	ErrSystemPaused = errors.New("system paused")
)

// Resource and state
var (
	// ErrInvalidWithdrawalAmount is used when a claim asks for zero
	ErrInvalidWithdrawalAmount = errors.New("invalid withdrawal amount")
	// ErrInsufficientBalance is used when a claim exceeds the remaining balance
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrVaultSettled is used when a vault was already fully claimed, recovered or terminated
	ErrVaultSettled = errors.New("vault already settled")
	// ErrInvalidOrderStatus is used when an order operation does not fit the current status
	ErrInvalidOrderStatus = errors.New("invalid order status")
	// ErrNotProfitable is used when the current auction rate does not cover the resolver cost
	ErrNotProfitable = errors.New("auction rate not profitable")
	// ErrDepositSettled is used when a safety deposit was already returned or forfeited
	ErrDepositSettled = errors.New("safety deposit already settled")
	// ErrUnknownChain is used when a chain id has no configured ledger
	ErrUnknownChain = errors.New("unknown chain")
	// ErrNoMarketRate is used when no price feed covers a pair of chains
	ErrNoMarketRate = errors.New("no market rate")
)

// Storage
var (
	// ErrStorageNotFound is used when the object is not found in the storage
	ErrStorageNotFound = errors.New("not found in the storage")
	// ErrStorageNotRegister is used when the configured storage is not supported
	ErrStorageNotRegister = errors.New("not registered storage")
	// ErrAlreadyExists is used when the object already exists in the storage
	ErrAlreadyExists = errors.New("already exists")
	// ErrNilDBTransaction indicates the db transaction has not been properly initialized
	ErrNilDBTransaction = errors.New("database transaction not properly initialized")
)
