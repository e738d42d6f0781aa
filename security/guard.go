// Package security implements the reentrancy, access and pause checks every
// vault and order mutation goes through.
package security

import (
	"context"
	"time"

	"github.com/0xPolygonHermez/zkevm-swap-service/gerror"
	"github.com/0xPolygonHermez/zkevm-swap-service/log"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

// Action is the class of operation an access check is made for
type Action string

const (
	// ActionAdmin requires the caller to be an admin
	ActionAdmin Action = "admin"
	// ActionResolver requires the caller to be whitelisted, or the whitelist to be empty
	ActionResolver Action = "resolver"
	// ActionPause requires the caller to be the pause guardian or an admin
	ActionPause Action = "pause"
)

const defaultReentrancyTimeout = 5 * time.Minute

// Guard performs the security checks
type Guard struct {
	admins   map[common.Address]struct{}
	guardian common.Address
	timeout  time.Duration
	store    Store
}

// NewGuard creates a guard and seeds the resolver whitelist from cfg
func NewGuard(ctx context.Context, cfg Config, store Store) (*Guard, error) {
	admins := make(map[common.Address]struct{}, len(cfg.Admins))
	for _, a := range cfg.Admins {
		admins[a] = struct{}{}
	}
	timeout := cfg.ReentrancyTimeout.Duration
	if timeout <= 0 {
		timeout = defaultReentrancyTimeout
	}
	for _, r := range cfg.Resolvers {
		if err := store.AddResolver(ctx, r); err != nil {
			return nil, errors.Wrap(err, "seed resolver whitelist")
		}
	}
	return &Guard{
		admins:   admins,
		guardian: cfg.PauseGuardian,
		timeout:  timeout,
		store:    store,
	}, nil
}

// CheckReentrancy marks txHash in flight. It returns false if it already was
func (g *Guard) CheckReentrancy(ctx context.Context, txHash string) (bool, error) {
	ok, err := g.store.MarkInFlight(ctx, txHash, g.timeout)
	if err != nil {
		return false, err
	}
	if !ok {
		log.Warnf("reentrant call rejected for %s", txHash)
	}
	return ok, nil
}

// ReleaseReentrancy clears the in-flight mark before its timeout
func (g *Guard) ReleaseReentrancy(ctx context.Context, txHash string) error {
	return g.store.ClearInFlight(ctx, txHash)
}

// IsAdmin reports whether user is in the admin list
func (g *Guard) IsAdmin(user common.Address) bool {
	_, ok := g.admins[user]
	return ok
}

// CheckAccess reports whether user may perform action
func (g *Guard) CheckAccess(ctx context.Context, user common.Address, action Action) (bool, error) {
	switch action {
	case ActionAdmin:
		return g.IsAdmin(user), nil
	case ActionPause:
		return (g.guardian != (common.Address{}) && user == g.guardian) || g.IsAdmin(user), nil
	case ActionResolver:
		return g.IsWhitelisted(ctx, user)
	default:
		return false, errors.Wrapf(gerror.ErrUnauthorized, "unknown action %q", action)
	}
}

// IsWhitelisted reports whether resolver may act. An empty whitelist admits everyone
func (g *Guard) IsWhitelisted(ctx context.Context, resolver common.Address) (bool, error) {
	list, err := g.store.Resolvers(ctx)
	if err != nil {
		return false, err
	}
	if len(list) == 0 {
		return true, nil
	}
	for _, r := range list {
		if r == resolver {
			return true, nil
		}
	}
	return false, nil
}

// PerformSecurityCheck is false while paused, otherwise the reentrancy and access checks combined.
// A successful check leaves txHash marked in flight until ReleaseReentrancy or the timeout.
func (g *Guard) PerformSecurityCheck(ctx context.Context, txHash string, user common.Address, action Action) (bool, error) {
	paused, err := g.store.IsPaused(ctx)
	if err != nil {
		return false, err
	}
	if paused {
		return false, nil
	}
	allowed, err := g.CheckAccess(ctx, user, action)
	if err != nil || !allowed {
		return false, err
	}
	return g.CheckReentrancy(ctx, txHash)
}

// EmergencyPause stops all vault and order mutations
func (g *Guard) EmergencyPause(ctx context.Context, caller common.Address) error {
	return g.setPaused(ctx, caller, true)
}

// EmergencyResume lifts the pause
func (g *Guard) EmergencyResume(ctx context.Context, caller common.Address) error {
	return g.setPaused(ctx, caller, false)
}

func (g *Guard) setPaused(ctx context.Context, caller common.Address, paused bool) error {
	ok, err := g.CheckAccess(ctx, caller, ActionPause)
	if err != nil {
		return err
	}
	if !ok {
		return errors.Wrapf(gerror.ErrUnauthorized, "%s cannot toggle pause", caller.Hex())
	}
	if err := g.store.SetPaused(ctx, paused); err != nil {
		return err
	}
	log.WithFields("caller", caller.Hex(), "paused", paused).Warn("emergency pause flag changed")
	return nil
}

// IsPaused reports the pause flag
func (g *Guard) IsPaused(ctx context.Context) (bool, error) {
	return g.store.IsPaused(ctx)
}

// EnsureNotPaused returns ErrSystemPaused while the pause flag is set
func (g *Guard) EnsureNotPaused(ctx context.Context) error {
	paused, err := g.store.IsPaused(ctx)
	if err != nil {
		return err
	}
	if paused {
		return gerror.ErrSystemPaused
	}
	return nil
}

// AddResolver whitelists resolver. Admin only
func (g *Guard) AddResolver(ctx context.Context, caller, resolver common.Address) error {
	if !g.IsAdmin(caller) {
		return errors.Wrapf(gerror.ErrUnauthorized, "%s is not an admin", caller.Hex())
	}
	return g.store.AddResolver(ctx, resolver)
}

// RemoveResolver drops resolver from the whitelist. Admin only
func (g *Guard) RemoveResolver(ctx context.Context, caller, resolver common.Address) error {
	if !g.IsAdmin(caller) {
		return errors.Wrapf(gerror.ErrUnauthorized, "%s is not an admin", caller.Hex())
	}
	return g.store.RemoveResolver(ctx, resolver)
}

// Resolvers returns the current whitelist
func (g *Guard) Resolvers(ctx context.Context) ([]common.Address, error) {
	return g.store.Resolvers(ctx)
}
