// Package events defines the notifications emitted for every vault and order
// state change. They carry enough data to rebuild the protocol history.
package events

import (
	"context"
	"encoding/hex"
	"math/big"
	"sync"
	"time"
)

// Type of an event
type Type string

// Event types
const (
	VaultEstablished Type = "vault_established"
	VaultClaimed     Type = "vault_claimed"
	VaultExpired     Type = "vault_expired"
	VaultRecovered   Type = "vault_recovered"
	OrderCreated     Type = "order_created"
	OrderFilled      Type = "order_filled"
	OrderFulfilled   Type = "order_fulfilled"
	OrderCompleted   Type = "order_completed"
	OrderCancelled   Type = "order_cancelled"
	OrderRefunded    Type = "order_refunded"
	SecretReleased   Type = "secret_released"
)

// Event is one protocol notification. Amounts are decimal strings
type Event struct {
	Type        Type      `json:"type"`
	ChainID     uint64    `json:"chainId,omitempty"`
	VaultID     string    `json:"vaultId,omitempty"`
	OrderID     string    `json:"orderId,omitempty"`
	Actor       string    `json:"actor,omitempty"`
	Amount      string    `json:"amount,omitempty"`
	Remaining   string    `json:"remaining,omitempty"`
	Secret      string    `json:"secret,omitempty"`
	TxHash      string    `json:"txHash,omitempty"`
	ExternalRef string    `json:"externalRef,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// Publisher delivers events to observers
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// FormatAmount renders amount for an event, empty when nil
func FormatAmount(amount *big.Int) string {
	if amount == nil {
		return ""
	}
	return amount.String()
}

// FormatSecret hex encodes a revealed secret
func FormatSecret(secret []byte) string {
	if len(secret) == 0 {
		return ""
	}
	return "0x" + hex.EncodeToString(secret)
}

// Nop drops every event
type Nop struct{}

// Publish implements Publisher
func (Nop) Publish(context.Context, Event) error { return nil }

// Recorder keeps every event in memory
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Publish implements Publisher
func (r *Recorder) Publish(_ context.Context, e Event) error {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
	return nil
}

// Events returns a copy of the recorded events
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// OfType returns the recorded events of type t
func (r *Recorder) OfType(t Type) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// Multi fans an event out to several publishers and returns the first error
type Multi []Publisher

// Publish implements Publisher
func (m Multi) Publish(ctx context.Context, e Event) error {
	var first error
	for _, p := range m {
		if err := p.Publish(ctx, e); err != nil && first == nil {
			first = err
		}
	}
	return first
}
