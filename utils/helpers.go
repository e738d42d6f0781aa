package utils

import (
	"context"
	"crypto/rand"
	"math/big"
)

const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func generateRandomString(length int) string {
	b := make([]byte, length)
	max := big.NewInt(int64(len(charset)))
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic(err)
		}
		b[i] = charset[n.Int64()]
	}
	return string(b)
}

// GenerateTraceID generates a random trace ID.
func GenerateTraceID() string {
	return generateRandomString(traceIDLen)
}

// WithTraceID attaches a fresh trace id to the context unless one is already present.
func WithTraceID(ctx context.Context) context.Context {
	if _, ok := ctx.Value(CtxTraceID).(string); ok {
		return ctx
	}
	return context.WithValue(ctx, CtxTraceID, GenerateTraceID())
}

// RandomBytes returns n bytes read from the system CSPRNG.
func RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}

// MinBig returns the smaller of x and y.
func MinBig(x, y *big.Int) *big.Int {
	if x.Cmp(y) < 0 {
		return x
	}
	return y
}
