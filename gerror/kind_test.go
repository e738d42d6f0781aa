package gerror

import (
	"fmt"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindValidation, KindOf(ErrInvalidAmount))
	assert.Equal(t, KindCryptographic, KindOf(errors.Wrap(ErrSecretConsumed, "vault 0x01")))
	assert.Equal(t, KindSecurity, KindOf(fmt.Errorf("claim: %w", ErrSystemPaused)))
	assert.Equal(t, KindNotFound, KindOf(errors.Wrapf(ErrStorageNotFound, "order %s", "abc")))
	assert.Equal(t, KindInternal, KindOf(errors.New("connection refused")))
	assert.Equal(t, KindInternal, KindOf(nil))
}
