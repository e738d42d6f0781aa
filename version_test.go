package zkevmswapservice

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrintVersion(t *testing.T) {
	var buf bytes.Buffer
	PrintVersion(&buf)
	assert.Contains(t, buf.String(), "Version:      "+Version)
	assert.Contains(t, buf.String(), "OS/Arch:")
}
