package consts

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUniverses(t *testing.T) {
	assert.Len(t, AllowedSymbols, 20)
	assert.Len(t, ScanSymbols, 10)

	assert.True(t, IsAllowed("AAPL"))
	assert.True(t, IsAllowed("F"))
	assert.False(t, IsAllowed("ZZZZ"))
	assert.False(t, IsAllowed("aapl"))

	// scan-only symbols are not tradeable
	for _, s := range []string{"JPM", "WMT", "V"} {
		assert.False(t, IsAllowed(s), s)
	}
}
