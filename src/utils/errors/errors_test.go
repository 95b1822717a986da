package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapKeepsChain(t *testing.T) {
	base := fmt.Errorf("boom")
	err := Wrap(base, "while stepping")
	assert.True(t, Is(err, base))
	assert.Contains(t, err.Error(), "errors_test.go")
	assert.Contains(t, err.Error(), "while stepping")
}

func TestWrapefKeepsBothErrors(t *testing.T) {
	original := fmt.Errorf("404 from provider")
	err := Wrapef(ErrDataUnavailable, original, "symbol %s", "ZZZZ")
	assert.True(t, Is(err, ErrDataUnavailable))
	assert.True(t, Is(err, original))
	assert.Contains(t, err.Error(), "symbol ZZZZ")
}

func TestIsConfigurationError(t *testing.T) {
	assert.True(t, IsConfigurationError(WrapE(ErrInvalidMarketParameters, New("bad period"))))
	assert.True(t, IsConfigurationError(Wrap(ErrDataUnavailable, "no rows")))
	assert.True(t, IsConfigurationError(Wrap(ErrInvalidRecipe, "unknown mode")))
	assert.True(t, IsConfigurationError(Wrap(ErrInvalidAgentConfig, "agent names must be unique")))
	assert.False(t, IsConfigurationError(Wrap(ErrUnexpected, "panic")))
	assert.False(t, IsConfigurationError(ErrNotInitialized))
}
