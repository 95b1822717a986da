package errors

import stderrors "errors"

// Sentinel errors surfaced by the simulation core. Callers match them with Is.
var (
	ErrNotInitialized          = stderrors.New("simulation not initialized")
	ErrDataUnavailable         = stderrors.New("market data unavailable")
	ErrInvalidMarketParameters = stderrors.New("invalid market parameters")
	ErrInvalidRecipe           = stderrors.New("invalid recipe")
	ErrInvalidAgentConfig      = stderrors.New("invalid agent config")
	ErrUnexpected              = stderrors.New("unexpected simulation failure")
)

// IsConfigurationError reports whether err was caused by the caller's choice of
// symbol, period, interval, roster or recipe rather than by an internal failure.
func IsConfigurationError(err error) bool {
	return Is(err, ErrDataUnavailable) ||
		Is(err, ErrInvalidMarketParameters) ||
		Is(err, ErrInvalidRecipe) ||
		Is(err, ErrInvalidAgentConfig)
}
