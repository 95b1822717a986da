package market

import "autonomity/src/datamodels"

// ReplaySource replays a finite, fixed sequence of bars one step at a time.
type ReplaySource interface {
	CurrentBar() datamodels.Bar
	// RecentWindow returns up to n bars ending at the current one, oldest first.
	RecentWindow(n int) []datamodels.Bar
	// Advance moves to the next bar if there is one. finished reports whether
	// the cursor now sits on the last bar.
	Advance() (bar datamodels.Bar, finished bool)
	IsDone() bool
	TotalBars() int
	CurrentStep() int
}
