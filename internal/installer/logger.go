package installer

import (
	"github.com/hashicorp/go-hclog"

	"github.com/kyrylokulyhin/pour/internal/formula"
)

// Logger is shared with the descriptor loader so that one logger can be
// handed to both.
type Logger = formula.Logger

func defaultLogger() Logger {
	return hclog.NewNullLogger()
}
