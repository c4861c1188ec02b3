package installer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// DefaultSmokeTestTimeout bounds a smoke test run.
const DefaultSmokeTestTimeout = 30 * time.Second

// maxSmokeOutput is how much child output is kept for error messages.
const maxSmokeOutput = 4096

// SmokeResult is the outcome of running an installed binary.
type SmokeResult struct {
	ExitCode int
	Output   string // combined stdout and stderr, truncated
}

// SmokeTest runs path with args and returns its exit status. A non-zero
// exit, or a failure to start the process, returns ErrVerification; the
// result is still returned when the process ran.
func SmokeTest(ctx context.Context, path string, args ...string) (*SmokeResult, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultSmokeTestTimeout)
		defer cancel()
	}

	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Stdout = &out
	cmd.Stderr = &out

	err := cmd.Run()

	result := &SmokeResult{Output: truncate(out.String(), maxSmokeOutput)}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return result, nil
	case errors.As(err, &exitErr):
		result.ExitCode = exitErr.ExitCode()
		if result.ExitCode < 0 {
			// killed by a signal
			result.ExitCode = 1
		}
		return result, fmt.Errorf("%w: %s %s exited with status %d: %s",
			ErrVerification, path, strings.Join(args, " "), result.ExitCode, strings.TrimSpace(result.Output))
	default:
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrVerification, path, ctx.Err())
		}
		return nil, fmt.Errorf("%w: run %s: %w", ErrVerification, path, err)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "...(truncated)"
}
