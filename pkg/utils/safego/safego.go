// Package safego provides panic-safe goroutine spawning.
package safego

import (
	"context"
	"runtime/debug"

	"github.com/kiosk404/screenpilot/pkg/logger"
)

// Go runs fn in a new goroutine, recovering and logging any panic so a
// misbehaving background task cannot take down the process.
func Go(ctx context.Context, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("[safego] goroutine panic: %v\n%s", r, debug.Stack())
			}
		}()

		select {
		case <-ctx.Done():
			return
		default:
		}

		fn()
	}()
}
