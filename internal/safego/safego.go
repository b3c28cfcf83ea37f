// Package safego launches background goroutines that cannot take the process
// down with them.
package safego

import (
	"log/slog"
	"runtime/debug"
)

// Go runs fn in a new goroutine under the given task name. A panic in fn is
// recovered and logged with the task name and stack.
func Go(task string, fn func()) {
	go func() {
		defer Recover(task)
		fn()
	}()
}

// Recover must be deferred directly. It swallows a panic and logs it.
func Recover(task string) {
	if r := recover(); r != nil {
		slog.Error("recovered panic in background task",
			"task", task, "panic", r, "stack", string(debug.Stack()))
	}
}
