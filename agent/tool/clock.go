package tool

import (
	"context"
	"time"
)

// ClockTool reports the current date and time. It takes no parameters.
type ClockTool struct {
	// now allows tests to pin the clock. Defaults to time.Now.
	now func() time.Time
}

// NewClockTool creates a clock tool using the system clock.
func NewClockTool() *ClockTool {
	return &ClockTool{now: time.Now}
}

// Name implements Tool.
func (c *ClockTool) Name() string {
	return "current_time"
}

// Call implements Tool.
func (c *ClockTool) Call(ctx context.Context, input map[string]interface{}) (string, error) {
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	return "Current date and time: " + c.now().Format("2006-01-02 15:04:05"), nil
}
