package tui

const (
	DefaultPaddingX = 1
	DefaultPaddingY = 0

	// EventChannelBuffer sizes the channel the Task Manager's emitter
	// fans events into for a watched task.
	EventChannelBuffer = 32
)
