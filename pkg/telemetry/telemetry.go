// Package telemetry is the fire-and-forget event boundary. The engine
// names what happened (World.Clock.Advanced, Player.Clock.Reconciled,
// ...) and hands off structured fields; emitters never block, never fail
// the caller, and are trivially swappable for a metrics backend.
package telemetry

import "github.com/rs/zerolog"

// Emitter receives named events with structured fields.
type Emitter interface {
	Emit(event string, fields map[string]any)
}

// Log emits events through zerolog at info level.
type Log struct {
	log zerolog.Logger
}

// NewLog builds a zerolog-backed emitter.
func NewLog(log zerolog.Logger) *Log {
	return &Log{log: log}
}

// Emit writes the event as one structured log line.
func (t *Log) Emit(event string, fields map[string]any) {
	t.log.Info().Fields(fields).Str("event", event).Msg(event)
}

// Nop discards every event. Used in tests and by callers that opt out.
type Nop struct{}

// Emit does nothing.
func (Nop) Emit(string, map[string]any) {}

var (
	_ Emitter = (*Log)(nil)
	_ Emitter = Nop{}
)
