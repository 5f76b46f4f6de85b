package logger

import "context"

// Logger is the structured logger used by the sweep drivers and the API.
// Fields are attached as key/value pairs to a single entry.
type Logger interface {
	Debug(ctx context.Context, msg string, fields map[string]interface{})
	Info(ctx context.Context, msg string, fields map[string]interface{})
	Warn(ctx context.Context, msg string, fields map[string]interface{})
	Error(ctx context.Context, msg string, fields map[string]interface{})

	// WithField returns a logger that adds key to every entry it writes.
	WithField(key string, value interface{}) Logger

	// WithFields returns a logger that adds all of fields to every entry it writes.
	WithFields(fields map[string]interface{}) Logger
}
