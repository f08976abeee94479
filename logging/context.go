package logging

import (
	"context"

	"go.viam.com/utils"
)

type ctxKey int

const debugModeKey = ctxKey(iota)

// EnableDebugMode marks a context so CDebug logging emits regardless of
// logger level, letting one notification be traced verbosely. The key names
// the trace in log output; when empty a random one is generated.
func EnableDebugMode(ctx context.Context, debugLogKey string) context.Context {
	if debugLogKey == "" {
		debugLogKey = utils.RandomAlphaString(6)
	}
	return context.WithValue(ctx, debugModeKey, debugLogKey)
}

// IsDebugMode reports whether EnableDebugMode was applied to the context.
func IsDebugMode(ctx context.Context) bool {
	return GetName(ctx) != ""
}

// GetName returns the debug trace key attached to the context, or empty.
func GetName(ctx context.Context) string {
	if key, ok := ctx.Value(debugModeKey).(string); ok {
		return key
	}
	return ""
}
