package logging

import (
	"log/slog"
	"os"
	"strings"
)

// Init configures the global slog logger.
// In production (ENVIRONMENT=production) it uses JSON output for log aggregation.
// Otherwise it uses the human-readable text handler.
func Init() {
	env := strings.ToLower(os.Getenv("ENVIRONMENT"))

	var handler slog.Handler
	if env == "production" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})
	}

	slog.SetDefault(slog.New(handler))
}

// WithCircuit returns a logger with circuit context fields attached.
// Use this for all logging tied to a single session's traffic.
func WithCircuit(circuitCode uint32, sessionID, regionID string) *slog.Logger {
	return slog.With(
		"circuit_code", circuitCode,
		"session_id", sessionID,
		"region_id", regionID,
	)
}

// WithCapability returns a logger scoped to one capability call.
func WithCapability(logger *slog.Logger, capability, remoteIP string) *slog.Logger {
	return logger.With(
		"capability", capability,
		"remote_ip", remoteIP,
	)
}
