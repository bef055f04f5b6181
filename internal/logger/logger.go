package logger

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/jwebster45206/encounter-engine/internal/config"
)

// Setup configures the global slog logger based on environment
func Setup(cfg *config.Config) *slog.Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	if cfg.Environment == "production" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)

	return logger
}

// WithError adds error to logger context
func WithError(logger *slog.Logger, err error) *slog.Logger {
	return logger.With("error", err.Error())
}

// EventLogger rate-limits repetitive log lines. Each event+entity pair may
// log once per interval; further lines inside the window are dropped and
// counted, and the count is attached to the next line that gets through.
type EventLogger struct {
	log      *slog.Logger
	interval time.Duration

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	dropped  map[string]int
}

// NewEventLogger wraps log. A nil log uses slog.Default(); a non-positive
// interval disables rate limiting.
func NewEventLogger(log *slog.Logger, interval time.Duration) *EventLogger {
	if log == nil {
		log = slog.Default()
	}
	return &EventLogger{
		log:      log,
		interval: interval,
		limiters: make(map[string]*rate.Limiter),
		dropped:  make(map[string]int),
	}
}

// Logger returns the underlying logger.
func (l *EventLogger) Logger() *slog.Logger {
	return l.log
}

// Log writes msg at level unless the event/entity pair already logged inside
// the current interval. It reports whether the line was written.
func (l *EventLogger) Log(ctx context.Context, level slog.Level, event, entityID, msg string, args ...any) bool {
	if !l.log.Enabled(ctx, level) {
		return false
	}
	key := event + "|" + entityID

	l.mu.Lock()
	allowed := true
	dropped := 0
	if l.interval > 0 {
		lim, ok := l.limiters[key]
		if !ok {
			lim = rate.NewLimiter(rate.Every(l.interval), 1)
			l.limiters[key] = lim
		}
		allowed = lim.Allow()
		if !allowed {
			l.dropped[key]++
		} else {
			dropped = l.dropped[key]
			delete(l.dropped, key)
		}
	}
	l.mu.Unlock()

	if !allowed {
		return false
	}
	attrs := append([]any{"event", event, "entity_id", entityID}, args...)
	if dropped > 0 {
		attrs = append(attrs, "suppressed", dropped)
	}
	l.log.Log(ctx, level, msg, attrs...)
	return true
}

func (l *EventLogger) Debug(event, entityID, msg string, args ...any) bool {
	return l.Log(context.Background(), slog.LevelDebug, event, entityID, msg, args...)
}

func (l *EventLogger) Info(event, entityID, msg string, args ...any) bool {
	return l.Log(context.Background(), slog.LevelInfo, event, entityID, msg, args...)
}

func (l *EventLogger) Warn(event, entityID, msg string, args ...any) bool {
	return l.Log(context.Background(), slog.LevelWarn, event, entityID, msg, args...)
}
