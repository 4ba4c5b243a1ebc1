package logging

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/zerosync-co/opencode-provider/internal/pubsub"
)

const EventLogCreated pubsub.EventType = "log_created"

type Log struct {
	ID         string
	SessionID  string
	Timestamp  time.Time
	Level      string
	Message    string
	Attributes map[string]string
	CreatedAt  time.Time
}

// Service turns log records into Log entries and publishes them to its
// subscribers. Nothing is retained; a subscriber sees only what is logged
// while it is subscribed.
type Service interface {
	pubsub.Subscriber[Log]

	Create(ctx context.Context, timestamp time.Time, level, message string, attributes map[string]string, sessionID string) error
	Shutdown()
}

type service struct {
	broker *pubsub.Broker[Log]
}

func NewService() Service {
	return &service{broker: pubsub.NewBroker[Log]()}
}

func (s *service) Create(ctx context.Context, timestamp time.Time, level, message string, attributes map[string]string, sessionID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if level == "" {
		level = "info"
	}
	if attributes == nil {
		attributes = make(map[string]string)
	}
	s.broker.Publish(EventLogCreated, Log{
		ID:         uuid.New().String(),
		SessionID:  sessionID,
		Timestamp:  timestamp,
		Level:      level,
		Message:    message,
		Attributes: attributes,
		CreatedAt:  time.Now(),
	})
	return nil
}

func (s *service) Subscribe(ctx context.Context) <-chan pubsub.Event[Log] {
	return s.broker.Subscribe(ctx)
}

func (s *service) Shutdown() {
	s.broker.Shutdown()
}

// RecoverPanic logs a panic, writes its stack trace to a file in the working
// directory and runs cleanup. Use it deferred.
func RecoverPanic(name string, cleanup func()) {
	r := recover()
	if r == nil {
		return
	}
	slog.Error(fmt.Sprintf("Panic in %s: %v", name, r))

	filename := fmt.Sprintf("opencode-provider-panic-%s-%s.log", name, time.Now().Format("20060102-150405"))
	if file, err := os.Create(filename); err != nil {
		slog.Error("failed to create panic log file", "path", filename, "error", err)
	} else {
		fmt.Fprintf(file, "Panic in %s: %v\n\n", name, r)
		fmt.Fprintf(file, "Time: %s\n\n", time.Now().Format(time.RFC3339))
		fmt.Fprintf(file, "Stack Trace:\n%s\n", debug.Stack())
		file.Close()
		slog.Info("panic details written", "path", filename)
	}

	if cleanup != nil {
		cleanup()
	}
}
