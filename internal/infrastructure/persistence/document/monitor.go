package document

import (
	"context"
	"time"

	"github.com/storefront/backend/internal/infrastructure/logger"
	"go.mongodb.org/mongo-driver/event"
	"go.uber.org/zap"
)

// SlowCommandThreshold is the duration above which a successful command is logged as a warning
const SlowCommandThreshold = 200 * time.Millisecond

// NewCommandMonitor reports failed and slow commands through zap. Successful
// commands are logged at debug level.
func NewCommandMonitor(log *zap.Logger) *event.CommandMonitor {
	return &event.CommandMonitor{
		Succeeded: func(ctx context.Context, evt *event.CommandSucceededEvent) {
			fields := commandFields(ctx, evt.CommandName, evt.DatabaseName, evt.RequestID, evt.Duration)
			if evt.Duration > SlowCommandThreshold {
				log.Warn("Slow MongoDB command", fields...)
				return
			}
			log.Debug("MongoDB command", fields...)
		},
		Failed: func(ctx context.Context, evt *event.CommandFailedEvent) {
			fields := commandFields(ctx, evt.CommandName, evt.DatabaseName, evt.RequestID, evt.Duration)
			fields = append(fields, zap.String("failure", evt.Failure))
			log.Error("MongoDB command failed", fields...)
		},
	}
}

func commandFields(ctx context.Context, name, database string, requestID int64, elapsed time.Duration) []zap.Field {
	fields := []zap.Field{
		zap.String("command", name),
		zap.String("database", database),
		zap.Int64("driver_request_id", requestID),
		zap.Duration("elapsed", elapsed),
	}
	if id := logger.GetRequestID(ctx); id != "" {
		fields = append(fields, zap.String("request_id", id))
	}
	return fields
}
