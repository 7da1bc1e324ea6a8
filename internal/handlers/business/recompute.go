package business

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"

	"profitpool/internal/allocation"
	"profitpool/internal/models"
	"profitpool/pkg/config"
)

// RecomputeMessage is the body of a queued recompute request.
type RecomputeMessage struct {
	StartDate models.Date `json:"start_date"`
	EndDate   models.Date `json:"end_date"`
	Reason    string      `json:"reason"`
}

// Recomputer brings the derived allocations of a range up to date. A nil
// result means the work was handed off and has not run yet.
type Recomputer interface {
	Recompute(ctx context.Context, msg RecomputeMessage) (*allocation.Result, error)
}

// InlineRecomputer runs the engine in the calling goroutine.
type InlineRecomputer struct {
	Engine *allocation.Engine
}

func (r InlineRecomputer) Recompute(ctx context.Context, msg RecomputeMessage) (*allocation.Result, error) {
	return r.Engine.RunAllocationForRange(ctx, msg.StartDate, msg.EndDate)
}

// MessagePublisher is satisfied by config.Publisher.
type MessagePublisher interface {
	Publish(ctx context.Context, queueName string, message interface{}) error
}

// QueuedRecomputer hands the range to the recompute worker.
type QueuedRecomputer struct {
	Publisher MessagePublisher
	Queue     string
}

func (r QueuedRecomputer) Recompute(ctx context.Context, msg RecomputeMessage) (*allocation.Result, error) {
	if err := allocation.ValidateRange(msg.StartDate, msg.EndDate); err != nil {
		return nil, err
	}
	if err := r.Publisher.Publish(ctx, r.Queue, msg); err != nil {
		return nil, fmt.Errorf("enqueue recompute: %w", err)
	}
	return nil, nil
}

// RecomputeHandler returns the queue handler used by the recompute worker.
// Messages that can never succeed are discarded; store failures are
// requeued.
func RecomputeHandler(engine *allocation.Engine, after func(ctx context.Context) error, log *logrus.Entry) config.Handler {
	return func(ctx context.Context, body []byte) error {
		var msg RecomputeMessage
		if err := json.Unmarshal(body, &msg); err != nil {
			return fmt.Errorf("%w: decode recompute message: %v", config.ErrDiscard, err)
		}
		entry := log.WithFields(logrus.Fields{
			"start_date": msg.StartDate.String(),
			"end_date":   msg.EndDate.String(),
			"reason":     msg.Reason,
		})

		res, err := engine.RunAllocationForRange(ctx, msg.StartDate, msg.EndDate)
		if err != nil {
			if allocation.IsInvalidInput(err) {
				entry.WithError(err).Error("recompute rejected")
				return fmt.Errorf("%w: %v", config.ErrDiscard, err)
			}
			entry.WithError(err).Warn("recompute failed")
			return err
		}
		entry.WithField("allocations", len(res.Allocations)).Info("recompute done")

		if after != nil {
			if err := after(ctx); err != nil {
				entry.WithError(err).Warn("post-recompute hook failed")
			}
		}
		return nil
	}
}
