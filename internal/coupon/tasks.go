package coupon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/hamropasal/backend-storefront/internal/events"
)

// TaskTypeIssue is the asynq task type for reward coupon issuance.
const TaskTypeIssue = "coupon:issue"

// IssuePayload is the task payload for coupon issuance.
type IssuePayload struct {
	UserID  uuid.UUID `json:"userId"`
	OrderID uuid.UUID `json:"orderId"`
}

// NewIssueTask builds an issuance task deduplicated per user and order, so a
// replayed settlement never mints twice.
func NewIssueTask(p IssuePayload) (*asynq.Task, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("coupon: encode issue payload: %w", err)
	}
	return asynq.NewTask(TaskTypeIssue, data, asynq.MaxRetry(5), asynq.Unique(time.Hour)), nil
}

// HandleIssueTask processes an issuance task. A malformed payload is dropped
// rather than retried.
func (i *Issuer) HandleIssueTask(ctx context.Context, t *asynq.Task) error {
	var p IssuePayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("coupon: decode issue payload: %v: %w", err, asynq.SkipRetry)
	}
	if p.UserID == uuid.Nil {
		return fmt.Errorf("coupon: issue payload missing user id: %w", asynq.SkipRetry)
	}
	_, err := i.IssueFor(ctx, p.UserID)
	return err
}

// RewardEnqueuer reacts to threshold-crossed events by queueing an issuance
// task for the worker.
type RewardEnqueuer struct {
	Client *asynq.Client
}

// Notify implements events.Notifier.
func (e *RewardEnqueuer) Notify(ctx context.Context, event events.Event) error {
	if e == nil || e.Client == nil {
		return nil
	}
	if event.Topic != events.TopicCouponThresholdCrossed {
		return nil
	}
	var p IssuePayload
	if err := json.Unmarshal(event.Payload, &p); err != nil {
		return fmt.Errorf("coupon: decode threshold event: %w", err)
	}
	task, err := NewIssueTask(p)
	if err != nil {
		return err
	}
	if _, err := e.Client.EnqueueContext(ctx, task); err != nil {
		if errors.Is(err, asynq.ErrDuplicateTask) {
			return nil
		}
		return fmt.Errorf("coupon: enqueue issue task: %w", err)
	}
	return nil
}
