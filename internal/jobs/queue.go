// Package jobs implements the deferred schedule generator (§4.6) as a
// durable task queue. No pack repo runs a background job queue; asynq is
// the Go ecosystem's closest analogue to BullMQ (Redis-backed, built-in
// bounded exponential-backoff retry, dead-task parking after the final
// attempt) and is named explicitly by SPEC_FULL.md for this concern. The
// in-process registration idiom (one handler per task type, registered on a
// mux at worker startup) mirrors the teacher's websocket hub
// register/unregister shape even though the transport here is durable
// rather than an in-memory channel.
package jobs

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
	"github.com/google/uuid"
)

const TaskTypeGenerateSchedule = "schedule:generate"

// ScheduleGenerationPayload is the job's sole input: a loan id. The handler
// re-reads the loan and its terms; it never trusts data stashed in the job
// payload beyond the id.
type ScheduleGenerationPayload struct {
	LoanID uuid.UUID `json:"loanId"`
}

// Queue wraps the asynq client; it is one of the three process-wide handles
// the design notes allow.
type Queue struct {
	client *asynq.Client
}

func NewQueue(redisURL string) (*Queue, error) {
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, err
	}
	return &Queue{client: asynq.NewClient(opt)}, nil
}

func (q *Queue) Close() error { return q.client.Close() }

// SubmitScheduleGeneration enqueues the job with ≤3 attempts and the
// library's default exponential backoff, matching §4.6's failure policy.
func (q *Queue) SubmitScheduleGeneration(ctx context.Context, loanID uuid.UUID) error {
	payload, err := json.Marshal(ScheduleGenerationPayload{LoanID: loanID})
	if err != nil {
		return err
	}
	task := asynq.NewTask(TaskTypeGenerateSchedule, payload)
	_, err = q.client.EnqueueContext(ctx, task,
		asynq.MaxRetry(2),
		asynq.Timeout(30*time.Second),
		asynq.Queue("default"),
	)
	return err
}
