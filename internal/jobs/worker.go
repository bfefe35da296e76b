package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"
)

// ScheduleGenerator is implemented by internal/service.ScheduleService; the
// job handler here only decodes the payload and delegates, keeping the
// queue-transport concern separate from the money-engine logic it carries.
type ScheduleGenerator interface {
	GenerateForLoan(ctx context.Context, loanID ScheduleGenerationPayload) error
}

// NewServer builds the asynq worker process' server + mux. On a job's final
// failed attempt (retries exhausted) asynq moves it to the archive
// ("parking" it) instead of retrying indefinitely, matching §4.6.
func NewServer(redisURL string, concurrency int) (*asynq.Server, error) {
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, err
	}
	srv := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues:      map[string]int{"default": 1},
	})
	return srv, nil
}

func NewMux(generator ScheduleGenerator) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskTypeGenerateSchedule, func(ctx context.Context, t *asynq.Task) error {
		var payload ScheduleGenerationPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("unmarshal schedule generation payload: %w", err)
		}
		if err := generator.GenerateForLoan(ctx, payload); err != nil {
			log.Warn().Err(err).Str("loan_id", payload.LoanID.String()).Msg("schedule generation attempt failed")
			return err
		}
		return nil
	})
	return mux
}
