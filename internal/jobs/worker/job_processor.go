package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/taberna/internal/common"
	"github.com/ternarybob/taberna/internal/interfaces"
	"github.com/ternarybob/taberna/internal/models"
	"github.com/ternarybob/taberna/internal/queue"
)

// Processor drains the job queue with a small worker pool. Each attempt runs
// under the job type's hard timeout; failures retry with exponential backoff
// until the retry budget is spent.
type Processor struct {
	queue        interfaces.QueueManager
	jobStorage   interfaces.JobStorage
	events       interfaces.EventService
	lockService  interfaces.LockService
	workers      map[models.JobType]interfaces.JobWorker
	concurrency  int
	pollInterval time.Duration
	retryBackoff time.Duration
	logger       arbor.ILogger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewProcessor creates the queue processor.
func NewProcessor(
	queueManager interfaces.QueueManager,
	jobStorage interfaces.JobStorage,
	events interfaces.EventService,
	lockService interfaces.LockService,
	workers []interfaces.JobWorker,
	config *common.Config,
	logger arbor.ILogger,
) *Processor {
	workerMap := make(map[models.JobType]interfaces.JobWorker, len(workers))
	for _, w := range workers {
		workerMap[w.JobType()] = w
	}

	concurrency := config.Queue.Concurrency
	if concurrency <= 0 {
		concurrency = 2
	}

	return &Processor{
		queue:        queueManager,
		jobStorage:   jobStorage,
		events:       events,
		lockService:  lockService,
		workers:      workerMap,
		concurrency:  concurrency,
		pollInterval: common.Duration(config.Queue.PollInterval, 250*time.Millisecond),
		retryBackoff: common.Duration(config.Jobs.RetryBackoff, time.Second),
		logger:       logger,
	}
}

// Start launches the worker pool.
func (p *Processor) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	for i := 0; i < p.concurrency; i++ {
		p.wg.Add(1)
		go p.loop(ctx)
	}
	p.logger.Info().
		Int("concurrency", p.concurrency).
		Msg("Job processor started")
}

// Stop cancels the pool and waits for in-flight jobs to settle.
func (p *Processor) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
	p.logger.Info().Msg("Job processor stopped")
}

func (p *Processor) loop(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		job, ack, err := p.queue.Receive(ctx)
		if err != nil {
			if !errors.Is(err, queue.ErrNoMessage) {
				p.logger.Warn().Err(err).Msg("Queue receive failed")
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(p.pollInterval):
			}
			continue
		}

		p.process(ctx, job, ack)
	}
}

func (p *Processor) process(ctx context.Context, job *models.SyncJob, ack func() error) {
	// Prefer the persisted job state; it carries retry counts across
	// requeues and restarts.
	if stored, err := p.jobStorage.GetJob(ctx, job.JobID); err == nil && stored != nil {
		job = stored
	}
	if job.IsTerminal() {
		p.ack(job.JobID, ack)
		return
	}

	worker, ok := p.workers[job.Type]
	if !ok {
		p.logger.Error().
			Str("job_id", job.JobID).
			Str("type", string(job.Type)).
			Msg("No worker registered for job type, dropping")
		p.ack(job.JobID, ack)
		return
	}

	job.MarkStarted()
	p.saveJob(ctx, job)
	p.events.Publish(interfaces.Event{
		Type:    interfaces.EventJobStarted,
		JobID:   job.JobID,
		StoreID: job.StoreID,
		JobType: job.Type,
	})

	start := time.Now()
	result, err := p.execute(ctx, worker, job)
	elapsed := time.Since(start)

	if err == nil {
		job.MarkCompleted()
		p.saveJob(ctx, job)
		p.ack(job.JobID, ack)

		if result == nil {
			result = &models.JobResult{JobID: job.JobID, Success: true}
		}
		result.ExecutionTimeMs = elapsed.Milliseconds()
		p.events.Publish(interfaces.Event{
			Type:    interfaces.EventJobCompleted,
			JobID:   job.JobID,
			StoreID: job.StoreID,
			JobType: job.Type,
			Result:  result,
		})
		p.logger.Info().
			Str("job_id", job.JobID).
			Dur("elapsed", elapsed).
			Msg("Job completed")
		return
	}

	p.handleFailure(ctx, job, ack, err, elapsed)
}

// execute runs one attempt under the worker's hard timeout.
func (p *Processor) execute(ctx context.Context, worker interfaces.JobWorker, job *models.SyncJob) (*models.JobResult, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, worker.Timeout())
	defer cancel()

	type outcome struct {
		result *models.JobResult
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		result, err := worker.Execute(attemptCtx, job)
		done <- outcome{result, err}
	}()

	select {
	case o := <-done:
		return o.result, o.err
	case <-attemptCtx.Done():
		// Deletion holds the store lock; make sure an abandoned attempt
		// cannot leave the store locked until the TTL saves it.
		if job.Type == models.JobTypeDelete {
			p.logger.Warn().
				Str("job_id", job.JobID).
				Str("store_id", job.StoreID).
				Msg("Delete attempt timed out, releasing deletion lock")
			p.lockService.Unlock(job.StoreID)
		}
		return nil, fmt.Errorf("job timed out after %s", worker.Timeout())
	}
}

func (p *Processor) handleFailure(ctx context.Context, job *models.SyncJob, ack func() error, execErr error, elapsed time.Duration) {
	result := &models.JobResult{
		JobID:           job.JobID,
		Success:         false,
		ExecutionTimeMs: elapsed.Milliseconds(),
		Error:           execErr.Error(),
	}

	// Rejected credentials fail every attempt the same way; mark the job
	// terminal immediately instead of hammering the platform with a dead
	// token, and flag that the merchant must reconnect.
	var reconnectErr *models.ReconnectRequiredError
	if errors.As(execErr, &reconnectErr) {
		result.ReconnectRequired = true
		job.MarkFailedFatal(execErr.Error())
		p.saveJob(ctx, job)
		p.ack(job.JobID, ack)

		p.events.Publish(interfaces.Event{
			Type:    interfaces.EventJobFailed,
			JobID:   job.JobID,
			StoreID: job.StoreID,
			JobType: job.Type,
			Result:  result,
		})
		p.logger.Error().
			Str("job_id", job.JobID).
			Str("store_id", job.StoreID).
			Err(execErr).
			Msg("Job failed permanently, store reconnection required")
		return
	}

	if job.CanRetry() {
		job.PrepareRetry()
		p.saveJob(ctx, job)
		p.ack(job.JobID, ack)

		// Exponential backoff keyed to how many retries have happened.
		delay := p.retryBackoff
		for i := 1; i < job.RetryCount; i++ {
			delay *= 2
		}
		if err := p.queue.Enqueue(ctx, job, delay); err != nil {
			p.logger.Error().
				Str("job_id", job.JobID).
				Err(err).
				Msg("Failed to requeue job for retry")
		}

		p.events.Publish(interfaces.Event{
			Type:    interfaces.EventJobRetried,
			JobID:   job.JobID,
			StoreID: job.StoreID,
			JobType: job.Type,
			Result:  result,
		})
		p.logger.Warn().
			Str("job_id", job.JobID).
			Int("retry_count", job.RetryCount).
			Dur("delay", delay).
			Err(execErr).
			Msg("Job failed, retrying")
		return
	}

	job.MarkFailed(execErr.Error())
	p.saveJob(ctx, job)
	p.ack(job.JobID, ack)

	p.events.Publish(interfaces.Event{
		Type:    interfaces.EventJobFailed,
		JobID:   job.JobID,
		StoreID: job.StoreID,
		JobType: job.Type,
		Result:  result,
	})
	p.logger.Error().
		Str("job_id", job.JobID).
		Int("retry_count", job.RetryCount).
		Err(execErr).
		Msg("Job failed permanently")
}

func (p *Processor) saveJob(ctx context.Context, job *models.SyncJob) {
	if err := p.jobStorage.SaveJob(ctx, job); err != nil {
		p.logger.Warn().
			Str("job_id", job.JobID).
			Err(err).
			Msg("Failed to persist job state")
	}
}

func (p *Processor) ack(jobID string, ack func() error) {
	if err := ack(); err != nil {
		p.logger.Warn().
			Str("job_id", jobID).
			Err(err).
			Msg("Failed to acknowledge queue message")
	}
}
