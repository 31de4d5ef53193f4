package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

var (
	ErrQueueFull   = errors.New("job queue is full")
	ErrQueueClosed = errors.New("job queue is closed")
)

// QueueConfig sizes the job queue.
type QueueConfig struct {
	MaxQueueSize int
	JobTTL       time.Duration
	// CleanupInterval defaults to five minutes.
	CleanupInterval time.Duration
}

// Queue feeds submitted jobs to a single worker. The model behind the
// worker serves one request at a time, so more workers would only wait.
type Queue struct {
	jobs   *JobStore
	queue  chan *Job
	worker *Worker
	log    *slog.Logger
	cfg    QueueConfig

	mu     sync.Mutex
	closed bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewQueue(w *Worker, cfg QueueConfig, log *slog.Logger) *Queue {
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 100
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = time.Hour
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = 5 * time.Minute
	}
	return &Queue{
		jobs:   NewJobStore(cfg.JobTTL),
		queue:  make(chan *Job, cfg.MaxQueueSize),
		worker: w,
		log:    log,
		cfg:    cfg,
	}
}

// Start launches the worker and the job cleanup loop.
func (q *Queue) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	q.cancel = cancel

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		for {
			select {
			case <-workerCtx.Done():
				return
			case job, ok := <-q.queue:
				if !ok {
					return
				}
				q.worker.Process(workerCtx, job)
			}
		}
	}()

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		ticker := time.NewTicker(q.cfg.CleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				q.jobs.Cleanup()
			}
		}
	}()
}

// Stop cancels the running job and waits for the worker to exit. Jobs
// still queued are left as they are.
func (q *Queue) Stop() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.queue)
	q.mu.Unlock()

	if q.cancel != nil {
		q.cancel()
	}
	q.wg.Wait()
}

// Submit registers job and queues it for processing.
func (q *Queue) Submit(job *Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrQueueClosed
	}

	q.jobs.Put(job)
	select {
	case q.queue <- job:
		q.log.Info("job queued", "job_id", job.ID, "kind", job.Kind, "filename", job.Filename, "depth", len(q.queue))
		return nil
	default:
		job.SetStatus(StatusFailed, "queue_full")
		job.release()
		return fmt.Errorf("%w (%d)", ErrQueueFull, q.cfg.MaxQueueSize)
	}
}

// GetJob returns a job by ID.
func (q *Queue) GetJob(id string) *Job {
	return q.jobs.Get(id)
}

// QueueDepth returns current queue depth.
func (q *Queue) QueueDepth() int {
	return len(q.queue)
}
