// Package msgworker runs the fire-and-forget side tasks of the ingestion
// pipeline (media storage, auto-response) on a fixed pool of workers. Jobs
// for the same conversation are routed to the same worker so their effects
// stay ordered; dispatch never blocks the webhook response.
package msgworker

import (
	"context"
	"hash/fnv"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// Job is one unit of deferred work tied to a tenant conversation.
type Job struct {
	TenantID       string
	ConversationID string
	Name           string
	Handler        func(ctx context.Context) error
}

// PoolStats exposes runtime counters for the monitoring endpoint.
type PoolStats struct {
	NumWorkers      int   `json:"num_workers"`
	QueueSize       int   `json:"queue_size"`
	TotalDispatched int64 `json:"total_dispatched"`
	TotalProcessed  int64 `json:"total_processed"`
	TotalDropped    int64 `json:"total_dropped"`
	TotalErrors     int64 `json:"total_errors"`
}

// Pool distributes jobs across workers by conversation key.
type Pool struct {
	numWorkers int
	queueSize  int
	queues     []chan Job
	wg         sync.WaitGroup
	stopOnce   sync.Once
	stopped    int32

	totalDispatched int64
	totalProcessed  int64
	totalDropped    int64
	totalErrors     int64
}

// NewPool creates a pool; Start must be called before dispatching.
func NewPool(numWorkers, queueSize int) *Pool {
	if numWorkers <= 0 {
		numWorkers = 8
	}
	if queueSize <= 0 {
		queueSize = 256
	}
	p := &Pool{
		numWorkers: numWorkers,
		queueSize:  queueSize,
		queues:     make([]chan Job, numWorkers),
	}
	for i := range p.queues {
		p.queues[i] = make(chan Job, queueSize)
	}
	return p
}

// Start launches the workers. They exit when ctx is cancelled or Stop is
// called.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.run(ctx, i)
	}
}

// Dispatch enqueues a job without blocking. When the target worker's queue
// is full the job is dropped and counted; side tasks are best-effort.
func (p *Pool) Dispatch(job Job) {
	if atomic.LoadInt32(&p.stopped) == 1 || job.Handler == nil {
		return
	}

	idx := p.workerFor(job.TenantID + "|" + job.ConversationID)
	select {
	case p.queues[idx] <- job:
		atomic.AddInt64(&p.totalDispatched, 1)
	default:
		atomic.AddInt64(&p.totalDropped, 1)
		logrus.WithFields(logrus.Fields{
			"job":             job.Name,
			"tenant_id":       job.TenantID,
			"conversation_id": job.ConversationID,
			"worker":          idx,
		}).Warn("[WORKER_POOL] Queue full, dropping job")
	}
}

// Stop closes the queues and waits for in-flight jobs to finish.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() {
		atomic.StoreInt32(&p.stopped, 1)
		for _, q := range p.queues {
			close(q)
		}
	})
	p.wg.Wait()
}

// GetStats returns a snapshot of the pool counters.
func (p *Pool) GetStats() PoolStats {
	return PoolStats{
		NumWorkers:      p.numWorkers,
		QueueSize:       p.queueSize,
		TotalDispatched: atomic.LoadInt64(&p.totalDispatched),
		TotalProcessed:  atomic.LoadInt64(&p.totalProcessed),
		TotalDropped:    atomic.LoadInt64(&p.totalDropped),
		TotalErrors:     atomic.LoadInt64(&p.totalErrors),
	}
}

func (p *Pool) workerFor(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(p.numWorkers))
}

func (p *Pool) run(ctx context.Context, id int) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-p.queues[id]:
			if !ok {
				return
			}
			p.execute(ctx, id, job)
		}
	}
}

func (p *Pool) execute(ctx context.Context, id int, job Job) {
	defer func() {
		if r := recover(); r != nil {
			atomic.AddInt64(&p.totalErrors, 1)
			logrus.Errorf("[WORKER_POOL] Worker %d panic in job %s: %v", id, job.Name, r)
		}
	}()

	if err := job.Handler(ctx); err != nil {
		atomic.AddInt64(&p.totalErrors, 1)
		logrus.WithFields(logrus.Fields{
			"job":             job.Name,
			"conversation_id": job.ConversationID,
			"worker":          id,
		}).Warnf("[WORKER_POOL] Job failed: %v", err)
	}
	atomic.AddInt64(&p.totalProcessed, 1)
}
