package worker

import (
	"errors"
	"sync"

	"github.com/abdurrahmanaziz/eksporyuk-sub039/pkg/logger"
)

type Handler = func(workerIndex int, job interface{})

// Pool distributes jobs over a fixed set of goroutines. The job
// channel may be shared with other producers; Exit stops the workers
// without closing it.
type Pool struct {
	jobs    chan interface{}
	workers int
	stop    chan struct{}
	do      Handler
	waiter  *sync.WaitGroup
}

func NewPool(bufferSize, workers int, jobs chan interface{}) *Pool {
	if jobs == nil {
		jobs = make(chan interface{}, bufferSize)
	}
	return &Pool{
		jobs:    jobs,
		workers: workers,
		stop:    make(chan struct{}),
		waiter:  &sync.WaitGroup{},
	}
}

func (p *Pool) SetWorker(do Handler) {
	p.do = do
}

func (p *Pool) Enqueue(job interface{}) {
	p.jobs <- job
}

func (p *Pool) Backlog() int64 {
	return int64(len(p.jobs))
}

// Start blocks until Exit is called.
func (p *Pool) Start() error {
	if p.do == nil {
		return errors.New("worker handler not set")
	}
	p.waiter.Add(p.workers)
	for i := 0; i < p.workers; i++ {
		go func(index int) {
			defer p.waiter.Done()
			for {
				select {
				case job := <-p.jobs:
					p.do(index, job)
				case <-p.stop:
					return
				}
			}
		}(i)
	}
	p.waiter.Wait()
	return errors.New("workers terminated")
}

func (p *Pool) Exit() {
	logger.Info("worker pool shutting down", "workers", p.workers)
	close(p.stop)
}
