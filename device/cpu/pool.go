package cpu

import (
	"runtime"
	"sync"
)

// serialThreshold is the minimum number of work groups worth fanning out.
// Below this, running inline is faster than waking the workers.
const serialThreshold = 4

// chunk is a contiguous range of work-group indices for one worker.
type chunk struct {
	start, end int
	fn         func(start, end int)
}

// pool is a persistent set of worker goroutines executing dispatch chunks.
type pool struct {
	numWorkers int

	workChan chan chunk
	doneChan chan struct{}
	stopChan chan struct{}
	wg       sync.WaitGroup
	running  bool
}

func newPool(workers int) *pool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &pool{numWorkers: workers}
}

// start launches the workers if they are not running yet.
func (p *pool) start() {
	if p.running {
		return
	}

	p.workChan = make(chan chunk, p.numWorkers)
	p.doneChan = make(chan struct{}, p.numWorkers)
	p.stopChan = make(chan struct{})
	p.running = true

	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

// stop signals all workers to exit and waits for them.
func (p *pool) stop() {
	if !p.running {
		return
	}

	close(p.stopChan)
	p.wg.Wait()
	close(p.workChan)
	close(p.doneChan)
	p.running = false
}

func (p *pool) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopChan:
			return
		case c, ok := <-p.workChan:
			if !ok {
				return
			}
			c.fn(c.start, c.end)
			p.doneChan <- struct{}{}
		}
	}
}

// run executes fn over [0, n) split into per-worker ranges and returns once
// every range has completed. The return is the dispatch barrier: all writes
// made by fn happen-before anything the caller does next.
func (p *pool) run(n int, fn func(start, end int)) {
	if n <= 0 {
		return
	}
	if n < serialThreshold || p.numWorkers == 1 {
		fn(0, n)
		return
	}

	p.start()

	chunkSize := (n + p.numWorkers - 1) / p.numWorkers
	dispatched := 0
	for w := 0; w < p.numWorkers; w++ {
		start := w * chunkSize
		end := min(start+chunkSize, n)
		if start >= end {
			continue
		}
		p.workChan <- chunk{start: start, end: end, fn: fn}
		dispatched++
	}

	for i := 0; i < dispatched; i++ {
		<-p.doneChan
	}
}
