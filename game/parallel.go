package game

import (
	"runtime"
	"sync"

	"github.com/pthm-cable/plankton/config"
	"github.com/pthm-cable/plankton/systems"
)

// perceptionScratch holds per-worker reusable buffers. A Perceiver keeps
// its own blur buffer, so workers never share one.
type perceptionScratch struct {
	perceiver *systems.Perceiver
	near      []int
}

// workChunk represents a range of roster entries for a worker to perceive.
type workChunk struct {
	start, end int
}

// parallelState holds resources for parallel perception. Perception only
// reads the target list and writes each agent's own vision, so chunks are
// independent and the result matches the sequential pass.
type parallelState struct {
	scratches  []perceptionScratch
	numWorkers int
	threshold  int

	// Worker pool channels
	workChan chan workChunk // sends work to workers
	doneChan chan struct{}  // workers signal completion
	stopChan chan struct{}  // signals workers to exit
	wg       sync.WaitGroup // tracks active workers
	running  bool           // true if workers are running
}

func newParallelState(pc config.ParallelConfig, vision systems.VisionParams) *parallelState {
	numWorkers := pc.Workers
	if numWorkers <= 0 {
		numWorkers = runtime.GOMAXPROCS(0)
	}
	threshold := pc.Threshold
	if threshold <= 0 {
		threshold = 64
	}
	p := &parallelState{
		numWorkers: numWorkers,
		threshold:  threshold,
		scratches:  make([]perceptionScratch, numWorkers),
	}
	p.setVision(vision)
	return p
}

// setVision replaces every worker's perceiver. Must not be called while a
// dispatch is in flight.
func (p *parallelState) setVision(vision systems.VisionParams) {
	for i := range p.scratches {
		p.scratches[i].perceiver = systems.NewPerceiver(vision)
		p.scratches[i].near = make([]int, 0, 64)
	}
}

// startWorkers launches persistent worker goroutines.
func (p *parallelState) startWorkers(g *Game) {
	if p.running {
		return
	}

	p.workChan = make(chan workChunk, p.numWorkers)
	p.doneChan = make(chan struct{}, p.numWorkers)
	p.stopChan = make(chan struct{})
	p.running = true

	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(g, i)
	}
}

// stopWorkers signals all workers to exit and waits for them.
func (p *parallelState) stopWorkers() {
	if !p.running {
		return
	}

	close(p.stopChan)
	p.wg.Wait()
	close(p.workChan)
	close(p.doneChan)
	p.running = false
}

// worker runs in a goroutine, processing chunks until stopped.
func (p *parallelState) worker(g *Game, workerID int) {
	defer p.wg.Done()
	scratch := &p.scratches[workerID]

	for {
		select {
		case <-p.stopChan:
			return
		case chunk, ok := <-p.workChan:
			if !ok {
				return
			}
			g.perceiveChunk(chunk.start, chunk.end, scratch)
			p.doneChan <- struct{}{}
		}
	}
}

// updatePerception rebuilds every agent's vision from the current targets.
func (g *Game) updatePerception() {
	n := len(g.roster)
	if n == 0 {
		return
	}
	if n < g.parallel.threshold || g.parallel.numWorkers < 2 {
		g.perceiveChunk(0, n, &g.parallel.scratches[0])
		return
	}
	g.perceiveParallel(n)
}

// perceiveParallel dispatches roster chunks to the worker pool.
func (g *Game) perceiveParallel(n int) {
	if !g.parallel.running {
		g.parallel.startWorkers(g)
	}

	numWorkers := g.parallel.numWorkers
	chunkSize := (n + numWorkers - 1) / numWorkers

	dispatched := 0
	for w := 0; w < numWorkers; w++ {
		start := w * chunkSize
		end := min(start+chunkSize, n)
		if start >= end {
			continue
		}
		g.parallel.workChan <- workChunk{start: start, end: end}
		dispatched++
	}

	for i := 0; i < dispatched; i++ {
		<-g.parallel.doneChan
	}
}

// perceiveChunk resolves the vision of roster entries [i0, i1).
func (g *Game) perceiveChunk(i0, i1 int, scratch *perceptionScratch) {
	reach := g.vision.Range + g.maxTargetSize
	for i := i0; i < i1; i++ {
		r := &g.roster[i]
		scratch.near = g.grid.QueryInto(scratch.near[:0], r.pos.X, r.pos.Y, reach)
		scratch.perceiver.Perceive(r.vision, r.agent.ID, r.pos.X, r.pos.Y, r.head.Angle, g.targets, scratch.near)
	}
}
