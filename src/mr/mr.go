// Package mr is a multi-worker MapReduce framework. A job runs
// workerCount workers through map, shuffle and reduce; worker 0 is the
// leader and the only worker that shuffles. Progress is published
// through a single packed atomic word so readers always observe a
// consistent (stage, processed, total) triple.
package mr

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/yair-shtern/OS/src/utils"
)

type InputPair struct {
	Key   interface{}
	Value interface{}
}

type IntermediatePair struct {
	Key   interface{}
	Value interface{}
}

type OutputPair struct {
	Key   interface{}
	Value interface{}
}

// Client supplies the map and reduce logic of a job. Less must be a
// strict less-than over intermediate and output keys; two keys a, b
// with !Less(a,b) && !Less(b,a) are grouped together during shuffle.
type Client interface {
	Map(key, value interface{}, ctx *Context)
	Reduce(group []IntermediatePair, ctx *Context)
	Less(a, b interface{}) bool
}

// Context identifies the calling worker inside Map and Reduce. Emit2
// appends to the worker's private intermediate vector, so Map needs no
// locking.
type Context struct {
	job          *Job
	worker       int
	intermediate []IntermediatePair
}

// Emit2 records an intermediate pair produced by Map.
func Emit2(key, value interface{}, ctx *Context) {
	ctx.intermediate = append(ctx.intermediate, IntermediatePair{Key: key, Value: value})
}

// Emit3 records an output pair produced by Reduce. Appends are
// serialized; Reduce itself runs concurrently across workers and must
// be re-entrant.
func Emit3(key, value interface{}, ctx *Context) {
	j := ctx.job
	j.outMu.Lock()
	j.output = append(j.output, OutputPair{Key: key, Value: value})
	j.outMu.Unlock()
}

// Job is the shared context of one MapReduce run.
type Job struct {
	client  Client
	input   []InputPair
	workers int

	progress uint64 // packed (stage, processed, total), see progress.go

	outMu           sync.Mutex // output vector and intermediate-vector list
	queueMu         sync.Mutex // shuffle-output queue
	allIntermediate [][]IntermediatePair
	groups          [][]IntermediatePair
	output          []OutputPair

	barrier *barrier
	sem     *semaphore.Weighted
	g       errgroup.Group
	join    sync.Once
}

// Start allocates the job, enters the map stage and launches
// workerCount workers. Worker 0 is the leader.
func Start(client Client, input []InputPair, workerCount int) *Job {
	j := &Job{
		client:  client,
		input:   input,
		workers: workerCount,
		barrier: newBarrier(workerCount),
		sem:     semaphore.NewWeighted(int64(workerCount)),
	}
	// drain the semaphore so non-leader workers park until the leader
	// opens the reduce stage
	j.sem.TryAcquire(int64(workerCount))
	j.setProgress(MapStage, 0, len(input))
	for i := 0; i < workerCount; i++ {
		i := i
		j.g.Go(func() error {
			j.runWorker(i)
			return nil
		})
	}
	return j
}

// Wait blocks until every worker has exited. Safe to call repeatedly.
func (j *Job) Wait() {
	j.join.Do(func() {
		j.g.Wait()
	})
}

// GetState reports the job's stage and the percentage of the current
// stage already processed, from one atomic load of the progress word.
func (j *Job) GetState() State {
	stage, processed, total := j.loadProgress()
	var pct float32
	if total > 0 {
		if processed > total {
			processed = total
		}
		pct = 100 * float32(processed) / float32(total)
	}
	return State{Stage: stage, Percentage: pct}
}

// Output returns the output vector. Call after Wait.
func (j *Job) Output() []OutputPair {
	j.Wait()
	return j.output
}

// Close waits for the job and releases its resources. The job must
// not be used afterwards.
func (j *Job) Close() {
	j.Wait()
	j.allIntermediate = nil
	j.groups = nil
	utils.Debug(utils.DStage, "job closed")
}

func (j *Job) gate() {
	if err := j.sem.Acquire(context.Background(), 1); err != nil {
		// Background contexts do not expire; Acquire cannot fail.
		panic(err)
	}
}
