package mr

import (
	"sort"

	"github.com/yair-shtern/OS/src/utils"
)

// runWorker is the body of one worker. All workers map, sort and meet
// at the barrier; the leader then shuffles while the rest park on the
// semaphore until the reduce stage opens.
func (j *Job) runWorker(id int) {
	ctx := &Context{job: j, worker: id}
	j.mapSort(ctx)
	j.barrier.wait()
	if id == 0 {
		j.shuffle()
	} else {
		j.gate()
	}
	j.reduce(ctx)
	utils.Debug(utils.DWorker, "worker %d done", id)
}

// mapSort drains the input: each worker atomically claims the next
// unprocessed index until none remain, then sorts its private
// intermediate vector and publishes it.
func (j *Job) mapSort(ctx *Context) {
	for {
		i, ok := j.claimNext()
		if !ok {
			break
		}
		pair := j.input[i]
		j.client.Map(pair.Key, pair.Value, ctx)
		utils.Debug(utils.DMap, "worker %d mapped input %d", ctx.worker, i)
	}
	if len(ctx.intermediate) == 0 {
		return
	}
	sort.Slice(ctx.intermediate, func(a, b int) bool {
		return j.client.Less(ctx.intermediate[a].Key, ctx.intermediate[b].Key)
	})
	j.outMu.Lock()
	j.allIntermediate = append(j.allIntermediate, ctx.intermediate)
	j.outMu.Unlock()
}

// reduce pops groups off the shuffle-output queue until it is empty.
// The queue mutex is released before calling the client, so reduces
// run concurrently across workers.
func (j *Job) reduce(ctx *Context) {
	for {
		j.queueMu.Lock()
		n := len(j.groups)
		if n == 0 {
			j.queueMu.Unlock()
			return
		}
		group := j.groups[n-1]
		j.groups = j.groups[:n-1]
		j.queueMu.Unlock()

		j.client.Reduce(group, ctx)
		j.addProcessed(1)
		utils.Debug(utils.DReduce, "worker %d reduced a group of %d", ctx.worker, len(group))
	}
}
