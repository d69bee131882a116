package mr

import "github.com/yair-shtern/OS/src/utils"

// shuffle is run by the leader only, after the barrier, so the
// intermediate vectors need no locking here. Every vector is sorted
// ascending, so the largest remaining key of each sits at its back;
// the leader repeatedly drains the pairs equal to the global maximum
// into one group. When all vectors are empty it opens the reduce
// stage and releases the parked workers.
func (j *Job) shuffle() {
	total := 0
	for _, vec := range j.allIntermediate {
		total += len(vec)
	}
	if total > 0 {
		j.setProgress(ShuffleStage, 0, total)
		utils.Debug(utils.DStage, "shuffle stage, %d pairs", total)
		for {
			maxKey, ok := j.maxBackKey()
			if !ok {
				break
			}
			var group []IntermediatePair
			for vi, vec := range j.allIntermediate {
				for len(vec) > 0 {
					k := vec[len(vec)-1].Key
					if j.client.Less(maxKey, k) || j.client.Less(k, maxKey) {
						break
					}
					group = append(group, vec[len(vec)-1])
					vec = vec[:len(vec)-1]
				}
				j.allIntermediate[vi] = vec
			}
			j.groups = append(j.groups, group)
			j.addProcessed(len(group))
			utils.Debug(utils.DShuffle, "grouped %d pairs", len(group))
		}
	}
	j.setProgress(ReduceStage, 0, len(j.groups))
	utils.Debug(utils.DStage, "reduce stage, %d groups", len(j.groups))
	j.sem.Release(int64(j.workers))
}

// maxBackKey returns the largest key at the back of any intermediate
// vector, or false when every vector is empty.
func (j *Job) maxBackKey() (interface{}, bool) {
	var max interface{}
	found := false
	for _, vec := range j.allIntermediate {
		if len(vec) == 0 {
			continue
		}
		k := vec[len(vec)-1].Key
		if !found || j.client.Less(max, k) {
			max = k
			found = true
		}
	}
	return max, found
}
