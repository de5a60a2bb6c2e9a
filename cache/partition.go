package cache

import (
	"fmt"
	"sort"
)

// PartitionForWorker returns worker workerIndex's exclusive slice of the
// backlog. The backlog is sorted before striding, so any two workers that
// discovered the same backlog compute disjoint partitions whose union is
// the whole backlog, regardless of enumeration order. Partitioning happens
// before any processing-order shuffle, which keeps worker assignments
// non-overlapping even though each worker shuffles independently.
func PartitionForWorker(backlog []string, workerCount, workerIndex int) ([]string, error) {
	if workerCount <= 0 {
		return nil, fmt.Errorf("%w: worker count %d", ErrWorkerIndexRange, workerCount)
	}
	if workerIndex < 0 || workerIndex >= workerCount {
		return nil, fmt.Errorf("%w: index %d with %d workers", ErrWorkerIndexRange, workerIndex, workerCount)
	}

	ordered := make([]string, len(backlog))
	copy(ordered, backlog)
	sort.Strings(ordered)

	partition := make([]string, 0, (len(ordered)+workerCount-1)/workerCount)
	for i := workerIndex; i < len(ordered); i += workerCount {
		partition = append(partition, ordered[i])
	}
	return partition, nil
}
