package scan

import (
	"context"
	"runtime"
	"sort"
	"sync"

	"bonk-scanner/internal/screenshot"
	"bonk-scanner/pkg/geometry"
)

// maxWorkers caps the legacy pool: cell matching saturates memory bandwidth
// well before it saturates a modern core count.
const maxWorkers = 4

type cellTask struct {
	index int
	cell  geometry.ROI
}

type cellResult struct {
	index int
	det   Detection
	ok    bool
}

// matchCellsParallel fans candidate cells out over a short-lived worker
// pool. The pool is torn down before returning, and results are reordered
// by cell index so the output is identical to the serial path. Cancelling
// ctx stops feeding new cells; queued cells still finish.
func (s *Session) matchCellsParallel(ctx context.Context, frame *screenshot.Frame, cells []geometry.ROI, threshold float64, method Method) []Detection {
	workers := s.cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > maxWorkers {
		workers = maxWorkers
	}
	if workers > len(cells) {
		workers = len(cells)
	}

	tasks := make(chan cellTask)
	results := make(chan cellResult, len(cells))

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range tasks {
				det, ok := s.matchCell(frame, t.cell, threshold, method)
				results <- cellResult{index: t.index, det: det, ok: ok}
			}
		}()
	}

feed:
	for i, cell := range cells {
		select {
		case <-ctx.Done():
			break feed
		case tasks <- cellTask{index: i, cell: cell}:
		}
	}
	close(tasks)
	wg.Wait()
	close(results)

	collected := make([]cellResult, 0, len(cells))
	for r := range results {
		collected = append(collected, r)
	}
	sort.Slice(collected, func(a, b int) bool {
		return collected[a].index < collected[b].index
	})

	out := make([]Detection, 0, len(collected))
	for _, r := range collected {
		if r.ok {
			out = append(out, r.det)
		}
	}
	return out
}
