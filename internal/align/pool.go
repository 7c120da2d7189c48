package align

import (
	"fmt"
	"log"
	"sync"

	"github.com/pspoerri/tilestitch/internal/grid"
)

// PoolConfig holds the pair-alignment worker pool's tunables.
type PoolConfig struct {
	Dir         string
	Concurrency int
	Verbose     bool
	Config

	// Cancel, if non-nil, is polled between jobs; when it reports true the
	// pool stops scheduling new jobs and returns early (spec §5
	// "Cancellation").
	Cancel func() bool
}

// Stats summarizes one run of the pair alignment pool.
type Stats struct {
	Attempted int64
	Recorded  int64
	Skipped   int64
}

// RunPool runs every neighbor job in jobs through Align, concurrently, and
// collects the results into a grid.Table (spec §5 "Pair alignment pool").
// Frame-source handles are opened fresh inside each call to Align, never
// shared across workers. A cancellation mid-run discards the partial table.
func RunPool(jobs []grid.NeighborJob, cfg PoolConfig) (*grid.Table, Stats, error) {
	if len(jobs) == 0 {
		return grid.NewTable(), Stats{}, nil
	}

	conc := cfg.Concurrency
	if conc <= 0 {
		conc = 1
	}

	table := grid.NewTable()
	pb := newProgressBar("Aligning", int64(len(jobs)))

	jobCh := make(chan grid.NeighborJob, conc*2)
	errCh := make(chan error, 1)
	var attempted, recorded, skipped int64
	var mu sync.Mutex
	var wg sync.WaitGroup

	for w := 0; w < conc; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobCh {
				if cfg.Cancel != nil && cfg.Cancel() {
					continue
				}

				p, ok, err := Align(cfg.Dir, job, job.A.NFrms/2, cfg.Config)
				mu.Lock()
				attempted++
				mu.Unlock()
				pb.Increment()

				if err != nil {
					select {
					case errCh <- fmt.Errorf("align: %s/%s axis=%d: %w", job.A.Name, job.B.Name, job.Axis, err):
					default:
					}
					continue
				}
				if !ok {
					mu.Lock()
					skipped++
					mu.Unlock()
					if cfg.Verbose {
						log.Printf("align: skipping pair %s/%s (underflow)", job.A.Name, job.B.Name)
					}
					continue
				}
				table.Put(p)
				mu.Lock()
				recorded++
				mu.Unlock()
			}
		}()
	}

	for _, job := range jobs {
		if cfg.Cancel != nil && cfg.Cancel() {
			break
		}
		jobCh <- job
	}
	close(jobCh)
	wg.Wait()
	pb.Finish()

	select {
	case err := <-errCh:
		return nil, Stats{}, err
	default:
	}

	if cfg.Cancel != nil && cfg.Cancel() {
		return nil, Stats{}, fmt.Errorf("align: cancelled")
	}

	return table, Stats{Attempted: attempted, Recorded: recorded, Skipped: skipped}, nil
}
