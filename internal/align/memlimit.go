package align

import (
	"log"
	"runtime"
)

// DefaultMemoryPressurePercent is the fraction of total RAM the pair
// alignment pool is allowed to occupy with FFT workspaces at once.
const DefaultMemoryPressurePercent = 0.90

// jobMemoryBytes estimates the peak memory of one pair-alignment job: four
// complex128 grids of size Y_A*X_A (fa, fa2, fb, f1) plus three real output
// copies of comparable size, per spec §5 "O(Z·Y_A·X_A) doubles" — Z enters
// because a worker may hold several in-flight Z slices' worth of scratch
// via the workspace pool before they're returned.
func jobMemoryBytes(z, yA, xA int) int64 {
	const workspaceFactor = 8 // complex128 grids + real copies, rounded up
	return int64(z) * int64(yA) * int64(xA) * 16 * workspaceFactor
}

// PoolSize picks a worker count for the pair-alignment pool so that
// concurrency*jobMemoryBytes stays under a fraction of total system RAM
// (spec §5 "the pool size should be tuned so total peak <= available RAM").
// Falls back to requested when RAM detection is unsupported.
func PoolSize(requested, z, yA, xA int, verbose bool) int {
	if requested <= 0 {
		requested = 1
	}

	totalRAM, err := totalSystemRAM()
	if err != nil {
		if verbose {
			log.Printf("align: cannot detect system RAM: %v; using requested concurrency %d", err, requested)
		}
		return requested
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	budget := int64(float64(totalRAM)*DefaultMemoryPressurePercent) - int64(m.Sys)

	perJob := jobMemoryBytes(z, yA, xA)
	if perJob <= 0 {
		return requested
	}

	maxByMemory := int(budget / perJob)
	if maxByMemory < 1 {
		maxByMemory = 1
	}
	if maxByMemory < requested {
		if verbose {
			log.Printf("align: reducing pool size from %d to %d to fit memory budget (%.1f GB / %.1f MB per job)",
				requested, maxByMemory, float64(budget)/(1<<30), float64(perJob)/(1<<20))
		}
		return maxByMemory
	}
	return requested
}
