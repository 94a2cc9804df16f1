package parallel

import "runtime"
import "strconv"

import "github.com/klauspost/cpuid/v2"

// Threads reports the default worker count: the physical core count when the
// CPU reports it, the logical CPU count otherwise. Never returns less than 1.
func Threads() int {
	if n := cpuid.CPU.PhysicalCores; n > 0 {
		return n
	}
	if n := runtime.NumCPU(); n > 0 {
		return n
	}
	return 1
}

// Describe returns a one-line description of the host CPU for run summaries.
func Describe() string {
	brand := cpuid.CPU.BrandName
	if brand == "" {
		brand = "unknown cpu"
	}
	simd := "generic"
	switch {
	case cpuid.CPU.Supports(cpuid.AVX512F, cpuid.AVX512DQ):
		simd = "avx512"
	case cpuid.CPU.Supports(cpuid.AVX2, cpuid.FMA3):
		simd = "avx2+fma"
	case cpuid.CPU.Supports(cpuid.ASIMD):
		simd = "neon"
	}
	return brand + " (" + simd + ", " + strconv.Itoa(Threads()) + " threads)"
}
