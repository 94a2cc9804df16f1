// Package parallel contains the bounded ForEach fan-out used for inference over many samples.
package parallel

import "sync"

// ForEach executes a for loop with a limited number of concurrent goroutines.
// Each goroutine processes one integer, from 0 to length.
func ForEach(length, limit int, body func(i int)) {
	if limit <= 0 {
		limit = Threads()
	}
	if length <= 0 {
		return
	}

	sem := make(chan struct{}, limit)
	var wg sync.WaitGroup
	wg.Add(length)

	for i := 0; i < length; i++ {
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()

			body(i)
		}(i)
	}

	wg.Wait()
}

// Map runs body for every index through ForEach and returns the results in index order,
// so the outcome never depends on goroutine scheduling.
func Map[T any](length, limit int, body func(i int) T) []T {
	if length <= 0 {
		return nil
	}
	out := make([]T, length)
	ForEach(length, limit, func(i int) {
		out[i] = body(i)
	})
	return out
}
