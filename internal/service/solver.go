package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sync/atomic"

	"github.com/dayanaadylkhanova/powgate/internal/entity"
	"golang.org/x/sync/errgroup"
)

var errFound = errors.New("found")

// Solve brute-forces the number behind ch by linear search over [0, MaxNumber],
// striding the range across workers. workers <= 0 means GOMAXPROCS.
func Solve(ctx context.Context, ch entity.Challenge, workers int) (int64, error) {
	alg, err := ParseAlgorithm(ch.Algorithm)
	if err != nil {
		return 0, err
	}
	newHash, err := alg.hasher()
	if err != nil {
		return 0, err
	}
	if ch.MaxNumber < 0 || ch.MaxNumber == math.MaxInt64 {
		return 0, fmt.Errorf("%w: max number %d", ErrMalformed, ch.MaxNumber)
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if int64(workers) > ch.MaxNumber+1 {
		workers = int(ch.MaxNumber + 1)
	}

	var found atomic.Int64
	found.Store(-1)

	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		start := int64(w)
		g.Go(func() error {
			step := int64(workers)
			for n, i := start, 0; ; n, i = n+step, i+1 {
				if i%1024 == 0 {
					select {
					case <-gctx.Done():
						// a sibling found it, or the caller gave up
						return ctx.Err()
					default:
					}
				}
				if digest(newHash, ch.Salt, n) == ch.Challenge {
					found.Store(n)
					return errFound
				}
				// n+step would pass MaxNumber or wrap
				if n > ch.MaxNumber-step {
					return nil
				}
			}
		})
	}

	err = g.Wait()
	if n := found.Load(); n >= 0 {
		return n, nil
	}
	if err != nil {
		return 0, err
	}
	return 0, ErrNoSolution
}
