package fetch

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/daybrew/pulse/internal/models"
)

// Fetcher pulls items from one external source. Implementations own their
// timeouts; Fetch must return within a bounded time regardless of the source.
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context) ([]models.FetchedItem, error)
}

// Result is the settled outcome of one fetcher in a fan-out run.
type Result struct {
	Source string
	Items  []models.FetchedItem
	Err    error
}

// FetchAll runs every fetcher concurrently and waits for all of them. Each
// fetcher is isolated: an error or panic in one never affects the others, so
// the slice always has one settled Result per fetcher, in input order.
func FetchAll(ctx context.Context, fetchers []Fetcher) []Result {
	results := make([]Result, len(fetchers))

	var wg sync.WaitGroup
	for i, fetcher := range fetchers {
		wg.Add(1)
		go func(i int, fetcher Fetcher) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					results[i] = Result{Source: fetcher.Name(), Err: fmt.Errorf("fetcher panic: %v", r)}
				}
			}()

			items, err := fetcher.Fetch(ctx)
			results[i] = Result{Source: fetcher.Name(), Items: items, Err: err}
		}(i, fetcher)
	}
	wg.Wait()

	return results
}

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &http.Client{Timeout: timeout}
}
