package batch

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/jdgilhuly/aicomplete/pkg/provider"
)

// ItemResult holds the outcome of a single item.
type ItemResult struct {
	Name       string        `json:"name"`
	Text       string        `json:"text,omitempty"`
	Error      string        `json:"error,omitempty"`
	Provider   string        `json:"provider,omitempty"`
	StatusCode int           `json:"status_code,omitempty"`
	Duration   time.Duration `json:"duration"`
}

// Result holds the outcome of a whole batch. Items keep the file order.
type Result struct {
	Name      string        `json:"name"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`
	Items     []ItemResult  `json:"items"`
}

// Failed returns the number of items that ended in an error.
func (r *Result) Failed() int {
	n := 0
	for _, it := range r.Items {
		if it.Error != "" {
			n++
		}
	}
	return n
}

// JSON serializes the Result to indented JSON bytes.
func (r *Result) JSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// Config controls runner behavior.
type Config struct {
	Concurrency int
	Timeout     time.Duration
}

// Runner executes batch items against a Completer.
type Runner struct {
	cfg Config
}

// New creates a Runner. Concurrency below one means one; a non-positive
// timeout means 60s.
func New(cfg Config) *Runner {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &Runner{cfg: cfg}
}

// ProgressFunc is called after each item completes. Index counts completed
// items from 0, total is the number of items.
type ProgressFunc func(index, total int, name string, elapsed time.Duration, err error)

// Run executes every item. A failing item is recorded in its result and
// never stops the others.
func (r *Runner) Run(ctx context.Context, f *File, c provider.Completer, progress ProgressFunc) *Result {
	result := &Result{
		Name:      f.Name,
		StartTime: time.Now(),
		Items:     make([]ItemResult, len(f.Items)),
	}

	sem := make(chan struct{}, r.cfg.Concurrency)
	var mu sync.Mutex
	var completed int

	var wg sync.WaitGroup
	for i, it := range f.Items {
		wg.Add(1)
		go func(idx int, it Item) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			ir, err := r.runItem(ctx, it, c)
			mu.Lock()
			result.Items[idx] = ir
			completed++
			current := completed
			mu.Unlock()

			if progress != nil {
				progress(current-1, len(f.Items), it.Name, time.Since(result.StartTime), err)
			}
		}(i, it)
	}

	wg.Wait()
	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)
	return result
}

func (r *Runner) runItem(ctx context.Context, it Item, c provider.Completer) (ItemResult, error) {
	start := time.Now()
	ir := ItemResult{Name: it.Name}

	timeout := r.cfg.Timeout
	if it.Timeout > 0 {
		timeout = it.Timeout
	}
	itemCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	text, err := c.Complete(itemCtx, it.Conversation(), it.System)
	ir.Duration = time.Since(start)
	if err != nil {
		ir.Error = err.Error()
		var ce *provider.CompletionError
		if errors.As(err, &ce) {
			ir.Provider = ce.Provider
			ir.StatusCode = ce.StatusCode
		}
		return ir, err
	}
	ir.Text = text
	return ir, nil
}
