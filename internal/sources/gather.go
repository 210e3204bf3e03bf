package sources

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"portfolio-api/internal/common/logging"
)

// Task fetches the items of one upstream source
type Task struct {
	Name  string
	Fetch func(ctx context.Context) ([]Item, error)
}

// Gather runs every task in parallel and waits for all of them. A task that fails or
// panics contributes an empty list and never cancels its siblings. The returned slices
// are in task order, and failed lists the names of the tasks that did not succeed.
func Gather(ctx context.Context, tasks []Task, logger logging.Logger) (results [][]Item, failed []string) {
	results = make([][]Item, len(tasks))
	errs := make([]error, len(tasks))

	var g errgroup.Group
	for i, task := range tasks {
		i, task := i, task
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					errs[i] = fmt.Errorf("panic: %v", r)
					results[i] = nil
				}
			}()

			items, err := task.Fetch(ctx)
			if err != nil {
				errs[i] = err
				return nil
			}
			results[i] = items
			return nil
		})
	}
	_ = g.Wait()

	for i, err := range errs {
		if err == nil {
			continue
		}
		failed = append(failed, tasks[i].Name)
		logger.WithContext(ctx).Warn("Source fetch failed",
			logging.String("source", tasks[i].Name),
			logging.Err(err),
		)
	}
	return results, failed
}
