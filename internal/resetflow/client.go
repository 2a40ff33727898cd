package resetflow

import (
	"context"
	"errors"
	"fmt"

	"vitrine/internal/gateway"
)

// ResetClient calls the reset-analytics function.
type ResetClient struct {
	invoker gateway.Invoker
}

func NewResetClient(invoker gateway.Invoker) *ResetClient {
	return &ResetClient{invoker: invoker}
}

type resetResponse struct {
	Success bool   `json:"success"`
	Deleted Counts `json:"deleted"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

func (c *ResetClient) Reset(ctx context.Context, opts Options) (Result, error) {
	var resp resetResponse
	if err := c.invoker.Invoke(ctx, gateway.FunctionResetAnalytics, opts, &resp); err != nil {
		return Result{}, fmt.Errorf("reset analytics: %w", err)
	}
	if !resp.Success {
		msg := resp.Error
		if msg == "" {
			msg = "unknown error"
		}
		return Result{}, errors.New("reset analytics: " + msg)
	}
	return Result{Deleted: resp.Deleted, Message: resp.Message}, nil
}

// FetchCounts reads the current event totals from the admin API so the
// first dialog can show what a remote reset will delete.
func FetchCounts(ctx context.Context, fetcher gateway.Fetcher) (Counts, error) {
	var counts Counts
	if err := fetcher.Get(ctx, gateway.PathEventTotals, &counts); err != nil {
		return Counts{}, fmt.Errorf("fetch event totals: %w", err)
	}
	return counts, nil
}
