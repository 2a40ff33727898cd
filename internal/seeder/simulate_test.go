package seeder_test

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vitrine/internal/gateway"
	"vitrine/internal/seeder"
	"vitrine/internal/testsupport"
)

type recordingInvoker struct {
	mu    sync.Mutex
	calls map[string][]map[string]any
}

func (r *recordingInvoker) Invoke(_ context.Context, name string, body, _ interface{}) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.calls == nil {
		r.calls = make(map[string][]map[string]any)
	}
	r.calls[name] = append(r.calls[name], decoded)
	return nil
}

func TestSimulate(t *testing.T) {
	invoker := &recordingInvoker{}

	stats := seeder.Simulate(context.Background(), invoker, testsupport.GetLogger(), seeder.SimulateConfig{
		Visitors:     12,
		Concurrency:  3,
		ClickChance:  1,
		ReloadChance: 1,
		AdminChance:  1,
		Seed:         7,
	})

	assert.Equal(t, int64(12), stats.Visitors)
	assert.Equal(t, int64(12), stats.Clicks)
	assert.Equal(t, int64(24), stats.Skipped, "every reload is debounced and every admin page is skipped")

	pageViews := invoker.calls[gateway.FunctionTrackPageView]
	require.Len(t, pageViews, int(stats.PageViews))
	assert.Len(t, invoker.calls[gateway.FunctionTrackWhatsAppClick], 12)

	visitorIDs := map[string]bool{}
	sessionsByVisitor := map[string]map[string]bool{}
	for _, body := range pageViews {
		path, _ := body["path"].(string)
		assert.False(t, strings.HasPrefix(path, "/admin"), path)

		visitorID, _ := body["visitor_id"].(string)
		sessionID, _ := body["session_id"].(string)
		require.NotEmpty(t, visitorID)
		require.NotEmpty(t, sessionID)
		visitorIDs[visitorID] = true
		if sessionsByVisitor[visitorID] == nil {
			sessionsByVisitor[visitorID] = map[string]bool{}
		}
		sessionsByVisitor[visitorID][sessionID] = true
	}
	assert.Len(t, visitorIDs, 12, "each simulated browser keeps its own visitor")
	for visitorID, sessions := range sessionsByVisitor {
		assert.Len(t, sessions, 1, "visitor %s reuses one session", visitorID)
	}

	for _, body := range invoker.calls[gateway.FunctionTrackWhatsAppClick] {
		assert.True(t, visitorIDs[body["visitor_id"].(string)], "clicks carry the page view identity")
		assert.NotEmpty(t, body["page_path"])
	}
}

func TestSimulateStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stats := seeder.Simulate(ctx, &recordingInvoker{}, testsupport.GetLogger(), seeder.SimulateConfig{Visitors: 50})
	assert.Zero(t, stats.Visitors)
}
