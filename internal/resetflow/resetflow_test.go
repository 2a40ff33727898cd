package resetflow_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vitrine/internal/gateway"
	"vitrine/internal/resetflow"
)

type stubResetter struct {
	calls    int
	opts     resetflow.Options
	err      error
	observed resetflow.State
	flow     *resetflow.Flow
}

func (s *stubResetter) Reset(_ context.Context, opts resetflow.Options) (resetflow.Result, error) {
	s.calls++
	s.opts = opts
	if s.flow != nil {
		s.observed = s.flow.State()
	}
	if s.err != nil {
		return resetflow.Result{}, s.err
	}
	return resetflow.Result{Deleted: resetflow.Counts{PageViews: 10, WhatsAppClicks: 3}, Message: "ok"}, nil
}

func openSecondDialog(t *testing.T, f *resetflow.Flow) {
	t.Helper()
	require.NoError(t, f.Open(resetflow.Counts{PageViews: 10, WhatsAppClicks: 3}))
	require.Equal(t, resetflow.FirstConfirmOpen, f.State())
	require.NoError(t, f.Proceed())
	require.Equal(t, resetflow.SecondConfirmOpen, f.State())
}

func TestConfirmGates(t *testing.T) {
	testCases := []struct {
		name         string
		acknowledged bool
		text         string
		wantReset    bool
	}{
		{name: "checked with wrong text", acknowledged: true, text: "CONFIRMA", wantReset: false},
		{name: "correct text unchecked", acknowledged: false, text: "CONFIRMAR", wantReset: false},
		{name: "nothing filled", acknowledged: false, text: "", wantReset: false},
		{name: "text with spaces", acknowledged: true, text: " CONFIRMAR ", wantReset: false},
		{name: "both gates", acknowledged: true, text: "CONFIRMAR", wantReset: true},
		{name: "lowercase input is uppercased", acknowledged: true, text: "confirmar", wantReset: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			resetter := &stubResetter{}
			invalidated := 0
			f := resetflow.New(resetter, func() { invalidated++ })

			openSecondDialog(t, f)
			require.NoError(t, f.SetAcknowledged(tc.acknowledged))
			require.NoError(t, f.SetConfirmation(tc.text))
			assert.Equal(t, tc.wantReset, f.CanConfirm())

			result, err := f.Confirm(context.Background())
			if tc.wantReset {
				require.NoError(t, err)
				assert.Equal(t, 1, resetter.calls)
				assert.Equal(t, int64(10), result.Deleted.PageViews)
				assert.Equal(t, 1, invalidated)
			} else {
				assert.ErrorIs(t, err, resetflow.ErrNotConfirmed)
				assert.Equal(t, 0, resetter.calls)
				assert.Equal(t, 0, invalidated)
			}

			assert.Equal(t, resetflow.Idle, f.State())
			assert.False(t, f.CanConfirm())
		})
	}
}

func TestConfirmRunsInResettingState(t *testing.T) {
	resetter := &stubResetter{}
	f := resetflow.New(resetter)
	resetter.flow = f

	openSecondDialog(t, f)
	require.NoError(t, f.SetAcknowledged(true))
	require.NoError(t, f.SetConfirmation("CONFIRMAR"))

	_, err := f.Confirm(context.Background())
	require.NoError(t, err)
	assert.Equal(t, resetflow.Resetting, resetter.observed)
	assert.Equal(t, resetflow.Options{PageViews: true, WhatsAppClicks: true}, resetter.opts)
}

func TestConfirmFailure(t *testing.T) {
	resetter := &stubResetter{err: errors.New("server error")}
	invalidated := false
	f := resetflow.New(resetter, func() { invalidated = true })

	openSecondDialog(t, f)
	require.NoError(t, f.SetAcknowledged(true))
	require.NoError(t, f.SetConfirmation("CONFIRMAR"))

	_, err := f.Confirm(context.Background())
	assert.EqualError(t, err, "server error")
	assert.False(t, invalidated)
	assert.Equal(t, resetflow.Idle, f.State())

	// The fields were cleared, so reopening starts from scratch.
	openSecondDialog(t, f)
	assert.False(t, f.CanConfirm())
}

func TestTransitions(t *testing.T) {
	f := resetflow.New(&stubResetter{})

	assert.ErrorIs(t, f.Proceed(), resetflow.ErrInvalidTransition)
	assert.ErrorIs(t, f.SetAcknowledged(true), resetflow.ErrInvalidTransition)
	assert.ErrorIs(t, f.SetConfirmation("CONFIRMAR"), resetflow.ErrInvalidTransition)
	_, err := f.Confirm(context.Background())
	assert.ErrorIs(t, err, resetflow.ErrInvalidTransition)

	require.NoError(t, f.Open(resetflow.Counts{PageViews: 5}))
	assert.Equal(t, int64(5), f.Counts().PageViews)
	assert.ErrorIs(t, f.Open(resetflow.Counts{}), resetflow.ErrInvalidTransition)

	f.Cancel()
	assert.Equal(t, resetflow.Idle, f.State())

	openSecondDialog(t, f)
	require.NoError(t, f.SetAcknowledged(true))
	f.Cancel()
	assert.Equal(t, resetflow.Idle, f.State())
}

func TestWithOptions(t *testing.T) {
	resetter := &stubResetter{}
	f := resetflow.New(resetter).WithOptions(resetflow.Options{PageViews: true})

	openSecondDialog(t, f)
	require.NoError(t, f.SetAcknowledged(true))
	require.NoError(t, f.SetConfirmation("CONFIRMAR"))
	_, err := f.Confirm(context.Background())
	require.NoError(t, err)
	assert.Equal(t, resetflow.Options{PageViews: true, WhatsAppClicks: false}, resetter.opts)
}

func TestResetClient(t *testing.T) {
	t.Run("decodes deleted counts", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var opts resetflow.Options
			require.NoError(t, json.NewDecoder(r.Body).Decode(&opts))
			assert.True(t, opts.PageViews)
			assert.False(t, opts.WhatsAppClicks)

			w.Write([]byte(`{"success":true,"deleted":{"pageViews":7,"whatsappClicks":0},"message":"done"}`))
		}))
		defer server.Close()

		client := resetflow.NewResetClient(gateway.NewClient(server.URL, gateway.WithToken("t")))
		result, err := client.Reset(context.Background(), resetflow.Options{PageViews: true})
		require.NoError(t, err)
		assert.Equal(t, resetflow.Counts{PageViews: 7}, result.Deleted)
		assert.Equal(t, "done", result.Message)
	})

	t.Run("surfaces forbidden", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte(`{"error":"Forbidden: admin access required"}`))
		}))
		defer server.Close()

		_, err := resetflow.NewResetClient(gateway.NewClient(server.URL)).Reset(context.Background(), resetflow.Options{})
		var fnErr *gateway.FunctionError
		require.ErrorAs(t, err, &fnErr)
		assert.Equal(t, http.StatusForbidden, fnErr.Status)
	})
}

func TestFetchCountsOpensDialogWithRemoteTotals(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, gateway.PathEventTotals, r.URL.Path)
		assert.Equal(t, "Bearer admin-token", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]int64{"pageViews": 42, "whatsappClicks": 7})
	}))
	defer server.Close()

	client := gateway.NewClient(server.URL, gateway.WithToken("admin-token"))
	counts, err := resetflow.FetchCounts(context.Background(), client)
	require.NoError(t, err)
	assert.Equal(t, resetflow.Counts{PageViews: 42, WhatsAppClicks: 7}, counts)

	f := resetflow.New(resetflow.NewResetClient(client))
	require.NoError(t, f.Open(counts))
	assert.Equal(t, counts, f.Counts())

	t.Run("rejected token", func(t *testing.T) {
		denied := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"Unauthorized"}`))
		}))
		defer denied.Close()

		_, err := resetflow.FetchCounts(context.Background(), gateway.NewClient(denied.URL))
		var fnErr *gateway.FunctionError
		require.ErrorAs(t, err, &fnErr)
		assert.Equal(t, http.StatusUnauthorized, fnErr.Status)
	})
}
