package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/automesh/core"
)

func TestFunc(t *testing.T) {
	f := NewFunc("custom", "test func", func(_ context.Context, config map[string]any, _ map[string]map[string]any) (map[string]any, error) {
		return map[string]any{"echo": config["in"]}, nil
	})

	assert.Equal(t, "custom", f.Name())

	out, err := f.Execute(context.Background(), map[string]any{"in": "hi"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "hi", out["echo"])
}

func TestSendEmail(t *testing.T) {
	e := NewSendEmail(nil)
	assert.Equal(t, string(core.ActionSendEmail), e.Name())

	out, err := e.Execute(context.Background(), map[string]any{"to": "jo@example.com", "subject": "hi"}, nil)
	require.NoError(t, err)
	assert.Equal(t, true, out["delivered"])
	assert.Equal(t, "jo@example.com", out["to"])

	_, err = e.Execute(context.Background(), nil, nil)
	assert.Error(t, err, "missing recipient is rejected")
}

func TestCreateTask(t *testing.T) {
	e := NewCreateTask(nil)

	out, err := e.Execute(context.Background(), map[string]any{"title": "call back"}, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, out["task_id"])
	assert.Equal(t, "call back", out["title"])
}

func TestCallWebhook(t *testing.T) {
	var received map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		fmt.Fprint(w, `{"ok":true}`)
	}))
	defer srv.Close()

	e := NewCallWebhook()
	out, err := e.Execute(context.Background(), map[string]any{
		"url":     srv.URL,
		"payload": map[string]any{"deal": "won"},
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, out["status"])
	assert.JSONEq(t, `{"ok":true}`, out["body"].(string))
	assert.Equal(t, "won", received["deal"])
}

func TestCallWebhook_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	e := NewCallWebhook()

	_, err := e.Execute(context.Background(), nil, nil)
	assert.Error(t, err, "missing url is rejected")

	_, err = e.Execute(context.Background(), map[string]any{"url": srv.URL}, nil)
	assert.ErrorContains(t, err, "status 502")
}

func TestScheduleFollowup(t *testing.T) {
	e := NewScheduleFollowup(nil)

	out, err := e.Execute(context.Background(), map[string]any{"delay": "2h"}, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, out["followup_id"])
	assert.NotEmpty(t, out["due_at"])

	_, err = e.Execute(context.Background(), map[string]any{"delay": "soon"}, nil)
	assert.Error(t, err)
}

type stubInvoker struct {
	lastName  string
	lastInput map[string]any
	output    map[string]any
	err       error
}

func (s *stubInvoker) Invoke(_ context.Context, name string, input map[string]any) (map[string]any, error) {
	s.lastName, s.lastInput = name, input
	return s.output, s.err
}

func TestRunAgent(t *testing.T) {
	inv := &stubInvoker{output: map[string]any{"summary": "done"}}
	e := NewRunAgent(inv)

	prior := map[string]map[string]any{"action-1": {"task_id": "t-1"}}
	out, err := e.Execute(context.Background(), map[string]any{
		"agent": "summarizer",
		"input": map[string]any{"tone": "brief"},
	}, prior)
	require.NoError(t, err)

	assert.Equal(t, "done", out["summary"])
	assert.Equal(t, "summarizer", inv.lastName)
	assert.Equal(t, "brief", inv.lastInput["tone"])
	assert.Equal(t, prior, inv.lastInput["prior"])

	_, err = e.Execute(context.Background(), nil, nil)
	assert.Error(t, err, "missing agent name is rejected")
}

func TestBuiltins(t *testing.T) {
	names := make(map[string]bool)
	for _, ex := range Builtins(nil) {
		names[ex.Name()] = true
	}
	for _, want := range []core.ActionType{
		core.ActionSendMessage,
		core.ActionSendEmail,
		core.ActionCreateTask,
		core.ActionCallWebhook,
		core.ActionSendNotification,
		core.ActionScheduleFollowup,
	} {
		assert.True(t, names[string(want)], "missing builtin %s", want)
	}
}
