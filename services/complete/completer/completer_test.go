// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package completer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianComplete/services/complete/symbols"
)

const testModelYAML = `
types:
  - name: pkg.Main
    members:
      - {name: getFoo, kind: method, type: pkg.Foo}
      - {name: count, kind: field, type: int}
  - name: pkg.Foo
    members:
      - {name: bar, kind: field, type: pkg.Bar}
      - {name: bars, kind: method, type: "pkg.Bar[]"}
  - name: pkg.Bar
symbols:
  - {name: main, kind: variable, type: pkg.Main}
`

// gatedModel delays member enumeration until gate is closed.
type gatedModel struct {
	symbols.Model
	entered chan struct{}
	gate    chan struct{}
	once    sync.Once
}

func newGatedModel(m symbols.Model) *gatedModel {
	return &gatedModel{Model: m, entered: make(chan struct{}), gate: make(chan struct{})}
}

func (m *gatedModel) VisibleMembers(t symbols.TypeRef, staticOnly bool) ([]*symbols.Symbol, error) {
	m.once.Do(func() { close(m.entered) })
	<-m.gate
	return m.Model.VisibleMembers(t, staticOnly)
}

// slowModel sleeps before every member enumeration.
type slowModel struct {
	symbols.Model
	delay time.Duration
}

func (m *slowModel) VisibleMembers(t symbols.TypeRef, staticOnly bool) ([]*symbols.Symbol, error) {
	time.Sleep(m.delay)
	return m.Model.VisibleMembers(t, staticOnly)
}

func testModel(t *testing.T) *symbols.Snapshot {
	t.Helper()
	s, err := symbols.ParseSnapshot([]byte(testModelYAML))
	require.NoError(t, err)
	return s
}

func newTestCompleter(cfg Config) (*Completer, *Metrics) {
	m := NewMetrics(prometheus.NewRegistry())
	return New(cfg, nil, WithMetrics(m)), m
}

func TestComplete_RendersChains(t *testing.T) {
	c, m := newTestCompleter(DefaultConfig())

	resp, err := c.Complete(context.Background(), testModel(t), Request{
		ExpectedTypes: []string{"pkg.Bar", "int"},
		Candidates:    []string{"var:main"},
	})
	require.NoError(t, err)

	require.Len(t, resp.Items, 3)
	assert.Equal(t, Item{Title: "bar", Body: "main.getFoo().bar", Length: 3, ExpectedType: "pkg.Bar"}, resp.Items[0])
	assert.Equal(t, Item{Title: "bars()", Body: "main.getFoo().bars()[]", Length: 3, ExpectedType: "pkg.Bar"}, resp.Items[1])
	assert.Equal(t, Item{Title: "count", Body: "main.count", Length: 2, ExpectedType: "int"}, resp.Items[2])
	assert.False(t, resp.TimedOut)
	assert.False(t, resp.Cancelled)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.RequestsTotal.WithLabelValues(outcomeOK)))
}

func TestComplete_RequestOverrides(t *testing.T) {
	c, _ := newTestCompleter(DefaultConfig())
	one := 1

	resp, err := c.Complete(context.Background(), testModel(t), Request{
		ExpectedTypes: []string{"pkg.Bar"},
		Candidates:    []string{"var:main"},
		MaxChains:     &one,
	})
	require.NoError(t, err)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "main.getFoo().bar", resp.Items[0].Body)

	two := 2
	resp, err = c.Complete(context.Background(), testModel(t), Request{
		ExpectedTypes: []string{"pkg.Bar"},
		Candidates:    []string{"var:main"},
		MaxDepth:      &two,
	})
	require.NoError(t, err)
	assert.Empty(t, resp.Items)
}

func TestComplete_UnresolvedExpectedTypes(t *testing.T) {
	c, m := newTestCompleter(DefaultConfig())

	resp, err := c.Complete(context.Background(), testModel(t), Request{
		ExpectedTypes: []string{"pkg.Missing", "void"},
		Candidates:    []string{"var:main"},
	})
	require.NoError(t, err)
	assert.Empty(t, resp.Items)
	assert.Equal(t, []string{"pkg.Missing", "void"}, resp.Unresolved)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.RequestsTotal.WithLabelValues(outcomeEmpty)))

	resp, err = c.Complete(context.Background(), testModel(t), Request{
		ExpectedTypes: []string{"pkg.Missing", "int"},
		Candidates:    []string{"var:main"},
	})
	require.NoError(t, err)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, []string{"pkg.Missing"}, resp.Unresolved)
}

func TestComplete_NilModel(t *testing.T) {
	c, _ := newTestCompleter(DefaultConfig())
	_, err := c.Complete(context.Background(), nil, Request{})
	assert.ErrorIs(t, err, ErrNilModel)
}

func TestComplete_TimeoutReturnsPartialResult(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Timeout = 20 * time.Millisecond
	cfg.GracePeriod = 2 * time.Second
	c, m := newTestCompleter(cfg)

	model := &slowModel{Model: testModel(t), delay: 50 * time.Millisecond}
	resp, err := c.Complete(context.Background(), model, Request{
		ExpectedTypes: []string{"pkg.Main"},
		Candidates:    []string{"var:main", "pkg.Main#getFoo()"},
		MaxChains:     intPtr(10),
	})
	require.NoError(t, err)

	assert.True(t, resp.TimedOut)
	assert.True(t, resp.Cancelled)
	assert.False(t, resp.Abandoned)
	require.Len(t, resp.Items, 1, "only the first entry point matched before the deadline")
	assert.Equal(t, "main", resp.Items[0].Body)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.RequestsTotal.WithLabelValues(outcomeTimeout)))
}

func TestComplete_AbandonsStuckWorker(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Timeout = 10 * time.Millisecond
	cfg.GracePeriod = 10 * time.Millisecond
	cfg.MaxConcurrent = 1
	c, m := newTestCompleter(cfg)

	model := newGatedModel(testModel(t))
	resp, err := c.Complete(context.Background(), model, Request{
		ExpectedTypes: []string{"pkg.Bar"},
		Candidates:    []string{"var:main"},
	})
	require.NoError(t, err)
	assert.True(t, resp.TimedOut)
	assert.True(t, resp.Abandoned)
	assert.Empty(t, resp.Items)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.AbandonedWorkers))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.InFlight))

	close(model.gate)
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(m.InFlight) == 0
	}, time.Second, 5*time.Millisecond)

	// The slot is free again once the abandoned worker finishes.
	resp, err = c.Complete(context.Background(), testModel(t), Request{
		ExpectedTypes: []string{"pkg.Bar"},
		Candidates:    []string{"var:main"},
	})
	require.NoError(t, err)
	assert.Len(t, resp.Items, 2)
}

func TestComplete_Overloaded(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Timeout = time.Minute
	cfg.MaxConcurrent = 1
	c, m := newTestCompleter(cfg)

	model := newGatedModel(testModel(t))
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = c.Complete(context.Background(), model, Request{
			ExpectedTypes: []string{"pkg.Bar"},
			Candidates:    []string{"var:main"},
		})
	}()
	<-model.entered

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := c.Complete(ctx, testModel(t), Request{
		ExpectedTypes: []string{"pkg.Bar"},
		Candidates:    []string{"var:main"},
	})
	assert.ErrorIs(t, err, ErrOverloaded)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.RequestsTotal.WithLabelValues(outcomeOverloaded)))

	close(model.gate)
	wg.Wait()
}

func TestComplete_CallerCancellation(t *testing.T) {
	c, m := newTestCompleter(DefaultConfig())
	model := newGatedModel(testModel(t))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-model.entered
		cancel()
		close(model.gate)
	}()

	resp, err := c.Complete(ctx, model, Request{
		ExpectedTypes: []string{"pkg.Bar"},
		Candidates:    []string{"var:main"},
	})
	require.NoError(t, err)
	assert.True(t, resp.Cancelled)
	assert.False(t, resp.TimedOut)
	assert.False(t, resp.Abandoned)
	assert.Empty(t, resp.Items)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.RequestsTotal.WithLabelValues(outcomeCancelled)))
}

func TestNew_Defaults(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxConcurrent = 0
	c := New(cfg, nil, WithMetrics(NewMetrics(prometheus.NewRegistry())))
	assert.Equal(t, 1, c.Config().MaxConcurrent)
}

func intPtr(n int) *int { return &n }
