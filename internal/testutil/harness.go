// Package testutil holds the harness integration tests build on.
package testutil

import (
	"bytes"
	"os"
	"sync"
	"testing"

	"github.com/specialistvlad/rulegraph/internal/app"
	"github.com/specialistvlad/rulegraph/internal/rule"
	"github.com/stretchr/testify/require"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// Harness is one application under test together with its captured logs.
type Harness struct {
	App  *app.App
	Logs *SafeBuffer
}

// Backends lists the store configurations every integration scenario runs
// against.
func Backends() map[string]app.StoreConfig {
	return map[string]app.StoreConfig{
		app.BackendMemory: {Backend: app.BackendMemory},
		app.BackendBadger: {Backend: app.BackendBadger},
	}
}

// ForEachBackend runs fn as a subtest once per store backend.
func ForEachBackend(t *testing.T, fn func(t *testing.T, store app.StoreConfig)) {
	t.Helper()
	for _, name := range []string{app.BackendMemory, app.BackendBadger} {
		store := Backends()[name]
		t.Run(name, func(t *testing.T) {
			fn(t, store)
		})
	}
}

// NewHarness creates an app with debug logging, metrics enabled and the
// given store. Without modules the core modules are registered. Setting
// RULEGRAPH_TEST_LOGS=true prints the captured logs after the test.
func NewHarness(t *testing.T, store app.StoreConfig, modules ...rule.Module) *Harness {
	t.Helper()

	logs := &SafeBuffer{}
	cfg, err := app.NewConfig(app.Config{LogLevel: "debug", Store: store, Metrics: true})
	require.NoError(t, err)

	a, err := app.New(logs, cfg, modules...)
	require.NoError(t, err)

	t.Cleanup(func() {
		if err := a.Close(); err != nil {
			t.Errorf("close app: %v", err)
		}
		if os.Getenv("RULEGRAPH_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logs.String())
		}
	})

	return &Harness{App: a, Logs: logs}
}
