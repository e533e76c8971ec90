package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zukunftch/zukunft.com/config"
	"github.com/zukunftch/zukunft.com/sandbox"
	"github.com/zukunftch/zukunft.com/storage"
)

var (
	alice = sandbox.User{ID: 1, Name: "alice"}
	bob   = sandbox.User{ID: 2, Name: "bob"}
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Instance.ID = "zukunft-unit-test"
	cfg.Metrics.Enabled = false
	return cfg
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	svc, err := New(testConfig(), WithStore(storage.NewMemStore()))
	require.NoError(t, err)
	require.NoError(t, svc.Start(context.Background()))
	t.Cleanup(func() { _ = svc.Stop(context.Background()) })
	return svc
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Driver = "oracle"
	_, err := New(cfg)
	require.Error(t, err)
}

func TestNewWithNilConfigUsesDefaults(t *testing.T) {
	svc, err := New(nil, WithStore(storage.NewMemStore()))
	require.NoError(t, err)
	assert.Equal(t, StatusStopped, svc.Status())
}

func TestLifecycle(t *testing.T) {
	svc, err := New(testConfig(), WithStore(storage.NewMemStore()))
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, svc.Start(ctx))
	assert.Equal(t, StatusRunning, svc.Status())

	err = svc.Start(ctx)
	require.Error(t, err, "double start must fail")

	require.NoError(t, svc.Stop(ctx))
	assert.Equal(t, StatusStopped, svc.Status())
	assert.Zero(t, svc.Uptime())

	require.NoError(t, svc.Stop(ctx), "repeated stop is a no-op")
}

func TestStartLoadsVerbsFromStore(t *testing.T) {
	store := storage.NewMemStore()
	_, err := store.Insert(context.Background(), "verbs",
		[]string{"verb_id", "code_id", "verb_name", "name_reverse"},
		[]any{int64(20), "is-located-in", "is located in", "is location of"})
	require.NoError(t, err)

	svc, err := New(testConfig(), WithStore(store))
	require.NoError(t, err)
	require.NoError(t, svc.Start(context.Background()))
	defer svc.Stop(context.Background())

	v, ok := svc.Registry().VerbByCode("is-located-in")
	require.True(t, ok)
	assert.Equal(t, "is located in", v.Name)

	_, ok = svc.Registry().VerbByCode("is-a")
	assert.True(t, ok, "built-in verbs must survive the refresh")
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "stopped", StatusStopped.String())
	assert.Equal(t, "starting", StatusStarting.String())
	assert.Equal(t, "running", StatusRunning.String())
	assert.Equal(t, "stopping", StatusStopping.String())
	assert.Equal(t, "unknown", Status(99).String())
}
