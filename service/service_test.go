package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/vgascout/cache"
	"github.com/use-agent/vgascout/config"
	"github.com/use-agent/vgascout/crawler"
	"github.com/use-agent/vgascout/metrics"
	"github.com/use-agent/vgascout/models"
	"github.com/use-agent/vgascout/output"
	"github.com/use-agent/vgascout/store"
)

type fakeCrawler struct {
	records []models.ProductRecord
	gotMax  int
	block   chan struct{}
	started chan struct{}
}

func (f *fakeCrawler) Run(_ context.Context, maxPages int) *crawler.Report {
	f.gotMax = maxPages
	if f.started != nil {
		close(f.started)
	}
	if f.block != nil {
		<-f.block
	}
	return &crawler.Report{
		Records: f.records,
		Pages:   []models.PageOutcome{{Page: 1, Status: models.PageRecords, Records: len(f.records)}},
	}
}

var twoRecords = []models.ProductRecord{
	{Model: "RTX 4060", Price: "R$ 1.899,99", MemorySize: "8GB", MemoryType: "GDDR6"},
	{Model: "RTX 4070", Price: "R$ 3.999,90", MemorySize: "12GB", MemoryType: "GDDR6X"},
}

func TestRun_WritesAndRecords(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.json")
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	defer st.Close()

	var hooks atomic.Int32
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hooks.Add(1)
		assert.NotEmpty(t, r.Header.Get("X-Vgascout-Signature"))
	}))
	defer hook.Close()

	svc := New(&fakeCrawler{records: twoRecords}, Options{
		OutputPath: path,
		Store:      st,
		Cache:      cache.New(10, time.Hour),
		Metrics:    metrics.New(),
		Webhook:    config.WebhookConfig{URL: hook.URL, Secret: "s"},
	})

	run, err := svc.Run(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, 2, run.Result.TotalCount)
	assert.Equal(t, path, run.Output)
	assert.Equal(t, int32(1), hooks.Load())
	assert.False(t, svc.Active())

	written, err := output.Read(path)
	require.NoError(t, err)
	assert.Equal(t, twoRecords, written.Records)

	stored, err := st.GetRun(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, twoRecords, stored.Result.Records)

	cached, err := svc.Get(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Same(t, run, cached)
}

func TestRun_NoRecordsWritesNothing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	svc := New(&fakeCrawler{records: []models.ProductRecord{}}, Options{OutputPath: path})

	run, err := svc.Run(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, 0, run.Result.TotalCount)
	assert.Empty(t, run.Output)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestRun_WriteFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "no-such-dir", "out.json")
	svc := New(&fakeCrawler{records: twoRecords}, Options{
		OutputPath: path,
		Cache:      cache.New(10, time.Hour),
	})

	run, err := svc.Run(context.Background(), 1)
	require.Error(t, err)
	assert.Equal(t, models.ErrCodeWriteFailed, models.CodeOf(err))
	require.NotNil(t, run)
	assert.Empty(t, run.Output)

	// The failed run stays reachable by the id the caller was given.
	got, err := svc.Get(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Same(t, run, got)
}

func TestRun_RejectsConcurrentRun(t *testing.T) {
	fc := &fakeCrawler{records: twoRecords, block: make(chan struct{}), started: make(chan struct{})}
	svc := New(fc, Options{OutputPath: filepath.Join(t.TempDir(), "out.json")})

	done := make(chan error, 1)
	go func() {
		_, err := svc.Run(context.Background(), 1)
		done <- err
	}()
	<-fc.started
	assert.True(t, svc.Active())

	_, err := svc.Run(context.Background(), 1)
	assert.Equal(t, models.ErrCodeRunInProgress, models.CodeOf(err))

	close(fc.block)
	require.NoError(t, <-done)
}

func TestGet_NotFound(t *testing.T) {
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	defer st.Close()

	svc := New(&fakeCrawler{}, Options{Store: st, Cache: cache.New(1, time.Hour)})
	_, err = svc.Get(context.Background(), "missing")
	assert.Equal(t, models.ErrCodeNotFound, models.CodeOf(err))

	_, err = New(&fakeCrawler{}, Options{}).Get(context.Background(), "missing")
	assert.Equal(t, models.ErrCodeNotFound, models.CodeOf(err))
}

func TestList_FromStore(t *testing.T) {
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	defer st.Close()

	svc := New(&fakeCrawler{records: twoRecords}, Options{
		OutputPath: filepath.Join(t.TempDir(), "out.json"),
		Store:      st,
	})
	first, err := svc.Run(context.Background(), 1)
	require.NoError(t, err)
	svc.now = func() time.Time { return first.StartedAt.Add(time.Minute) }
	second, err := svc.Run(context.Background(), 1)
	require.NoError(t, err)

	runs, err := svc.List(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second.ID, runs[0].ID)
	assert.Equal(t, first.ID, runs[1].ID)
	assert.Equal(t, 2, runs[0].TotalCount)

	runs, err = svc.List(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestList_FromCache(t *testing.T) {
	svc := New(&fakeCrawler{records: []models.ProductRecord{}}, Options{Cache: cache.New(10, time.Hour)})
	run, err := svc.Run(context.Background(), 1)
	require.NoError(t, err)

	runs, err := svc.List(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, run.ID, runs[0].ID)
	assert.Equal(t, 0, runs[0].TotalCount)

	runs, err = New(&fakeCrawler{}, Options{}).List(context.Background(), 5)
	require.NoError(t, err)
	assert.NotNil(t, runs)
	assert.Empty(t, runs)
}
