package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/vgascout/crawler"
	"github.com/use-agent/vgascout/models"
	"github.com/use-agent/vgascout/service"
	"github.com/use-agent/vgascout/store"
)

type staticCrawler struct {
	records []models.ProductRecord
	panics  bool
}

func (c staticCrawler) Run(context.Context, int) *crawler.Report {
	if c.panics {
		panic("browser crashed")
	}
	return &crawler.Report{Records: c.records}
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func countingCloser(calls *int, err error) closerFunc {
	return func() error {
		*calls++
		return err
	}
}

var oneRecord = []models.ProductRecord{{Model: "RTX 4060", Price: "R$ 1.899,99", MemorySize: "8GB", MemoryType: "GDDR6"}}

func TestRunOnce_WriteFailureJoinsCloseErrors(t *testing.T) {
	st, err := store.Open(":memory:")
	require.NoError(t, err)

	errBrowser := errors.New("browser would not die")
	var sessionCalls int
	a := &app{
		service: service.New(staticCrawler{records: oneRecord}, service.Options{
			OutputPath: filepath.Join(t.TempDir(), "missing", "out.json"),
		}),
		session: countingCloser(&sessionCalls, errBrowser),
		store:   st,
	}

	err = a.runOnce(context.Background(), 3)
	require.Error(t, err)
	assert.Equal(t, models.ErrCodeWriteFailed, models.CodeOf(err))
	assert.ErrorIs(t, err, errBrowser)
	assert.Equal(t, 1, sessionCalls)
}

func TestRunOnce_StoreCloseErrorFailsSuccessfulRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	errStore := errors.New("database is locked")
	var storeCalls int
	a := &app{
		service: service.New(staticCrawler{records: oneRecord}, service.Options{OutputPath: path}),
		store:   countingCloser(&storeCalls, errStore),
	}

	err := a.runOnce(context.Background(), 1)
	assert.ErrorIs(t, err, errStore)
	assert.Equal(t, 1, storeCalls)
	_, statErr := os.Stat(path)
	assert.NoError(t, statErr, "result is written before cleanup")
}

func TestRunOnce_ZeroRecordsSucceeds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	var sessionCalls int
	a := &app{
		service: service.New(staticCrawler{records: []models.ProductRecord{}}, service.Options{OutputPath: path}),
		session: countingCloser(&sessionCalls, nil),
	}

	require.NoError(t, a.runOnce(context.Background(), 3))
	assert.Equal(t, 1, sessionCalls)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "nothing written without records")
}

func TestRunOnce_ClosesAfterPanic(t *testing.T) {
	var sessionCalls, storeCalls int
	a := &app{
		service: service.New(staticCrawler{panics: true}, service.Options{OutputPath: filepath.Join(t.TempDir(), "out.json")}),
		session: countingCloser(&sessionCalls, nil),
		store:   countingCloser(&storeCalls, nil),
	}

	assert.Panics(t, func() { _ = a.runOnce(context.Background(), 1) })
	assert.Equal(t, 1, sessionCalls)
	assert.Equal(t, 1, storeCalls)
}

func TestAppClose_Empty(t *testing.T) {
	assert.NoError(t, (&app{}).Close())
}
