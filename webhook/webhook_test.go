package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeliver_Signed(t *testing.T) {
	var gotBody []byte
	var gotSig string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		gotSig = r.Header.Get(SignatureHeader)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	event := &Event{
		Type:      EventScrapeCompleted,
		RunID:     "run-1",
		Timestamp: 1700000000,
		Data:      CompletedData{TotalCount: 10, Output: "resultado_placas.json"},
	}
	require.NoError(t, Deliver(context.Background(), srv.Client(), srv.URL, "s3cret", event))

	assert.Equal(t, "sha256="+Sign("s3cret", gotBody), gotSig)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(gotBody, &decoded))
	assert.Equal(t, "scrape.completed", decoded["type"])
	assert.Equal(t, "run-1", decoded["run_id"])
	assert.Equal(t, float64(10), decoded["data"].(map[string]any)["total_count"])
}

func TestDeliver_Unsigned(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get(SignatureHeader))
	}))
	defer srv.Close()

	assert.NoError(t, Deliver(context.Background(), nil, srv.URL, "", &Event{Type: EventScrapeCompleted}))
}

func TestDeliver_ErrorStatus(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := Deliver(context.Background(), srv.Client(), srv.URL, "", &Event{Type: EventScrapeCompleted})
	assert.Error(t, err)
	assert.Equal(t, 1, calls, "no retries")
}

func TestSign(t *testing.T) {
	assert.Equal(t, "515aae133b435d4000956731f68ae5cf5eb85d4f0dc6a546d2bfcd3595ec1ae1", Sign("key", []byte("body")))
	assert.Len(t, Sign("key", []byte("body")), 64)
	assert.NotEqual(t, Sign("key", []byte("body")), Sign("other", []byte("body")))
}
