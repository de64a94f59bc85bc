package audit

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"wallet-ledger-go/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPSinkDeliver(t *testing.T) {
	var gotBody []byte
	var gotHeader http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		gotHeader = r.Header.Clone()
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	sink, err := NewHTTPSink(server.URL, time.Second)
	require.NoError(t, err)
	defer sink.Close()

	event := models.AuditEvent{Id: "evt-1", EventType: "ledger.entry.created", Payload: []byte(`{"entry_id":"e1"}`)}
	require.NoError(t, sink.Deliver(context.Background(), event))

	assert.JSONEq(t, `{"entry_id":"e1"}`, string(gotBody))
	assert.Equal(t, "application/json", gotHeader.Get("Content-Type"))
	assert.Equal(t, "evt-1", gotHeader.Get("Idempotency-Key"))
	assert.Equal(t, "ledger.entry.created", gotHeader.Get("X-Event-Type"))
}

func TestHTTPSinkClassifiesFailures(t *testing.T) {
	tests := []struct {
		status    int
		permanent bool
	}{
		{http.StatusBadRequest, true},
		{http.StatusUnprocessableEntity, true},
		{http.StatusRequestTimeout, false},
		{http.StatusTooManyRequests, false},
		{http.StatusInternalServerError, false},
		{http.StatusServiceUnavailable, false},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", tt.status)
			}))
			defer server.Close()

			sink, err := NewHTTPSink(server.URL, time.Second)
			require.NoError(t, err)

			err = sink.Deliver(context.Background(), models.AuditEvent{Id: "evt-1", Payload: []byte(`{}`)})
			require.Error(t, err)
			assert.Equal(t, tt.permanent, errors.Is(err, ErrPermanent))
			assert.Contains(t, err.Error(), "nope")
		})
	}
}

func TestHTTPSinkUnreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	sink, err := NewHTTPSink(url, 200*time.Millisecond)
	require.NoError(t, err)

	err = sink.Deliver(context.Background(), models.AuditEvent{Id: "evt-1", Payload: []byte(`{}`)})
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrPermanent))
}
