package sender_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urbantransit/notify/pkg/sender"
)

func TestWebhookSender_Send(t *testing.T) {
	t.Parallel()

	t.Run("successful delivery", func(t *testing.T) {
		t.Parallel()

		var received map[string]any
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		s := sender.NewWebhookSender()
		ok, err := s.Send(context.Background(), srv.URL, "Delay on line 4", "Bus 12 is running late")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "Delay on line 4", received["title"])
		assert.Equal(t, "Bus 12 is running late", received["body"])
	})

	t.Run("non-2xx response", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		s := sender.NewWebhookSender()
		ok, err := s.Send(context.Background(), srv.URL, "T", "B")
		assert.False(t, ok)
		assert.ErrorIs(t, err, sender.ErrWebhookRejected)
	})

	t.Run("empty target", func(t *testing.T) {
		t.Parallel()

		s := sender.NewWebhookSender()
		ok, err := s.Send(context.Background(), "", "T", "B")
		assert.False(t, ok)
		assert.ErrorIs(t, err, sender.ErrEmptyTarget)
	})

	t.Run("unsupported scheme", func(t *testing.T) {
		t.Parallel()

		s := sender.NewWebhookSender()
		ok, err := s.Send(context.Background(), "ftp://example.com/hook", "T", "B")
		assert.False(t, ok)
		assert.ErrorIs(t, err, sender.ErrInvalidWebhookURL)
	})

	t.Run("connection refused", func(t *testing.T) {
		t.Parallel()

		s := sender.NewWebhookSender()
		ok, err := s.Send(context.Background(), "http://127.0.0.1:1/hook", "T", "B")
		assert.False(t, ok)
		assert.Error(t, err)
	})

	t.Run("context cancelled", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-r.Context().Done()
		}))
		defer srv.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		s := sender.NewWebhookSender()
		ok, err := s.Send(ctx, srv.URL, "T", "B")
		assert.False(t, ok)
		assert.Error(t, err)
	})
}
