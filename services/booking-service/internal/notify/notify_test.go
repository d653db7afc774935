package notify

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/smtp"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWhatsAppSender(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/12345/messages", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewWhatsAppSender(srv.URL+"/", "12345", "tok")
	require.NoError(t, s.Send(context.Background(), "+54 9 11 5555-0000", "hello"))

	assert.Equal(t, "whatsapp", got["messaging_product"])
	assert.Equal(t, "5491155550000", got["to"])
	assert.Equal(t, map[string]any{"body": "hello"}, got["text"])
}

func TestWhatsAppSenderRequiresConfig(t *testing.T) {
	assert.Error(t, NewWhatsAppSender("", "", "").Send(context.Background(), "+1", "x"))
	assert.Equal(t, defaultGraphURL, NewWhatsAppSender("", "p", "t").baseURL)
	assert.Error(t, NewWhatsAppSender("http://unused", "p", "t").Send(context.Background(), "no digits", "x"))
}

func TestWebhookSenderStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewWebhookSender(srv.URL, "").Send(context.Background(), "+1", "x")
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadGateway, se.Code)
	assert.True(t, se.Retryable())
	assert.False(t, (&StatusError{Code: http.StatusBadRequest}).Retryable())
}

type scriptedSender struct {
	mu      sync.Mutex
	results []error
	calls   int32
	ctxErr  error
}

func (s *scriptedSender) ProviderID() string { return "scripted" }

func (s *scriptedSender) Send(ctx context.Context, _ string, _ string) error {
	n := atomic.AddInt32(&s.calls, 1)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctxErr = ctx.Err()
	if int(n) <= len(s.results) {
		return s.results[n-1]
	}
	return nil
}

func fastConfig() DispatcherConfig {
	return DispatcherConfig{Timeout: 5 * time.Second, MaxTries: 3, RetryInitial: time.Millisecond}
}

func TestDispatcherRetriesTransientFailures(t *testing.T) {
	s := &scriptedSender{results: []error{&StatusError{Code: 503}, &StatusError{Code: 429}}}
	d := NewDispatcher(s, nil, quietLogger(), fastConfig())

	d.Notify(context.Background(), "+1555", "hi")
	d.Wait()
	assert.EqualValues(t, 3, atomic.LoadInt32(&s.calls))
}

func TestDispatcherStopsOnPermanentFailure(t *testing.T) {
	s := &scriptedSender{results: []error{&StatusError{Code: 400}}}
	d := NewDispatcher(s, nil, quietLogger(), fastConfig())

	d.Notify(context.Background(), "+1555", "hi")
	d.Wait()
	assert.EqualValues(t, 1, atomic.LoadInt32(&s.calls))
}

func TestDispatcherDetachesFromCallerContext(t *testing.T) {
	s := &scriptedSender{}
	d := NewDispatcher(s, nil, quietLogger(), fastConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.Notify(ctx, "+1555", "hi")
	d.Wait()
	assert.EqualValues(t, 1, atomic.LoadInt32(&s.calls))
	assert.NoError(t, s.ctxErr)
}

func TestDispatcherRoutesByContact(t *testing.T) {
	phone := &scriptedSender{}
	var sentTo []string
	email := NewSMTPSender("localhost", "1025", "")
	email.send = func(_ string, _ smtp.Auth, from string, to []string, msg []byte) error {
		sentTo = append(sentTo, to...)
		assert.Equal(t, "no-reply@turnos.local", from)
		assert.Contains(t, string(msg), "Subject: Appointment booked\r\n")
		return nil
	}
	d := NewDispatcher(phone, email, quietLogger(), fastConfig())

	d.Notify(context.Background(), "ana@example.com", "hi")
	d.Notify(context.Background(), "+1555", "hi")
	d.Notify(context.Background(), "   ", "hi")
	d.Wait()

	assert.Equal(t, []string{"ana@example.com"}, sentTo)
	assert.EqualValues(t, 1, atomic.LoadInt32(&phone.calls))
}

func TestDispatcherWithoutEmailDropsEmailContacts(t *testing.T) {
	phone := &scriptedSender{}
	d := NewDispatcher(phone, nil, quietLogger(), fastConfig())
	d.Notify(context.Background(), "ana@example.com", "hi")
	d.Wait()
	assert.EqualValues(t, 0, atomic.LoadInt32(&phone.calls))
}

func TestBuildMessageUsesCRLF(t *testing.T) {
	msg := buildMessage("a@x", "b@y", "s", "line1\nline2")
	assert.True(t, strings.HasSuffix(msg, "line1\r\nline2\r\n"))
}
