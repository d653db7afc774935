package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/NahunMenem/TurnosLu/libs/auth"
	"github.com/NahunMenem/TurnosLu/services/booking-service/internal/booking"
	"github.com/NahunMenem/TurnosLu/services/booking-service/internal/catalog"
	"github.com/NahunMenem/TurnosLu/services/booking-service/internal/storage/memory"
)

const (
	adminToken    = "s3cret-admin"
	webhookSecret = "whsec_test"
)

type testAPI struct {
	t   *testing.T
	srv *httptest.Server
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memory.New()
	engine := booking.New(store, booking.Options{Logger: logger})
	cat := catalog.NewManager(store, nil, logger)
	hash, err := auth.HashToken(adminToken)
	require.NoError(t, err)

	h := New(engine, cat, logger, Config{StripeWebhookSecret: webhookSecret})
	srv := httptest.NewServer(NewRouter(h, RouterConfig{AdminTokenHash: hash}))
	t.Cleanup(srv.Close)
	return &testAPI{t: t, srv: srv}
}

func (a *testAPI) do(method, path string, body any, admin bool) (int, []byte) {
	a.t.Helper()
	var rdr io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		rdr = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, a.srv.URL+path, rdr)
	require.NoError(a.t, err)
	req.Header.Set("Content-Type", "application/json")
	if admin {
		req.Header.Set("Authorization", "Bearer "+adminToken)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(a.t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(a.t, err)
	return resp.StatusCode, out
}

func decode[T any](t *testing.T, raw []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v), string(raw))
	return v
}

// seed creates a 30 minute service bookable Mondays 09:00-10:00.
func (a *testAPI) seed() string {
	a.t.Helper()
	code, body := a.do(http.MethodPost, "/api/v1/services", map[string]any{
		"name": "Haircut", "duration_minutes": 30, "price": "20.00",
	}, true)
	require.Equal(a.t, http.StatusCreated, code, string(body))
	svc := decode[serviceResponse](a.t, body)

	code, body = a.do(http.MethodPost, "/api/v1/rules", map[string]any{
		"service_id": svc.ID, "weekday": 0, "start_time": "09:00", "end_time": "10:00",
	}, true)
	require.Equal(a.t, http.StatusCreated, code, string(body))
	return svc.ID
}

func (a *testAPI) book(serviceID, at string) string {
	a.t.Helper()
	code, body := a.do(http.MethodPost, "/api/v1/appointments", map[string]any{
		"service_id": serviceID, "date": "2026-03-02", "time": at, "client_name": "Ana",
	}, false)
	require.Equal(a.t, http.StatusCreated, code, string(body))
	return decode[createAppointmentResponse](a.t, body).AppointmentID
}

func TestBookingFlow(t *testing.T) {
	api := newTestAPI(t)
	svcID := api.seed()

	id := api.book(svcID, "09:30")

	code, body := api.do(http.MethodGet, "/api/v1/slots?service_id="+svcID+"&date=2026-03-02", nil, false)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, []string{"09:00"}, decode[[]string](t, body))

	code, _ = api.do(http.MethodPost, "/api/v1/appointments", map[string]any{
		"service_id": svcID, "date": "2026-03-02", "time": "09:30", "client_name": "Luis",
	}, false)
	assert.Equal(t, http.StatusConflict, code)

	code, body = api.do(http.MethodPost, "/api/v1/appointments/"+id+"/payments", map[string]any{"method": "cash", "amount": 50}, true)
	require.Equal(t, http.StatusCreated, code, string(body))
	code, body = api.do(http.MethodPost, "/api/v1/appointments/"+id+"/payments", map[string]any{"method": "transfer", "amount": "30"}, true)
	require.Equal(t, http.StatusCreated, code, string(body))

	code, body = api.do(http.MethodGet, "/api/v1/appointments/"+id+"/payments/total", nil, false)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"appointment_id":"`+id+`","total_paid":"80"}`, string(body))

	code, body = api.do(http.MethodGet, "/api/v1/appointments?date=2026-03-02", nil, false)
	require.Equal(t, http.StatusOK, code)
	list := decode[[]appointmentResponse](t, body)
	require.Len(t, list, 1)
	assert.Equal(t, "Haircut", list[0].ServiceName)
	assert.Equal(t, "09:30", list[0].Time)

	code, _ = api.do(http.MethodPost, "/api/v1/appointments/"+id+"/confirm", nil, true)
	assert.Equal(t, http.StatusOK, code)
	code, _ = api.do(http.MethodDelete, "/api/v1/appointments/"+id, nil, true)
	assert.Equal(t, http.StatusConflict, code)

	code, body = api.do(http.MethodGet, "/api/v1/reports/cash?from=2026-03-01&to=2026-03-31", nil, true)
	require.Equal(t, http.StatusOK, code)
	rep := decode[map[string]any](t, body)
	assert.Equal(t, "80", rep["total_general"])
	assert.EqualValues(t, 1, rep["total_appointments"])
	assert.Len(t, rep["total_by_method"], 2)
}

func TestRemoveBookedAppointment(t *testing.T) {
	api := newTestAPI(t)
	svcID := api.seed()
	id := api.book(svcID, "09:00")

	code, body := api.do(http.MethodDelete, "/api/v1/appointments/"+id, nil, true)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"ok":true}`, string(body))

	code, _ = api.do(http.MethodGet, "/api/v1/appointments/"+id, nil, false)
	assert.Equal(t, http.StatusNotFound, code)
	api.book(svcID, "09:00")
}

func TestAdminRoutesRequireToken(t *testing.T) {
	api := newTestAPI(t)
	svcID := api.seed()
	id := api.book(svcID, "09:00")

	for _, tc := range []struct{ method, path string }{
		{http.MethodPost, "/api/v1/appointments/" + id + "/confirm"},
		{http.MethodDelete, "/api/v1/appointments/" + id},
		{http.MethodPost, "/api/v1/appointments/" + id + "/payments"},
		{http.MethodGet, "/api/v1/reports/cash?from=2026-03-01&to=2026-03-02"},
		{http.MethodPost, "/api/v1/services"},
		{http.MethodPost, "/api/v1/rules"},
	} {
		code, _ := api.do(tc.method, tc.path, map[string]any{}, false)
		assert.Equal(t, http.StatusUnauthorized, code, tc.path)
	}
}

func TestValidationErrors(t *testing.T) {
	api := newTestAPI(t)
	svcID := api.seed()
	id := api.book(svcID, "09:00")

	cases := []struct {
		method, path string
		body         any
		admin        bool
		want         int
	}{
		{http.MethodGet, "/api/v1/slots?service_id=" + svcID, nil, false, http.StatusBadRequest},
		{http.MethodGet, "/api/v1/slots?service_id=" + svcID + "&date=02/03/2026", nil, false, http.StatusBadRequest},
		{http.MethodGet, "/api/v1/slots?service_id=missing&date=2026-03-02", nil, false, http.StatusNotFound},
		{http.MethodPost, "/api/v1/appointments", map[string]any{"service_id": svcID, "date": "2026-03-02", "time": "9am", "client_name": "A"}, false, http.StatusBadRequest},
		{http.MethodPost, "/api/v1/appointments", map[string]any{"service_id": "missing", "date": "2026-03-02", "time": "09:00", "client_name": "A"}, false, http.StatusNotFound},
		{http.MethodPost, "/api/v1/appointments/" + id + "/payments", map[string]any{"method": "crypto", "amount": 1}, true, http.StatusBadRequest},
		{http.MethodPost, "/api/v1/appointments/missing/payments", map[string]any{"method": "cash", "amount": 1}, true, http.StatusNotFound},
		{http.MethodPost, "/api/v1/appointments/" + id + "/payments", map[string]any{"method": "cash"}, true, http.StatusBadRequest},
		{http.MethodPost, "/api/v1/appointments/" + id + "/payments", map[string]any{"method": "cash", "amount": nil}, true, http.StatusBadRequest},
		{http.MethodPost, "/api/v1/appointments/missing/confirm", nil, true, http.StatusNotFound},
		{http.MethodGet, "/api/v1/reports/cash?from=2026-03-05&to=2026-03-01", nil, true, http.StatusBadRequest},
		{http.MethodPost, "/api/v1/rules", map[string]any{"service_id": svcID, "weekday": 9, "start_time": "09:00", "end_time": "10:00"}, true, http.StatusBadRequest},
		{http.MethodGet, "/api/v1/services/missing/rules", nil, false, http.StatusNotFound},
	}
	for _, tc := range cases {
		code, body := api.do(tc.method, tc.path, tc.body, tc.admin)
		assert.Equal(t, tc.want, code, "%s %s: %s", tc.method, tc.path, body)
	}

	// Rejected payment requests record nothing.
	_, body := api.do(http.MethodGet, "/api/v1/appointments/"+id+"/payments/total", nil, false)
	assert.JSONEq(t, `{"appointment_id":"`+id+`","total_paid":"0"}`, string(body))
}

func TestCatalogListing(t *testing.T) {
	api := newTestAPI(t)
	svcID := api.seed()

	code, body := api.do(http.MethodGet, "/api/v1/services", nil, false)
	require.Equal(t, http.StatusOK, code)
	svcs := decode[[]serviceResponse](t, body)
	require.Len(t, svcs, 1)
	assert.Equal(t, "20", svcs[0].Price.String())

	code, body = api.do(http.MethodGet, "/api/v1/services/"+svcID+"/rules", nil, false)
	require.Equal(t, http.StatusOK, code)
	rules := decode[[]ruleResponse](t, body)
	require.Len(t, rules, 1)
	assert.Equal(t, "09:00", rules[0].StartTime)
	assert.Equal(t, "10:00", rules[0].EndTime)
}

func (a *testAPI) postWebhook(payload []byte, header string) (int, []byte) {
	a.t.Helper()
	req, err := http.NewRequest(http.MethodPost, a.srv.URL+"/api/v1/payments/webhooks/stripe", bytes.NewReader(payload))
	require.NoError(a.t, err)
	req.Header.Set("Stripe-Signature", header)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(a.t, err)
	defer resp.Body.Close()
	out, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, out
}

func TestStripeWebhookRecordsCardPaymentOnce(t *testing.T) {
	api := newTestAPI(t)
	svcID := api.seed()
	id := api.book(svcID, "09:00")

	now := time.Now()
	payload, err := json.Marshal(map[string]any{
		"id":          "evt_1",
		"object":      "event",
		"created":     now.Unix(),
		"type":        "payment_intent.succeeded",
		"api_version": stripe.APIVersion,
		"data": map[string]any{"object": map[string]any{
			"id": "pi_1", "object": "payment_intent", "status": "succeeded",
			"amount_received": 2000, "metadata": map[string]any{"appointment_id": id},
		}},
	})
	require.NoError(t, err)
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{Payload: payload, Secret: webhookSecret, Timestamp: now, Scheme: "v1"})

	code, body := api.postWebhook(payload, signed.Header)
	require.Equal(t, http.StatusOK, code, string(body))
	assert.JSONEq(t, `{"received":true,"result":"recorded"}`, string(body))

	code, body = api.postWebhook(payload, signed.Header)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"received":true,"result":"duplicate"}`, string(body))

	_, body = api.do(http.MethodGet, "/api/v1/appointments/"+id+"/payments/total", nil, false)
	assert.Equal(t, "20", decode[totalPaidResponse](t, body).TotalPaid.String())

	code, _ = api.postWebhook(payload, "t=1,v1=bad")
	assert.Equal(t, http.StatusBadRequest, code)
}
