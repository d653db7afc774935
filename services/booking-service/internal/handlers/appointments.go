package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/NahunMenem/TurnosLu/services/booking-service/internal/booking"
	"github.com/NahunMenem/TurnosLu/services/booking-service/internal/model"
)

// Slots answers GET /slots?service_id=&date= with the free HH:MM starts.
func (h *Handler) Slots(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	serviceID := strings.TrimSpace(q.Get("service_id"))
	if serviceID == "" || q.Get("date") == "" {
		badRequest(w, "service_id and date are required")
		return
	}
	date, err := model.ParseDate(q.Get("date"))
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	slots, err := h.engine.ListAvailableSlots(r.Context(), serviceID, date)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, slots)
}

func (h *Handler) CreateAppointment(w http.ResponseWriter, r *http.Request) {
	var req createAppointmentRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	if strings.TrimSpace(req.ServiceID) == "" || req.Date == "" || req.Time == "" {
		badRequest(w, "service_id, date and time are required")
		return
	}
	date, err := model.ParseDate(req.Date)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	at, err := model.ParseClock(req.Time)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	id, err := h.engine.Book(r.Context(), booking.BookRequest{
		ServiceID:     strings.TrimSpace(req.ServiceID),
		Date:          date,
		Time:          at,
		ClientName:    req.ClientName,
		ClientContact: req.ClientContact,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, createAppointmentResponse{AppointmentID: id})
}

// ListAppointments answers GET /appointments, optionally narrowed by ?date=.
func (h *Handler) ListAppointments(w http.ResponseWriter, r *http.Request) {
	var date *time.Time
	if raw := r.URL.Query().Get("date"); raw != "" {
		d, err := model.ParseDate(raw)
		if err != nil {
			badRequest(w, err.Error())
			return
		}
		date = &d
	}

	views, err := h.engine.ListAppointments(r.Context(), date)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	items := make([]appointmentResponse, 0, len(views))
	for _, v := range views {
		items = append(items, toAppointmentResponse(v))
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) GetAppointment(w http.ResponseWriter, r *http.Request) {
	v, err := h.engine.GetAppointment(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentResponse(v))
}

func (h *Handler) ConfirmAppointment(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.Confirm(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

func (h *Handler) RemoveAppointment(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.Remove(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}
