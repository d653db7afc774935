package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/NahunMenem/TurnosLu/services/booking-service/internal/catalog"
	"github.com/NahunMenem/TurnosLu/services/booking-service/internal/model"
)

func (h *Handler) ListServices(w http.ResponseWriter, r *http.Request) {
	svcs, err := h.catalog.ListServices(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	items := make([]serviceResponse, 0, len(svcs))
	for _, s := range svcs {
		items = append(items, toServiceResponse(s))
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) CreateService(w http.ResponseWriter, r *http.Request) {
	var req createServiceRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	svc, err := h.catalog.CreateService(r.Context(), catalog.CreateServiceRequest{
		Name:            req.Name,
		Description:     req.Description,
		DurationMinutes: req.DurationMinutes,
		Price:           req.Price,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toServiceResponse(svc))
}

func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	rules, err := h.catalog.ListRules(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	items := make([]ruleResponse, 0, len(rules))
	for _, rule := range rules {
		items = append(items, toRuleResponse(rule))
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) CreateRule(w http.ResponseWriter, r *http.Request) {
	var req createRuleRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	start, err := model.ParseClock(req.StartTime)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	end, err := model.ParseClock(req.EndTime)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	rule, err := h.catalog.CreateRule(r.Context(), catalog.CreateRuleRequest{
		ServiceID: req.ServiceID,
		Weekday:   req.Weekday,
		Start:     start,
		End:       end,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toRuleResponse(rule))
}
