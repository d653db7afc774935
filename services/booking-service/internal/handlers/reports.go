package handlers

import (
	"net/http"

	"github.com/NahunMenem/TurnosLu/services/booking-service/internal/model"
)

// CashReport answers GET /reports/cash?from=&to= (inclusive dates).
func (h *Handler) CashReport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("from") == "" || q.Get("to") == "" {
		badRequest(w, "from and to are required")
		return
	}
	from, err := model.ParseDate(q.Get("from"))
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	to, err := model.ParseDate(q.Get("to"))
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	rep, err := h.engine.CashReport(r.Context(), from, to)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCashReportResponse(rep))
}
