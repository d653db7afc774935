package handlers

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/NahunMenem/TurnosLu/services/booking-service/internal/model"
	"github.com/NahunMenem/TurnosLu/services/booking-service/internal/report"
)

type createAppointmentRequest struct {
	ServiceID     string `json:"service_id"`
	Date          string `json:"date"`
	Time          string `json:"time"`
	ClientName    string `json:"client_name"`
	ClientContact string `json:"client_contact"`
}

type createAppointmentResponse struct {
	AppointmentID string `json:"appointment_id"`
}

type appointmentResponse struct {
	ID            string          `json:"id"`
	ServiceID     string          `json:"service_id"`
	ServiceName   string          `json:"service_name"`
	Date          string          `json:"date"`
	Time          string          `json:"time"`
	Status        string          `json:"status"`
	Confirmed     bool            `json:"confirmed"`
	ClientName    string          `json:"client_name"`
	ClientContact string          `json:"client_contact"`
	TotalPaid     decimal.Decimal `json:"total_paid"`
	CreatedAt     time.Time       `json:"created_at"`
}

func toAppointmentResponse(v model.AppointmentView) appointmentResponse {
	return appointmentResponse{
		ID:            v.ID,
		ServiceID:     v.ServiceID,
		ServiceName:   v.ServiceName,
		Date:          v.Date.Format(model.DateLayout),
		Time:          v.Time.String(),
		Status:        v.Status,
		Confirmed:     v.Confirmed,
		ClientName:    v.ClientName,
		ClientContact: v.ClientContact,
		TotalPaid:     v.TotalPaid,
		CreatedAt:     v.CreatedAt,
	}
}

type registerPaymentRequest struct {
	Method string `json:"method"`
	// Amount is required; nil means the field was absent or null.
	Amount    *decimal.Decimal `json:"amount"`
	Reference string           `json:"reference,omitempty"`
}

type registerPaymentResponse struct {
	PaymentID string `json:"payment_id"`
}

type totalPaidResponse struct {
	AppointmentID string          `json:"appointment_id"`
	TotalPaid     decimal.Decimal `json:"total_paid"`
}

type methodTotal struct {
	Method string          `json:"method"`
	Total  decimal.Decimal `json:"total"`
}

type serviceTotal struct {
	ServiceName string          `json:"service_name"`
	Total       decimal.Decimal `json:"total"`
}

type demandShare struct {
	ServiceName string          `json:"service_name"`
	Count       int             `json:"count"`
	Percentage  decimal.Decimal `json:"percentage"`
}

type cashReportResponse struct {
	From              string          `json:"from"`
	To                string          `json:"to"`
	TotalGeneral      decimal.Decimal `json:"total_general"`
	TotalByMethod     []methodTotal   `json:"total_by_method"`
	TotalByService    []serviceTotal  `json:"total_by_service"`
	DemandShare       []demandShare   `json:"demand_share"`
	TotalAppointments int             `json:"total_appointments"`
}

func toCashReportResponse(c report.Cash) cashReportResponse {
	out := cashReportResponse{
		From:              c.From.Format(model.DateLayout),
		To:                c.To.Format(model.DateLayout),
		TotalGeneral:      c.TotalGeneral,
		TotalByMethod:     make([]methodTotal, 0, len(c.TotalByMethod)),
		TotalByService:    make([]serviceTotal, 0, len(c.TotalByService)),
		DemandShare:       make([]demandShare, 0, len(c.DemandShare)),
		TotalAppointments: c.TotalAppointments,
	}
	for _, m := range c.TotalByMethod {
		out.TotalByMethod = append(out.TotalByMethod, methodTotal{Method: string(m.Method), Total: m.Total})
	}
	for _, s := range c.TotalByService {
		out.TotalByService = append(out.TotalByService, serviceTotal{ServiceName: s.ServiceName, Total: s.Total})
	}
	for _, d := range c.DemandShare {
		out.DemandShare = append(out.DemandShare, demandShare{ServiceName: d.ServiceName, Count: d.Count, Percentage: d.Percentage})
	}
	return out
}

type serviceResponse struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Description     string          `json:"description"`
	DurationMinutes int             `json:"duration_minutes"`
	Price           decimal.Decimal `json:"price"`
	Active          bool            `json:"active"`
}

func toServiceResponse(s model.Service) serviceResponse {
	return serviceResponse{
		ID:              s.ID,
		Name:            s.Name,
		Description:     s.Description,
		DurationMinutes: s.DurationMinutes,
		Price:           s.Price,
		Active:          s.Active,
	}
}

type createServiceRequest struct {
	Name            string          `json:"name"`
	Description     string          `json:"description"`
	DurationMinutes int             `json:"duration_minutes"`
	Price           decimal.Decimal `json:"price"`
}

type ruleResponse struct {
	ID        string `json:"id"`
	ServiceID string `json:"service_id"`
	Weekday   int    `json:"weekday"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

func toRuleResponse(r model.ScheduleRule) ruleResponse {
	return ruleResponse{
		ID:        r.ID,
		ServiceID: r.ServiceID,
		Weekday:   r.Weekday,
		StartTime: r.Start.String(),
		EndTime:   r.End.String(),
	}
}

type createRuleRequest struct {
	ServiceID string `json:"service_id"`
	Weekday   int    `json:"weekday"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}
