// Package report aggregates payments and appointments into the cash report.
// Everything here is pure; the caller loads the rows for the date range.
package report

import (
	"sort"
	"time"

	"github.com/NahunMenem/TurnosLu/services/booking-service/internal/model"
	"github.com/shopspring/decimal"
)

// AppointmentRow is an appointment that falls inside the report range.
type AppointmentRow struct {
	AppointmentID string
	ServiceName   string
	Date          time.Time
}

// PaymentRow is a payment whose appointment falls inside the report range.
type PaymentRow struct {
	AppointmentID string
	Method        model.PaymentMethod
	Amount        decimal.Decimal
}

type MethodTotal struct {
	Method model.PaymentMethod
	Total  decimal.Decimal
}

type ServiceTotal struct {
	ServiceName string
	Total       decimal.Decimal
}

type Demand struct {
	ServiceName string
	Count       int
	Percentage  decimal.Decimal
}

type Cash struct {
	From              time.Time
	To                time.Time
	TotalGeneral      decimal.Decimal
	TotalByMethod     []MethodTotal
	TotalByService    []ServiceTotal
	DemandShare       []Demand
	TotalAppointments int
}

var hundred = decimal.NewFromInt(100)

// Build computes the report. Payments that do not belong to one of the given
// appointments are ignored, so the totals always reconcile with the range.
func Build(from, to time.Time, appointments []AppointmentRow, payments []PaymentRow) Cash {
	serviceOf := make(map[string]string, len(appointments))
	byService := map[string]decimal.Decimal{}
	demand := map[string]int{}
	for _, a := range appointments {
		serviceOf[a.AppointmentID] = a.ServiceName
		if _, ok := byService[a.ServiceName]; !ok {
			byService[a.ServiceName] = decimal.Zero
		}
		demand[a.ServiceName]++
	}

	total := decimal.Zero
	byMethod := map[model.PaymentMethod]decimal.Decimal{}
	for _, p := range payments {
		name, ok := serviceOf[p.AppointmentID]
		if !ok {
			continue
		}
		total = total.Add(p.Amount)
		byMethod[p.Method] = byMethod[p.Method].Add(p.Amount)
		byService[name] = byService[name].Add(p.Amount)
	}

	out := Cash{
		From:              from,
		To:                to,
		TotalGeneral:      total,
		TotalAppointments: len(appointments),
	}

	for m, v := range byMethod {
		out.TotalByMethod = append(out.TotalByMethod, MethodTotal{Method: m, Total: v})
	}
	sort.Slice(out.TotalByMethod, func(i, j int) bool {
		return out.TotalByMethod[i].Method < out.TotalByMethod[j].Method
	})

	for name, v := range byService {
		out.TotalByService = append(out.TotalByService, ServiceTotal{ServiceName: name, Total: v})
	}
	sort.Slice(out.TotalByService, func(i, j int) bool {
		return out.TotalByService[i].ServiceName < out.TotalByService[j].ServiceName
	})

	denominator := int64(len(appointments))
	if denominator == 0 {
		denominator = 1
	}
	for name, n := range demand {
		out.DemandShare = append(out.DemandShare, Demand{
			ServiceName: name,
			Count:       n,
			Percentage:  decimal.NewFromInt(int64(n)).Mul(hundred).Div(decimal.NewFromInt(denominator)).Round(2),
		})
	}
	sort.Slice(out.DemandShare, func(i, j int) bool {
		a, b := out.DemandShare[i], out.DemandShare[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.ServiceName < b.ServiceName
	})
	return out
}
