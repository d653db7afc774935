// Package catalog administers the offered services and their weekly
// schedule rules, the inputs the slot generator works from.
package catalog

import (
	"context"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/NahunMenem/TurnosLu/services/booking-service/internal/apperr"
	"github.com/NahunMenem/TurnosLu/services/booking-service/internal/model"
)

type Store interface {
	// ListServices returns services ordered by name.
	ListServices(ctx context.Context, activeOnly bool) ([]model.Service, error)
	GetService(ctx context.Context, id string) (model.Service, error)
	// CreateService fills in ID and CreatedAt.
	CreateService(ctx context.Context, svc *model.Service) error
	// ListRules returns a service's rules ordered by weekday then start.
	ListRules(ctx context.Context, serviceID string) ([]model.ScheduleRule, error)
	// CreateRule fills in ID.
	CreateRule(ctx context.Context, rule *model.ScheduleRule) error
}

// Invalidator drops cached slot lists of a service after its rules change.
type Invalidator interface {
	InvalidateService(ctx context.Context, serviceID string) error
}

type Manager struct {
	store       Store
	invalidator Invalidator
	logger      *slog.Logger
}

func NewManager(store Store, inv Invalidator, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{store: store, invalidator: inv, logger: logger}
}

func (m *Manager) ListServices(ctx context.Context) ([]model.Service, error) {
	svcs, err := m.store.ListServices(ctx, true)
	return svcs, apperr.Unavailable(err)
}

type CreateServiceRequest struct {
	Name            string
	Description     string
	DurationMinutes int
	Price           decimal.Decimal
}

func (m *Manager) CreateService(ctx context.Context, req CreateServiceRequest) (model.Service, error) {
	name := strings.TrimSpace(req.Name)
	switch {
	case name == "":
		return model.Service{}, apperr.InvalidArgument("name is required")
	case req.DurationMinutes <= 0:
		return model.Service{}, apperr.InvalidArgument("duration_minutes must be positive")
	case req.DurationMinutes >= 24*60:
		return model.Service{}, apperr.InvalidArgument("duration_minutes must be shorter than a day")
	case req.Price.IsNegative():
		return model.Service{}, apperr.InvalidArgument("price must not be negative")
	}

	svc := model.Service{
		Name:            name,
		Description:     strings.TrimSpace(req.Description),
		DurationMinutes: req.DurationMinutes,
		Price:           req.Price,
		Active:          true,
	}
	if err := m.store.CreateService(ctx, &svc); err != nil {
		return model.Service{}, apperr.Unavailable(err)
	}
	m.logger.Info("service created", "service_id", svc.ID, "name", svc.Name)
	return svc, nil
}

func (m *Manager) ListRules(ctx context.Context, serviceID string) ([]model.ScheduleRule, error) {
	if _, err := m.store.GetService(ctx, serviceID); err != nil {
		return nil, apperr.Unavailable(err)
	}
	rules, err := m.store.ListRules(ctx, serviceID)
	return rules, apperr.Unavailable(err)
}

type CreateRuleRequest struct {
	ServiceID string
	Weekday   int
	Start     model.Clock
	End       model.Clock
}

func (m *Manager) CreateRule(ctx context.Context, req CreateRuleRequest) (model.ScheduleRule, error) {
	if req.Weekday < 0 || req.Weekday > 6 {
		return model.ScheduleRule{}, apperr.InvalidArgument("weekday %d out of range 0-6", req.Weekday)
	}
	if !req.Start.Valid() || !req.End.Valid() {
		return model.ScheduleRule{}, apperr.InvalidArgument("rule times must fall within the day")
	}
	if req.End <= req.Start {
		return model.ScheduleRule{}, apperr.InvalidArgument("end %s must be after start %s", req.End, req.Start)
	}
	if _, err := m.store.GetService(ctx, req.ServiceID); err != nil {
		return model.ScheduleRule{}, apperr.Unavailable(err)
	}

	rule := model.ScheduleRule{ServiceID: req.ServiceID, Weekday: req.Weekday, Start: req.Start, End: req.End}
	if err := m.store.CreateRule(ctx, &rule); err != nil {
		return model.ScheduleRule{}, apperr.Unavailable(err)
	}
	if m.invalidator != nil {
		if err := m.invalidator.InvalidateService(ctx, req.ServiceID); err != nil {
			m.logger.Warn("slot cache invalidation failed", "service_id", req.ServiceID, "err", err)
		}
	}
	m.logger.Info("schedule rule created", "rule_id", rule.ID, "service_id", rule.ServiceID, "weekday", rule.Weekday)
	return rule, nil
}
