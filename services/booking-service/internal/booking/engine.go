// Package booking is the scheduling engine: slot availability, the
// appointment lifecycle, payments and the cash report. It owns no I/O of its
// own; storage, caching, notification and card checks come in through the
// interfaces in store.go.
package booking

import (
	"context"
	"iter"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/NahunMenem/TurnosLu/services/booking-service/internal/apperr"
	"github.com/NahunMenem/TurnosLu/services/booking-service/internal/availability"
	"github.com/NahunMenem/TurnosLu/services/booking-service/internal/model"
	"github.com/NahunMenem/TurnosLu/services/booking-service/internal/report"
)

const tracerName = "github.com/NahunMenem/TurnosLu/services/booking-service/internal/booking"

type Options struct {
	Cache        SlotCache
	Notifier     Notifier
	CardVerifier CardVerifier
	Logger       *slog.Logger
}

type Engine struct {
	store    Store
	cache    SlotCache
	notifier Notifier
	verifier CardVerifier
	logger   *slog.Logger
	tracer   trace.Tracer
}

func New(store Store, opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		store:    store,
		cache:    opts.Cache,
		notifier: opts.Notifier,
		verifier: opts.CardVerifier,
		logger:   logger,
		tracer:   otel.Tracer(tracerName),
	}
}

func (e *Engine) start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return e.tracer.Start(ctx, "booking."+name, trace.WithAttributes(attrs...))
}

// finish records err on the span and classifies it. Errors without a kind
// come from infrastructure and become ErrUnavailable.
func finish(span trace.Span, err error) error {
	defer span.End()
	if err == nil {
		return nil
	}
	err = apperr.Unavailable(err)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// activeService loads a service that can take bookings.
func (e *Engine) activeService(ctx context.Context, id string) (model.Service, error) {
	svc, err := e.store.GetService(ctx, id)
	if err != nil {
		return model.Service{}, err
	}
	if !svc.Active {
		return model.Service{}, apperr.NotFound("service %s", id)
	}
	return svc, nil
}

// SlotSeq resolves the service, its rules for the weekday of date and the
// day's bookings, and returns the lazy slot sequence. Ranging over it twice
// yields the same snapshot twice.
func (e *Engine) SlotSeq(ctx context.Context, serviceID string, date time.Time) (_ iter.Seq[model.Clock], err error) {
	ctx, span := e.start(ctx, "SlotSeq", attribute.String("service.id", serviceID))
	defer func() { err = finish(span, err) }()

	svc, err := e.activeService(ctx, serviceID)
	if err != nil {
		return nil, err
	}
	return e.slotSeq(ctx, svc, model.DateOf(date))
}

// slotSeq filters the weekday's candidates against the bookings read now.
// Bookings are never taken from the cache.
func (e *Engine) slotSeq(ctx context.Context, svc model.Service, date time.Time) (iter.Seq[model.Clock], error) {
	candidates, err := e.candidates(ctx, svc, model.ISOWeekday(date))
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return availability.Free(nil, nil), nil
	}
	taken, err := e.store.OccupiedTimes(ctx, svc.ID, date)
	if err != nil {
		return nil, err
	}
	return availability.Free(candidates, availability.NewOccupied(taken...)), nil
}

// candidates returns every slot start the rules allow on weekday, read
// through the cache.
func (e *Engine) candidates(ctx context.Context, svc model.Service, weekday int) ([]model.Clock, error) {
	if e.cache != nil {
		cached, ok, err := e.cache.Get(ctx, svc.ID, weekday)
		if err != nil {
			e.logger.Warn("slot cache read failed", "service_id", svc.ID, "err", err)
		} else if ok {
			trace.SpanFromContext(ctx).SetAttributes(attribute.Bool("cache.hit", true))
			return cached, nil
		}
	}

	rules, err := e.store.RulesFor(ctx, svc.ID, weekday)
	if err != nil {
		return nil, err
	}
	windows := make([]availability.Window, 0, len(rules))
	for _, r := range rules {
		windows = append(windows, availability.Window{Start: r.Start, End: r.End})
	}
	slots := availability.Slots(svc.DurationMinutes, windows, nil)

	if e.cache != nil {
		if err := e.cache.Set(ctx, svc.ID, weekday, slots); err != nil {
			e.logger.Warn("slot cache write failed", "service_id", svc.ID, "err", err)
		}
	}
	return slots, nil
}

// ListAvailableSlots returns the free start times of a service on date as
// HH:MM strings in chronological order. A day without rules yields an empty
// list.
func (e *Engine) ListAvailableSlots(ctx context.Context, serviceID string, date time.Time) (_ []string, err error) {
	ctx, span := e.start(ctx, "ListAvailableSlots", attribute.String("service.id", serviceID))
	defer func() { err = finish(span, err) }()

	svc, err := e.activeService(ctx, serviceID)
	if err != nil {
		return nil, err
	}
	seq, err := e.slotSeq(ctx, svc, model.DateOf(date))
	if err != nil {
		return nil, err
	}
	slots := []string{}
	for c := range seq {
		slots = append(slots, c.String())
	}
	return slots, nil
}

// CashReport aggregates payments and demand for appointments dated within
// [from, to].
func (e *Engine) CashReport(ctx context.Context, from, to time.Time) (_ report.Cash, err error) {
	ctx, span := e.start(ctx, "CashReport")
	defer func() { err = finish(span, err) }()

	from, to = model.DateOf(from), model.DateOf(to)
	if from.After(to) {
		return report.Cash{}, apperr.InvalidArgument("from %s is after to %s", from.Format(model.DateLayout), to.Format(model.DateLayout))
	}
	appts, payments, err := e.store.ReportRows(ctx, from, to)
	if err != nil {
		return report.Cash{}, err
	}
	return report.Build(from, to, appts, payments), nil
}
