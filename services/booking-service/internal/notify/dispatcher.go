package notify

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
)

type DispatcherConfig struct {
	// Timeout bounds one notification including retries.
	Timeout      time.Duration
	MaxTries     uint
	RetryInitial time.Duration
}

// Dispatcher implements the engine's Notifier. Each Notify call runs on its
// own goroutine, detached from the caller's cancellation.
type Dispatcher struct {
	phone  Sender
	email  Sender
	logger *slog.Logger
	cfg    DispatcherConfig
	wg     sync.WaitGroup
}

// NewDispatcher routes contacts containing "@" to email and everything else
// to phone. Either sender may be nil, which drops that kind of contact.
func NewDispatcher(phone, email Sender, logger *slog.Logger, cfg DispatcherConfig) *Dispatcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.MaxTries == 0 {
		cfg.MaxTries = 3
	}
	if cfg.RetryInitial <= 0 {
		cfg.RetryInitial = 500 * time.Millisecond
	}
	return &Dispatcher{phone: phone, email: email, logger: logger, cfg: cfg}
}

func (d *Dispatcher) route(contact string) Sender {
	if strings.Contains(contact, "@") {
		return d.email
	}
	return d.phone
}

func (d *Dispatcher) Notify(ctx context.Context, contact, message string) {
	contact = strings.TrimSpace(contact)
	sender := d.route(contact)
	if contact == "" || sender == nil {
		d.logger.Debug("notification skipped", "reason", "no sender for contact")
		return
	}

	ctx = context.WithoutCancel(ctx)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if rec := recover(); rec != nil {
				d.logger.Error("notification sender panicked", "provider", sender.ProviderID(), "panic", rec)
			}
		}()
		ctx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
		defer cancel()
		d.deliver(ctx, sender, contact, message)
	}()
}

func (d *Dispatcher) deliver(ctx context.Context, sender Sender, contact, message string) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = d.cfg.RetryInitial

	attempts := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempts++
		err := sender.Send(ctx, contact, message)
		var se *StatusError
		if errors.As(err, &se) && !se.Retryable() {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	}, backoff.WithBackOff(b), backoff.WithMaxTries(d.cfg.MaxTries))

	if err != nil {
		d.logger.Warn("notification failed", "provider", sender.ProviderID(), "attempts", attempts, "err", err)
		return
	}
	d.logger.Info("notification sent", "provider", sender.ProviderID(), "attempts", attempts)
}

// Wait blocks until every in-flight notification has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
