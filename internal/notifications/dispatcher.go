package notifications

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const (
	defaultSendTimeout   = 15 * time.Second
	defaultMaxConcurrent = 8
)

type deliveryMetrics interface {
	IncNotification(ok bool)
}

// Dispatcher sends order confirmations in the background. Delivery problems
// are logged as NOTIFICATION_FAILURE and never reach the caller.
type Dispatcher struct {
	sender    Sender
	storeName string
	from      string
	timeout   time.Duration
	sem       chan struct{}
	wg        sync.WaitGroup
	logg      *logger.Logger
	metrics   deliveryMetrics
}

// NewDispatcher builds a dispatcher. metrics may be nil.
func NewDispatcher(sender Sender, cfg config.EmailConfig, logg *logger.Logger, metrics deliveryMetrics) (*Dispatcher, error) {
	if sender == nil {
		return nil, fmt.Errorf("notification sender required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	timeout := cfg.SendTimeout
	if timeout <= 0 {
		timeout = defaultSendTimeout
	}
	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = defaultMaxConcurrent
	}
	from := cfg.Username
	if from == "" {
		from = "no-reply@localhost"
	}
	return &Dispatcher{
		sender:    sender,
		storeName: cfg.StoreName,
		from:      from,
		timeout:   timeout,
		sem:       make(chan struct{}, maxConcurrent),
		logg:      logg,
		metrics:   metrics,
	}, nil
}

// Dispatch queues a confirmation and returns immediately. The send runs on a
// context detached from ctx, so request cancellation does not abort it.
func (d *Dispatcher) Dispatch(ctx context.Context, to Recipient, summary OrderSummary) {
	base := context.WithoutCancel(ctx)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.sem <- struct{}{}
		defer func() { <-d.sem }()

		sendCtx, cancel := context.WithTimeout(base, d.timeout)
		defer cancel()

		err := d.deliver(sendCtx, to, summary)
		d.record(base, to, summary, err)
	}()
}

func (d *Dispatcher) deliver(ctx context.Context, to Recipient, summary OrderSummary) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sender panic: %v", r)
		}
	}()
	if strings.TrimSpace(to.Email) == "" {
		return fmt.Errorf("recipient email missing")
	}
	msg := ComposeConfirmation(d.storeName, d.from, to, summary)
	return d.sender.Send(ctx, msg)
}

func (d *Dispatcher) record(ctx context.Context, to Recipient, summary OrderSummary, err error) {
	if d.metrics != nil {
		d.metrics.IncNotification(err == nil)
	}
	logCtx := d.logg.WithFields(ctx, map[string]any{
		"order_id":  summary.OrderID.String(),
		"recipient": to.Email,
	})
	if err != nil {
		failure := pkgerrors.Wrap(pkgerrors.CodeNotificationFailure, err, "order confirmation not delivered")
		logCtx = d.logg.WithFields(logCtx, map[string]any{
			"code":        string(failure.Code()),
			"cause":       err.Error(),
			"error_chain": pkgerrors.Dump(failure).Chain,
		})
		d.logg.Error(logCtx, failure.Message(), failure)
		return
	}
	d.logg.Info(logCtx, "order confirmation sent")
}

// Wait blocks until queued notifications finish or ctx is done.
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
