package worker

import (
	"context"
	"errors"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Additional-Code/orderdesk/internal/config"
	"github.com/Additional-Code/orderdesk/internal/messaging"
)

const (
	initialBackoff = time.Second
	maxBackoff     = 30 * time.Second
)

// HandlerRegistration binds a message topic to a handler. Several handlers
// may share a topic; they run in registration order.
type HandlerRegistration struct {
	Topic   string
	Handler messaging.Handler
}

// Params collects dependencies via Fx.
type Params struct {
	fx.In

	Client        messaging.Client
	Logger        *zap.Logger
	Config        config.Config
	Registrations []HandlerRegistration `group:"worker.handlers"`
}

// Engine runs a fixed pool of consumers that dispatch messages to the
// registered handlers.
type Engine struct {
	client   messaging.Client
	logger   *zap.Logger
	cfg      config.Config
	handlers map[string][]messaging.Handler

	cancel context.CancelFunc
	group  *errgroup.Group
}

// NewEngine constructs the worker Engine. Registrations without a topic or
// handler are dropped.
func NewEngine(p Params) *Engine {
	handlers := make(map[string][]messaging.Handler, len(p.Registrations))
	for _, r := range p.Registrations {
		if r.Topic == "" || r.Handler == nil {
			continue
		}
		handlers[r.Topic] = append(handlers[r.Topic], r.Handler)
	}

	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		client:   p.Client,
		logger:   logger,
		cfg:      p.Config,
		handlers: handlers,
	}
}

// Module wires the engine into Fx lifecycle.
var Module = fx.Options(
	fx.Provide(NewEngine),
	fx.Invoke(func(lc fx.Lifecycle, engine *Engine) {
		lc.Append(fx.Hook{
			OnStart: engine.start,
			OnStop:  engine.stop,
		})
	}),
)

func (e *Engine) start(context.Context) error {
	if !e.cfg.Messaging.Enabled || !e.cfg.Messaging.Workers.Enabled {
		e.logger.Info("worker engine disabled")
		return nil
	}
	if len(e.handlers) == 0 {
		e.logger.Info("worker engine has no handlers; skipping")
		return nil
	}

	workers := max(e.cfg.Messaging.Workers.Concurrency, 1)

	// consumers outlive the start hook's context
	runCtx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	e.group = &errgroup.Group{}
	for id := 0; id < workers; id++ {
		e.group.Go(func() error {
			e.consumeLoop(runCtx, id)
			return nil
		})
	}

	e.logger.Info("worker engine started", zap.Int("workers", workers))
	return nil
}

func (e *Engine) stop(ctx context.Context) error {
	if e.cancel == nil {
		return nil
	}
	e.cancel()

	done := make(chan struct{})
	go func() {
		_ = e.group.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		e.logger.Info("worker engine stopped")
		return nil
	}
}

// consumeLoop restarts Consume with exponential backoff until ctx ends.
func (e *Engine) consumeLoop(ctx context.Context, workerID int) {
	backoff := initialBackoff
	for ctx.Err() == nil {
		err := e.client.Consume(ctx, func(msgCtx context.Context, msg messaging.Message) error {
			return e.dispatch(msgCtx, msg, workerID)
		})
		if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return
		}

		e.logger.Error("consume loop error", zap.Int("worker", workerID), zap.Error(err), zap.Duration("retry_in", backoff))
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return
		}
		backoff = min(backoff*2, maxBackoff)
	}
}

// dispatch runs every handler for the message topic and joins their errors.
func (e *Engine) dispatch(ctx context.Context, msg messaging.Message, workerID int) error {
	handlers, ok := e.handlers[msg.Topic]
	if !ok {
		e.logger.Warn("no handler for topic", zap.String("topic", msg.Topic))
		return nil
	}

	e.logger.Debug("processing message",
		zap.String("topic", msg.Topic),
		zap.String("event_type", msg.Headers[messaging.HeaderEventType]),
		zap.Int("worker", workerID),
	)

	var errs []error
	for _, handle := range handlers {
		if err := handle(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
