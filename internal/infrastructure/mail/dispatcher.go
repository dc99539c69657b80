package mail

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/storefront/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// ErrDispatcherClosed is returned when enqueueing after Stop
var ErrDispatcherClosed = errors.New("mail: dispatcher closed")

// ErrQueueFull is returned when the queue has no room for another message
var ErrQueueFull = errors.New("mail: queue full")

// DispatcherConfig controls the worker pool
type DispatcherConfig struct {
	Workers      int
	QueueSize    int
	MaxRetries   int
	RetryBackoff time.Duration
	SendTimeout  time.Duration
}

// DispatcherConfigFrom maps mail configuration to dispatcher settings
func DispatcherConfigFrom(cfg config.MailConfig) DispatcherConfig {
	return DispatcherConfig{
		Workers:      cfg.Workers,
		QueueSize:    cfg.QueueSize,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
		SendTimeout:  cfg.SendTimeout,
	}
}

func (c DispatcherConfig) withDefaults() DispatcherConfig {
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 64
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.SendTimeout <= 0 {
		c.SendTimeout = 30 * time.Second
	}
	return c
}

// Dispatcher sends mail asynchronously from a bounded queue.
// Enqueue never blocks; failures are retried with linear backoff and logged.
type Dispatcher struct {
	mailer Mailer
	cfg    DispatcherConfig
	logger *zap.Logger

	queue  chan Message
	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
	stop   chan struct{}
}

// NewDispatcher creates a dispatcher. Call Start to launch workers.
func NewDispatcher(mailer Mailer, cfg DispatcherConfig, logger *zap.Logger) *Dispatcher {
	cfg = cfg.withDefaults()
	return &Dispatcher{
		mailer: mailer,
		cfg:    cfg,
		logger: logger.Named("mail_dispatcher"),
		queue:  make(chan Message, cfg.QueueSize),
		stop:   make(chan struct{}),
	}
}

// Start launches the worker goroutines
func (d *Dispatcher) Start() {
	for i := 0; i < d.cfg.Workers; i++ {
		d.wg.Add(1)
		go d.worker(i)
	}
	d.logger.Info("mail dispatcher started",
		zap.Int("workers", d.cfg.Workers),
		zap.Int("queue_size", d.cfg.QueueSize),
	)
}

// Enqueue schedules a message for delivery without blocking
func (d *Dispatcher) Enqueue(msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrDispatcherClosed
	}

	select {
	case d.queue <- msg:
		return nil
	default:
		d.logger.Warn("mail queue full, dropping message",
			zap.String("to", msg.To),
			zap.String("subject", msg.Subject),
		)
		return ErrQueueFull
	}
}

// Stop closes the queue and waits for workers to drain it, or for ctx to end
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.logger.Info("mail dispatcher stopped")
		return nil
	case <-ctx.Done():
		close(d.stop)
		return ctx.Err()
	}
}

func (d *Dispatcher) worker(id int) {
	defer d.wg.Done()
	for msg := range d.queue {
		d.deliver(id, msg)
	}
}

func (d *Dispatcher) deliver(worker int, msg Message) {
	var err error
	for attempt := 0; attempt <= d.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(time.Duration(attempt) * d.cfg.RetryBackoff):
			case <-d.stop:
				d.logger.Warn("mail delivery abandoned on shutdown", zap.String("to", msg.To))
				return
			}
		}

		ctx, cancel := context.WithTimeout(context.Background(), d.cfg.SendTimeout)
		err = d.mailer.Send(ctx, msg)
		cancel()
		if err == nil {
			d.logger.Debug("mail sent",
				zap.Int("worker", worker),
				zap.String("to", msg.To),
				zap.String("subject", msg.Subject),
			)
			return
		}
		d.logger.Warn("mail send failed",
			zap.Int("attempt", attempt+1),
			zap.String("to", msg.To),
			zap.Error(err),
		)
	}

	d.logger.Error("mail delivery failed, giving up",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.Int("attempts", d.cfg.MaxRetries+1),
		zap.Error(err),
	)
}
