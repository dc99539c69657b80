// Package notification turns domain events into outbound email.
package notification

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/identity"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/trade"
	"github.com/storefront/backend/internal/infrastructure/mail"
	"go.uber.org/zap"
)

// MailQueue accepts messages for asynchronous delivery
type MailQueue interface {
	Enqueue(msg mail.Message) error
}

// Config holds values used to build email content
type Config struct {
	SiteURL string
}

// AccountHandler mails verification and account setup links
type AccountHandler struct {
	queue  MailQueue
	config Config
	logger *zap.Logger
}

// NewAccountHandler creates a new AccountHandler
func NewAccountHandler(queue MailQueue, config Config, logger *zap.Logger) *AccountHandler {
	return &AccountHandler{queue: queue, config: config, logger: logger}
}

// EventTypes returns the event types this handler is interested in
func (h *AccountHandler) EventTypes() []string {
	return []string{identity.EventTypeAccountProvisioned, identity.EventTypeEmailVerificationIssued}
}

// Handle builds the verification email. Provisioned guest accounts also get
// the account setup link.
func (h *AccountHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	var (
		email, name, token string
		setup              bool
	)
	switch e := event.(type) {
	case *identity.AccountProvisionedEvent:
		email, name, token, setup = e.Email, e.Name, e.Token, true
	case *identity.EmailVerificationIssuedEvent:
		email, name, token = e.Email, e.Name, e.Token
	default:
		return fmt.Errorf("unexpected event type: %s", event.EventType())
	}

	query := url.Values{"token": {token}, "email": {email}}
	view := verificationView{
		Name:      name,
		VerifyURL: link(h.config.SiteURL, "/verify-email", query),
		ExpiresIn: humanDuration(identity.EmailTokenTTL),
	}
	if setup {
		view.SetupURL = link(h.config.SiteURL, "/complete-setup", query)
	}
	body, err := render(verificationTemplate, view)
	if err != nil {
		return fmt.Errorf("render verification email: %w", err)
	}

	err = h.queue.Enqueue(mail.Message{
		To:      email,
		Subject: "Welcome - Verify Your Email",
		HTML:    body,
	})
	if err != nil {
		h.logger.Warn("verification email not queued",
			zap.String("event_type", event.EventType()),
			zap.String("user_id", event.AggregateID().String()),
			zap.Error(err),
		)
	}
	return nil
}

// OrderHandler mails order confirmations and status updates
type OrderHandler struct {
	userRepo identity.UserRepository
	queue    MailQueue
	config   Config
	logger   *zap.Logger
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(userRepo identity.UserRepository, queue MailQueue, config Config, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{userRepo: userRepo, queue: queue, config: config, logger: logger}
}

// EventTypes returns the event types this handler is interested in
func (h *OrderHandler) EventTypes() []string {
	return []string{trade.EventTypeOrderPlaced, trade.EventTypeOrderCancelled, trade.EventTypeOrderStatusChanged}
}

// Handle queues the matching email. Order confirmations use the recipient
// carried on the event; other events load the order owner.
// Failures are logged and never returned to the publisher's caller.
func (h *OrderHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	switch e := event.(type) {
	case *trade.OrderPlacedEvent:
		to := recipient{Email: e.CustomerEmail, Name: e.CustomerName}
		if to.Email == "" {
			var ok bool
			if to, ok = h.owner(ctx, e.EventType(), e.UserID); !ok {
				return nil
			}
		}
		body, err := render(orderTemplate, orderView{
			Name:        to.Name,
			OrderNumber: e.OrderNumber,
			ItemCount:   e.ItemCount,
			Total:       "$" + e.TotalAmount.StringFixed(2),
			OrdersURL:   link(h.config.SiteURL, "/orders", nil),
		})
		if err != nil {
			return fmt.Errorf("render order email: %w", err)
		}
		h.enqueue(mail.Message{
			To:      to.Email,
			Subject: "Order Confirmation - " + e.OrderNumber,
			HTML:    body,
		}, e.OrderNumber)

	case *trade.OrderCancelledEvent:
		to, ok := h.owner(ctx, e.EventType(), e.UserID)
		if !ok {
			return nil
		}
		body, err := render(cancelledTemplate, statusView{
			Name:        to.Name,
			OrderNumber: e.OrderNumber,
			Status:      string(trade.OrderStatusCancelled),
			OrdersURL:   link(h.config.SiteURL, "/orders", nil),
		})
		if err != nil {
			return fmt.Errorf("render cancellation email: %w", err)
		}
		h.enqueue(mail.Message{
			To:      to.Email,
			Subject: fmt.Sprintf("Order %s - cancelled", e.OrderNumber),
			HTML:    body,
		}, e.OrderNumber)

	case *trade.OrderStatusChangedEvent:
		to, ok := h.owner(ctx, e.EventType(), e.UserID)
		if !ok {
			return nil
		}
		body, err := render(statusTemplate, statusView{
			Name:        to.Name,
			OrderNumber: e.OrderNumber,
			Status:      string(e.NewStatus),
			OrdersURL:   link(h.config.SiteURL, "/orders", nil),
		})
		if err != nil {
			return fmt.Errorf("render status email: %w", err)
		}
		h.enqueue(mail.Message{
			To:      to.Email,
			Subject: fmt.Sprintf("Order %s - %s", e.OrderNumber, e.NewStatus),
			HTML:    body,
		}, e.OrderNumber)

	default:
		return fmt.Errorf("unexpected event type: %s", event.EventType())
	}
	return nil
}

type recipient struct {
	Email string
	Name  string
}

func (h *OrderHandler) owner(ctx context.Context, eventType string, userID uuid.UUID) (recipient, bool) {
	user, err := h.userRepo.FindByID(ctx, userID)
	if err != nil {
		h.logger.Warn("order email skipped, owner not loaded",
			zap.String("event_type", eventType),
			zap.String("user_id", userID.String()),
			zap.Error(err),
		)
		return recipient{}, false
	}
	return recipient{Email: user.Email, Name: user.Name}, true
}

func (h *OrderHandler) enqueue(msg mail.Message, orderNumber string) {
	if err := h.queue.Enqueue(msg); err != nil {
		h.logger.Warn("order email not queued",
			zap.String("order_number", orderNumber),
			zap.Error(err),
		)
	}
}

func humanDuration(d time.Duration) string {
	if d >= time.Hour && d%time.Hour == 0 {
		hours := int(d / time.Hour)
		if hours == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", hours)
	}
	return d.String()
}
