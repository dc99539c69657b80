// Package mail delivers transactional email. Mailers do the actual sending;
// the Dispatcher decouples sending from request handling.
package mail

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/storefront/backend/internal/infrastructure/config"
	gomail "github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

// ErrInvalidMessage is returned for messages missing a recipient or subject
var ErrInvalidMessage = errors.New("mail: message requires recipient and subject")

// Message is a single outbound email
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// Validate checks the message has the minimum required fields
func (m Message) Validate() error {
	if strings.TrimSpace(m.To) == "" || strings.TrimSpace(m.Subject) == "" {
		return ErrInvalidMessage
	}
	return nil
}

// Mailer sends a message
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPMailer sends mail through an SMTP relay. A client is built per message
// so concurrent dispatcher workers never share a connection.
type SMTPMailer struct {
	host    string
	from    string
	options []gomail.Option
	send    func(ctx context.Context, msg *gomail.Msg) error
}

// NewSMTPMailer creates a mailer for the configured relay
func NewSMTPMailer(cfg config.MailConfig) *SMTPMailer {
	options := []gomail.Option{
		gomail.WithPort(cfg.Port),
		gomail.WithTLSPolicy(gomail.TLSOpportunistic),
		gomail.WithDialContextFunc(dialWithDeadline),
	}
	if cfg.Username != "" {
		options = append(options,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(cfg.Username),
			gomail.WithPassword(cfg.Password),
		)
	}
	m := &SMTPMailer{host: cfg.Host, from: cfg.From, options: options}
	m.send = m.dialAndSend
	return m
}

// Send delivers the message. The context deadline bounds the whole SMTP
// session, including the server greeting.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	out, err := m.compose(msg)
	if err != nil {
		return err
	}
	if err := m.send(ctx, out); err != nil {
		return fmt.Errorf("smtp send to %s: %w", m.host, err)
	}
	return nil
}

func (m *SMTPMailer) dialAndSend(ctx context.Context, msg *gomail.Msg) error {
	client, err := gomail.NewClient(m.host, m.options...)
	if err != nil {
		return err
	}
	return client.DialAndSendWithContext(ctx, msg)
}

func (m *SMTPMailer) compose(msg Message) (*gomail.Msg, error) {
	out := gomail.NewMsg()
	if err := out.From(m.from); err != nil {
		return nil, fmt.Errorf("sender address: %w", err)
	}
	if err := out.To(msg.To); err != nil {
		return nil, fmt.Errorf("recipient address: %w", err)
	}
	out.Subject(msg.Subject)
	out.SetDate()
	switch {
	case msg.Text != "" && msg.HTML != "":
		out.SetBodyString(gomail.TypeTextPlain, msg.Text)
		out.AddAlternativeString(gomail.TypeTextHTML, msg.HTML)
	case msg.HTML != "":
		out.SetBodyString(gomail.TypeTextHTML, msg.HTML)
	default:
		out.SetBodyString(gomail.TypeTextPlain, msg.Text)
	}
	return out, nil
}

// dialWithDeadline carries the dial context deadline onto the connection so
// a relay that accepts but never answers cannot stall a worker.
func dialWithDeadline(ctx context.Context, network, address string) (net.Conn, error) {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, network, address)
	if err != nil {
		return nil, err
	}
	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			_ = conn.Close()
			return nil, err
		}
	}
	return conn, nil
}

// LogMailer writes messages to the log instead of sending them.
// Used when mail is disabled.
type LogMailer struct {
	logger *zap.Logger
}

// NewLogMailer creates a log-only mailer
func NewLogMailer(logger *zap.Logger) *LogMailer {
	return &LogMailer{logger: logger.Named("mail")}
}

// Send logs the message
func (m *LogMailer) Send(_ context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	m.logger.Info("mail suppressed (mail disabled)",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
	)
	return nil
}

// NewMailer selects the SMTP mailer when mail is enabled, otherwise the log mailer
func NewMailer(cfg config.MailConfig, logger *zap.Logger) Mailer {
	if cfg.Enabled {
		return NewSMTPMailer(cfg)
	}
	return NewLogMailer(logger)
}

var (
	_ Mailer = (*SMTPMailer)(nil)
	_ Mailer = (*LogMailer)(nil)
)
