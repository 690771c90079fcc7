package email

import (
	"context"
	"crypto/tls"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/wneessen/go-mail"

	"github.com/avatarctic/email-verification-service/internal/core/ports"
)

// SMTPConfig holds SMTP delivery settings
type SMTPConfig struct {
	Host        string
	Port        int
	TLS         bool
	Username    string
	Password    string
	FromEmail   string
	FromName    string
	CompanyName string
}

// smtpSender is the subset of *mail.Client used here.
type smtpSender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// SMTPService delivers email over SMTP with go-mail.
type SMTPService struct {
	*composer
	config *SMTPConfig
	logger *logrus.Logger
	client smtpSender
}

var _ ports.EmailService = (*SMTPService)(nil)

// NewSMTPService creates a new SMTP-backed email service
func NewSMTPService(config *SMTPConfig, logger *logrus.Logger) (*SMTPService, error) {
	opts := []mail.Option{mail.WithPort(config.Port)}

	if config.Username != "" && config.Password != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthLogin),
			mail.WithUsername(config.Username),
			mail.WithPassword(config.Password),
		)
	}
	if config.TLS {
		opts = append(opts,
			mail.WithTLSConfig(&tls.Config{ServerName: config.Host, MinVersion: tls.VersionTLS12}),
			mail.WithTLSPolicy(mail.TLSMandatory),
		)
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}

	client, err := mail.NewClient(config.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create mail client: %w", err)
	}
	return newSMTPService(config, client, logger)
}

func newSMTPService(config *SMTPConfig, client smtpSender, logger *logrus.Logger) (*SMTPService, error) {
	c, err := newComposer(config.CompanyName)
	if err != nil {
		return nil, err
	}
	return &SMTPService{composer: c, config: config, logger: logger, client: client}, nil
}

func (e *SMTPService) SendVerificationEmail(ctx context.Context, email, username, verifyURL string) (string, error) {
	msg, err := e.verification(email, username, verifyURL)
	if err != nil {
		return "", err
	}
	return e.send(ctx, msg)
}

func (e *SMTPService) SendWelcomeEmail(ctx context.Context, email, username string) (string, error) {
	msg, err := e.welcome(email, username)
	if err != nil {
		return "", err
	}
	return e.send(ctx, msg)
}

func (e *SMTPService) send(ctx context.Context, msg *Message) (string, error) {
	m := mail.NewMsg()
	if err := m.FromFormat(e.config.FromName, e.config.FromEmail); err != nil {
		return "", fmt.Errorf("failed to set from address: %w", err)
	}
	if err := m.To(msg.To); err != nil {
		return "", fmt.Errorf("failed to set to address: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetMessageID()
	m.SetBodyString(mail.TypeTextPlain, msg.Text)
	if msg.HTML != "" {
		m.AddAlternativeString(mail.TypeTextHTML, msg.HTML)
	}

	if err := e.client.DialAndSendWithContext(ctx, m); err != nil {
		e.log().WithFields(logrus.Fields{"subject": msg.Subject, "host": e.config.Host}).WithError(err).Error("Failed to send email")
		return "", fmt.Errorf("failed to send email: %w", err)
	}

	messageID := m.GetMessageID()
	e.log().WithFields(logrus.Fields{
		"subject":    msg.Subject,
		"host":       e.config.Host,
		"message_id": messageID,
	}).Info("Email sent successfully")
	return messageID, nil
}

func (e *SMTPService) log() *logrus.Logger {
	if e.logger == nil {
		return discardLogger
	}
	return e.logger
}
