package email

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/sirupsen/logrus"

	"github.com/avatarctic/email-verification-service/internal/core/ports"
)

// SendGridConfig holds SendGrid delivery settings
type SendGridConfig struct {
	APIKey      string
	FromEmail   string
	FromName    string
	CompanyName string
}

// sendGridClient is the subset of *sendgrid.Client used here.
type sendGridClient interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// SendGridService delivers email through the SendGrid v3 API.
type SendGridService struct {
	*composer
	config *SendGridConfig
	logger *logrus.Logger
	client sendGridClient
}

var _ ports.EmailService = (*SendGridService)(nil)

// NewSendGridService creates a new SendGrid-backed email service
func NewSendGridService(config *SendGridConfig, logger *logrus.Logger) (*SendGridService, error) {
	return newSendGridService(config, sendgrid.NewSendClient(config.APIKey), logger)
}

func newSendGridService(config *SendGridConfig, client sendGridClient, logger *logrus.Logger) (*SendGridService, error) {
	c, err := newComposer(config.CompanyName)
	if err != nil {
		return nil, err
	}
	return &SendGridService{composer: c, config: config, logger: logger, client: client}, nil
}

func (e *SendGridService) SendVerificationEmail(ctx context.Context, email, username, verifyURL string) (string, error) {
	msg, err := e.verification(email, username, verifyURL)
	if err != nil {
		return "", err
	}
	return e.send(ctx, msg)
}

func (e *SendGridService) SendWelcomeEmail(ctx context.Context, email, username string) (string, error) {
	msg, err := e.welcome(email, username)
	if err != nil {
		return "", err
	}
	return e.send(ctx, msg)
}

// send delivers msg and returns the provider message id. SendGrid reports
// rejections as non-2xx responses rather than errors.
func (e *SendGridService) send(ctx context.Context, msg *Message) (string, error) {
	from := mail.NewEmail(e.config.FromName, e.config.FromEmail)
	recipient := mail.NewEmail("", msg.To)
	message := mail.NewSingleEmail(from, msg.Subject, recipient, msg.Text, msg.HTML)

	response, err := e.client.SendWithContext(ctx, message)
	if err != nil {
		e.log().WithFields(logrus.Fields{"subject": msg.Subject}).WithError(err).Error("Failed to send email")
		return "", fmt.Errorf("failed to send email: %w", err)
	}
	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		e.log().WithFields(logrus.Fields{
			"subject":     msg.Subject,
			"status_code": response.StatusCode,
		}).Error("SendGrid rejected email")
		return "", fmt.Errorf("sendgrid returned status %d", response.StatusCode)
	}

	messageID := ""
	if ids := response.Headers["X-Message-Id"]; len(ids) > 0 {
		messageID = ids[0]
	}
	e.log().WithFields(logrus.Fields{
		"subject":     msg.Subject,
		"status_code": response.StatusCode,
		"message_id":  messageID,
	}).Info("Email sent successfully")
	return messageID, nil
}

func (e *SendGridService) log() *logrus.Logger {
	if e.logger == nil {
		return discardLogger
	}
	return e.logger
}
