package email

import (
	"context"
	"io"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/avatarctic/email-verification-service/internal/core/ports"
)

var discardLogger = func() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}()

// LogService renders messages and writes them to the log instead of
// delivering them. Used for local development.
type LogService struct {
	*composer
	logger *logrus.Logger
}

var _ ports.EmailService = (*LogService)(nil)

func NewLogService(companyName string, logger *logrus.Logger) (*LogService, error) {
	c, err := newComposer(companyName)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = discardLogger
	}
	return &LogService{composer: c, logger: logger}, nil
}

func (e *LogService) SendVerificationEmail(ctx context.Context, email, username, verifyURL string) (string, error) {
	msg, err := e.verification(email, username, verifyURL)
	if err != nil {
		return "", err
	}
	return e.send(msg), nil
}

func (e *LogService) SendWelcomeEmail(ctx context.Context, email, username string) (string, error) {
	msg, err := e.welcome(email, username)
	if err != nil {
		return "", err
	}
	return e.send(msg), nil
}

func (e *LogService) send(msg *Message) string {
	id := uuid.NewString()
	e.logger.WithFields(logrus.Fields{
		"to":         msg.To,
		"subject":    msg.Subject,
		"message_id": id,
	}).Info(msg.Text)
	return id
}
