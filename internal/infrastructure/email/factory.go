package email

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/avatarctic/email-verification-service/configs"
	"github.com/avatarctic/email-verification-service/internal/core/ports"
)

// NewEmailService picks the provider named in cfg.Provider.
func NewEmailService(cfg *configs.EmailConfig, logger *logrus.Logger) (ports.EmailService, error) {
	switch cfg.Provider {
	case configs.ProviderSendGrid:
		return NewSendGridService(&SendGridConfig{
			APIKey:      cfg.SendGridAPIKey,
			FromEmail:   cfg.FromEmail,
			FromName:    cfg.FromName,
			CompanyName: cfg.CompanyName,
		}, logger)
	case configs.ProviderSMTP:
		return NewSMTPService(&SMTPConfig{
			Host:        cfg.SMTPHost,
			Port:        cfg.SMTPPort,
			TLS:         cfg.SMTPTLS,
			Username:    cfg.SMTPUsername,
			Password:    cfg.SMTPPassword,
			FromEmail:   cfg.FromEmail,
			FromName:    cfg.FromName,
			CompanyName: cfg.CompanyName,
		}, logger)
	case configs.ProviderLog, "":
		return NewLogService(cfg.CompanyName, logger)
	default:
		return nil, fmt.Errorf("unknown email provider %q", cfg.Provider)
	}
}

// WelcomeNotifier adapts an EmailService to ports.WelcomeNotifier.
type WelcomeNotifier struct {
	Email ports.EmailService
}

var _ ports.WelcomeNotifier = WelcomeNotifier{}

func (n WelcomeNotifier) Notify(ctx context.Context, email, username string) (string, error) {
	return n.Email.SendWelcomeEmail(ctx, email, username)
}
