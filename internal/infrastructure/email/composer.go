package email

import (
	"fmt"

	"github.com/avatarctic/email-verification-service/internal/core/domain/user"
	"github.com/avatarctic/email-verification-service/internal/core/domain/verification"
)

// composer turns verification events into rendered messages. Providers embed
// it and only differ in how a Message is delivered.
type composer struct {
	companyName string
	templates   *renderer
}

func newComposer(companyName string) (*composer, error) {
	templates, err := loadTemplates()
	if err != nil {
		return nil, fmt.Errorf("failed to load email templates: %w", err)
	}
	if companyName == "" {
		companyName = "Hodler"
	}
	return &composer{companyName: companyName, templates: templates}, nil
}

func (c *composer) verification(to, username, verifyURL string) (*Message, error) {
	text, html, err := c.templates.render(templateVerification, VerificationEmailData{
		CompanyName:     c.companyName,
		UserName:        displayName(username),
		VerificationURL: verifyURL,
		ExpiresIn:       fmt.Sprintf("%d hours", int(verification.TokenTTL.Hours())),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render verification email template: %w", err)
	}
	return &Message{
		To:      to,
		Subject: fmt.Sprintf("Verify your %s account", c.companyName),
		Text:    text,
		HTML:    html,
	}, nil
}

func (c *composer) welcome(to, username string) (*Message, error) {
	text, html, err := c.templates.render(templateWelcome, WelcomeEmailData{
		CompanyName: c.companyName,
		UserName:    displayName(username),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render welcome email template: %w", err)
	}
	return &Message{
		To:      to,
		Subject: fmt.Sprintf("Welcome to %s", c.companyName),
		Text:    text,
		HTML:    html,
	}, nil
}

func displayName(username string) string {
	if username == "" {
		return user.DefaultUsername
	}
	return username
}
