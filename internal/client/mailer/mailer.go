// Package mailer sends transactional email through an EmailJS-compatible
// HTTP API.
package mailer

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/dmitrijs2005/miroir/internal/common"
	"github.com/dmitrijs2005/miroir/internal/logging"
	"github.com/dmitrijs2005/miroir/internal/netx"
)

// DefaultEndpoint is the public EmailJS send endpoint.
const DefaultEndpoint = "https://api.emailjs.com/api/v1.0/email/send"

// Sender delivers a templated message. Failures wrap common.ErrDelivery.
type Sender interface {
	Send(ctx context.Context, templateID, recipient string, vars map[string]string) error
}

type request struct {
	ServiceID      string            `json:"service_id"`
	TemplateID     string            `json:"template_id"`
	UserID         string            `json:"user_id"`
	TemplateParams map[string]string `json:"template_params"`
}

type HTTPSender struct {
	endpoint  string
	serviceID string
	publicKey string
	client    *http.Client
}

// NewHTTPSender builds a sender for the given service. An empty endpoint
// means DefaultEndpoint.
func NewHTTPSender(endpoint, serviceID, publicKey string) *HTTPSender {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &HTTPSender{
		endpoint:  endpoint,
		serviceID: serviceID,
		publicKey: publicKey,
		client:    &http.Client{Timeout: 15 * time.Second},
	}
}

// Send posts the template variables. The recipient is passed as to_email
// unless vars already sets it.
func (s *HTTPSender) Send(ctx context.Context, templateID, recipient string, vars map[string]string) error {
	params := make(map[string]string, len(vars)+1)
	params["to_email"] = recipient
	for k, v := range vars {
		params[k] = v
	}

	err := netx.PostJSON(ctx, s.client, s.endpoint, request{
		ServiceID:      s.serviceID,
		TemplateID:     templateID,
		UserID:         s.publicKey,
		TemplateParams: params,
	})
	if err != nil {
		return fmt.Errorf("%w: send %s to %s: %w", common.ErrDelivery, templateID, recipient, err)
	}
	return nil
}

// LogSender writes messages to the log instead of sending them. It is used
// when no email service is configured.
type LogSender struct {
	logger logging.Logger
}

func NewLogSender(l logging.Logger) *LogSender {
	return &LogSender{logger: l}
}

func (s *LogSender) Send(ctx context.Context, templateID, recipient string, vars map[string]string) error {
	args := []any{"template", templateID, "recipient", recipient}
	for k, v := range vars {
		args = append(args, k, v)
	}
	s.logger.Info(ctx, "email not sent, no email service configured", args...)
	return nil
}
