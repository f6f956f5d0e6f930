package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/textproto"

	"github.com/25S2-PRT681-Group-D/server/internal/domain"
	"github.com/25S2-PRT681-Group-D/server/internal/email"
	"github.com/25S2-PRT681-Group-D/server/internal/worker"
)

// SendEmailHandler delivers SendEmail tasks through an email.Sender.
type SendEmailHandler struct {
	sender email.Sender
	logger *slog.Logger
}

func NewSendEmailHandler(sender email.Sender, logger *slog.Logger) *SendEmailHandler {
	return &SendEmailHandler{sender: sender, logger: logger}
}

func (h *SendEmailHandler) Kind() domain.TaskKind {
	return domain.TaskKindSendEmail
}

// Handle sends the message. SMTP 5xx replies are permanent; anything else is
// retried.
func (h *SendEmailHandler) Handle(ctx context.Context, payload domain.TaskPayload) error {
	p, ok := payload.(domain.EmailTask)
	if !ok {
		return worker.NewPermanentError(fmt.Errorf("unexpected payload %T", payload))
	}

	msg := email.Message{To: p.To, Subject: p.Subject}
	if p.IsHTML {
		msg.HTMLBody = p.Body
	} else {
		msg.TextBody = p.Body
	}

	if err := h.sender.Send(ctx, msg); err != nil {
		var protoErr *textproto.Error
		if errors.As(err, &protoErr) && protoErr.Code >= 500 {
			return worker.NewPermanentError(fmt.Errorf("send email: %w", err))
		}
		return fmt.Errorf("send email: %w", err)
	}

	h.logger.Debug("email task delivered", "to", p.To)
	return nil
}
