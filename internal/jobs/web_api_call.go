package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/25S2-PRT681-Group-D/server/internal/domain"
	"github.com/25S2-PRT681-Group-D/server/internal/webapi"
	"github.com/25S2-PRT681-Group-D/server/internal/worker"
)

// maxResponseLog bounds how much of a failing response body ends up in the
// task's error message.
const maxResponseLog = 512

// WebAPICallHandler performs outbound HTTP requests for WebApiCall tasks.
type WebAPICallHandler struct {
	client *webapi.Client
	logger *slog.Logger
}

func NewWebAPICallHandler(client *webapi.Client, logger *slog.Logger) *WebAPICallHandler {
	return &WebAPICallHandler{client: client, logger: logger}
}

func (h *WebAPICallHandler) Kind() domain.TaskKind {
	return domain.TaskKindWebAPICall
}

// Handle issues the request. 2xx is success; 408, 429 and 5xx are retried;
// other statuses fail the task.
func (h *WebAPICallHandler) Handle(ctx context.Context, payload domain.TaskPayload) error {
	p, ok := payload.(domain.WebAPICallTask)
	if !ok {
		return worker.NewPermanentError(fmt.Errorf("unexpected payload %T", payload))
	}

	start := time.Now()
	resp, err := h.client.Do(ctx, webapi.Request{
		Method:  p.Method,
		URL:     p.URL,
		Headers: p.Headers,
		Body:    p.Body,
	})
	if err != nil {
		return err
	}

	h.logger.Info("web api call finished",
		"method", p.Method,
		"url", p.URL,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	if resp.IsSuccess() {
		return nil
	}

	snippet := resp.Body
	if len(snippet) > maxResponseLog {
		snippet = snippet[:maxResponseLog]
	}
	err = fmt.Errorf("%s: status %d: %s", p.URL, resp.StatusCode, strings.TrimSpace(string(snippet)))
	if resp.IsRetryable() {
		return err
	}
	return worker.NewPermanentError(err)
}
