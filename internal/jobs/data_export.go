package jobs

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/25S2-PRT681-Group-D/server/internal/domain"
	"github.com/25S2-PRT681-Group-D/server/internal/email"
	"github.com/25S2-PRT681-Group-D/server/internal/metrics"
	"github.com/25S2-PRT681-Group-D/server/internal/storage"
	"github.com/25S2-PRT681-Group-D/server/internal/worker"
)

// Exporter renders export files. The file service satisfies it.
type Exporter interface {
	ExportInspections(ctx context.Context, userID int64, format string) (*domain.ExportFile, error)
	ExportUsers(ctx context.Context, format string) (*domain.ExportFile, error)
}

// DataExportHandler renders DataExport tasks into storage and queues a
// notification email when the task asks for one. Each export is stored under
// its owner's directory with a unique name; the email links to the
// authenticated download route rather than to the object store.
type DataExportHandler struct {
	exporter    Exporter
	storage     storage.Storage
	tasks       worker.TaskInserter
	prefix      string
	downloadURL string
	logger      *slog.Logger
	now         func() time.Time
}

func NewDataExportHandler(
	exporter Exporter,
	store storage.Storage,
	tasks worker.TaskInserter,
	prefix string,
	downloadURL string,
	logger *slog.Logger,
) *DataExportHandler {
	return &DataExportHandler{
		exporter:    exporter,
		storage:     store,
		tasks:       tasks,
		prefix:      prefix,
		downloadURL: strings.TrimSuffix(downloadURL, "/"),
		logger:      logger,
		now:         time.Now,
	}
}

func (h *DataExportHandler) Kind() domain.TaskKind {
	return domain.TaskKindDataExport
}

func (h *DataExportHandler) Handle(ctx context.Context, payload domain.TaskPayload) error {
	p, ok := payload.(domain.DataExportTask)
	if !ok {
		return worker.NewPermanentError(fmt.Errorf("unexpected payload %T", payload))
	}

	var (
		file *domain.ExportFile
		err  error
	)
	switch p.ExportType {
	case domain.ExportTypeInspections:
		file, err = h.exporter.ExportInspections(ctx, p.UserID, p.Format)
	case domain.ExportTypeUsers:
		file, err = h.exporter.ExportUsers(ctx, p.Format)
	default:
		return worker.NewPermanentError(fmt.Errorf("unknown export type %q", p.ExportType))
	}
	if err != nil {
		if domain.IsCode(err, domain.EINVALID) || domain.IsCode(err, domain.ENOTFOUND) {
			return worker.NewPermanentError(err)
		}
		return fmt.Errorf("render %s export: %w", p.ExportType, err)
	}

	name := storage.ExportName(p.ExportType, domain.ExportExtension(p.Format), h.now())
	key := storage.ExportKey(h.prefix, p.UserID, name)
	if err := h.storage.Put(ctx, key, bytes.NewReader(file.Data), storage.PutOptions{
		ContentType: file.ContentType,
	}); err != nil {
		return fmt.Errorf("store export: %w", err)
	}

	metrics.ExportsGenerated.WithLabelValues(p.ExportType, p.Format).Inc()
	h.logger.Info("export stored",
		"export_type", p.ExportType,
		"format", p.Format,
		"rows", file.Rows,
		"key", key,
	)

	if p.NotifyEmail == "" {
		return nil
	}

	// The export is already stored; a notification failure must not redo it.
	url := h.downloadURL + "/" + name
	msg, err := email.ExportReadyMessage(p.NotifyEmail, p.ExportType, p.Format, url, file.Rows)
	if err != nil {
		h.logger.Error("failed to render export notification", "error", err)
		return nil
	}
	if _, err := worker.Enqueue(ctx, h.tasks, domain.EmailTask{
		To:      msg.To,
		Subject: msg.Subject,
		Body:    msg.HTMLBody,
		IsHTML:  true,
	}); err != nil {
		h.logger.Error("failed to queue export notification", "to", p.NotifyEmail, "error", err)
	}
	return nil
}
