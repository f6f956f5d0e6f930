package service

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/25S2-PRT681-Group-D/server/internal/domain"
	"github.com/25S2-PRT681-Group-D/server/internal/metrics"
	"github.com/25S2-PRT681-Group-D/server/internal/report"
)

// maxReportPhotos bounds the thumbnails embedded in one report.
const maxReportPhotos = 24

// ReportService renders per-inspection PDF reports.
type ReportService interface {
	// InspectionReport renders the inspection as a PDF. Returns nil, nil
	// when the inspection is absent or owned by someone else.
	InspectionReport(ctx context.Context, inspectionID, userID int64) (*domain.ExportFile, error)
}

type reportService struct {
	inspections InspectionService
	images      ImageService
	users       UserService
	generator   report.Generator
	logger      *slog.Logger
	now         func() time.Time
}

// NewReportService creates a new ReportService.
func NewReportService(
	inspections InspectionService,
	images ImageService,
	users UserService,
	generator report.Generator,
	logger *slog.Logger,
) ReportService {
	return &reportService{
		inspections: inspections,
		images:      images,
		users:       users,
		generator:   generator,
		logger:      logger,
		now:         time.Now,
	}
}

func (s *reportService) InspectionReport(ctx context.Context, inspectionID, userID int64) (*domain.ExportFile, error) {
	const op = "report.inspection"

	insp, err := s.inspections.GetByID(ctx, inspectionID, userID)
	if err != nil || insp == nil {
		return nil, err
	}

	data := &report.Data{
		Inspection:  insp,
		Photos:      s.loadPhotos(ctx, insp, userID),
		GeneratedAt: s.now().UTC(),
	}

	owner, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if owner != nil {
		data.OwnerName = owner.FullName()
		data.OwnerEmail = owner.Email
	}

	var buf bytes.Buffer
	if _, err := s.generator.Generate(ctx, data, &buf); err != nil {
		return nil, domain.Internal(err, op, "failed to render report")
	}

	metrics.ExportsGenerated.WithLabelValues("inspection_report", "pdf").Inc()
	s.logger.Info("inspection report generated",
		"inspection_id", insp.ID,
		"user_id", userID,
		"photos", len(data.Photos),
		"bytes", buf.Len(),
	)

	return &domain.ExportFile{
		FileName:    data.FileName(),
		ContentType: report.ContentType,
		Data:        buf.Bytes(),
		Rows:        1,
	}, nil
}

// loadPhotos reads the thumbnails of the inspection's images. Missing or
// unreadable thumbnails are skipped so one bad file does not block the
// report.
func (s *reportService) loadPhotos(ctx context.Context, insp *domain.Inspection, userID int64) []report.Photo {
	photos := make([]report.Photo, 0, min(len(insp.Images), maxReportPhotos))
	for _, img := range insp.Images {
		if len(photos) == maxReportPhotos {
			break
		}
		if !img.HasThumbnail() {
			continue
		}

		content, err := s.images.Thumbnail(ctx, img.ID, userID)
		if err != nil {
			s.logger.Warn("report thumbnail unavailable", "image_id", img.ID, "error", err)
			continue
		}
		if content == nil {
			continue
		}

		data, err := io.ReadAll(io.LimitReader(content.Body, domain.MaxImageSize))
		content.Body.Close()
		if err != nil {
			s.logger.Warn("report thumbnail unreadable", "image_id", img.ID, "error", err)
			continue
		}

		photos = append(photos, report.Photo{
			ImageID:          img.ID,
			OriginalFilename: img.OriginalFilename,
			ContentType:      content.ContentType,
			Data:             data,
		})
	}
	return photos
}
