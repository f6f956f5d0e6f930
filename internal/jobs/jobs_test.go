package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/25S2-PRT681-Group-D/server/internal/domain"
	"github.com/25S2-PRT681-Group-D/server/internal/email"
	"github.com/25S2-PRT681-Group-D/server/internal/repository"
	"github.com/25S2-PRT681-Group-D/server/internal/storage"
	"github.com/25S2-PRT681-Group-D/server/internal/webapi"
	"github.com/25S2-PRT681-Group-D/server/internal/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// =============================================================================
// Mocks
// =============================================================================

type mockSender struct {
	SendFunc func(ctx context.Context, msg email.Message) error
	sent     []email.Message
}

func (m *mockSender) Send(ctx context.Context, msg email.Message) error {
	m.sent = append(m.sent, msg)
	if m.SendFunc != nil {
		return m.SendFunc(ctx, msg)
	}
	return nil
}

type mockExporter struct {
	ExportInspectionsFunc func(ctx context.Context, userID int64, format string) (*domain.ExportFile, error)
	ExportUsersFunc       func(ctx context.Context, format string) (*domain.ExportFile, error)
}

func (m *mockExporter) ExportInspections(ctx context.Context, userID int64, format string) (*domain.ExportFile, error) {
	return m.ExportInspectionsFunc(ctx, userID, format)
}

func (m *mockExporter) ExportUsers(ctx context.Context, format string) (*domain.ExportFile, error) {
	return m.ExportUsersFunc(ctx, format)
}

type mockInserter struct {
	params []repository.EnqueueTaskParams
}

func (m *mockInserter) EnqueueTask(ctx context.Context, arg repository.EnqueueTaskParams) (repository.BackgroundTask, error) {
	m.params = append(m.params, arg)
	return repository.BackgroundTask{ID: arg.ID, TaskName: arg.TaskName, Status: "Queued"}, nil
}

// =============================================================================
// SendEmailHandler
// =============================================================================

func TestSendEmailHandler(t *testing.T) {
	tests := []struct {
		name          string
		task          domain.EmailTask
		sendErr       error
		wantErr       bool
		wantPermanent bool
		check         func(t *testing.T, msg email.Message)
	}{
		{
			name: "plain text",
			task: domain.EmailTask{To: "a@example.com", Subject: "Hi", Body: "hello"},
			check: func(t *testing.T, msg email.Message) {
				assert.Equal(t, "hello", msg.TextBody)
				assert.Empty(t, msg.HTMLBody)
			},
		},
		{
			name: "html",
			task: domain.EmailTask{To: "a@example.com", Subject: "Hi", Body: "<p>hello</p>", IsHTML: true},
			check: func(t *testing.T, msg email.Message) {
				assert.Equal(t, "<p>hello</p>", msg.HTMLBody)
				assert.Empty(t, msg.TextBody)
			},
		},
		{
			name:    "transient failure retries",
			task:    domain.EmailTask{To: "a@example.com", Subject: "Hi"},
			sendErr: errors.New("connection refused"),
			wantErr: true,
		},
		{
			name:          "5xx reply is permanent",
			task:          domain.EmailTask{To: "a@example.com", Subject: "Hi"},
			sendErr:       &textproto.Error{Code: 550, Msg: "mailbox unavailable"},
			wantErr:       true,
			wantPermanent: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := &mockSender{SendFunc: func(context.Context, email.Message) error { return tt.sendErr }}
			h := NewSendEmailHandler(sender, discardLogger())

			err := h.Handle(context.Background(), tt.task)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, tt.wantPermanent, worker.IsPermanent(err))
				return
			}
			require.NoError(t, err)
			require.Len(t, sender.sent, 1)
			assert.Equal(t, tt.task.To, sender.sent[0].To)
			if tt.check != nil {
				tt.check(t, sender.sent[0])
			}
		})
	}
}

func TestSendEmailHandler_WrongPayload(t *testing.T) {
	h := NewSendEmailHandler(&mockSender{}, discardLogger())
	err := h.Handle(context.Background(), domain.WebAPICallTask{URL: "http://x"})
	assert.True(t, worker.IsPermanent(err))
}

// =============================================================================
// WebAPICallHandler
// =============================================================================

func TestWebAPICallHandler(t *testing.T) {
	var gotMethod, gotHeader, gotBody string
	status := http.StatusOK

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotHeader = r.Header.Get("X-Api-Key")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.WriteHeader(status)
		w.Write([]byte("upstream says no"))
	}))
	defer srv.Close()

	h := NewWebAPICallHandler(webapi.New(5*time.Second), discardLogger())

	t.Run("posts body and headers", func(t *testing.T) {
		status = http.StatusAccepted
		err := h.Handle(context.Background(), domain.WebAPICallTask{
			URL:     srv.URL + "/hook",
			Method:  "post",
			Headers: map[string]string{"X-Api-Key": "k1"},
			Body:    json.RawMessage(`{"inspectionId":1}`),
		})
		require.NoError(t, err)
		assert.Equal(t, http.MethodPost, gotMethod)
		assert.Equal(t, "k1", gotHeader)
		assert.JSONEq(t, `{"inspectionId":1}`, gotBody)
	})

	t.Run("defaults to GET", func(t *testing.T) {
		status = http.StatusOK
		require.NoError(t, h.Handle(context.Background(), domain.WebAPICallTask{URL: srv.URL}))
		assert.Equal(t, http.MethodGet, gotMethod)
	})

	t.Run("server error is retried", func(t *testing.T) {
		status = http.StatusBadGateway
		err := h.Handle(context.Background(), domain.WebAPICallTask{URL: srv.URL})
		require.Error(t, err)
		assert.False(t, worker.IsPermanent(err))
		assert.Contains(t, err.Error(), "upstream says no")
	})

	t.Run("too many requests is retried", func(t *testing.T) {
		status = http.StatusTooManyRequests
		err := h.Handle(context.Background(), domain.WebAPICallTask{URL: srv.URL})
		require.Error(t, err)
		assert.False(t, worker.IsPermanent(err))
	})

	t.Run("client error is permanent", func(t *testing.T) {
		status = http.StatusNotFound
		err := h.Handle(context.Background(), domain.WebAPICallTask{URL: srv.URL})
		require.Error(t, err)
		assert.True(t, worker.IsPermanent(err))
	})
}

// =============================================================================
// DataExportHandler
// =============================================================================

func newExportHandler(t *testing.T, exporter Exporter, inserter *mockInserter) (*DataExportHandler, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewLocalStorage(storage.LocalConfig{BasePath: dir, BaseURL: "http://localhost/images/file"}, discardLogger())
	require.NoError(t, err)
	h := NewDataExportHandler(exporter, store, inserter, "exports", "http://localhost/files/exports/", discardLogger())
	h.now = func() time.Time { return time.Date(2025, 9, 9, 14, 30, 0, 0, time.UTC) }
	return h, dir
}

// storedExports lists the export files written for one user.
func storedExports(t *testing.T, dir string, userID int64, pattern string) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, "exports", strconv.FormatInt(userID, 10), pattern))
	require.NoError(t, err)
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, filepath.Base(m))
	}
	return names
}

func TestDataExportHandler_StoresInspectionExport(t *testing.T) {
	var gotUser int64
	exporter := &mockExporter{
		ExportInspectionsFunc: func(ctx context.Context, userID int64, format string) (*domain.ExportFile, error) {
			gotUser = userID
			return &domain.ExportFile{FileName: "x.csv", ContentType: domain.ContentTypeCSV, Data: []byte("Id\n1\n"), Rows: 1}, nil
		},
	}
	inserter := &mockInserter{}
	h, dir := newExportHandler(t, exporter, inserter)

	err := h.Handle(context.Background(), domain.DataExportTask{
		ExportType:  domain.ExportTypeInspections,
		Format:      domain.ExportFormatCSV,
		UserID:      7,
		NotifyEmail: "grower@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(7), gotUser)

	stored := storedExports(t, dir, 7, "inspections_20250909_143000_*.csv")
	require.Len(t, stored, 1, "export should be stored under the owner's directory")

	require.Len(t, inserter.params, 1, "a notification email should be queued")
	assert.Equal(t, string(domain.TaskKindSendEmail), inserter.params[0].TaskName)
	var payload domain.EmailTask
	require.NoError(t, json.Unmarshal(inserter.params[0].TaskData, &payload))
	assert.Equal(t, "grower@example.com", payload.To)
	assert.True(t, payload.IsHTML)
	assert.Contains(t, payload.Body, "http://localhost/files/exports/"+stored[0])
	assert.NotContains(t, payload.Body, "/images/file")
}

func TestDataExportHandler_SameSecondExportsDoNotCollide(t *testing.T) {
	exporter := &mockExporter{
		ExportInspectionsFunc: func(ctx context.Context, userID int64, format string) (*domain.ExportFile, error) {
			return &domain.ExportFile{ContentType: domain.ContentTypeCSV, Data: []byte("Id\n" + strconv.FormatInt(userID, 10) + "\n"), Rows: 1}, nil
		},
	}
	h, dir := newExportHandler(t, exporter, &mockInserter{})

	for _, userID := range []int64{7, 7, 8} {
		require.NoError(t, h.Handle(context.Background(), domain.DataExportTask{
			ExportType: domain.ExportTypeInspections,
			Format:     domain.ExportFormatCSV,
			UserID:     userID,
		}))
	}

	assert.Len(t, storedExports(t, dir, 7, "*.csv"), 2, "a second export in the same second must not replace the first")
	others := storedExports(t, dir, 8, "*.csv")
	require.Len(t, others, 1)
	data, err := os.ReadFile(filepath.Join(dir, "exports", "8", others[0]))
	require.NoError(t, err)
	assert.Equal(t, "Id\n8\n", string(data), "each user's export stays in their own directory")
}

func TestDataExportHandler_UsersExcelWithoutNotification(t *testing.T) {
	exporter := &mockExporter{
		ExportUsersFunc: func(ctx context.Context, format string) (*domain.ExportFile, error) {
			assert.Equal(t, domain.ExportFormatExcel, format)
			return &domain.ExportFile{ContentType: domain.ContentTypeXLSX, Data: []byte("PK"), Rows: 3}, nil
		},
	}
	inserter := &mockInserter{}
	h, dir := newExportHandler(t, exporter, inserter)

	require.NoError(t, h.Handle(context.Background(), domain.DataExportTask{
		ExportType: domain.ExportTypeUsers,
		Format:     domain.ExportFormatExcel,
		UserID:     1,
	}))

	assert.Len(t, storedExports(t, dir, 1, "users_20250909_143000_*.xlsx"), 1)
	assert.Empty(t, inserter.params)
}

func TestDataExportHandler_ExporterErrors(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		wantPermanent bool
	}{
		{name: "database error is retried", err: errors.New("connection reset"), wantPermanent: false},
		{name: "invalid request is permanent", err: domain.Invalid("file.export", "bad format"), wantPermanent: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exporter := &mockExporter{
				ExportInspectionsFunc: func(context.Context, int64, string) (*domain.ExportFile, error) { return nil, tt.err },
			}
			h, _ := newExportHandler(t, exporter, &mockInserter{})

			err := h.Handle(context.Background(), domain.DataExportTask{
				ExportType: domain.ExportTypeInspections,
				Format:     domain.ExportFormatCSV,
				UserID:     1,
			})
			require.Error(t, err)
			assert.Equal(t, tt.wantPermanent, worker.IsPermanent(err))
		})
	}
}
