package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeTaskPayload(t *testing.T) {
	tests := []struct {
		name     string
		kind     TaskKind
		data     string
		wantKind TaskKind
		wantErr  bool
	}{
		{"email", TaskKindSendEmail, `{"to":"a@example.com","subject":"Hi","body":"x","isHtml":true}`, TaskKindSendEmail, false},
		{"email bad recipient", TaskKindSendEmail, `{"to":"nope","subject":"Hi"}`, "", true},
		{"web api", TaskKindWebAPICall, `{"url":"https://example.com/hook","headers":{"X-Key":"1"}}`, TaskKindWebAPICall, false},
		{"web api bad scheme", TaskKindWebAPICall, `{"url":"ftp://example.com"}`, "", true},
		{"export", TaskKindDataExport, `{"exportType":"inspections","format":"csv","userId":3}`, TaskKindDataExport, false},
		{"export unknown format", TaskKindDataExport, `{"exportType":"users","format":"pdf"}`, "", true},
		{"malformed json", TaskKindSendEmail, `{`, "", true},
		{"unknown kind", TaskKind("Nope"), `{}`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, err := DecodeTaskPayload(tt.kind, []byte(tt.data))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantKind, payload.Kind())
		})
	}
}

func TestDecodeTaskPayload_TypedFields(t *testing.T) {
	payload, err := DecodeTaskPayload(TaskKindSendEmail, []byte(`{"to":"a@example.com","subject":"Hi","body":"<b>x</b>","isHtml":true}`))
	require.NoError(t, err)

	email, ok := payload.(EmailTask)
	require.True(t, ok)
	assert.Equal(t, "a@example.com", email.To)
	assert.True(t, email.IsHTML)
}

func TestTaskStats(t *testing.T) {
	var s TaskStats
	s.Add(TaskStatusQueued, 2)
	s.Add(TaskStatusFailed, 1)
	s.Add(TaskStatus("bogus"), 5)
	assert.Equal(t, int64(2), s.Queued)
	assert.Equal(t, int64(1), s.Failed)
	assert.Equal(t, int64(3), s.Total())
}

func TestTaskStatus_IsTerminal(t *testing.T) {
	assert.False(t, TaskStatusQueued.IsTerminal())
	assert.False(t, TaskStatusProcessing.IsTerminal())
	assert.True(t, TaskStatusCompleted.IsTerminal())
	assert.True(t, TaskStatusFailed.IsTerminal())
	assert.True(t, TaskStatusCancelled.IsTerminal())
}
