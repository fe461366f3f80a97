package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewIndexJob(t *testing.T) {
	now := time.Now()
	job := NewIndexJob("job1", "file1", IndexJobStatusPending, 0, "", now, nil)

	assert.Equal(t, "job1", job.ID)
	assert.Equal(t, "file1", job.FileID)
	assert.Equal(t, IndexJobStatusPending, job.Status)
	assert.Zero(t, job.Retries)
	assert.Nil(t, job.ProcessedAt)
}

func TestValidateIndexJob(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name    string
		job     *IndexJob
		wantErr bool
	}{
		{name: "valid job", job: NewIndexJob("job1", "file1", IndexJobStatusPending, 0, "", now, nil), wantErr: false},
		{name: "missing ID", job: &IndexJob{FileID: "file1", Status: IndexJobStatusPending}, wantErr: true},
		{name: "missing FileID", job: &IndexJob{ID: "job1", Status: IndexJobStatusPending}, wantErr: true},
		{name: "invalid status", job: &IndexJob{ID: "job1", FileID: "file1", Status: IndexJobStatus("queued")}, wantErr: true},
		{name: "negative retries", job: &IndexJob{ID: "job1", FileID: "file1", Status: IndexJobStatusPending, Retries: -1}, wantErr: true},
		{name: "nil job", job: nil, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateIndexJob(tt.job)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
