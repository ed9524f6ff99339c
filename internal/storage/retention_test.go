package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeArchive struct {
	cutoff time.Time
	calls  int
}

func (f *fakeArchive) Prune(cutoff time.Time) (int, error) {
	f.cutoff = cutoff
	f.calls++
	return 3, nil
}

func TestRetentionRunOnceDeletesInBatches(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Date(2026, 3, 31, 3, 0, 0, 0, time.UTC)
	cutoff := now.Add(-30 * 24 * time.Hour)

	mock.ExpectExec("DELETE FROM reading").
		WithArgs(cutoff.Unix(), int64(retentionBatch)).
		WillReturnResult(sqlmock.NewResult(0, 500))
	mock.ExpectExec("DELETE FROM reading").
		WithArgs(cutoff.Unix(), int64(retentionBatch)).
		WillReturnResult(sqlmock.NewResult(0, 120))
	mock.ExpectExec("DELETE FROM reading").
		WithArgs(cutoff.Unix(), int64(retentionBatch)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	archive := &fakeArchive{}
	job := NewRetentionJob(New(db, zap.NewNop()), archive, 30*24*time.Hour, zap.NewNop())
	job.now = func() time.Time { return now }

	total, err := job.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(620), total)
	assert.Equal(t, 1, archive.calls)
	assert.True(t, archive.cutoff.Equal(cutoff))
	assert.NoError(t, mock.ExpectationsWereMet())
}

type fakeSummaries struct {
	invalidated []string
}

func (f *fakeSummaries) Invalidate(_ context.Context, deviceID string) error {
	f.invalidated = append(f.invalidated, deviceID)
	return nil
}

func TestRetentionRunOnceInvalidatesSummaries(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Date(2026, 3, 31, 3, 0, 0, 0, time.UTC)
	cutoff := now.Add(-24 * time.Hour)
	a, b := uuid.New(), uuid.New()

	mock.ExpectQuery("SELECT DISTINCT device_id FROM reading").
		WithArgs(cutoff.Unix()).
		WillReturnRows(sqlmock.NewRows([]string{"device_id"}).AddRow(a.String()).AddRow(b.String()))
	mock.ExpectExec("DELETE FROM reading").
		WithArgs(cutoff.Unix(), int64(retentionBatch)).
		WillReturnResult(sqlmock.NewResult(0, 7))
	mock.ExpectExec("DELETE FROM reading").
		WithArgs(cutoff.Unix(), int64(retentionBatch)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	summaries := &fakeSummaries{}
	job := NewRetentionJob(New(db, zap.NewNop()), nil, 24*time.Hour, zap.NewNop()).WithSummaries(summaries)
	job.now = func() time.Time { return now }

	total, err := job.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(7), total)
	assert.Equal(t, []string{a.String(), b.String()}, summaries.invalidated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRetentionRunOnceNothingToInvalidate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT DISTINCT device_id FROM reading").
		WillReturnRows(sqlmock.NewRows([]string{"device_id"}))
	mock.ExpectExec("DELETE FROM reading").WillReturnResult(sqlmock.NewResult(0, 0))

	summaries := &fakeSummaries{}
	job := NewRetentionJob(New(db, zap.NewNop()), nil, time.Hour, zap.NewNop()).WithSummaries(summaries)

	_, err = job.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Empty(t, summaries.invalidated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRetentionRunOnceStopsOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("DELETE FROM reading").WillReturnError(errors.New("disk I/O error"))

	archive := &fakeArchive{}
	job := NewRetentionJob(New(db, zap.NewNop()), archive, time.Hour, zap.NewNop())

	_, err = job.RunOnce(context.Background())
	assert.Error(t, err)
	assert.Zero(t, archive.calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}
