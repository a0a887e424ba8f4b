package worklog_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ganot/worklog/internal/domain/worklog"
	"github.com/ganot/worklog/internal/repository"
	"github.com/ganot/worklog/internal/repository/mocks"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func mustDate(t *testing.T, iso string) time.Time {
	t.Helper()
	parsed, err := time.Parse("2006-01-02", iso)
	require.NoError(t, err)
	return parsed
}

func newService(logs *mocks.TaskLogRepository, tasks *mocks.TaskRepository, archiver *mocks.Archiver, recorder *mocks.TimeRecorder) *worklog.Service {
	var a worklog.Archiver
	if archiver != nil {
		a = archiver
	}
	var r worklog.TimeRecorder
	if recorder != nil {
		r = recorder
	}
	return worklog.NewService(logs, tasks, a, r, worklog.DefaultReconcilePolicy(), nil)
}

func TestStartReturnsExistingOpenLog(t *testing.T) {
	ctx := context.Background()

	existing := &worklog.TaskLog{ID: "log-1", TaskID: "task-1", UserID: "user-1", StartTime: time.Now()}
	logs := &mocks.TaskLogRepository{}
	logs.On("GetOpen", ctx, "task-1", "user-1").Return(existing, nil)

	svc := newService(logs, &mocks.TaskRepository{}, nil, nil)

	first, err := svc.Start(ctx, "task-1", "user-1")
	require.NoError(t, err)
	second, err := svc.Start(ctx, "task-1", "user-1")
	require.NoError(t, err)

	require.Equal(t, first.ID, second.ID)
	logs.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestStartCreatesWhenNoneOpen(t *testing.T) {
	ctx := context.Background()

	logs := &mocks.TaskLogRepository{}
	logs.On("GetOpen", ctx, "task-1", "user-1").Return((*worklog.TaskLog)(nil), repository.ErrNotFound)
	logs.On("Create", ctx, mock.Anything).Return(nil)

	svc := newService(logs, &mocks.TaskRepository{}, nil, nil)

	log, err := svc.Start(ctx, "task-1", "user-1")
	require.NoError(t, err)
	require.NotEmpty(t, log.ID)
	require.Equal(t, "task-1", log.TaskID)
	require.True(t, log.Open())
}

func TestStartLosingRaceReturnsWinner(t *testing.T) {
	ctx := context.Background()

	winner := &worklog.TaskLog{ID: "winner", TaskID: "task-1", UserID: "user-1", StartTime: time.Now()}
	logs := &mocks.TaskLogRepository{}
	logs.On("GetOpen", ctx, "task-1", "user-1").Return((*worklog.TaskLog)(nil), repository.ErrNotFound).Once()
	logs.On("Create", ctx, mock.Anything).Return(repository.ErrUniqueViolation)
	logs.On("GetOpen", ctx, "task-1", "user-1").Return(winner, nil).Once()

	svc := newService(logs, &mocks.TaskRepository{}, nil, nil)

	log, err := svc.Start(ctx, "task-1", "user-1")
	require.NoError(t, err)
	require.Equal(t, "winner", log.ID)
}

func TestStartRejectsEmptyInput(t *testing.T) {
	svc := newService(&mocks.TaskLogRepository{}, &mocks.TaskRepository{}, nil, nil)

	_, err := svc.Start(context.Background(), "", "user-1")
	require.ErrorIs(t, err, worklog.ErrInvalidInput)
	_, err = svc.Start(context.Background(), "task-1", "")
	require.ErrorIs(t, err, worklog.ErrInvalidInput)
}

func TestStopNotFoundProducesNoArchive(t *testing.T) {
	ctx := context.Background()

	logs := &mocks.TaskLogRepository{}
	logs.On("Get", ctx, "missing").Return((*worklog.TaskLog)(nil), repository.ErrNotFound)
	archiver := &mocks.Archiver{}

	svc := newService(logs, &mocks.TaskRepository{}, archiver, nil)

	_, err := svc.Stop(ctx, worklog.StopRequest{LogID: "missing", Status: "Completed"})
	require.ErrorIs(t, err, worklog.ErrLogNotFound)
	archiver.AssertNotCalled(t, "Archive", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestStopClosesAndArchives(t *testing.T) {
	ctx := context.Background()

	open := &worklog.TaskLog{ID: "log-1", TaskID: "task-1", UserID: "user-1", StartTime: time.Now().Add(-time.Hour)}
	logs := &mocks.TaskLogRepository{}
	logs.On("Get", ctx, "log-1").Return(open, nil)
	logs.On("Update", ctx, mock.Anything).Return(nil)

	tasks := &mocks.TaskRepository{}
	tasks.On("SetStatus", ctx, "task-1", "Completed", (*time.Time)(nil)).Return(nil)
	tasks.On("Get", ctx, "task-1").Return(&worklog.Task{ID: "task-1", ProjectID: "proj-1", Title: "Fix login"}, nil)
	tasks.On("GetProject", ctx, "proj-1").Return(&worklog.Project{ID: "proj-1", Name: "Website"}, nil)
	tasks.On("GetUser", ctx, "user-1").Return(&worklog.User{ID: "user-1", Username: "alice"}, nil)

	archiver := &mocks.Archiver{}
	var gotText string
	var gotMeta map[string]any
	archiver.On("Archive", ctx, mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			gotText = args.String(2)
			gotMeta = args.Get(3).(map[string]any)
		}).
		Return(nil)

	svc := newService(logs, tasks, archiver, nil)

	result, err := svc.Stop(ctx, worklog.StopRequest{
		LogID:           "log-1",
		Status:          "Completed",
		Comment:         "fixed the login flow",
		DurationSeconds: 3700,
	})
	require.NoError(t, err)
	require.True(t, result.Archived)
	require.NoError(t, result.ArchiveErr)
	require.False(t, result.Log.Open())

	require.Equal(t, "Website - Fix login: fixed the login flow", gotText)
	require.Equal(t, "Completed", gotMeta["status"])
	require.Equal(t, "alice", gotMeta["username"])
	// 3700s rounds up to 1.25 quantized hours.
	require.Equal(t, 1.25, gotMeta["duration"])
	require.Equal(t, "log-1", gotMeta["log_id"])
}

func TestStopArchiveFailureDoesNotFailStop(t *testing.T) {
	ctx := context.Background()

	open := &worklog.TaskLog{ID: "log-1", TaskID: "task-1", UserID: "user-1", StartTime: time.Now()}
	logs := &mocks.TaskLogRepository{}
	logs.On("Get", ctx, "log-1").Return(open, nil)
	logs.On("Update", ctx, mock.Anything).Return(nil)

	tasks := &mocks.TaskRepository{}
	tasks.On("SetStatus", ctx, "task-1", "Completed", (*time.Time)(nil)).Return(nil)
	tasks.On("Get", ctx, "task-1").Return((*worklog.Task)(nil), errors.New("store down"))

	svc := newService(logs, tasks, &mocks.Archiver{}, nil)

	result, err := svc.Stop(ctx, worklog.StopRequest{LogID: "log-1", Status: "Completed", DurationSeconds: 60})
	require.NoError(t, err)
	require.False(t, result.Archived)
	require.Error(t, result.ArchiveErr)
}

func TestPauseRecordsDuration(t *testing.T) {
	ctx := context.Background()

	open := &worklog.TaskLog{ID: "log-1", TaskID: "task-1", UserID: "user-1", StartTime: time.Now()}
	logs := &mocks.TaskLogRepository{}
	logs.On("Get", ctx, "log-1").Return(open, nil)
	logs.On("Update", ctx, mock.Anything).Return(nil)

	svc := newService(logs, &mocks.TaskRepository{}, nil, nil)

	log, err := svc.Pause(ctx, "log-1", 1800)
	require.NoError(t, err)
	require.NotNil(t, log.Duration)
	require.Equal(t, int64(1800), *log.Duration)
	require.True(t, log.Open())
}

func TestReconcileStaleIsIdempotent(t *testing.T) {
	ctx := context.Background()

	stale := []worklog.TaskLog{
		{ID: "log-1", TaskID: "task-1", UserID: "user-1", StartTime: time.Now().Add(-8 * time.Hour)},
		{ID: "log-2", TaskID: "task-2", UserID: "user-2", StartTime: time.Now().Add(-6 * time.Hour)},
	}

	logs := &mocks.TaskLogRepository{}
	logs.On("ListOpen", ctx).Return(stale, nil).Once()
	logs.On("ListOpen", ctx).Return([]worklog.TaskLog(nil), nil).Once()
	var closed []worklog.TaskLog
	logs.On("Update", ctx, mock.Anything).
		Run(func(args mock.Arguments) {
			closed = append(closed, *args.Get(1).(*worklog.TaskLog))
		}).
		Return(nil)

	tasks := &mocks.TaskRepository{}
	tasks.On("SetStatus", ctx, mock.Anything, "In progress", mock.Anything).Return(nil)

	svc := newService(logs, tasks, nil, nil)

	count, err := svc.ReconcileStale(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, count)

	for _, log := range closed {
		require.False(t, log.Open())
		require.Equal(t, "In progress", *log.Status)
		require.Equal(t, "Stopped automatically by system scheduler", *log.Comment)
		require.Equal(t, int64(10800), *log.Duration)
	}

	count, err = svc.ReconcileStale(ctx)
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestReconcileStaleSkipsFailedRows(t *testing.T) {
	ctx := context.Background()

	stale := []worklog.TaskLog{
		{ID: "log-1", TaskID: "task-1", UserID: "user-1", StartTime: time.Now()},
		{ID: "log-2", TaskID: "task-2", UserID: "user-2", StartTime: time.Now()},
	}

	logs := &mocks.TaskLogRepository{}
	logs.On("ListOpen", ctx).Return(stale, nil)
	logs.On("Update", ctx, mock.MatchedBy(func(l *worklog.TaskLog) bool { return l.ID == "log-1" })).
		Return(errors.New("disk full"))
	logs.On("Update", ctx, mock.MatchedBy(func(l *worklog.TaskLog) bool { return l.ID == "log-2" })).
		Return(nil)

	tasks := &mocks.TaskRepository{}
	tasks.On("SetStatus", ctx, "task-2", "In progress", mock.Anything).Return(nil)

	svc := newService(logs, tasks, nil, nil)

	count, err := svc.ReconcileStale(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestRecordTimeEntryValidatesBeforeExternalCall(t *testing.T) {
	ctx := context.Background()
	recorder := &mocks.TimeRecorder{}
	svc := newService(&mocks.TaskLogRepository{}, &mocks.TaskRepository{}, nil, recorder)

	err := svc.RecordTimeEntry(ctx, "task-1", 0)
	require.ErrorIs(t, err, worklog.ErrInvalidHours)

	// 25 hours of raw time quantizes past the daily cap.
	err = svc.RecordTimeEntry(ctx, "task-1", 25*3600)
	require.ErrorIs(t, err, worklog.ErrInvalidHours)

	recorder.AssertNotCalled(t, "SaveTimeItemHours", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRecordTimeEntryUpsertsQuantizedHours(t *testing.T) {
	ctx := context.Background()

	ref := "line-42"
	tasks := &mocks.TaskRepository{}
	tasks.On("GetAssignment", ctx, "task-1").Return(&worklog.Assignment{TaskID: "task-1", UserID: "user-1", LineItemRef: &ref}, nil)

	recorder := &mocks.TimeRecorder{}
	recorder.On("SaveTimeItemHours", ctx, "line-42", mock.Anything, 1.25).Return(nil)

	svc := newService(&mocks.TaskLogRepository{}, tasks, nil, recorder)

	require.NoError(t, svc.RecordTimeEntry(ctx, "task-1", 3700))
	recorder.AssertExpectations(t)
}

func TestRecordTimeEntryWithoutLineRefFails(t *testing.T) {
	ctx := context.Background()

	tasks := &mocks.TaskRepository{}
	tasks.On("GetAssignment", ctx, "task-1").Return(&worklog.Assignment{TaskID: "task-1", UserID: "user-1"}, nil)

	recorder := &mocks.TimeRecorder{}
	svc := newService(&mocks.TaskLogRepository{}, tasks, nil, recorder)

	err := svc.RecordTimeEntry(ctx, "task-1", 3600)
	require.ErrorIs(t, err, worklog.ErrExternalService)
	recorder.AssertNotCalled(t, "SaveTimeItemHours", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRecordTimeEntryWrapsRecorderFailure(t *testing.T) {
	ctx := context.Background()

	ref := "line-42"
	tasks := &mocks.TaskRepository{}
	tasks.On("GetAssignment", ctx, "task-1").Return(&worklog.Assignment{TaskID: "task-1", UserID: "user-1", LineItemRef: &ref}, nil)

	recorder := &mocks.TimeRecorder{}
	recorder.On("SaveTimeItemHours", ctx, "line-42", mock.Anything, mock.Anything).
		Return(errors.New("api returned fail"))

	svc := newService(&mocks.TaskLogRepository{}, tasks, nil, recorder)

	err := svc.RecordTimeEntry(ctx, "task-1", 3600)
	require.ErrorIs(t, err, worklog.ErrExternalService)
}

func TestLatestOpenLogNilWhenNoneOpen(t *testing.T) {
	ctx := context.Background()

	logs := &mocks.TaskLogRepository{}
	logs.On("GetOpen", ctx, "task-1", "user-1").Return((*worklog.TaskLog)(nil), repository.ErrNotFound)

	svc := newService(logs, &mocks.TaskRepository{}, nil, nil)

	log, err := svc.LatestOpenLog(ctx, "task-1", "user-1")
	require.NoError(t, err)
	require.Nil(t, log)
}

func TestLogDuration(t *testing.T) {
	ctx := context.Background()

	duration := int64(5400)
	logs := &mocks.TaskLogRepository{}
	logs.On("Get", ctx, "log-1").Return(&worklog.TaskLog{ID: "log-1", Duration: &duration}, nil)
	logs.On("Get", ctx, "log-2").Return(&worklog.TaskLog{ID: "log-2"}, nil)
	logs.On("Get", ctx, "missing").Return((*worklog.TaskLog)(nil), repository.ErrNotFound)

	svc := newService(logs, &mocks.TaskRepository{}, nil, nil)

	got, err := svc.LogDuration(ctx, "log-1")
	require.NoError(t, err)
	require.Equal(t, int64(5400), got)

	got, err = svc.LogDuration(ctx, "log-2")
	require.NoError(t, err)
	require.Zero(t, got)

	_, err = svc.LogDuration(ctx, "missing")
	require.ErrorIs(t, err, worklog.ErrLogNotFound)
}
