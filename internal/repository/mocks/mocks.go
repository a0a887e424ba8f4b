package mocks

import (
	"context"
	"time"

	"github.com/ganot/worklog/internal/domain/worklog"
	"github.com/stretchr/testify/mock"
)

// TaskLogRepository is a mock for worklog.TaskLogRepository.
type TaskLogRepository struct {
	mock.Mock
}

func (m *TaskLogRepository) Create(ctx context.Context, log *worklog.TaskLog) error {
	args := m.Called(ctx, log)
	return args.Error(0)
}

func (m *TaskLogRepository) Get(ctx context.Context, id string) (*worklog.TaskLog, error) {
	args := m.Called(ctx, id)
	if log, ok := args.Get(0).(*worklog.TaskLog); ok {
		return log, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *TaskLogRepository) GetOpen(ctx context.Context, taskID, userID string) (*worklog.TaskLog, error) {
	args := m.Called(ctx, taskID, userID)
	if log, ok := args.Get(0).(*worklog.TaskLog); ok {
		return log, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *TaskLogRepository) ListOpen(ctx context.Context) ([]worklog.TaskLog, error) {
	args := m.Called(ctx)
	if logs, ok := args.Get(0).([]worklog.TaskLog); ok {
		return logs, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *TaskLogRepository) Update(ctx context.Context, log *worklog.TaskLog) error {
	args := m.Called(ctx, log)
	return args.Error(0)
}

// TaskRepository is a mock for worklog.TaskRepository.
type TaskRepository struct {
	mock.Mock
}

func (m *TaskRepository) Get(ctx context.Context, id string) (*worklog.Task, error) {
	args := m.Called(ctx, id)
	if task, ok := args.Get(0).(*worklog.Task); ok {
		return task, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *TaskRepository) SetStatus(ctx context.Context, id, status string, endDate *time.Time) error {
	args := m.Called(ctx, id, status, endDate)
	return args.Error(0)
}

func (m *TaskRepository) GetProject(ctx context.Context, id string) (*worklog.Project, error) {
	args := m.Called(ctx, id)
	if proj, ok := args.Get(0).(*worklog.Project); ok {
		return proj, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *TaskRepository) GetUser(ctx context.Context, id string) (*worklog.User, error) {
	args := m.Called(ctx, id)
	if user, ok := args.Get(0).(*worklog.User); ok {
		return user, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *TaskRepository) ListAssigned(ctx context.Context, userID string) ([]worklog.AssignedTask, error) {
	args := m.Called(ctx, userID)
	if tasks, ok := args.Get(0).([]worklog.AssignedTask); ok {
		return tasks, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *TaskRepository) GetAssignment(ctx context.Context, taskID string) (*worklog.Assignment, error) {
	args := m.Called(ctx, taskID)
	if a, ok := args.Get(0).(*worklog.Assignment); ok {
		return a, args.Error(1)
	}
	return nil, args.Error(1)
}

// Archiver is a mock for worklog.Archiver.
type Archiver struct {
	mock.Mock
}

func (m *Archiver) Archive(ctx context.Context, id, text string, metadata map[string]any) error {
	args := m.Called(ctx, id, text, metadata)
	return args.Error(0)
}

// TimeRecorder is a mock for worklog.TimeRecorder.
type TimeRecorder struct {
	mock.Mock
}

func (m *TimeRecorder) SaveTimeItemHours(ctx context.Context, lineItemRef string, dayOfWeek int, hours float64) error {
	args := m.Called(ctx, lineItemRef, dayOfWeek, hours)
	return args.Error(0)
}
