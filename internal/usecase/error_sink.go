package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"gitlab.com/zapfunil/api/crm-inbound-engine/internal/config"
	"gitlab.com/zapfunil/api/crm-inbound-engine/internal/model"
	"gitlab.com/zapfunil/api/crm-inbound-engine/internal/observer"
	"gitlab.com/zapfunil/api/crm-inbound-engine/internal/storage"
	"gitlab.com/zapfunil/api/crm-inbound-engine/internal/tenant"
)

// ErrorSinkTask carries one sanitized error report into the pool.
type ErrorSinkTask struct {
	WorkspaceID string
	RequestID   string
	Report      model.PipelineError
}

// IErrorSink defines the interface for the pipeline-error worker pool.
type IErrorSink interface {
	SubmitTask(task ErrorSinkTask) error
	Stop()
}

// ErrorSink persists workflow error reports off the request path. Intake must
// never fail the reporting workflow, so persistence runs on a bounded ants
// pool and submit falls back to logging when the pool rejects the task.
type ErrorSink struct {
	pool       *ants.PoolWithFunc
	reports    storage.PipelineErrorRepo
	cfg        config.ErrorSinkPoolConfig
	baseLogger *zap.Logger
}

var _ IErrorSink = (*ErrorSink)(nil)

// NewErrorSink creates and initializes the error-sink worker pool.
func NewErrorSink(
	cfg config.ErrorSinkPoolConfig,
	reports storage.PipelineErrorRepo,
	baseLogger *zap.Logger,
) (*ErrorSink, error) {
	sink := &ErrorSink{
		reports:    reports,
		cfg:        cfg,
		baseLogger: baseLogger.Named("error_sink"),
	}

	pool, err := ants.NewPoolWithFunc(cfg.PoolSize, func(i interface{}) {
		task, ok := i.(ErrorSinkTask)
		if !ok {
			sink.baseLogger.Error("Invalid task data type received", zap.Any("data", i))
			return
		}
		sink.processTask(task)
	},
		ants.WithExpiryDuration(cfg.ExpiryTime),
		ants.WithNonblocking(true), // Intake path must never block on a full pool
		ants.WithMaxBlockingTasks(cfg.QueueSize),
		ants.WithPanicHandler(func(err interface{}) {
			sink.baseLogger.Error("Panic recovered in error sink worker", zap.Any("panic_error", err), zap.Stack("stack"))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create error sink pool: %w", err)
	}
	sink.pool = pool
	sink.baseLogger.Info("Error sink pool initialized",
		zap.Int("pool_size", cfg.PoolSize),
		zap.Int("queue_size", cfg.QueueSize),
		zap.Duration("expiry_time", cfg.ExpiryTime),
	)
	return sink, nil
}

// SubmitTask hands a report to the pool. A rejected submit is logged and
// counted but not surfaced; the report content is preserved in the log line so
// nothing is lost silently.
func (s *ErrorSink) SubmitTask(task ErrorSinkTask) error {
	observer.IncErrorSinkTasksSubmitted(task.WorkspaceID)
	observer.SetErrorSinkQueueLength(s.pool.Waiting())

	err := s.pool.Invoke(task)
	if err != nil {
		s.baseLogger.Warn("Error report dropped from pool, logging instead",
			zap.String("workspace_id", task.WorkspaceID),
			zap.String("severity", task.Report.Severity),
			zap.String("workflow", task.Report.Workflow),
			zap.String("error_message", task.Report.ErrorMessage),
			zap.Error(err),
		)
		observer.IncErrorSinkTasksProcessed(task.WorkspaceID, "submit_error")
		return fmt.Errorf("failed to invoke error sink task: %w", err)
	}
	return nil
}

// processTask persists one report with its own deadline, detached from the
// request that produced it.
func (s *ErrorSink) processTask(task ErrorSinkTask) {
	log := s.baseLogger.With(
		zap.String("workspace_id", task.WorkspaceID),
		zap.String("report_id", task.Report.ID),
	)

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.WriteTimeout)
	defer cancel()
	ctx = tenant.WithWorkspaceID(ctx, task.WorkspaceID)
	if task.RequestID != "" {
		ctx = tenant.WithRequestID(ctx, task.RequestID)
	}

	if err := s.reports.Save(ctx, &task.Report); err != nil {
		log.Error("Failed to persist error report",
			zap.String("severity", task.Report.Severity),
			zap.String("workflow", task.Report.Workflow),
			zap.Error(err),
		)
		observer.IncErrorSinkTasksProcessed(task.WorkspaceID, "failure")
		return
	}

	log.Debug("Error report persisted")
	observer.IncErrorSinkTasksProcessed(task.WorkspaceID, "success")
}

// Stop waits briefly for in-flight tasks and releases the pool.
func (s *ErrorSink) Stop() {
	s.baseLogger.Info("Stopping error sink pool")
	deadline := time.Now().Add(5 * time.Second)
	for s.pool.Running() > 0 && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}
	s.pool.Release()
	s.baseLogger.Info("Error sink pool stopped")
}
