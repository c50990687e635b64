package kbsync

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	executions "cloud.google.com/go/workflows/executions/apiv1"
	"cloud.google.com/go/workflows/executions/apiv1/executionspb"
	"github.com/googleapis/gax-go/v2"

	"github.com/kirillkom/estate-intake/internal/core/domain"
	"github.com/kirillkom/estate-intake/internal/infrastructure/resilience"
)

type executionCreator interface {
	CreateExecution(ctx context.Context, req *executionspb.CreateExecutionRequest, opts ...gax.CallOption) (*executionspb.Execution, error)
}

// WorkflowTrigger starts one Cloud Workflows execution per landed document.
// The workflow owns the actual ingestion job.
type WorkflowTrigger struct {
	client   executionCreator
	parent   string
	closer   func() error
	executor *resilience.Executor
	logger   *slog.Logger
}

func NewWorkflowTrigger(ctx context.Context, projectID, location, workflowID string, executor *resilience.Executor, logger *slog.Logger) (*WorkflowTrigger, error) {
	if projectID == "" || location == "" || workflowID == "" {
		return nil, fmt.Errorf("workflow trigger: project, location and workflow id are required")
	}
	client, err := executions.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("executions.NewClient: %w", err)
	}
	t := newWorkflowTrigger(client, projectID, location, workflowID, logger)
	t.executor = executor
	t.closer = client.Close
	return t, nil
}

func newWorkflowTrigger(client executionCreator, projectID, location, workflowID string, logger *slog.Logger) *WorkflowTrigger {
	if logger == nil {
		logger = slog.Default()
	}
	return &WorkflowTrigger{
		client: client,
		parent: fmt.Sprintf("projects/%s/locations/%s/workflows/%s", projectID, location, workflowID),
		logger: logger,
	}
}

func (t *WorkflowTrigger) NotifyDocumentLanded(ctx context.Context, event domain.LandedEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal workflow payload: %w", err)
	}
	execution, err := resilience.ExecuteValue(ctx, t.executor, "workflows.create_execution", func(callCtx context.Context) (*executionspb.Execution, error) {
		return t.client.CreateExecution(callCtx, &executionspb.CreateExecutionRequest{
			Parent: t.parent,
			Execution: &executionspb.Execution{
				Argument: string(payload),
			},
		})
	}, classifyWorkflowError)
	if err != nil {
		return resilience.WrapTemporary("trigger workflow execution", err, classifyWorkflowError)
	}
	t.logger.Info("kb_sync.workflow.started", "execution", execution.GetName(), "storage_key", event.StorageKey)
	return nil
}

func (t *WorkflowTrigger) Close() error {
	if t.closer == nil {
		return nil
	}
	return t.closer()
}

func classifyWorkflowError(err error) resilience.ErrorClassification {
	if class, ok := resilience.ClassifyCommon(err); ok {
		return class
	}
	if class, ok := resilience.ClassifyGRPC(err); ok {
		return class
	}
	return resilience.Permanent
}
