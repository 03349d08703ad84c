package certflow

import (
	"context"
	"errors"

	"github.com/google/uuid"
	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	temporalsdkclient "go.temporal.io/sdk/client"

	"github.com/yungbote/trainingportal-backend/internal/platform/logger"
)

// Trigger starts post-completion processing for one (user, course).
type Trigger interface {
	CourseCompleted(ctx context.Context, userID, courseID uuid.UUID) error
}

type workflowTrigger struct {
	log       *logger.Logger
	tc        temporalsdkclient.Client
	taskQueue string
}

// NewWorkflowTrigger starts the completion workflow. A workflow ID that already ran is not an error.
func NewWorkflowTrigger(baseLog *logger.Logger, tc temporalsdkclient.Client, taskQueue string) Trigger {
	return &workflowTrigger{log: baseLog.With("component", "CompletionWorkflowTrigger"), tc: tc, taskQueue: taskQueue}
}

func (t *workflowTrigger) CourseCompleted(ctx context.Context, userID, courseID uuid.UUID) error {
	in := Input{UserID: userID.String(), CourseID: courseID.String()}
	run, err := t.tc.ExecuteWorkflow(ctx, temporalsdkclient.StartWorkflowOptions{
		ID:                    WorkflowID(in),
		TaskQueue:             t.taskQueue,
		WorkflowIDReusePolicy: enumspb.WORKFLOW_ID_REUSE_POLICY_REJECT_DUPLICATE,
	}, WorkflowName, in)
	var started *serviceerror.WorkflowExecutionAlreadyStarted
	if errors.As(err, &started) {
		t.log.Debug("completion workflow already recorded", "user_id", userID, "course_id", courseID)
		return nil
	}
	if err != nil {
		return err
	}
	t.log.Info("completion workflow started", "workflow_id", run.GetID(), "run_id", run.GetRunID())
	return nil
}

type inlineTrigger struct {
	log    *logger.Logger
	issuer Issuer
}

// NewInlineTrigger issues the certificate in-process. Used when Temporal is not configured.
func NewInlineTrigger(baseLog *logger.Logger, issuer Issuer) Trigger {
	return &inlineTrigger{log: baseLog.With("component", "CompletionInlineTrigger"), issuer: issuer}
}

func (t *inlineTrigger) CourseCompleted(ctx context.Context, userID, courseID uuid.UUID) error {
	cert, err := t.issuer.Issue(ctx, userID, courseID)
	if err != nil {
		return err
	}
	if cert != nil {
		t.log.Info("certificate issued inline", "certificate_id", cert.ID, "status", cert.Status)
	}
	return nil
}
