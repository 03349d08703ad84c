package certflow

import (
	"fmt"
	"strings"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

func Workflow(ctx workflow.Context, in Input) (Result, error) {
	if strings.TrimSpace(in.UserID) == "" || strings.TrimSpace(in.CourseID) == "" {
		return Result{}, temporal.NewNonRetryableApplicationError("missing user or course", "invalid_input", nil)
	}
	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:        time.Second,
			BackoffCoefficient:     2,
			MaximumInterval:        5 * time.Minute,
			MaximumAttempts:        20,
			NonRetryableErrorTypes: []string{"invalid_input"},
		},
	})

	var out Result
	if err := workflow.ExecuteActivity(ctx, ActivityIssue, in).Get(ctx, &out); err != nil {
		return Result{}, fmt.Errorf("issue certificate: %w", err)
	}
	workflow.GetLogger(ctx).Info("certificate issued", "certificate_id", out.CertificateID, "status", out.Status)
	return out, nil
}
