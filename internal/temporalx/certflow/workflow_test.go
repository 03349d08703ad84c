package certflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/testsuite"

	"github.com/yungbote/trainingportal-backend/internal/domain/learning"
)

type fakeIssuer struct {
	calls   int
	failFor int
	cert    *learning.Certificate
}

func (f *fakeIssuer) Issue(ctx context.Context, userID, courseID uuid.UUID) (*learning.Certificate, error) {
	f.calls++
	if f.calls <= f.failFor {
		return nil, errors.New("db unavailable")
	}
	return f.cert, nil
}

func newEnv(issuer Issuer) *testsuite.TestWorkflowEnvironment {
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()
	acts := &Activities{Issuer: issuer}
	env.RegisterActivityWithOptions(acts.Issue, activity.RegisterOptions{Name: ActivityIssue})
	return env
}

func TestWorkflowIssuesCertificateAfterRetries(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	cert := &learning.Certificate{ID: uuid.New(), Number: "TP-2026-ABC", Status: learning.CertificateIssued, IssuedAt: &now}
	issuer := &fakeIssuer{failFor: 2, cert: cert}
	env := newEnv(issuer)

	env.ExecuteWorkflow(Workflow, Input{UserID: uuid.NewString(), CourseID: uuid.NewString()})
	if !env.IsWorkflowCompleted() {
		t.Fatalf("workflow did not complete")
	}
	if err := env.GetWorkflowError(); err != nil {
		t.Fatalf("workflow error: %v", err)
	}
	var out Result
	if err := env.GetWorkflowResult(&out); err != nil {
		t.Fatalf("result: %v", err)
	}
	if out.Number != cert.Number || out.Status != string(learning.CertificateIssued) {
		t.Fatalf("result: want=%s/issued got=%s/%s", cert.Number, out.Number, out.Status)
	}
	if issuer.calls != 3 {
		t.Fatalf("issue calls: want=3 got=%d", issuer.calls)
	}
}

func TestWorkflowRejectsBadInputWithoutRetry(t *testing.T) {
	issuer := &fakeIssuer{}
	env := newEnv(issuer)
	env.ExecuteWorkflow(Workflow, Input{UserID: "not-a-uuid", CourseID: uuid.NewString()})
	if err := env.GetWorkflowError(); err == nil {
		t.Fatalf("workflow error: want non-nil")
	}
	if issuer.calls != 0 {
		t.Fatalf("issue calls: want=0 got=%d", issuer.calls)
	}
}

func TestWorkflowIDIsStable(t *testing.T) {
	in := Input{UserID: "u", CourseID: "c"}
	if got := WorkflowID(in); got != "course-completion:u:c" {
		t.Fatalf("workflow id: got=%s", got)
	}
}
