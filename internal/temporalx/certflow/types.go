package certflow

const (
	WorkflowName  = "course_completion"
	ActivityIssue = "certificate_issue"
)

type Input struct {
	UserID   string `json:"user_id"`
	CourseID string `json:"course_id"`
}

type Result struct {
	CertificateID string `json:"certificate_id"`
	Number        string `json:"number"`
	Status        string `json:"status"`
}

// WorkflowID is stable per (user, course) so a completion is processed at most once.
func WorkflowID(in Input) string {
	return "course-completion:" + in.UserID + ":" + in.CourseID
}
