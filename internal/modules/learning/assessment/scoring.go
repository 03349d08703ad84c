package assessment

import (
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/trainingportal-backend/internal/domain/learning"
)

const DefaultPassThreshold = 70

// AnswerKey is a question's accepted identifiers, resolved once from the stored row.
type AnswerKey struct {
	QuestionID uuid.UUID
	Points     int
	accepted   []string
}

// NewAnswerKey accepts the legacy correct_answer plus the letter and text of every correct option.
// Unreadable options make the question unanswerable rather than failing the attempt.
func NewAnswerKey(q *learning.AssessmentQuestion) AnswerKey {
	k := AnswerKey{QuestionID: q.ID, Points: q.Weight()}
	opts, err := q.ParsedOptions()
	if err != nil {
		return k
	}
	if legacy := strings.TrimSpace(q.CorrectAnswer); legacy != "" {
		k.accepted = append(k.accepted, legacy)
	}
	for _, o := range opts {
		if !o.IsCorrect {
			continue
		}
		for _, v := range []string{o.Letter, o.Text} {
			if v = strings.TrimSpace(v); v != "" {
				k.accepted = append(k.accepted, v)
			}
		}
	}
	return k
}

func (k AnswerKey) Accepts(answer string) bool {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return false
	}
	for _, v := range k.accepted {
		if strings.EqualFold(v, answer) {
			return true
		}
	}
	return false
}

type Result struct {
	EarnedPoints int                `json:"earned_points"`
	TotalPoints  int                `json:"total_points"`
	ScorePercent int                `json:"score_percent"`
	Passed       bool               `json:"passed"`
	Correct      map[uuid.UUID]bool `json:"-"`
}

// Score grades answers (question id -> submitted identifier) against keys.
func Score(keys []AnswerKey, answers map[string]string, passThreshold int) Result {
	if passThreshold <= 0 {
		passThreshold = DefaultPassThreshold
	}
	r := Result{Correct: make(map[uuid.UUID]bool, len(keys))}
	for _, k := range keys {
		r.TotalPoints += k.Points
		ok := k.Accepts(answers[k.QuestionID.String()])
		r.Correct[k.QuestionID] = ok
		if ok {
			r.EarnedPoints += k.Points
		}
	}
	if r.TotalPoints > 0 && r.EarnedPoints > 0 {
		r.ScorePercent = (200*r.EarnedPoints + r.TotalPoints) / (2 * r.TotalPoints)
	}
	r.Passed = r.ScorePercent >= passThreshold
	return r
}
