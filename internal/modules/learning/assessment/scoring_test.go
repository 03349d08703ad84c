package assessment

import (
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/trainingportal-backend/internal/domain/learning"
)

func question(options, legacy string, points *int) *learning.AssessmentQuestion {
	q := &learning.AssessmentQuestion{ID: uuid.New(), CorrectAnswer: legacy, Points: points}
	if options != "" {
		q.Options = datatypes.JSON([]byte(options))
	}
	return q
}

const abOptions = `[{"letter":"A","text":"Report it to a supervisor","is_correct":true},{"letter":"B","text":"Ignore it","is_correct":false}]`

func TestAnswerKeyThreeWayMatch(t *testing.T) {
	k := NewAnswerKey(question(abOptions, "Report it", nil))
	for _, accepted := range []string{"A", "a", " Report it to a supervisor ", "Report it"} {
		if !k.Accepts(accepted) {
			t.Fatalf("want %q accepted", accepted)
		}
	}
	for _, rejected := range []string{"", "  ", "B", "Ignore it"} {
		if k.Accepts(rejected) {
			t.Fatalf("want %q rejected", rejected)
		}
	}
}

func TestAnswerKeyLegacyOnly(t *testing.T) {
	k := NewAnswerKey(question("", "C", nil))
	if !k.Accepts("C") {
		t.Fatalf("legacy letter should be accepted")
	}
}

func TestAnswerKeyMalformedIsAlwaysIncorrect(t *testing.T) {
	for _, q := range []*learning.AssessmentQuestion{
		question(`{"not":"a list"`, "A", nil),
		question("", "", nil),
		question(`[{"letter":"A","text":"x","is_correct":false}]`, "", nil),
	} {
		k := NewAnswerKey(q)
		for _, v := range []string{"A", "x", ""} {
			if k.Accepts(v) {
				t.Fatalf("malformed question accepted %q", v)
			}
		}
	}
}

func TestScoreWeightsAndThreshold(t *testing.T) {
	five := 5
	q1 := question(abOptions, "", nil)   // 10 points
	q2 := question(abOptions, "", &five) // 5 points
	q3 := question(abOptions, "", nil)   // 10 points
	keys := []AnswerKey{NewAnswerKey(q1), NewAnswerKey(q2), NewAnswerKey(q3)}

	res := Score(keys, map[string]string{q1.ID.String(): "A", q3.ID.String(): "A"}, 0)
	if res.TotalPoints != 25 || res.EarnedPoints != 20 || res.ScorePercent != 80 || !res.Passed {
		t.Fatalf("score: got=%+v", res)
	}
	res = Score(keys, map[string]string{q1.ID.String(): "A", q2.ID.String(): "A"}, 0)
	if res.ScorePercent != 60 || res.Passed {
		t.Fatalf("score 15/25: got=%+v", res)
	}
	if res.Correct[q3.ID] {
		t.Fatalf("unanswered question marked correct")
	}
	if empty := Score(nil, nil, 0); empty.ScorePercent != 0 || empty.Passed {
		t.Fatalf("empty: got=%+v", empty)
	}
}

func TestScorePassBoundary(t *testing.T) {
	tests := []struct {
		correct int
		pct     int
		passed  bool
	}{
		{7, 70, true},
		{6, 60, false},
	}
	for _, tt := range tests {
		var keys []AnswerKey
		answers := map[string]string{}
		for i := 0; i < 10; i++ {
			q := question(abOptions, "", nil)
			keys = append(keys, NewAnswerKey(q))
			if i < tt.correct {
				answers[q.ID.String()] = "A"
			}
		}
		res := Score(keys, answers, 70)
		if res.ScorePercent != tt.pct || res.Passed != tt.passed {
			t.Fatalf("%d/10: want=(%d,%v) got=(%d,%v)", tt.correct, tt.pct, tt.passed, res.ScorePercent, res.Passed)
		}
	}
}
