package exam

import (
	"errors"
	"reflect"
	"testing"
)

func examWithAnswers(answers ...Answer) *Exam {
	e := &Exam{ExamCode: "E1", Questions: make([]Question, 0, len(answers))}
	for i, a := range answers {
		e.Questions = append(e.Questions, Question{
			Text:          "q" + string(rune('1'+i)),
			Options:       []string{"A", "B", "C"},
			CorrectAnswer: a,
		})
	}
	return e
}

func strs(values ...string) []Answer {
	out := make([]Answer, 0, len(values))
	for _, v := range values {
		out = append(out, StringAnswer(v))
	}
	return out
}

func TestScore(t *testing.T) {
	bca := examWithAnswers(StringAnswer("B"), StringAnswer("C"), StringAnswer("A"))

	tests := []struct {
		name    string
		exam    *Exam
		answers []Answer
		want    Result
	}{
		{name: "end to end sample", exam: bca, answers: strs("B", "X", "A"), want: Result{Score: 2, TotalQuestions: 3}},
		{name: "all correct", exam: bca, answers: strs("B", "C", "A"), want: Result{Score: 3, TotalQuestions: 3}},
		{name: "all wrong", exam: bca, answers: strs("A", "A", "B"), want: Result{Score: 0, TotalQuestions: 3}},
		{name: "empty exam", exam: examWithAnswers(), answers: nil, want: Result{Score: 0, TotalQuestions: 0}},
		{name: "empty exam ignores answers", exam: examWithAnswers(), answers: strs("A"), want: Result{Score: 0, TotalQuestions: 0}},
		{name: "fewer answers than questions", exam: bca, answers: strs("B"), want: Result{Score: 1, TotalQuestions: 3}},
		{name: "no answers", exam: bca, answers: nil, want: Result{Score: 0, TotalQuestions: 3}},
		{name: "extra answers ignored", exam: bca, answers: strs("B", "C", "A", "B", "C"), want: Result{Score: 3, TotalQuestions: 3}},
		{name: "case sensitive", exam: bca, answers: strs("b", "c", "a"), want: Result{Score: 0, TotalQuestions: 3}},
		{name: "not trimmed", exam: bca, answers: strs(" B", "C ", "A"), want: Result{Score: 1, TotalQuestions: 3}},
		{
			name:    "kind must match",
			exam:    examWithAnswers(NumberAnswer(4), BoolAnswer(true), StringAnswer("4")),
			answers: []Answer{StringAnswer("4"), BoolAnswer(true), NumberAnswer(4)},
			want:    Result{Score: 1, TotalQuestions: 3},
		},
		{
			name:    "null matches null only",
			exam:    examWithAnswers(Answer{}, StringAnswer("")),
			answers: []Answer{{}, {}},
			want:    Result{Score: 1, TotalQuestions: 2},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Score(tc.exam, tc.answers)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("got %+v want %+v", got, tc.want)
			}
			if got.Score < 0 || got.Score > got.TotalQuestions {
				t.Fatalf("score %d out of range [0,%d]", got.Score, got.TotalQuestions)
			}
		})
	}
}

func TestScoreNilExam(t *testing.T) {
	if _, err := Score(nil, strs("A")); !errors.Is(err, ErrInvalidExam) {
		t.Fatalf("expected ErrInvalidExam, got %v", err)
	}
}

func TestScoreIsRepeatableAndDoesNotMutate(t *testing.T) {
	e := examWithAnswers(StringAnswer("B"), StringAnswer("C"), StringAnswer("A"))
	before := e.clone()
	answers := strs("B", "X", "A")

	first, _ := Score(e, answers)
	for i := 0; i < 5; i++ {
		got, err := Score(e, answers)
		if err != nil || got != first {
			t.Fatalf("run %d: got %+v err=%v, want %+v", i, got, err, first)
		}
	}
	if !reflect.DeepEqual(e, before) {
		t.Fatalf("exam mutated by scoring")
	}
}
