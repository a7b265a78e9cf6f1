package exam

import "time"

type Question struct {
	Text          string   `json:"text"`
	Options       []string `json:"options"`
	CorrectAnswer Answer   `json:"correctAnswer"`
}

type Exam struct {
	ID         string     `json:"id"`
	ExamCode   string     `json:"examCode"`
	Name       string     `json:"name"`
	TotalMarks float64    `json:"totalMarks"`
	Duration   int        `json:"duration"`
	Questions  []Question `json:"questions"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// StudentQuestion is a question as shown to a candidate, without its answer.
type StudentQuestion struct {
	Text    string   `json:"text"`
	Options []string `json:"options"`
}

type StudentExam struct {
	ID         string            `json:"id"`
	ExamCode   string            `json:"examCode"`
	Name       string            `json:"name"`
	TotalMarks float64           `json:"totalMarks"`
	Duration   int               `json:"duration"`
	Questions  []StudentQuestion `json:"questions"`
}

func (e *Exam) StudentView() StudentExam {
	out := StudentExam{
		ID:         e.ID,
		ExamCode:   e.ExamCode,
		Name:       e.Name,
		TotalMarks: e.TotalMarks,
		Duration:   e.Duration,
		Questions:  make([]StudentQuestion, 0, len(e.Questions)),
	}
	for _, q := range e.Questions {
		out.Questions = append(out.Questions, StudentQuestion{
			Text:    q.Text,
			Options: cloneOptions(q.Options),
		})
	}
	return out
}

func (e *Exam) clone() *Exam {
	cp := *e
	cp.Questions = make([]Question, len(e.Questions))
	for i, q := range e.Questions {
		q.Options = cloneOptions(q.Options)
		cp.Questions[i] = q
	}
	return &cp
}

func cloneOptions(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}

type RefKind string

const (
	RefByID   RefKind = "id"
	RefByCode RefKind = "code"
)

// Ref identifies an exam either by its store-assigned id or by its exam code.
type Ref struct {
	Kind  RefKind
	Value string
}

func ByID(id string) Ref     { return Ref{Kind: RefByID, Value: id} }
func ByCode(code string) Ref { return Ref{Kind: RefByCode, Value: code} }

func (r Ref) String() string {
	return string(r.Kind) + ":" + r.Value
}

type Result struct {
	Score          int `json:"score"`
	TotalQuestions int `json:"totalQuestions"`
}

type CreateExamInput struct {
	ExamCode   string
	Name       string
	TotalMarks float64
	Duration   int
	Questions  []Question
}

// BankQuestion is one question of a stored exam, as listed in the question bank.
// Position is 1-based within its exam.
type BankQuestion struct {
	ExamID        string   `json:"examId"`
	ExamCode      string   `json:"examCode"`
	Position      int      `json:"position"`
	Text          string   `json:"text"`
	Options       []string `json:"options"`
	CorrectAnswer Answer   `json:"correctAnswer"`
}
