package exam

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrNotFound         = errors.New("exam not found")
	ErrInvalidExam      = errors.New("invalid exam")
	ErrPersistenceError = errors.New("exam persistence failed")
	ErrStoreUnavailable = errors.New("exam store unavailable")
)

// Store is the persistence collaborator for exams. Implementations report a
// miss as ErrNotFound, read failures as ErrStoreUnavailable and write
// failures as ErrPersistenceError.
type Store interface {
	Find(ctx context.Context, id string) (*Exam, error)
	FindByCode(ctx context.Context, code string) (*Exam, error)
	Save(ctx context.Context, e *Exam) (*Exam, error)
	List(ctx context.Context) ([]Exam, error)
}

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

func (s *Service) LookupExam(ctx context.Context, ref Ref) (*Exam, error) {
	if ref.Value == "" {
		return nil, ErrNotFound
	}
	switch ref.Kind {
	case RefByID:
		return s.store.Find(ctx, ref.Value)
	case RefByCode:
		return s.store.FindByCode(ctx, ref.Value)
	default:
		return nil, fmt.Errorf("unknown reference kind %q: %w", ref.Kind, ErrNotFound)
	}
}

// Submit scores answers against the referenced exam. Nothing is persisted.
func (s *Service) Submit(ctx context.Context, ref Ref, answers []Answer) (*Result, error) {
	e, err := s.LookupExam(ctx, ref)
	if err != nil {
		return nil, err
	}
	res, err := Score(e, answers)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (s *Service) CreateExam(ctx context.Context, in CreateExamInput) (*Exam, error) {
	questions := in.Questions
	if questions == nil {
		questions = []Question{}
	}
	return s.store.Save(ctx, &Exam{
		ExamCode:   in.ExamCode,
		Name:       in.Name,
		TotalMarks: in.TotalMarks,
		Duration:   in.Duration,
		Questions:  questions,
	})
}

func (s *Service) ListExams(ctx context.Context) ([]Exam, error) {
	return s.store.List(ctx)
}

// ListQuestions flattens every stored exam into its questions, exams in
// List order and questions in exam order.
func (s *Service) ListQuestions(ctx context.Context) ([]BankQuestion, error) {
	exams, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]BankQuestion, 0)
	for _, e := range exams {
		for i, q := range e.Questions {
			out = append(out, BankQuestion{
				ExamID:        e.ID,
				ExamCode:      e.ExamCode,
				Position:      i + 1,
				Text:          q.Text,
				Options:       cloneOptions(q.Options),
				CorrectAnswer: q.CorrectAnswer,
			})
		}
	}
	return out, nil
}
