package exam

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SQLStore keeps exams in the exams table, questions as a JSON document column.
// It runs unchanged on PostgreSQL (pgx) and SQLite.
type SQLStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db, now: time.Now}
}

const examColumns = `id, exam_code, name, total_marks, duration_minutes, questions_json, created_at`

func (s *SQLStore) Find(ctx context.Context, id string) (*Exam, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+examColumns+`
		FROM exams
		WHERE id = $1
	`, id)
	e, err := scanExam(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: query exam by id: %w", ErrStoreUnavailable, err)
	}
	return e, nil
}

func (s *SQLStore) FindByCode(ctx context.Context, code string) (*Exam, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+examColumns+`
		FROM exams
		WHERE exam_code = $1
		ORDER BY created_at ASC, id ASC
		LIMIT 1
	`, code)
	e, err := scanExam(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: query exam by code: %w", ErrStoreUnavailable, err)
	}
	return e, nil
}

func (s *SQLStore) Save(ctx context.Context, e *Exam) (*Exam, error) {
	if e == nil {
		return nil, ErrInvalidExam
	}
	stored := e.clone()
	if stored.Questions == nil {
		stored.Questions = []Question{}
	}
	qj, err := json.Marshal(stored.Questions)
	if err != nil {
		return nil, fmt.Errorf("%w: encode questions: %w", ErrPersistenceError, err)
	}
	stored.ID = uuid.NewString()
	stored.CreatedAt = s.now().UTC().Truncate(time.Millisecond)

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO exams (
			id, exam_code, name, total_marks, duration_minutes, questions_json, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7
		)
	`, stored.ID, stored.ExamCode, stored.Name, stored.TotalMarks, stored.Duration, string(qj), stored.CreatedAt.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("%w: insert exam: %w", ErrPersistenceError, err)
	}
	return stored, nil
}

func (s *SQLStore) List(ctx context.Context) ([]Exam, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+examColumns+`
		FROM exams
		ORDER BY created_at DESC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("%w: list exams: %w", ErrStoreUnavailable, err)
	}
	defer rows.Close()

	out := make([]Exam, 0)
	for rows.Next() {
		e, err := scanExam(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan exam: %w", ErrStoreUnavailable, err)
		}
		out = append(out, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate exams: %w", ErrStoreUnavailable, err)
	}
	return out, nil
}

func scanExam(scanner interface{ Scan(dest ...any) error }) (*Exam, error) {
	var e Exam
	var qjson string
	var createdAt int64
	if err := scanner.Scan(&e.ID, &e.ExamCode, &e.Name, &e.TotalMarks, &e.Duration, &qjson, &createdAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(qjson), &e.Questions); err != nil {
		return nil, fmt.Errorf("decode questions of exam %s: %w", e.ID, err)
	}
	if e.Questions == nil {
		e.Questions = []Question{}
	}
	e.CreatedAt = time.UnixMilli(createdAt).UTC()
	return &e, nil
}
