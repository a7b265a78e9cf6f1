package exam

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

var ErrInvalidWorkbook = errors.New("invalid exam workbook")

type ImportExcelInput struct {
	ExamCode   string
	Name       string
	TotalMarks float64
	Duration   int
}

type ImportRowError struct {
	Row   int    `json:"row"`
	Error string `json:"error"`
}

type ImportReport struct {
	Exam         *Exam            `json:"exam"`
	TotalRows    int              `json:"totalRows"`
	ImportedRows int              `json:"importedRows"`
	FailedRows   int              `json:"failedRows"`
	Errors       []ImportRowError `json:"errors"`
}

// ImportExcel creates an exam from the first sheet of an .xlsx workbook.
// Header columns: text, option_1..option_n, correct_answer. Cells are read
// as strings, so imported correct answers are string answers even when the
// exported answer was a number, bool or null.
func (s *Service) ImportExcel(ctx context.Context, in ImportExcelInput, r io.Reader) (*ImportReport, error) {
	questions, report, err := ParseExamWorkbook(r)
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("%w: no valid question rows", ErrInvalidWorkbook)
	}

	created, err := s.CreateExam(ctx, CreateExamInput{
		ExamCode:   in.ExamCode,
		Name:       in.Name,
		TotalMarks: in.TotalMarks,
		Duration:   in.Duration,
		Questions:  questions,
	})
	if err != nil {
		return nil, err
	}
	report.Exam = created
	return report, nil
}

func ParseExamWorkbook(r io.Reader) ([]Question, *ImportReport, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: open excel: %w", ErrInvalidWorkbook, err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, fmt.Errorf("%w: excel sheet is empty", ErrInvalidWorkbook)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, nil, fmt.Errorf("%w: read rows: %w", ErrInvalidWorkbook, err)
	}
	if len(rows) < 2 {
		return nil, nil, fmt.Errorf("%w: no data rows found", ErrInvalidWorkbook)
	}

	header := map[string]int{}
	optionCols := make([]int, 0)
	for i, h := range rows[0] {
		key := strings.ToLower(strings.TrimSpace(h))
		header[key] = i
		if strings.HasPrefix(key, "option") {
			optionCols = append(optionCols, i)
		}
	}
	for _, col := range []string{"text", "correct_answer"} {
		if _, ok := header[col]; !ok {
			return nil, nil, fmt.Errorf("%w: missing required column: %s", ErrInvalidWorkbook, col)
		}
	}

	report := &ImportReport{Errors: make([]ImportRowError, 0)}
	questions := make([]Question, 0, len(rows)-1)
	for i := 1; i < len(rows); i++ {
		row := rows[i]
		if isBlankRow(row) {
			continue
		}
		report.TotalRows++

		cell := func(idx int) string {
			if idx >= len(row) {
				return ""
			}
			return row[idx]
		}

		text := strings.TrimSpace(cell(header["text"]))
		correct := cell(header["correct_answer"])
		if text == "" || correct == "" {
			report.FailedRows++
			report.Errors = append(report.Errors, ImportRowError{
				Row:   i + 1,
				Error: "text and correct_answer are required",
			})
			continue
		}

		// Interior blanks keep their position; only the trailing padding
		// written for shorter rows is dropped.
		options := make([]string, 0, len(optionCols))
		for _, idx := range optionCols {
			options = append(options, cell(idx))
		}
		for len(options) > 0 && options[len(options)-1] == "" {
			options = options[:len(options)-1]
		}
		questions = append(questions, Question{
			Text:          text,
			Options:       options,
			CorrectAnswer: StringAnswer(correct),
		})
		report.ImportedRows++
	}
	return questions, report, nil
}

func (s *Service) ExportExcel(ctx context.Context, ref Ref) ([]byte, error) {
	e, err := s.LookupExam(ctx, ref)
	if err != nil {
		return nil, err
	}
	return WriteExamWorkbook(e)
}

func WriteExamWorkbook(e *Exam) ([]byte, error) {
	if e == nil {
		return nil, ErrInvalidExam
	}
	maxOptions := 0
	for _, q := range e.Questions {
		if len(q.Options) > maxOptions {
			maxOptions = len(q.Options)
		}
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	sheet := f.GetSheetName(0)

	headers := []string{"text"}
	for i := 1; i <= maxOptions; i++ {
		headers = append(headers, "option_"+strconv.Itoa(i))
	}
	headers = append(headers, "correct_answer")
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for i, q := range e.Questions {
		row := i + 2
		values := make([]any, 0, len(headers))
		values = append(values, q.Text)
		for j := 0; j < maxOptions; j++ {
			if j < len(q.Options) {
				values = append(values, q.Options[j])
			} else {
				values = append(values, "")
			}
		}
		values = append(values, q.CorrectAnswer.String())
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}
	lastCol, _ := excelize.ColumnNumberToName(len(headers))
	_ = f.SetColWidth(sheet, "A", lastCol, 24)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write excel: %w", err)
	}
	return buf.Bytes(), nil
}

func isBlankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
