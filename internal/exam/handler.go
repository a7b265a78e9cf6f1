package exam

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"examscore/internal/app/apiresp"
	"examscore/internal/app/observability"
	"examscore/internal/auth"

	"github.com/go-chi/chi/v5"
)

const maxWorkbookBytes = 10 << 20

type Handler struct {
	svc examService
}

type examService interface {
	LookupExam(ctx context.Context, ref Ref) (*Exam, error)
	Submit(ctx context.Context, ref Ref, answers []Answer) (*Result, error)
	CreateExam(ctx context.Context, in CreateExamInput) (*Exam, error)
	ListExams(ctx context.Context) ([]Exam, error)
	ListQuestions(ctx context.Context) ([]BankQuestion, error)
	ImportExcel(ctx context.Context, in ImportExcelInput, r io.Reader) (*ImportReport, error)
	ExportExcel(ctx context.Context, ref Ref) ([]byte, error)
}

type createExamRequest struct {
	ExamCode  string     `json:"examCode"`
	Name      string     `json:"name"`
	Marks     float64    `json:"marks"`
	Duration  int        `json:"duration"`
	Questions []Question `json:"questions"`
}

type submitRequest struct {
	ExamID   string   `json:"examId"`
	ExamCode string   `json:"examCode"`
	Answers  []Answer `json:"answers"`
}

type submitByCodeRequest struct {
	Answers []Answer `json:"answers"`
}

func NewHandler(svc examService) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ListExams(r.Context())
	if err != nil {
		h.writeServiceError(w, r, "list exams", err)
		return
	}

	observability.RecordOutcome(r.Context(), observability.OutcomeOK)
	if isLecturer(r) {
		apiresp.WriteOK(w, r, http.StatusOK, items)
		return
	}
	views := make([]StudentExam, 0, len(items))
	for i := range items {
		views = append(views, items[i].StudentView())
	}
	apiresp.WriteOK(w, r, http.StatusOK, views)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createExamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, r, "invalid request body")
		return
	}
	if strings.TrimSpace(req.ExamCode) == "" {
		badRequest(w, r, "examCode is required")
		return
	}

	created, err := h.svc.CreateExam(r.Context(), CreateExamInput{
		ExamCode:   req.ExamCode,
		Name:       req.Name,
		TotalMarks: req.Marks,
		Duration:   req.Duration,
		Questions:  req.Questions,
	})
	if err != nil {
		h.writeServiceError(w, r, "create exam", err)
		return
	}
	observability.RecordOutcome(r.Context(), observability.OutcomeOK)
	apiresp.WriteOK(w, r, http.StatusCreated, created)
}

func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxWorkbookBytes)
	if err := r.ParseMultipartForm(maxWorkbookBytes); err != nil {
		badRequest(w, r, "invalid multipart form")
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		badRequest(w, r, "file is required")
		return
	}
	defer file.Close()

	in := ImportExcelInput{
		ExamCode: strings.TrimSpace(r.FormValue("examCode")),
		Name:     strings.TrimSpace(r.FormValue("name")),
	}
	if in.ExamCode == "" {
		badRequest(w, r, "examCode is required")
		return
	}
	if v := strings.TrimSpace(r.FormValue("marks")); v != "" {
		marks, err := strconv.ParseFloat(v, 64)
		if err != nil {
			badRequest(w, r, "invalid marks")
			return
		}
		in.TotalMarks = marks
	}
	if v := strings.TrimSpace(r.FormValue("duration")); v != "" {
		duration, err := strconv.Atoi(v)
		if err != nil {
			badRequest(w, r, "invalid duration")
			return
		}
		in.Duration = duration
	}

	report, err := h.svc.ImportExcel(r.Context(), in, file)
	if err != nil {
		if errors.Is(err, ErrInvalidWorkbook) {
			badRequest(w, r, err.Error())
			return
		}
		h.writeServiceError(w, r, "import exam", err)
		return
	}
	observability.RecordOutcome(r.Context(), observability.OutcomeOK)
	apiresp.WriteOK(w, r, http.StatusCreated, report)
}

func (h *Handler) GetByCode(w http.ResponseWriter, r *http.Request) {
	e, err := h.svc.LookupExam(r.Context(), ByCode(chi.URLParam(r, "code")))
	if err != nil {
		h.writeServiceError(w, r, "get exam", err)
		return
	}
	observability.RecordOutcome(r.Context(), observability.OutcomeOK)
	if isLecturer(r) {
		apiresp.WriteOK(w, r, http.StatusOK, e)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, e.StudentView())
}

func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	data, err := h.svc.ExportExcel(r.Context(), ByCode(code))
	if err != nil {
		h.writeServiceError(w, r, "export exam", err)
		return
	}
	observability.RecordOutcome(r.Context(), observability.OutcomeOK)
	apiresp.WriteFile(w, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "exam-"+sanitizeFilename(code)+".xlsx", data)
}

func (h *Handler) SubmitByCode(w http.ResponseWriter, r *http.Request) {
	var req submitByCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, r, "invalid request body")
		return
	}
	h.submit(w, r, ByCode(chi.URLParam(r, "code")), req.Answers)
}

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, r, "invalid request body")
		return
	}

	var ref Ref
	switch {
	case req.ExamID != "" && req.ExamCode != "":
		badRequest(w, r, "provide either examId or examCode, not both")
		return
	case req.ExamID != "":
		ref = ByID(req.ExamID)
	case req.ExamCode != "":
		ref = ByCode(req.ExamCode)
	default:
		badRequest(w, r, "examId or examCode is required")
		return
	}
	h.submit(w, r, ref, req.Answers)
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request, ref Ref, answers []Answer) {
	res, err := h.svc.Submit(r.Context(), ref, answers)
	if err != nil {
		h.writeServiceError(w, r, "submit "+ref.String(), err)
		return
	}
	observability.RecordOutcome(r.Context(), observability.OutcomeOK)
	apiresp.WriteOK(w, r, http.StatusOK, res)
}

// Questions lists every stored question flattened with its exam code and position.
func (h *Handler) Questions(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ListQuestions(r.Context())
	if err != nil {
		h.writeServiceError(w, r, "list questions", err)
		return
	}
	observability.RecordOutcome(r.Context(), observability.OutcomeOK)
	apiresp.WriteOK(w, r, http.StatusOK, items)
}

func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	observability.RecordOutcome(r.Context(), outcomeOf(err))
	if errors.Is(err, ErrNotFound) {
		apiresp.WriteError(w, r, http.StatusNotFound, "exam not found")
		return
	}
	log.Printf("%s: %v", op, err)
	apiresp.WriteError(w, r, http.StatusInternalServerError, "server error")
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return observability.OutcomeOK
	case errors.Is(err, ErrNotFound):
		return observability.OutcomeNotFound
	case errors.Is(err, ErrStoreUnavailable):
		return observability.OutcomeStoreUnavailable
	case errors.Is(err, ErrPersistenceError):
		return observability.OutcomePersistenceError
	case errors.Is(err, ErrInvalidExam):
		return observability.OutcomeInvalidExam
	default:
		return observability.OutcomeError
	}
}

func badRequest(w http.ResponseWriter, r *http.Request, msg string) {
	observability.RecordOutcome(r.Context(), observability.OutcomeInvalidRequest)
	apiresp.WriteError(w, r, http.StatusBadRequest, msg)
}

func isLecturer(r *http.Request) bool {
	user, ok := auth.CurrentUser(r.Context())
	return ok && user.Role == auth.RoleLecturer
}

func sanitizeFilename(s string) string {
	var b strings.Builder
	for _, c := range s {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
			b.WriteRune(c)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
