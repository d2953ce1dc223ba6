package http

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"metalwatch-service/internal/app"
	"metalwatch-service/internal/domain"
	"metalwatch-service/internal/index"
)

// Caller identity is resolved upstream and forwarded in these headers.
const (
	HeaderUserID   = "X-User-ID"
	HeaderUserName = "X-User-Name"
)

const maxLeaderboardLimit = 100

type Handler struct {
	pollution *app.PollutionService
	quiz      *app.QuizService
	validate  *validator.Validate
	log       logrus.FieldLogger
}

func NewHandler(pollution *app.PollutionService, quiz *app.QuizService, log logrus.FieldLogger) *Handler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return &Handler{pollution: pollution, quiz: quiz, validate: v, log: log}
}

// Register mounts every REST route on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/indices", h.computeIndices)
	mux.HandleFunc("POST /api/pollution", h.recordSample)
	mux.HandleFunc("GET /api/pollution/mine", h.mySamples)
	mux.HandleFunc("GET /api/pollution/locations", h.locations)
	mux.HandleFunc("GET /api/pollution/summary", h.summary)
	mux.HandleFunc("GET /api/pollution/export.csv", h.exportCSV)
	mux.HandleFunc("GET /api/quiz/questions", h.questions)
	mux.HandleFunc("POST /api/quiz/submit", h.submitQuiz)
	mux.HandleFunc("GET /api/quiz/mine", h.myAttempts)
	mux.HandleFunc("GET /api/quiz/leaderboard", h.leaderboard)
}

type indicesRequest struct {
	Concentration    *float64 `json:"concentration" validate:"required"`
	PermissibleLimit *float64 `json:"permissibleLimit" validate:"required"`
}

type indicesResponse struct {
	domain.Indices
	Class index.Class `json:"class"`
}

func (r indicesResponse) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		CF    domain.Number `json:"cf"`
		IGeo  domain.Number `json:"iGeo"`
		PLI   domain.Number `json:"pli"`
		Class index.Class   `json:"class"`
	}{domain.Number(r.CF), domain.Number(r.IGeo), domain.Number(r.PLI), r.Class})
}

type sampleRequest struct {
	Location         string   `json:"location" validate:"required"`
	Metal            string   `json:"metal" validate:"required"`
	Concentration    *float64 `json:"concentration" validate:"required"`
	PermissibleLimit *float64 `json:"permissibleLimit" validate:"required"`
}

type submitRequest struct {
	Answers []string `json:"answers" validate:"required"`
}

type errorPayload struct {
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func (h *Handler) computeIndices(w http.ResponseWriter, r *http.Request) {
	var req indicesRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	ix := index.Compute(*req.Concentration, *req.PermissibleLimit)
	writeJSON(w, http.StatusOK, indicesResponse{Indices: ix, Class: index.Classify(ix.CF)})
}

func (h *Handler) recordSample(w http.ResponseWriter, r *http.Request) {
	owner, err := requireUser(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	var req sampleRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	sample, err := h.pollution.Record(r.Context(), domain.SampleInput{
		Owner:            owner,
		Location:         req.Location,
		Metal:            req.Metal,
		Concentration:    *req.Concentration,
		PermissibleLimit: *req.PermissibleLimit,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.log.WithFields(logrus.Fields{"location": sample.Location, "metal": sample.Metal, "owner": owner}).Info("sample recorded")
	writeJSON(w, http.StatusCreated, sample)
}

func (h *Handler) mySamples(w http.ResponseWriter, r *http.Request) {
	owner, err := requireUser(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	history, err := h.pollution.History(r.Context(), owner)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func (h *Handler) locations(w http.ResponseWriter, r *http.Request) {
	aggregates, err := h.pollution.Locations(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, aggregates)
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	owner, err := requireUser(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	summary, err := h.pollution.Summary(r.Context(), owner)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) exportCSV(w http.ResponseWriter, r *http.Request) {
	owner, err := requireUser(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	history, err := h.pollution.History(r.Context(), owner)
	if err != nil {
		h.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="pollution_data.csv"`)
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"Location", "Metal", "Concentration", "Permissible Limit", "CF", "I-Geo", "PLI", "Date"})
	for _, s := range history.Samples {
		_ = cw.Write([]string{
			s.Location,
			s.Metal,
			strconv.FormatFloat(s.Concentration, 'f', -1, 64),
			strconv.FormatFloat(s.PermissibleLimit, 'f', -1, 64),
			fixed3(s.Indices.CF),
			fixed3(s.Indices.IGeo),
			fixed3(s.Indices.PLI),
			s.CreatedAt.Format("2006-01-02"),
		})
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		h.log.WithError(err).Warn("csv export failed")
	}
}

func (h *Handler) questions(w http.ResponseWriter, r *http.Request) {
	bank, err := h.quiz.Questions(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bank.Public())
}

func (h *Handler) submitQuiz(w http.ResponseWriter, r *http.Request) {
	subject, err := requireUser(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	var req submitRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	displayName := r.Header.Get(HeaderUserName)
	if displayName == "" {
		displayName = subject
	}
	attempt, err := h.quiz.Submit(r.Context(), subject, displayName, req.Answers)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, attempt)
}

func (h *Handler) myAttempts(w http.ResponseWriter, r *http.Request) {
	subject, err := requireUser(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	attempts, err := h.quiz.History(r.Context(), subject)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, attempts)
}

func (h *Handler) leaderboard(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			h.writeError(w, domain.Invalid("limit", "must be a non-negative integer"))
			return
		}
		limit = min(n, maxLeaderboardLimit)
	}
	lb, err := h.quiz.Leaderboard(r.Context(), limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lb)
}

func (h *Handler) decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return domain.Invalid(typeErr.Field, "must be %s", typeErr.Type.String())
		}
		return domain.Invalid("", "malformed JSON body: %v", err)
	}
	if err := h.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return domain.Invalid(verrs[0].Field(), "failed %q validation", verrs[0].Tag())
		}
		return domain.Invalid("", "%v", err)
	}
	return nil
}

func requireUser(r *http.Request) (string, error) {
	user := strings.TrimSpace(r.Header.Get(HeaderUserID))
	if user == "" {
		return "", domain.Invalid(HeaderUserID, "header is required")
	}
	return user, nil
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorPayload{Message: verr.Error(), Field: verr.Field})
	case errors.Is(err, domain.ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, errorPayload{Message: err.Error()})
	case errors.Is(err, domain.ErrQuestionBankNotFound), errors.Is(err, domain.ErrAttemptNotFound):
		writeJSON(w, http.StatusNotFound, errorPayload{Message: err.Error()})
	default:
		h.log.WithError(err).Error("request failed")
		writeJSON(w, http.StatusInternalServerError, errorPayload{Message: "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func fixed3(f float64) string {
	return fmt.Sprintf("%.3f", f)
}
