package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"alphabot/domain/core"
	apperrors "alphabot/internal/errors"
)

type askRequest struct {
	Question string   `json:"question"`
	Files    []string `json:"files,omitempty"`
}

type askResponse struct {
	RequestID     string      `json:"request_id"`
	Question      string      `json:"question"`
	Answer        string      `json:"answer"`
	AnswerHTML    string      `json:"answer_html"`
	Plan          interface{} `json:"plan"`
	Result        interface{} `json:"result"`
	ElapsedMillis int64       `json:"elapsed_ms"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errorResponse{Code: apperrors.CodeInvalidInput, Message: "invalid JSON body"})
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, errorResponse{Code: apperrors.CodeInvalidInput, Field: "question", Message: "question is required"})
		return
	}

	answer, err := s.analysis.Ask(r.Context(), req.Question, req.Files)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, askResponse{
		RequestID:     answer.RequestID.String(),
		Question:      answer.Question,
		Answer:        answer.Narrative,
		AnswerHTML:    renderMarkdown(answer.Narrative),
		Plan:          answer.Plan,
		Result:        answer.Result,
		ElapsedMillis: answer.Elapsed.Milliseconds(),
	})
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	files := queryFiles(r)
	cat, err := s.analysis.Catalog(r.Context(), files)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cat)
}

func (s *Server) handleDiagnostics(w http.ResponseWriter, r *http.Request) {
	files := queryFiles(r)
	diag, err := s.analysis.Diagnostics(r.Context(), files)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, diag)
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	s.analysis.Reload(r.Context())
	writeJSON(w, http.StatusOK, map[string]string{"status": "reloaded"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeDomainError maps pipeline and plan errors onto HTTP statuses
// with a structured body the frontend can show directly.
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	var schemaErr *core.SchemaError
	var planErr *core.PlanValidationError
	var aggErr *core.AggregationError

	switch {
	case errors.As(err, &schemaErr):
		writeError(w, http.StatusBadRequest, errorResponse{
			Code:    apperrors.CodeSchemaError,
			Field:   schemaErr.Column,
			Message: schemaErr.Error(),
		})
	case errors.As(err, &planErr):
		writeError(w, http.StatusBadRequest, errorResponse{
			Code:    apperrors.CodePlanInvalid,
			Field:   planErr.Field,
			Message: planErr.Error(),
		})
	case errors.As(err, &aggErr):
		writeError(w, http.StatusBadRequest, errorResponse{
			Code:    apperrors.CodeAggregation,
			Field:   aggErr.Column,
			Message: aggErr.Error(),
		})
	case errors.Is(err, core.ErrNoData):
		writeError(w, http.StatusNotFound, errorResponse{
			Code:    apperrors.CodeNoData,
			Message: "no usable data in the selected files",
		})
	default:
		s.logger.Error("request failed: %v", err)
		writeError(w, http.StatusInternalServerError, errorResponse{
			Code:    apperrors.GetCode(err),
			Message: "internal error",
		})
	}
}

// renderMarkdown converts a narrated answer to HTML so chat frontends
// can show emphasis and lists without their own parser.
func renderMarkdown(md string) string {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.NoEmptyLineBeforeBlock)
	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags})
	return string(markdown.ToHTML([]byte(md), p, renderer))
}

func queryFiles(r *http.Request) []string {
	raw := strings.TrimSpace(r.URL.Query().Get("files"))
	if raw == "" {
		return nil
	}
	return strings.Split(raw, ",")
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, resp errorResponse) {
	writeJSON(w, status, resp)
}
