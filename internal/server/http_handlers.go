package server

import (
	stderrors "errors"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"

	"careeradvisor/internal/advisor"
	"careeradvisor/internal/errors"
	"careeradvisor/internal/types"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	formFieldResume         = "resume"
	formFieldJobDescription = "job_description"
	formFieldResumeText     = "resume_text"

	multipartMemory = 8 << 20
)

// submission is one parsed analysis request. Exactly one of file and
// resumeText is set when the request is complete.
type submission struct {
	fileName       string
	file           multipart.File
	resumeText     string
	jobDescription string
}

func (sub *submission) close() {
	if sub.file != nil {
		_ = sub.file.Close()
	}
}

func (sub *submission) hasResume() bool {
	return sub.file != nil || strings.TrimSpace(sub.resumeText) != ""
}

// parseMultipartSubmission reads the analysis form. A missing resume file
// is not an error here so callers can report missing input uniformly.
func parseMultipartSubmission(r *http.Request) (*submission, error) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		if stderrors.Is(err, http.ErrNotMultipart) {
			return nil, errors.NewValidationError(errors.ErrCodeInvalidRequest, "expected a multipart form", err)
		}
		return nil, readBodyError(err)
	}

	sub := &submission{
		jobDescription: r.FormValue(formFieldJobDescription),
		resumeText:     r.FormValue(formFieldResumeText),
	}

	file, header, err := r.FormFile(formFieldResume)
	switch {
	case err == nil:
		if header.Size == 0 {
			_ = file.Close()
			break
		}
		sub.file = file
		sub.fileName = header.Filename
	case stderrors.Is(err, http.ErrMissingFile):
	default:
		return nil, readBodyError(err)
	}

	return sub, nil
}

func (s *Server) runSubmission(r *http.Request, sub *submission) (*types.Outcome, error) {
	if !sub.hasResume() || strings.TrimSpace(sub.jobDescription) == "" {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidRequest, advisor.MissingInputMessage, nil)
	}
	if sub.file != nil {
		return s.analyzer.Analyze(r.Context(), sub.fileName, sub.file, sub.jobDescription)
	}
	return s.analyzer.AnalyzeText(r.Context(), types.AnalysisRequest{
		ResumeText:         sub.resumeText,
		JobDescriptionText: sub.jobDescription,
	})
}

// apiAnalyzeHandler accepts either a multipart upload or a JSON body with
// the resume already in text form.
func (s *Server) apiAnalyzeHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.om.Tracer("careeradvisor.api").Start(r.Context(), "api.analyze")
	defer span.End()
	r = r.WithContext(ctx)

	var sub *submission
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "multipart/form-data":
		parsed, err := parseMultipartSubmission(r)
		if err != nil {
			s.failRequest(w, r, span, err)
			return
		}
		sub = parsed
	case "application/json":
		var req AnalyzeRequest
		if err := parseJSONRequest(r, &req); err != nil {
			s.failRequest(w, r, span, err)
			return
		}
		sub = &submission{resumeText: req.ResumeText, jobDescription: req.JobDescription}
	default:
		s.failRequest(w, r, span, errors.NewValidationError(errors.ErrCodeInvalidRequest,
			"content-type must be multipart/form-data or application/json", nil))
		return
	}
	defer sub.close()

	span.SetAttributes(
		attribute.Bool("request.has_file", sub.file != nil),
		attribute.Int("request.job_length", len(sub.jobDescription)),
	)

	outcome, err := s.runSubmission(r, sub)
	if err != nil {
		s.failRequest(w, r, span, err)
		return
	}

	span.SetAttributes(attribute.Bool("success", outcome.Succeeded()))
	if err := writeJSON(w, http.StatusOK, AnalysisResponse{Success: outcome.Succeeded(), Outcome: outcome}); err != nil {
		span.RecordError(err)
	}
}

// apiExtractHandler runs completion extraction on caller supplied text.
func (s *Server) apiExtractHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.om.Tracer("careeradvisor.api").Start(r.Context(), "api.extract")
	defer span.End()
	r = r.WithContext(ctx)

	var req ExtractRequest
	if err := parseJSONRequest(r, &req); err != nil {
		s.failRequest(w, r, span, err)
		return
	}
	if strings.TrimSpace(req.Completion) == "" {
		s.failRequest(w, r, span, errors.NewValidationError(errors.ErrCodeInvalidRequest,
			"completion field is required", nil))
		return
	}

	outcome := s.analyzer.Interpret(r.Context(), req.Completion)
	span.SetAttributes(
		attribute.Bool("success", outcome.Succeeded()),
		attribute.String("extraction.strategy", outcome.Strategy),
	)
	if err := writeJSON(w, http.StatusOK, AnalysisResponse{Success: outcome.Succeeded(), Outcome: outcome}); err != nil {
		span.RecordError(err)
	}
}

// indexHandler renders the upload form.
func (s *Server) indexHandler(w http.ResponseWriter, r *http.Request) {
	s.pages.renderIndex(w, http.StatusOK, indexView{})
}

// analyzePageHandler handles the HTML form submission.
func (s *Server) analyzePageHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.om.Tracer("careeradvisor.api").Start(r.Context(), "web.analyze")
	defer span.End()
	r = r.WithContext(ctx)

	sub, err := parseMultipartSubmission(r)
	if err != nil {
		s.failPage(w, r, span, err, "")
		return
	}
	defer sub.close()

	outcome, err := s.runSubmission(r, sub)
	if err != nil {
		s.failPage(w, r, span, err, sub.jobDescription)
		return
	}

	s.pages.renderResult(w, http.StatusOK, newResultView(outcome))
}

func (s *Server) failRequest(w http.ResponseWriter, r *http.Request, span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, errors.CodeOf(err))
	s.logRequestError(r, err)
	s.writeAppError(w, r, err)
}

func (s *Server) failPage(w http.ResponseWriter, r *http.Request, span trace.Span, err error, jobDescription string) {
	span.RecordError(err)
	span.SetStatus(codes.Error, errors.CodeOf(err))
	s.logRequestError(r, err)

	message := userMessage(err)
	if errors.TypeOf(err) != errors.ErrorTypeValidation {
		message = errorTitle(err) + ": " + message
	}
	s.pages.renderIndex(w, statusForError(err), indexView{
		Error:          message,
		JobDescription: jobDescription,
		RequestID:      requestIDOf(r),
	})
}

func (s *Server) logRequestError(r *http.Request, err error) {
	if errors.TypeOf(err) == errors.ErrorTypeValidation {
		s.Logger.Debug("Rejected request",
			"endpoint", r.URL.Path,
			"request_id", requestIDOf(r),
			"error", err.Error())
		return
	}
	s.Logger.LogError(err, "Request failed",
		"endpoint", r.URL.Path,
		"request_id", requestIDOf(r))
}

func userMessage(err error) string {
	if statusForError(err) == http.StatusInternalServerError {
		return "An unexpected error occurred"
	}
	if appErr, ok := errors.AsAppError(err); ok {
		return appErr.Message
	}
	return err.Error()
}
