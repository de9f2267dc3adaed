package server

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	"careeradvisor/internal/extract"
	"careeradvisor/internal/types"
)

//go:embed templates/*.html
var templateFS embed.FS

type indexView struct {
	Error          string
	JobDescription string
	RequestID      string
}

type resultView struct {
	Result    *types.AnalysisResult
	Failure   *types.ExtractionFailure
	Message   string
	Warnings  []string
	Strategy  string
	RequestID string
}

func newResultView(outcome *types.Outcome) resultView {
	view := resultView{
		Warnings:  outcome.Warnings,
		Strategy:  outcome.Strategy,
		RequestID: outcome.RequestID,
	}
	if outcome.Succeeded() {
		view.Result = outcome.Result
		return view
	}

	view.Failure = outcome.Failure
	view.Message = extract.FailureMessage
	if outcome.Failure != nil && outcome.Failure.Message != "" {
		view.Message = outcome.Failure.Message
	}
	return view
}

type pageRenderer struct {
	templates *template.Template
}

func newPageRenderer() (*pageRenderer, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &pageRenderer{templates: tmpl}, nil
}

func (p *pageRenderer) renderIndex(w http.ResponseWriter, status int, view indexView) {
	p.render(w, status, "index.html", view)
}

func (p *pageRenderer) renderResult(w http.ResponseWriter, status int, view resultView) {
	p.render(w, status, "result.html", view)
}

// render executes into a buffer first so template errors never produce a
// half-written page.
func (p *pageRenderer) render(w http.ResponseWriter, status int, name string, data any) {
	var buf bytes.Buffer
	if err := p.templates.ExecuteTemplate(&buf, name, data); err != nil {
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
