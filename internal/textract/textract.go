// Package textract turns uploaded resume documents into plain text.
package textract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"careeradvisor/internal/errors"
)

// DocumentType identifies how a document's bytes are decoded.
type DocumentType string

const (
	DocumentTypePDF  DocumentType = "pdf"
	DocumentTypeDOCX DocumentType = "docx"
	DocumentTypeText DocumentType = "text"
)

// DefaultMaxDocumentSize caps uploads at 10 MiB.
const DefaultMaxDocumentSize int64 = 10 << 20

var (
	pdfMagic = []byte("%PDF-")
	zipMagic = []byte("PK\x03\x04")
)

// Document is the text extracted from one upload.
type Document struct {
	Name  string       `json:"name"`
	Type  DocumentType `json:"type"`
	Text  string       `json:"-"`
	Pages int          `json:"pages"`
	Size  int64        `json:"size"`
}

// Extractor produces the plain text of an uploaded document.
type Extractor interface {
	ExtractText(ctx context.Context, name string, r io.Reader) (*Document, error)
}

// Options configures a Service.
type Options struct {
	MaxSize int64
	// TempDir holds transient copies of uploads; empty means os.TempDir().
	TempDir string
}

// Service extracts text from PDF, DOCX and plain text uploads.
type Service struct {
	maxSize int64
	tempDir string
	logger  *errors.Logger
}

// NewService creates a text extraction service.
func NewService(opts Options, logger *errors.Logger) *Service {
	maxSize := opts.MaxSize
	if maxSize <= 0 {
		maxSize = DefaultMaxDocumentSize
	}
	return &Service{maxSize: maxSize, tempDir: opts.TempDir, logger: logger}
}

// ExtractText reads r fully and returns its text. PDF pages are joined with
// a single newline in page order.
func (s *Service) ExtractText(ctx context.Context, name string, r io.Reader) (*Document, error) {
	tracer := otel.Tracer("careeradvisor.textract")
	ctx, span := tracer.Start(ctx, "textract.extract")
	defer span.End()

	doc, err := s.extract(ctx, name, r)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, errors.CodeOf(err))
		if s.logger != nil {
			s.logger.LogError(err, "Document extraction failed", "file_name", name)
		}
		return nil, err
	}

	span.SetAttributes(
		attribute.String("document.type", string(doc.Type)),
		attribute.Int("document.pages", doc.Pages),
		attribute.Int64("document.size", doc.Size),
		attribute.Int("document.text_length", len(doc.Text)),
	)
	if s.logger != nil {
		s.logger.Debug("Document extracted",
			"file_name", name,
			"type", doc.Type,
			"pages", doc.Pages,
			"text_length", len(doc.Text))
	}
	return doc, nil
}

func (s *Service) extract(ctx context.Context, name string, r io.Reader) (*Document, error) {
	if r == nil {
		return nil, errors.NewDocumentError(errors.ErrCodeEmptyDocument, "no document provided", nil)
	}

	data, err := io.ReadAll(io.LimitReader(r, s.maxSize+1))
	if err != nil {
		return nil, errors.NewDocumentError(errors.ErrCodeDocumentExtraction, "failed to read uploaded document", err).
			WithContext("file_name", name)
	}
	if int64(len(data)) > s.maxSize {
		return nil, errors.NewDocumentError(errors.ErrCodeDocumentTooLarge,
			fmt.Sprintf("document exceeds maximum size of %d bytes", s.maxSize), nil).
			WithContext("file_name", name)
	}
	if len(data) == 0 {
		return nil, errors.NewDocumentError(errors.ErrCodeEmptyDocument, "uploaded document is empty", nil).
			WithContext("file_name", name)
	}

	docType, err := DetectType(name, data)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, errors.NewDocumentError(errors.ErrCodeDocumentExtraction, "extraction cancelled", err)
	}

	doc := &Document{Name: name, Type: docType, Size: int64(len(data))}
	switch docType {
	case DocumentTypePDF:
		doc.Text, doc.Pages, err = s.extractPDF(data)
	case DocumentTypeDOCX:
		doc.Text, err = extractDOCX(data)
		doc.Pages = 1
	default:
		doc.Text, err = extractPlainText(data)
		doc.Pages = 1
	}
	if err != nil {
		if _, ok := errors.AsAppError(err); ok {
			return nil, err
		}
		return nil, errors.NewDocumentError(errors.ErrCodeDocumentExtraction,
			fmt.Sprintf("failed to extract text from %s document", docType), err).
			WithContext("file_name", name)
	}

	if strings.TrimSpace(doc.Text) == "" {
		return nil, errors.NewDocumentError(errors.ErrCodeEmptyDocument, "no text content found in document", nil).
			WithContext("file_name", name).
			WithContext("document_type", string(docType))
	}
	return doc, nil
}

// DetectType picks a document type from the file extension, falling back to
// the leading magic bytes when the extension is missing or unknown.
func DetectType(name string, data []byte) (DocumentType, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return DocumentTypePDF, nil
	case ".docx":
		return DocumentTypeDOCX, nil
	case ".txt", ".md", ".markdown", ".text":
		return DocumentTypeText, nil
	}

	switch {
	case bytes.HasPrefix(data, pdfMagic):
		return DocumentTypePDF, nil
	case bytes.HasPrefix(data, zipMagic):
		return DocumentTypeDOCX, nil
	case utf8.Valid(data) && !bytes.ContainsRune(data, 0):
		return DocumentTypeText, nil
	}

	return "", errors.NewDocumentError(errors.ErrCodeUnsupportedDocument,
		"unsupported document type; upload a PDF, DOCX or text file", nil).
		WithContext("file_name", name)
}

func extractPlainText(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", fmt.Errorf("document is not valid UTF-8 text")
	}
	return string(data), nil
}

// withTempFile writes data to a fresh temporary file, calls fn with its
// path, and removes the file before returning on every path.
func (s *Service) withTempFile(pattern string, data []byte, fn func(path string) error) (err error) {
	tmp, err := os.CreateTemp(s.tempDir, pattern)
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	path := tmp.Name()
	defer func() {
		if removeErr := os.Remove(path); removeErr != nil && !os.IsNotExist(removeErr) && s.logger != nil {
			s.logger.Warn("Failed to remove temporary document", "path", path, "error", removeErr)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write temporary file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temporary file: %w", err)
	}

	return fn(path)
}
