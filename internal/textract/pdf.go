package textract

import (
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// pageSource is the subset of a PDF reader used to collect page text.
type pageSource interface {
	NumPage() int
	PageText(num int) (string, error)
}

type pdfPages struct {
	reader *pdf.Reader
}

func (p pdfPages) NumPage() int {
	return p.reader.NumPage()
}

func (p pdfPages) PageText(num int) (string, error) {
	page := p.reader.Page(num)
	if page.V.IsNull() {
		return "", nil
	}
	return page.GetPlainText(nil)
}

// extractPDF stages data in a temporary file for the PDF reader and returns
// the joined page text with the page count.
func (s *Service) extractPDF(data []byte) (text string, pages int, err error) {
	err = s.withTempFile("careeradvisor-*.pdf", data, func(path string) error {
		text, pages, err = readPDFFile(path)
		return err
	})
	return text, pages, err
}

func readPDFFile(path string) (text string, pages int, err error) {
	// The reader panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			text, pages = "", 0
			err = fmt.Errorf("malformed PDF: %v", r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	src := pdfPages{reader: r}
	text, err = joinPages(src)
	if err != nil {
		return "", 0, err
	}
	return text, src.NumPage(), nil
}

// joinPages concatenates every page's text in order, separated by "\n".
func joinPages(src pageSource) (string, error) {
	total := src.NumPage()
	if total == 0 {
		return "", fmt.Errorf("PDF has no pages")
	}

	parts := make([]string, 0, total)
	for num := 1; num <= total; num++ {
		pageText, err := src.PageText(num)
		if err != nil {
			return "", fmt.Errorf("failed to read page %d: %w", num, err)
		}
		parts = append(parts, pageText)
	}
	return strings.Join(parts, "\n"), nil
}
