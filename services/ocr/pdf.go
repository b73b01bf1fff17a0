package ocr

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// minTextLayerRunes is the smallest embedded text that is taken as a real text layer.
// Scanned PDFs often carry only a few stray characters.
const minTextLayerRunes = 20

// pdfTextLayer returns the embedded text of a PDF, page by page.
func pdfTextLayer(content []byte) (text string, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("read pdf: %v", recovered)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	var buf strings.Builder
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("extract page %d: %w", i, err)
		}
		buf.WriteString(pageText)
		if i < numPages {
			buf.WriteByte('\n')
		}
	}

	return buf.String(), nil
}

func hasTextLayer(text string) bool {
	return utf8.RuneCountInString(strings.Join(strings.Fields(text), "")) >= minTextLayerRunes
}
