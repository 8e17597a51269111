package pdftext

import (
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// readPlainText extracts the text of every page with the pure-Go reader,
// separating pages with form feeds the same way pdftotext does. The reader
// panics on some malformed files, so panics are turned into errors.
func readPlainText(path string) (text string, pages int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf reader panic: %v", r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	var b strings.Builder
	total := r.NumPage()
	for i := 1; i <= total; i++ {
		p := r.Page(i)
		if !p.V.IsNull() {
			s, err := p.GetPlainText(nil)
			if err != nil {
				return "", 0, fmt.Errorf("page %d: %w", i, err)
			}
			b.WriteString(s)
		}
		b.WriteString("\f")
	}
	return b.String(), total, nil
}
