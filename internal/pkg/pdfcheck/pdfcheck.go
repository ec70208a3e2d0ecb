// Package pdfcheck validates a file locally before it is sent for analysis.
package pdfcheck

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

var (
	ErrEmpty    = errors.New("the selected file is empty")
	ErrTooLarge = errors.New("the selected file is too large")
	ErrNotPDF   = errors.New("only PDF files can be analysed")
	ErrNoPages  = errors.New("the PDF has no pages")
)

type Result struct {
	Data    []byte
	Pages   int
	HasText bool
}

// Check reads at most maxBytes from r and confirms it is a readable PDF.
func Check(filename string, r io.Reader, maxBytes int64) (*Result, error) {
	if !strings.EqualFold(extension(filename), ".pdf") {
		return nil, ErrNotPDF
	}
	b, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload failed: %w", err)
	}
	if len(b) == 0 {
		return nil, ErrEmpty
	}
	if int64(len(b)) > maxBytes {
		return nil, ErrTooLarge
	}
	if !bytes.HasPrefix(b, []byte("%PDF-")) {
		return nil, ErrNotPDF
	}

	pages, text, err := inspect(b)
	if err != nil {
		return nil, err
	}
	if pages == 0 {
		return nil, ErrNoPages
	}
	return &Result{Data: b, Pages: pages, HasText: text}, nil
}

// inspect opens the document; the pdf package panics on some malformed input.
func inspect(b []byte) (pages int, text bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			pages, text, err = 0, false, ErrNotPDF
		}
	}()
	pdfReader, err := pdf.NewReader(bytes.NewReader(b), int64(len(b)))
	if err != nil {
		return 0, false, ErrNotPDF
	}
	pages = pdfReader.NumPage()
	if pages == 0 {
		return 0, false, nil
	}
	return pages, hasText(pdfReader), nil
}

func hasText(r *pdf.Reader) bool {
	plain, err := r.GetPlainText()
	if err != nil {
		return false
	}
	out, err := io.ReadAll(io.LimitReader(plain, 4096))
	if err != nil {
		return false
	}
	return strings.TrimSpace(string(out)) != ""
}

func extension(filename string) string {
	i := strings.LastIndex(filename, ".")
	if i < 0 {
		return ""
	}
	return filename[i:]
}
