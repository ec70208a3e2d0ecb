package pdfcheck

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"
)

// minimalPDF builds a one-page document with a correct xref table.
func minimalPDF() []byte {
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] >>",
	}
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func TestCheckAcceptsPDF(t *testing.T) {
	doc := minimalPDF()
	res, err := Check("Contract.PDF", bytes.NewReader(doc), 1<<20)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if res.Pages != 1 {
		t.Fatalf("Pages = %d", res.Pages)
	}
	if !bytes.Equal(res.Data, doc) {
		t.Fatal("Check should hand back the bytes it read")
	}
}

func TestCheckRejects(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		body     []byte
		max      int64
		want     error
	}{
		{"wrong extension", "contract.docx", minimalPDF(), 1 << 20, ErrNotPDF},
		{"no extension", "contract", minimalPDF(), 1 << 20, ErrNotPDF},
		{"empty", "contract.pdf", nil, 1 << 20, ErrEmpty},
		{"too large", "contract.pdf", minimalPDF(), 16, ErrTooLarge},
		{"not a pdf body", "contract.pdf", []byte("just some text"), 1 << 20, ErrNotPDF},
		{"truncated pdf", "contract.pdf", []byte("%PDF-1.4\n1 0 obj\n"), 1 << 20, ErrNotPDF},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Check(tt.filename, strings.NewReader(string(tt.body)), tt.max)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Check error = %v, want %v", err, tt.want)
			}
		})
	}
}
