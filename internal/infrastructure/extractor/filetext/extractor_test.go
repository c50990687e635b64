package filetext

import (
	"archive/zip"
	"bytes"
	"context"
	"strings"
	"testing"
)

func docxBytes(t *testing.T, body string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatalf("create docx part: %v", err)
	}
	if _, err := w.Write([]byte(body)); err != nil {
		t.Fatalf("write docx part: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close docx: %v", err)
	}
	return buf.Bytes()
}

func TestExtractDOCXParagraphs(t *testing.T) {
	body := `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>
<w:p><w:r><w:t>PURCHASE AGREEMENT</w:t></w:r></w:p>
<w:p><w:r><w:t>Buyer:</w:t></w:r><w:r><w:tab/><w:t>Alice</w:t></w:r></w:p>
</w:body></w:document>`

	got := NewExtractor(nil).Extract(context.Background(), docxBytes(t, body), "offer.DOCX")
	if got != "PURCHASE AGREEMENT\nBuyer:\tAlice" {
		t.Fatalf("unexpected docx text %q", got)
	}
}

func TestExtractDOCXBroken(t *testing.T) {
	got := NewExtractor(nil).Extract(context.Background(), []byte("not a zip"), "offer.docx")
	if !strings.HasPrefix(got, "[ERROR READING DOCX] - ") {
		t.Fatalf("expected docx diagnostic, got %q", got)
	}
}

func TestExtractImagePlaceholder(t *testing.T) {
	got := NewExtractor(nil).Extract(context.Background(), []byte{0x89, 'P', 'N', 'G'}, "scan.jpeg")
	if !strings.HasPrefix(got, "[IMAGE FILE: scan.jpeg]") {
		t.Fatalf("unexpected image placeholder %q", got)
	}
}

func TestExtractPlainTextDropsInvalidUTF8(t *testing.T) {
	got := NewExtractor(nil).Extract(context.Background(), []byte("Employer: Acme\xff\xfe Corp"), "letter.txt")
	if got != "Employer: Acme Corp" {
		t.Fatalf("unexpected text %q", got)
	}
	if got := NewExtractor(nil).Extract(context.Background(), []byte("raw"), "noext"); got != "raw" {
		t.Fatalf("expected unknown extension decoded as text, got %q", got)
	}
}

func TestExtractPDFBroken(t *testing.T) {
	got := NewExtractor(nil).Extract(context.Background(), []byte("definitely not a pdf"), "hud.pdf")
	if !strings.HasPrefix(got, "[ERROR READING PDF] - ") {
		t.Fatalf("expected pdf diagnostic, got %q", got)
	}
}

func TestTextOperands(t *testing.T) {
	stream := "BT\n/F1 12 Tf\n72 712 Td\n(Sale price: \\(USD\\)) Tj\n0 -14 Td\n[(Clo) -20 (sing)] TJ\nET\n"
	got := textOperands(stream)
	if got != "Sale price: (USD)\nClosing\n" {
		t.Fatalf("unexpected operands %q", got)
	}
}
