package filetext

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

func readPDFPlainText(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	reader, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	out, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	return string(out), nil
}

// readPDFContentStreams dumps page content streams with pdfcpu and collects
// the string operands of text showing operators.
func readPDFContentStreams(data []byte) (string, error) {
	dir, err := os.MkdirTemp("", "intake-pdf-*")
	if err != nil {
		return "", fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	if err := api.ExtractContent(bytes.NewReader(data), dir, "doc", nil, conf); err != nil {
		return "", fmt.Errorf("extract pdf content: %w", err)
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.txt"))
	if err != nil {
		return "", err
	}
	sort.Strings(files)

	var b strings.Builder
	for _, name := range files {
		raw, err := os.ReadFile(name)
		if err != nil {
			return "", fmt.Errorf("read content stream: %w", err)
		}
		b.WriteString(textOperands(string(raw)))
	}
	return b.String(), nil
}

// textOperands keeps the literal strings shown by Tj, TJ, ' and " and
// starts a new line on T*, Td, TD and ET.
func textOperands(stream string) string {
	var out, pending, word strings.Builder
	newline := func() {
		if out.Len() > 0 && !strings.HasSuffix(out.String(), "\n") {
			out.WriteByte('\n')
		}
	}
	operator := func() {
		op := word.String()
		word.Reset()
		switch op {
		case "":
			return
		case "Tj", "TJ", "'", `"`:
			out.WriteString(pending.String())
		case "T*", "Td", "TD", "ET":
			newline()
		default:
			if isOperand(op) {
				return
			}
		}
		pending.Reset()
	}

	runes := []rune(stream)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '(':
			operator()
			n, text := literalString(runes[i:])
			pending.WriteString(text)
			i += n - 1
		case r == '[' || r == ']' || r == ' ' || r == '\n' || r == '\r' || r == '\t':
			operator()
		case r == '\'' || r == '"':
			operator()
			word.WriteRune(r)
			operator()
		default:
			word.WriteRune(r)
		}
	}
	operator()
	return out.String()
}

// literalString decodes a parenthesised string starting at runes[0] and
// returns how many runes it spans.
func literalString(runes []rune) (int, string) {
	var cur strings.Builder
	depth := 0
	escaped := false
	for i, r := range runes {
		switch {
		case escaped:
			switch r {
			case 'n':
				cur.WriteByte('\n')
			case 't':
				cur.WriteByte('\t')
			case 'r':
			default:
				cur.WriteRune(r)
			}
			escaped = false
		case r == '\\':
			escaped = true
		case r == '(':
			if depth > 0 {
				cur.WriteRune(r)
			}
			depth++
		case r == ')':
			depth--
			if depth == 0 {
				return i + 1, cur.String()
			}
			cur.WriteRune(r)
		default:
			cur.WriteRune(r)
		}
	}
	return len(runes), cur.String()
}

func isOperand(token string) bool {
	switch token[0] {
	case '/', '-', '+', '.', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		return true
	default:
		return false
	}
}
