package pdfextract

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

var (
	ErrTooLarge = errors.New("pdf exceeds size limit")
	ErrNoText   = errors.New("pdf contains no extractable text")
)

// ExtractText reads at most maxBytes from r and returns the PDF's plain text
// with blank runs collapsed. maxBytes <= 0 disables the limit.
func ExtractText(r io.Reader, maxBytes int64) (string, error) {
	if maxBytes > 0 {
		r = io.LimitReader(r, maxBytes+1)
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read pdf failed: %w", err)
	}
	if maxBytes > 0 && int64(len(b)) > maxBytes {
		return "", ErrTooLarge
	}
	if len(b) == 0 {
		return "", ErrNoText
	}

	pdfReader, err := pdf.NewReader(bytes.NewReader(b), int64(len(b)))
	if err != nil {
		return "", fmt.Errorf("open pdf failed: %w", err)
	}
	plainReader, err := pdfReader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text failed: %w", err)
	}
	out, err := io.ReadAll(plainReader)
	if err != nil {
		return "", fmt.Errorf("extract pdf text failed: %w", err)
	}

	text := normalize(string(out))
	if text == "" {
		return "", ErrNoText
	}
	return text, nil
}

// normalize trims every line and keeps at most one blank line between
// paragraphs, which the text splitter uses as its first boundary.
func normalize(raw string) string {
	lines := strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n")
	var b strings.Builder
	blank := 0
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			blank++
			continue
		}
		if b.Len() > 0 {
			if blank > 0 {
				b.WriteString("\n\n")
			} else {
				b.WriteString("\n")
			}
		}
		blank = 0
		b.WriteString(line)
	}
	return b.String()
}
