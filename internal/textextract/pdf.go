package textextract

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFToText extracts all page text from a PDF, concatenated in page order.
// Input may be raw PDF bytes, standard base64, or URL-safe base64 with or
// without padding (Gmail attachments arrive URL-safe and unpadded). A page
// with no extractable text contributes an empty string.
func PDFToText(input []byte) (string, error) {
	raw := decodePDFInput(input)
	text, err := extractPages(raw)
	if err != nil {
		return "", fmt.Errorf("parse pdf: %w", err)
	}
	return text, nil
}

func extractPages(raw []byte) (text string, err error) {
	// The pdf package panics on some malformed streams instead of returning
	// an error; treat both the same way.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			// Missing per-page text is treated as empty, not fatal.
			continue
		}
		b.WriteString(pageText)
	}
	return b.String(), nil
}

// decodePDFInput tries standard base64, then URL-safe base64 with padding
// repair, then falls back to treating the input as raw document bytes.
func decodePDFInput(input []byte) []byte {
	compact := string(compactWhitespace(input))
	if b, err := base64.StdEncoding.DecodeString(compact); err == nil {
		return b
	}

	repaired := strings.NewReplacer("-", "+", "_", "/").Replace(compact)
	repaired = strings.TrimRight(repaired, "=")
	if m := len(repaired) % 4; m != 0 {
		repaired += strings.Repeat("=", 4-m)
	}
	if b, err := base64.StdEncoding.DecodeString(repaired); err == nil {
		return b
	}

	return input
}
