package llmparse

import "llmparse/internal/textextract"

// HTMLToText converts HTML to Markdown-flavored plain text: hyperlinks are
// preserved as [label](url), images and emphasis markup are dropped. Input
// may be UTF-8 HTML or standard base64 of it.
func HTMLToText(input []byte) (string, error) {
	text, err := textextract.HTMLToText(input)
	if err != nil {
		return "", &ExtractionError{Message: "convert html to text", Cause: err}
	}
	return text, nil
}

// PDFToText extracts all page text from a PDF in page order. Input may be raw
// PDF bytes, standard base64, or URL-safe base64 with or without padding.
func PDFToText(input []byte) (string, error) {
	text, err := textextract.PDFToText(input)
	if err != nil {
		return "", &ExtractionError{Message: "convert pdf to text", Cause: err}
	}
	return text, nil
}
