// Package textextract turns HTML and PDF payloads into plain text for the
// parse path. Inputs arrive as raw bytes or base64 (standard or URL-safe) of
// the underlying document; decoding is auto-detected.
package textextract

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"unicode/utf8"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
)

// HTMLToText converts HTML to Markdown-flavored plain text. Hyperlinks are
// preserved as [label](url); images and emphasis markup are dropped. Input may
// be UTF-8 HTML or standard base64 of it.
func HTMLToText(input []byte) (string, error) {
	html := decodeHTMLInput(input)
	if !utf8.ValidString(html) {
		return "", fmt.Errorf("html input is not valid UTF-8")
	}

	conv := md.NewConverter("", true, nil)
	conv.AddRules(
		md.Rule{
			Filter: []string{"img"},
			Replacement: func(content string, selec *goquery.Selection, opt *md.Options) *string {
				return md.String("")
			},
		},
		md.Rule{
			Filter: []string{"em", "i", "strong", "b"},
			Replacement: func(content string, selec *goquery.Selection, opt *md.Options) *string {
				return md.String(content)
			},
		},
	)

	text, err := conv.ConvertString(html)
	if err != nil {
		return "", fmt.Errorf("convert html: %w", err)
	}
	return text, nil
}

// decodeHTMLInput returns the base64-decoded payload when the input is
// plausibly encoded, the input itself otherwise. Anything containing markup
// characters is already HTML.
func decodeHTMLInput(input []byte) string {
	if bytes.ContainsAny(input, "<>") {
		return string(input)
	}
	compact := compactWhitespace(input)
	decoded, err := base64.StdEncoding.DecodeString(string(compact))
	if err != nil || !utf8.Valid(decoded) {
		return string(input)
	}
	return string(decoded)
}

func compactWhitespace(b []byte) []byte {
	out := make([]byte, 0, len(b))
	for _, c := range b {
		switch c {
		case ' ', '\t', '\r', '\n':
		default:
			out = append(out, c)
		}
	}
	return out
}
