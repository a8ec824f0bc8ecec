package loader

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"golang.org/x/net/html"
)

// Extractor decodes one content type into plain text
type Extractor func(path string, data []byte) (string, error)

// DefaultExtractors returns the extraction registry keyed by lowercase
// file extension. An OCR-backed extractor for image formats can be
// registered here by callers that carry that capability; images are
// otherwise rejected as unsupported.
func DefaultExtractors() map[string]Extractor {
	return map[string]Extractor{
		".txt":  extractPlain,
		".text": extractPlain,
		".md":   extractPlain,
		".csv":  extractPlain,
		".json": extractPlain,
		".html": extractHTML,
		".htm":  extractHTML,
		".pdf":  extractPDF,
		".docx": extractDocx,
	}
}

func extractPlain(path string, data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", fmt.Errorf("not valid UTF-8 text")
	}
	return strings.TrimSpace(string(data)), nil
}

// extractHTML returns the visible text of an HTML document, skipping
// script/style subtrees.
func extractHTML(path string, data []byte) (string, error) {
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "iframe":
				return
			}
		}
		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				buf.WriteString(text)
				buf.WriteString(" ")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return strings.TrimSpace(buf.String()), nil
}

// extractDocx pulls the paragraph text out of a Word document. A docx file
// is a zip archive whose body lives in word/document.xml as
// WordprocessingML; text sits in w:t elements, paragraphs end at w:p.
func extractDocx(path string, data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open docx: %w", err)
	}

	body, err := zr.Open("word/document.xml")
	if err != nil {
		return "", errors.New("no word/document.xml in docx archive")
	}
	defer func() { _ = body.Close() }()

	var b strings.Builder
	dec := xml.NewDecoder(body)
	inText := false
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse docx body: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				inText = true
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				b.WriteString("\n")
			}
		case xml.CharData:
			if inText {
				b.Write(t)
			}
		}
	}

	return strings.TrimSpace(b.String()), nil
}

func extractPDF(path string, data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("parse pdf: %w", err)
	}

	textReader, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}

	text, err := io.ReadAll(textReader)
	if err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}

	return strings.TrimSpace(string(text)), nil
}
