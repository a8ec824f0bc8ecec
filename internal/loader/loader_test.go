package loader

import (
	"archive/zip"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	return path
}

func writeZip(t *testing.T, dir string, entries map[string]string, duplicates ...string) string {
	t.Helper()
	path := filepath.Join(dir, "batch.zip")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Create zip failed: %v", err)
	}
	defer func() { _ = f.Close() }()

	zw := zip.NewWriter(f)
	add := func(name, content string) {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zip Create failed: %v", err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("zip Write failed: %v", err)
		}
	}
	for name, content := range entries {
		add(name, content)
	}
	for _, name := range duplicates {
		add(name, "duplicate entry content")
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip Close failed: %v", err)
	}
	return path
}

func TestLoad_Directory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "receipt-b.txt", "Dinner at bistro, total $42.00")
	writeFile(t, dir, "receipt-a.txt", "Taxi fare $18.50 on 2025-03-14")
	writeFile(t, dir, "q1/hotel.md", "# Hotel\nTwo nights, total: $380.00")
	writeFile(t, dir, ".hidden.txt", "should be skipped")

	records, err := NewLoader().Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	want := []string{"q1/hotel.md", "receipt-a.txt", "receipt-b.txt"}
	if len(records) != len(want) {
		t.Fatalf("Expected %d records, got %d", len(want), len(records))
	}
	for i, id := range want {
		if records[i].ID != id {
			t.Errorf("Record %d ID = %s, want %s", i, records[i].ID, id)
		}
		if records[i].RawContent == "" {
			t.Errorf("Record %s has empty content", id)
		}
	}
	if records[1].SourceFormat != "txt" {
		t.Errorf("SourceFormat = %s, want txt", records[1].SourceFormat)
	}
}

func TestLoad_SingleFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "lunch.txt", "Team lunch, amount: $95.00")

	records, err := NewLoader().Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(records))
	}
	if records[0].ID != "lunch.txt" {
		t.Errorf("ID = %s, want lunch.txt", records[0].ID)
	}
	if records[0].Fields["amount"] != "$95.00" {
		t.Errorf("amount field = %q, want $95.00", records[0].Fields["amount"])
	}
}

func TestLoad_ZipArchive(t *testing.T) {
	dir := t.TempDir()
	path := writeZip(t, dir, map[string]string{
		"march/receipt-2.txt": "Parking $12.00",
		"march/receipt-1.txt": "Coffee meeting $8.75",
	})

	records, err := NewLoader().Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(records))
	}
	if records[0].ID != "march/receipt-1.txt" || records[1].ID != "march/receipt-2.txt" {
		t.Errorf("Records out of order: %s, %s", records[0].ID, records[1].ID)
	}
}

func TestLoad_ZipDuplicateNamesGetUniqueIDs(t *testing.T) {
	dir := t.TempDir()
	path := writeZip(t, dir, map[string]string{"receipt.txt": "original"}, "receipt.txt")

	records, err := NewLoader().Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(records))
	}
	if records[0].ID == records[1].ID {
		t.Errorf("Duplicate entry names must yield unique IDs, both are %s", records[0].ID)
	}
	if records[1].ID != "receipt.txt#2" {
		t.Errorf("Second duplicate ID = %s, want receipt.txt#2", records[1].ID)
	}
}

func TestLoad_MissingPath(t *testing.T) {
	_, err := NewLoader().Load(filepath.Join(t.TempDir(), "no-such-dir"))
	var notFound *NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("Expected NotFoundError, got %T: %v", err, err)
	}
}

func TestLoad_UnsupportedFormatFailsBatch(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "good.txt", "Lunch $10.00")
	writeFile(t, dir, "report.xlsx", "\x50\x4b\x03\x04 binary spreadsheet")

	_, err := NewLoader().Load(dir)
	var unsupported *UnsupportedFormatError
	if !errors.As(err, &unsupported) {
		t.Fatalf("Expected UnsupportedFormatError, got %T: %v", err, err)
	}
	if unsupported.Path != "report.xlsx" {
		t.Errorf("Error path = %s, want report.xlsx", unsupported.Path)
	}
}

func TestLoad_RegisteredExtractor(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "scan.png", "fake image bytes")

	loader := NewLoader()
	loader.RegisterExtractor(".png", func(path string, data []byte) (string, error) {
		return "OCR text: total $23.00", nil
	})

	records, err := loader.Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if records[0].RawContent != "OCR text: total $23.00" {
		t.Errorf("RawContent = %q", records[0].RawContent)
	}
}

func TestLoadPolicy(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "policy.md", "1. Meals must be under $50.\n2. Travel requires pre-approval.")

	text, err := NewLoader().LoadPolicy(path)
	if err != nil {
		t.Fatalf("LoadPolicy failed: %v", err)
	}
	if text == "" {
		t.Fatal("Expected policy text")
	}
}

func TestLoadPolicy_RejectsMultipleEntries(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "rule one")
	writeFile(t, dir, "b.txt", "rule two")

	if _, err := NewLoader().LoadPolicy(dir); err == nil {
		t.Fatal("Expected error for multi-entry policy path")
	}
}

func writeDocx(t *testing.T, dir, name, documentXML string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Create docx failed: %v", err)
	}
	defer func() { _ = f.Close() }()

	zw := zip.NewWriter(f)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatalf("docx Create failed: %v", err)
	}
	if _, err := w.Write([]byte(documentXML)); err != nil {
		t.Fatalf("docx Write failed: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("docx Close failed: %v", err)
	}
	return path
}

func TestExtractDocx(t *testing.T) {
	const documentXML = `<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>1. Meals must be under $50.</w:t></w:r></w:p>
    <w:p><w:r><w:t>2. Travel requires </w:t></w:r><w:r><w:t>pre-approval.</w:t></w:r></w:p>
  </w:body>
</w:document>`

	dir := t.TempDir()
	path := writeDocx(t, dir, "policy.docx", documentXML)

	text, err := NewLoader().LoadPolicy(path)
	if err != nil {
		t.Fatalf("LoadPolicy failed: %v", err)
	}
	if !strings.Contains(text, "1. Meals must be under $50.") {
		t.Errorf("Missing first paragraph in %q", text)
	}
	// Runs split across w:r elements join inside one paragraph
	if !strings.Contains(text, "2. Travel requires pre-approval.") {
		t.Errorf("Missing joined second paragraph in %q", text)
	}
	if strings.Contains(text, "w:document") {
		t.Errorf("Markup leaked into %q", text)
	}
}

func TestExtractDocx_MissingBodyIsUnsupported(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.docx")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	zw := zip.NewWriter(f)
	if _, err := zw.Create("word/styles.xml"); err != nil {
		t.Fatalf("zip Create failed: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip Close failed: %v", err)
	}
	_ = f.Close()

	_, err = NewLoader().Load(path)
	var unsupported *UnsupportedFormatError
	if !errors.As(err, &unsupported) {
		t.Fatalf("Expected UnsupportedFormatError, got %T: %v", err, err)
	}
}

func TestExtractHTML(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "invoice.html", `<html><head><style>body{color:red}</style></head>
<body><h1>Invoice</h1><p>Total: $120.00</p><script>alert(1)</script></body></html>`)

	records, err := NewLoader().Load(filepath.Join(dir, "invoice.html"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	content := records[0].RawContent
	if !strings.Contains(content, "Invoice") || !strings.Contains(content, "$120.00") {
		t.Errorf("Missing visible text in %q", content)
	}
	if strings.Contains(content, "alert") || strings.Contains(content, "color:red") {
		t.Errorf("Script/style content leaked into %q", content)
	}
}
