// Package extract turns uploaded file bytes into plain text for chunking.
// Supported formats: .txt, .csv, .xlsx, .pdf.
package extract

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/xuri/excelize/v2"

	"github.com/tyagiharsh607/chat-with-pdf/engine/domain"
)

// Text extracts the full text of an uploaded file based on its extension.
// Returns ErrUnsupportedFileType for unknown extensions and ErrEmptyContent
// when the extracted text is empty or whitespace only.
func Text(data []byte, filename string) (string, error) {
	var text string
	var err error

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt":
		text, err = plainText(data)
	case ".csv":
		text, err = csvText(data)
	case ".xlsx":
		text, err = xlsxText(data)
	case ".pdf":
		text, err = pdfText(data)
	default:
		return "", fmt.Errorf("extract: %s: %w", filename, domain.ErrUnsupportedFileType)
	}
	if err != nil {
		return "", err
	}

	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("extract: %s: %w", filename, domain.ErrEmptyContent)
	}
	return text, nil
}

func plainText(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", fmt.Errorf("extract: text file is not valid UTF-8")
	}
	return string(data), nil
}

// csvText renders each data row as "Row {n}: col: val, col: val, ...", one
// row per line, using the first record as column names.
func csvText(data []byte) (string, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err == io.EOF {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("extract: read csv header: %w", err)
	}

	var b strings.Builder
	n := 0
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("extract: read csv row: %w", err)
		}
		n++
		writeRow(&b, n, header, record)
	}
	return b.String(), nil
}

// xlsxText renders the first sheet the same way csvText renders csv rows.
func xlsxText(data []byte) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("extract: open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return "", nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return "", fmt.Errorf("extract: read xlsx rows: %w", err)
	}
	if len(rows) == 0 {
		return "", nil
	}

	header := rows[0]
	var b strings.Builder
	for i, record := range rows[1:] {
		writeRow(&b, i+1, header, record)
	}
	return b.String(), nil
}

// pdfText concatenates per-page text. A page whose text cannot be extracted
// contributes nothing rather than failing the whole document.
func pdfText(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("extract: open pdf: %w", err)
	}

	var b strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		b.WriteString(content)
	}
	return b.String(), nil
}

func writeRow(b *strings.Builder, n int, header, record []string) {
	fmt.Fprintf(b, "Row %d: ", n)
	for i, val := range record {
		if i > 0 {
			b.WriteString(", ")
		}
		col := ""
		if i < len(header) {
			col = header[i]
		}
		b.WriteString(col)
		b.WriteString(": ")
		b.WriteString(val)
	}
	b.WriteByte('\n')
}
