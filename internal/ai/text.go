package ai

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/xuri/excelize/v2"
)

type TextExtractor interface {
	ExtractText(ctx context.Context, filePath string) (string, error)
}

// DocumentTextExtractor reads plain text out of PDF and spreadsheet files.
type DocumentTextExtractor struct{}

func NewDocumentTextExtractor() *DocumentTextExtractor {
	return &DocumentTextExtractor{}
}

func (e *DocumentTextExtractor) ExtractText(ctx context.Context, filePath string) (string, error) {
	var (
		text string
		err  error
	)

	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".pdf":
		text, err = pdfText(filePath)
	case ".xlsx", ".xlsm":
		text, err = spreadsheetText(filePath)
	case ".xls":
		// excelize reads OOXML only, BIFF workbooks have to be re-saved
		return "", fmt.Errorf("%w: legacy .xls workbook, save it as .xlsx", ErrUnsupportedFormat)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(filePath))
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoExtractableText, err)
	}

	if strings.TrimSpace(text) == "" {
		return "", ErrNoExtractableText
	}

	return text, nil
}

func pdfText(filePath string) (text string, err error) {
	// the parser panics on some broken xref tables
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parse pdf: %v", r)
		}
	}()

	f, r, err := pdf.Open(filePath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	reader, err := r.GetPlainText()
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(reader); err != nil {
		return "", err
	}

	return buf.String(), nil
}

func spreadsheetText(filePath string) (string, error) {
	file, err := excelize.OpenFile(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer file.Close()

	var builder strings.Builder
	for _, sheet := range file.GetSheetList() {
		rows, err := file.GetRows(sheet)
		if err != nil {
			return "", fmt.Errorf("failed to get rows: %w", err)
		}

		header := false
		for _, row := range rows {
			line := strings.TrimSpace(strings.Join(row, "\t"))
			if line == "" {
				continue
			}
			if !header {
				builder.WriteString("# " + sheet + "\n")
				header = true
			}
			builder.WriteString(line)
			builder.WriteByte('\n')
		}
	}

	return builder.String(), nil
}
