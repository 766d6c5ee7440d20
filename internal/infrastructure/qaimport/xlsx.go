package qaimport

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/arcadeops/manual-search/internal/core/domain"
)

// ParseWorkbook reads QA pairs from the first sheet of an xlsx workbook.
// Column A is the question, column B the answer. A header row is skipped
// when its first cell says so.
func ParseWorkbook(r io.Reader) ([]domain.QAPair, error) {
	workbook, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer workbook.Close()

	sheets := workbook.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	rows, err := workbook.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}

	var pairs []domain.QAPair
	for i, row := range rows {
		if len(row) < 2 {
			continue
		}
		question := strings.TrimSpace(row[0])
		answer := strings.TrimSpace(row[1])
		if question == "" || answer == "" {
			continue
		}
		if i == 0 && isHeaderCell(question) {
			continue
		}
		pairs = append(pairs, domain.QAPair{Question: question, Answer: answer})
	}
	return pairs, nil
}

func isHeaderCell(cell string) bool {
	switch strings.ToLower(cell) {
	case "question", "questions", "q":
		return true
	default:
		return false
	}
}
