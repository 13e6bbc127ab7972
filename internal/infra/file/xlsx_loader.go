package file

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/xuri/excelize/v2"

	"quiz-runner/internal/domain"
)

var xlsxColumns = []string{"id", "kind", "prompt", "options", "correct", "seconds", "explanation"}

// XLSXQuestionLoader serves a single set imported from the first sheet of a workbook.
// The set id is the file name without its extension.
type XLSXQuestionLoader struct {
	path  string
	setID string
}

func NewXLSXQuestionLoader(path string) *XLSXQuestionLoader {
	base := filepath.Base(path)
	return &XLSXQuestionLoader{
		path:  path,
		setID: strings.TrimSuffix(base, filepath.Ext(base)),
	}
}

// SetID reports the id the workbook is served under.
func (l *XLSXQuestionLoader) SetID() string {
	return l.setID
}

func (l *XLSXQuestionLoader) LoadQuestionSet(_ context.Context, setID string) (domain.QuestionSet, error) {
	if setID != l.setID {
		return domain.QuestionSet{}, fmt.Errorf("%s: %q: %w", l.path, setID, domain.ErrQuestionSetNotFound)
	}
	f, err := os.Open(l.path)
	if err != nil {
		return domain.QuestionSet{}, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()
	return ParseXLSX(f, l.setID)
}

// ParseXLSX reads one question per row below the header row.
// Row problems are collected so a bad sheet reports every broken row at once.
func ParseXLSX(r io.Reader, setID string) (domain.QuestionSet, error) {
	wb, err := excelize.OpenReader(r)
	if err != nil {
		return domain.QuestionSet{}, fmt.Errorf("open workbook: %w", err)
	}
	defer wb.Close()

	sheets := wb.GetSheetList()
	if len(sheets) == 0 {
		return domain.QuestionSet{}, fmt.Errorf("%w: workbook has no sheets", domain.ErrInvalidQuestion)
	}
	rows, err := wb.GetRows(sheets[0])
	if err != nil {
		return domain.QuestionSet{}, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) < 2 {
		return domain.QuestionSet{}, fmt.Errorf("%w: sheet needs a header row and at least one question", domain.ErrInvalidQuestion)
	}

	headerMap := make(map[string]int)
	for i, header := range rows[0] {
		headerMap[strings.ToLower(strings.TrimSpace(header))] = i
	}
	for _, col := range []string{"id", "kind", "prompt", "correct"} {
		if _, ok := headerMap[col]; !ok {
			return domain.QuestionSet{}, fmt.Errorf("%w: missing column %q", domain.ErrInvalidQuestion, col)
		}
	}

	set := domain.QuestionSet{ID: setID, Title: sheets[0]}
	var errs *multierror.Error
	for i, row := range rows[1:] {
		cell := func(name string) string {
			if idx, ok := headerMap[name]; ok && idx < len(row) {
				return strings.TrimSpace(row[idx])
			}
			return ""
		}
		if cell("id") == "" && cell("prompt") == "" {
			continue
		}
		q, err := parseRow(cell)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("row %d: %w", i+2, err))
			continue
		}
		set.Questions = append(set.Questions, q)
	}
	if err := errs.ErrorOrNil(); err != nil {
		return domain.QuestionSet{}, fmt.Errorf("%w: %v", domain.ErrInvalidQuestion, err)
	}
	if err := domain.ValidateQuestionSet(set); err != nil {
		return domain.QuestionSet{}, err
	}
	return set, nil
}

func parseRow(cell func(string) string) (domain.Question, error) {
	q := domain.Question{
		ID:          cell("id"),
		Prompt:      cell("prompt"),
		Explanation: cell("explanation"),
	}
	if raw := cell("seconds"); raw != "" {
		seconds, err := strconv.Atoi(raw)
		if err != nil {
			return q, fmt.Errorf("seconds %q: %w", raw, err)
		}
		q.Seconds = seconds
	}

	switch domain.QuestionKind(strings.ToLower(cell("kind"))) {
	case domain.KindText:
		options := splitOptions(cell("options"))
		correct, err := correctIndex(cell("correct"), options)
		if err != nil {
			return q, err
		}
		q.Data = domain.TextData{Options: options, CorrectIndex: correct}
	case domain.KindBoolean:
		correct, err := strconv.ParseBool(strings.ToLower(cell("correct")))
		if err != nil {
			return q, fmt.Errorf("correct %q: %w", cell("correct"), err)
		}
		q.Data = domain.BooleanData{Correct: correct}
	default:
		return q, fmt.Errorf("%w %q", domain.ErrUnknownKind, cell("kind"))
	}
	return q, domain.ValidateQuestion(q)
}

func splitOptions(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, "|")
	options := make([]string, 0, len(parts))
	for _, p := range parts {
		options = append(options, strings.TrimSpace(p))
	}
	return options
}

// correctIndex accepts a 0-based index or the text of the correct option.
func correctIndex(raw string, options []string) (int, error) {
	if n, err := strconv.Atoi(raw); err == nil {
		return n, nil
	}
	for i, opt := range options {
		if strings.EqualFold(opt, raw) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("correct %q matches no option", raw)
}
