// Package importer loads questions in bulk from spreadsheet files. Excel
// and CSV layouts are accepted, with Russian or English column headers.
package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/pomogitepozhaluyst/quiz3/internal/bank"
	"github.com/pomogitepozhaluyst/quiz3/internal/grading"
)

var ErrUnsupportedFormat = errors.New("unsupported file format, expected .xlsx, .xls or .csv")

// DefaultCategory files rows that carry no category column.
const DefaultCategory = "Общие знания"

// headerAliases maps normalized column headers to canonical field names.
var headerAliases = map[string]string{
	"вопрос":            "question",
	"текст вопроса":     "question",
	"question":          "question",
	"question text":     "question",
	"text":              "question",
	"тип ответа":        "answer_type",
	"тип":               "answer_type",
	"answer type":       "answer_type",
	"answer_type":       "answer_type",
	"qtype":             "answer_type",
	"правильный ответ":  "correct_answer",
	"ответ":             "correct_answer",
	"answer":            "correct_answer",
	"correct answer":    "correct_answer",
	"варианты":          "options",
	"варианты ответов":  "options",
	"варианты ответа":   "options",
	"options":           "options",
	"choices":           "options",
	"правильные варианты":         "correct_options",
	"правильные варианты ответов": "correct_options",
	"correct options":             "correct_options",
	"correct choices":             "correct_options",
	"категория":   "category",
	"тема":        "category",
	"раздел":      "category",
	"category":    "category",
	"topic":       "category",
	"сложность":   "difficulty",
	"difficulty":  "difficulty",
	"баллы":       "points",
	"очки":        "points",
	"points":      "points",
	"score":       "points",
	"объяснение":  "explanation",
	"пояснение":   "explanation",
	"комментарий": "explanation",
	"explanation": "explanation",
	"comment":     "explanation",
	"url медиа":   "media_url",
	"ссылка":      "media_url",
	"media_url":   "media_url",
	"media":       "media_url",
}

// RowError records why one spreadsheet row was skipped. Line is 1-based
// and counts the header.
type RowError struct {
	Line int    `json:"line"`
	Msg  string `json:"message"`
}

// Result reports what an import run did. Rows with errors are skipped,
// the rest are created; one bad row never aborts the run.
type Result struct {
	TotalRows int             `json:"total_rows"`
	Imported  int             `json:"imported"`
	Created   []bank.Question `json:"created,omitempty"`
	Errors    []RowError      `json:"errors,omitempty"`
}

// QuestionStore is the slice of the question bank the importer writes to.
type QuestionStore interface {
	CreateQuestion(ctx context.Context, q bank.Question) (bank.Question, error)
	GetOrCreateCategory(ctx context.Context, name string) (bank.Category, error)
}

type Importer struct {
	store QuestionStore
}

func New(store QuestionStore) *Importer { return &Importer{store: store} }

// Import parses the file, validates each row and creates the valid ones
// under the given author.
func (imp *Importer) Import(ctx context.Context, filename string, r io.Reader, authorID string) (Result, error) {
	records, err := parseFile(filename, r)
	if err != nil {
		return Result{}, err
	}
	if len(records) < 2 {
		return Result{}, errors.New("file has no data rows")
	}

	fields := canonicalHeader(records[0])
	res := Result{TotalRows: len(records) - 1}
	for i, rec := range records[1:] {
		line := i + 2
		row := bindRow(fields, rec)
		if row["question"] == "" {
			continue // blank row
		}
		q, errs := buildQuestion(row)
		if len(errs) > 0 {
			for _, msg := range errs {
				res.Errors = append(res.Errors, RowError{Line: line, Msg: msg})
			}
			continue
		}
		catName := row["category"]
		if catName == "" {
			catName = DefaultCategory
		}
		cat, err := imp.store.GetOrCreateCategory(ctx, catName)
		if err != nil {
			return res, err
		}
		q.CategoryID = cat.ID
		q.AuthorID = authorID
		created, err := imp.store.CreateQuestion(ctx, q)
		if err != nil {
			return res, err
		}
		res.Created = append(res.Created, created)
		res.Imported++
	}
	return res, nil
}

func parseFile(filename string, r io.Reader) ([][]string, error) {
	name := strings.ToLower(filename)
	switch {
	case strings.HasSuffix(name, ".xlsx"), strings.HasSuffix(name, ".xls"):
		return parseExcel(r)
	case strings.HasSuffix(name, ".csv"):
		return parseCSV(r)
	default:
		return nil, ErrUnsupportedFormat
	}
}

func parseExcel(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("read excel: %w", err)
	}
	defer f.Close()
	sheet := pickSheet(f.GetSheetList())
	if sheet == "" {
		return nil, fmt.Errorf("read excel: workbook has no sheets")
	}
	return f.GetRows(sheet)
}

// pickSheet prefers a sheet whose name suggests question data, else the
// first sheet. Empty for a sheetless workbook.
func pickSheet(names []string) string {
	for _, n := range names {
		low := strings.ToLower(n)
		for _, kw := range []string{"questions", "вопросы", "data", "sheet"} {
			if strings.Contains(low, kw) {
				return n
			}
		}
	}
	if len(names) == 0 {
		return ""
	}
	return names[0]
}

func parseCSV(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return records, nil
}

func canonicalHeader(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		key = strings.ReplaceAll(key, "_", " ")
		if canon, ok := headerAliases[key]; ok {
			out[i] = canon
		} else if canon, ok := headerAliases[strings.ReplaceAll(key, " ", "_")]; ok {
			out[i] = canon
		} else {
			out[i] = key
		}
	}
	return out
}

func bindRow(fields, rec []string) map[string]string {
	row := map[string]string{}
	for i, f := range fields {
		if i < len(rec) {
			row[f] = strings.TrimSpace(rec[i])
		}
	}
	return row
}

func buildQuestion(row map[string]string) (bank.Question, []string) {
	var errs []string

	kind := grading.Kind(strings.ToLower(row["answer_type"]))
	if kind == "" {
		kind = grading.KindText
	}
	switch kind {
	case grading.KindText, grading.KindSingleChoice, grading.KindMultipleChoice:
	default:
		errs = append(errs, "unsupported answer type: "+string(kind))
	}

	q := bank.Question{
		Text:        row["question"],
		Kind:        kind,
		Explanation: row["explanation"],
		MediaURL:    row["media_url"],
		CorrectText: row["correct_answer"],
		Difficulty:  1,
		Points:      1,
	}
	if v := row["difficulty"]; v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 5 {
			errs = append(errs, "difficulty must be between 1 and 5")
		} else {
			q.Difficulty = n
		}
	}
	if v := row["points"]; v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			errs = append(errs, "points must be positive")
		} else {
			q.Points = n
		}
	}

	options := splitList(row["options"])
	switch kind {
	case grading.KindText:
		if q.CorrectText == "" {
			errs = append(errs, "text question needs a correct answer")
		}
	case grading.KindSingleChoice, grading.KindMultipleChoice:
		if len(options) == 0 {
			errs = append(errs, "choice question needs answer options")
			break
		}
		correct := splitList(row["correct_options"])
		if kind == grading.KindSingleChoice && len(correct) == 0 && q.CorrectText != "" {
			correct = []string{q.CorrectText}
		}
		if len(correct) == 0 {
			errs = append(errs, "choice question needs correct options")
			break
		}
		correctSet := map[string]bool{}
		for _, c := range correct {
			correctSet[c] = true
		}
		matched := 0
		for _, text := range options {
			o := grading.Option{Text: text, Correct: correctSet[text]}
			if o.Correct {
				matched++
			}
			q.Options = append(q.Options, o)
		}
		if matched == 0 {
			errs = append(errs, "correct options do not match any option")
		}
		q.CorrectText = ""
	}

	if len(errs) > 0 {
		return bank.Question{}, errs
	}
	return q, nil
}

// splitList splits an option cell on the first delimiter found, trying
// ";" then "," then "|". A cell without delimiters is one item.
func splitList(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	sep := ""
	for _, d := range []string{";", ",", "|"} {
		if strings.Contains(s, d) {
			sep = d
			break
		}
	}
	if sep == "" {
		return []string{s}
	}
	var out []string
	for _, part := range strings.Split(s, sep) {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
