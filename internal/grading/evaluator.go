package grading

import "strings"

// Kind is the grading strategy category of a question.
type Kind string

const (
	KindText           Kind = "text"
	KindSingleChoice   Kind = "single_choice"
	KindMultipleChoice Kind = "multiple_choice"
)

// Option is one answer choice of a single/multiple-choice question.
type Option struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	Correct bool   `json:"is_correct,omitempty"`
}

// Question is the minimal view of a question needed for grading.
type Question struct {
	ID          string   `json:"id"`
	Kind        Kind     `json:"kind"`
	CorrectText string   `json:"correct_text,omitempty"` // reference answer for text questions
	Options     []Option `json:"options,omitempty"`
	Points      int      `json:"points"` // intrinsic value, used when no test weight applies
}

// Submission is one submitted answer. Text is used by text questions,
// SelectedSerialized by choice questions; the other field is ignored.
type Submission struct {
	Text               string
	SelectedSerialized string
}

// Result is the outcome of grading a single submission.
type Result struct {
	Correct bool
	Points  int
}

type strategy func(Question, Submission) bool

var strategies = map[Kind]strategy{
	KindText:           gradeText,
	KindSingleChoice:   gradeSingleChoice,
	KindMultipleChoice: gradeMultipleChoice,
}

// Evaluate decides correctness and points for one submission against one
// question and its effective weight. Pure: no I/O, same inputs always give
// the same result. An unknown kind grades incorrect rather than failing.
func Evaluate(q Question, effectivePoints int, sub Submission) Result {
	grade, ok := strategies[q.Kind]
	if !ok || !grade(q, sub) {
		return Result{}
	}
	return Result{Correct: true, Points: effectivePoints}
}

func gradeText(q Question, sub Submission) bool {
	got := normalizeText(sub.Text)
	want := normalizeText(q.CorrectText)
	return got != "" && got == want
}

func gradeSingleChoice(q Question, sub Submission) bool {
	selected := ParseSelection(sub.SelectedSerialized)
	if len(selected) != 1 {
		return false
	}
	_, ok := correctIDs(q)[selected[0]]
	return ok
}

func gradeMultipleChoice(q Question, sub Submission) bool {
	correct := correctIDs(q)
	if len(correct) == 0 {
		// no option flagged correct: ungradable-as-correct, never an error
		return false
	}
	return setEqual(toSet(ParseSelection(sub.SelectedSerialized)), correct)
}

// normalizeText trims surrounding whitespace and lower-cases. Nothing else:
// no accent folding, no punctuation stripping.
func normalizeText(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func correctIDs(q Question) map[string]struct{} {
	ids := make(map[string]struct{})
	for _, o := range q.Options {
		if o.Correct {
			ids[o.ID] = struct{}{}
		}
	}
	return ids
}

func toSet(ids []string) map[string]struct{} {
	m := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		m[id] = struct{}{}
	}
	return m
}

func setEqual(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}
