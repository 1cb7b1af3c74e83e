package importer

import (
	"context"
	"strings"
	"testing"

	"github.com/pomogitepozhaluyst/quiz3/internal/bank"
	"github.com/pomogitepozhaluyst/quiz3/internal/grading"
)

type fakeBank struct {
	questions  []bank.Question
	categories map[string]bank.Category
}

func newFakeBank() *fakeBank {
	return &fakeBank{categories: map[string]bank.Category{}}
}

func (f *fakeBank) CreateQuestion(_ context.Context, q bank.Question) (bank.Question, error) {
	q.ID = "q" + string(rune('1'+len(f.questions)))
	f.questions = append(f.questions, q)
	return q, nil
}

func (f *fakeBank) GetOrCreateCategory(_ context.Context, name string) (bank.Category, error) {
	key := strings.ToLower(name)
	if c, ok := f.categories[key]; ok {
		return c, nil
	}
	c := bank.Category{ID: "cat-" + key, Name: name}
	f.categories[key] = c
	return c, nil
}

func TestImportCSV(t *testing.T) {
	csv := strings.Join([]string{
		"Вопрос,Тип ответа,Правильный ответ,Варианты,Правильные варианты,Категория,Баллы",
		"Столица Франции?,text,Париж,,,География,2",
		"2+2?,single_choice,4,3;4;5,,Математика,1",
		"Чётные числа?,multiple_choice,,1;2;3;4,2;4,Математика,3",
	}, "\n")

	store := newFakeBank()
	res, err := New(store).Import(context.Background(), "bank.csv", strings.NewReader(csv), "author-1")
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if res.Imported != 3 || len(res.Errors) != 0 {
		t.Fatalf("imported=%d errors=%v, want 3 and none", res.Imported, res.Errors)
	}

	q := store.questions[0]
	if q.Kind != grading.KindText || q.CorrectText != "Париж" || q.Points != 2 {
		t.Errorf("text question = %+v", q)
	}
	if q.AuthorID != "author-1" {
		t.Errorf("author = %q", q.AuthorID)
	}
	if q.CategoryID != store.categories["география"].ID {
		t.Errorf("category = %q", q.CategoryID)
	}

	single := store.questions[1]
	if single.Kind != grading.KindSingleChoice || len(single.Options) != 3 {
		t.Fatalf("single choice = %+v", single)
	}
	if single.CorrectText != "" {
		t.Errorf("correct text should move into options, got %q", single.CorrectText)
	}
	correct := 0
	for _, o := range single.Options {
		if o.Correct {
			correct++
			if o.Text != "4" {
				t.Errorf("wrong option flagged: %q", o.Text)
			}
		}
	}
	if correct != 1 {
		t.Errorf("correct flags = %d, want 1", correct)
	}

	multi := store.questions[2]
	flagged := []string{}
	for _, o := range multi.Options {
		if o.Correct {
			flagged = append(flagged, o.Text)
		}
	}
	if len(flagged) != 2 || flagged[0] != "2" || flagged[1] != "4" {
		t.Errorf("multiple choice flags = %v", flagged)
	}
}

func TestImportCollectsRowErrors(t *testing.T) {
	csv := strings.Join([]string{
		"question,answer_type,correct_answer,options,correct_options,points",
		"No answer here,text,,,,1",
		"Valid,text,yes,,,1",
		"Bad points,text,yes,,,-3",
		"No options,single_choice,,,,1",
	}, "\n")

	store := newFakeBank()
	res, err := New(store).Import(context.Background(), "bank.csv", strings.NewReader(csv), "a1")
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if res.Imported != 1 {
		t.Errorf("imported = %d, want 1", res.Imported)
	}
	if len(res.Errors) != 3 {
		t.Fatalf("errors = %v, want 3", res.Errors)
	}
	lines := map[int]bool{}
	for _, e := range res.Errors {
		lines[e.Line] = true
	}
	for _, want := range []int{2, 4, 5} {
		if !lines[want] {
			t.Errorf("no error reported for line %d: %v", want, res.Errors)
		}
	}
}

func TestImportSkipsBlankRows(t *testing.T) {
	csv := "question,answer_type,correct_answer\nQ1,text,a1\n,,\nQ2,text,a2\n"
	store := newFakeBank()
	res, err := New(store).Import(context.Background(), "x.csv", strings.NewReader(csv), "a1")
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if res.Imported != 2 || len(res.Errors) != 0 {
		t.Errorf("imported=%d errors=%v", res.Imported, res.Errors)
	}
}

func TestImportRejectsUnknownExtension(t *testing.T) {
	_, err := New(newFakeBank()).Import(context.Background(), "bank.pdf", strings.NewReader("x"), "a1")
	if err != ErrUnsupportedFormat {
		t.Fatalf("err = %v, want ErrUnsupportedFormat", err)
	}
}

func TestPickSheet(t *testing.T) {
	cases := []struct {
		names []string
		want  string
	}{
		{[]string{"Лист1", "Вопросы"}, "Вопросы"},
		{[]string{"Data", "Other"}, "Data"},
		{[]string{"Misc"}, "Misc"},
		{[]string{}, ""},
		{nil, ""},
	}
	for _, c := range cases {
		if got := pickSheet(c.names); got != c.want {
			t.Errorf("pickSheet(%v) = %q, want %q", c.names, got, c.want)
		}
	}
}

func TestSplitList(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"a;b;c", []string{"a", "b", "c"}},
		{"a, b", []string{"a", "b"}},
		{"a|b", []string{"a", "b"}},
		{"solo", []string{"solo"}},
		{" ", nil},
		{"a; ;b", []string{"a", "b"}},
	}
	for _, c := range cases {
		got := splitList(c.in)
		if len(got) != len(c.want) {
			t.Errorf("splitList(%q) = %v, want %v", c.in, got, c.want)
			continue
		}
		for i := range got {
			if got[i] != c.want[i] {
				t.Errorf("splitList(%q) = %v, want %v", c.in, got, c.want)
			}
		}
	}
}
