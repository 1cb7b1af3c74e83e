package grading

import (
	"reflect"
	"testing"
)

func textQ(correct string) Question {
	return Question{ID: "q1", Kind: KindText, CorrectText: correct, Points: 1}
}

func choiceQ(kind Kind, opts ...Option) Question {
	return Question{ID: "q1", Kind: kind, Options: opts, Points: 1}
}

func TestEvaluateText(t *testing.T) {
	cases := []struct {
		name    string
		correct string
		text    string
		want    bool
	}{
		{"exact", "Paris", "Paris", true},
		{"trim and case", "Paris", "  paris ", true},
		{"wrong", "Paris", "London", false},
		{"empty submission", "Paris", "", false},
		{"whitespace only", "Paris", "   ", false},
		{"no accent folding", "café", "cafe", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := Evaluate(textQ(tc.correct), 5, Submission{Text: tc.text})
			if res.Correct != tc.want {
				t.Fatalf("correct=%v, want %v", res.Correct, tc.want)
			}
			wantPts := 0
			if tc.want {
				wantPts = 5
			}
			if res.Points != wantPts {
				t.Fatalf("points=%d, want %d", res.Points, wantPts)
			}
		})
	}
}

func TestEvaluateSingleChoice(t *testing.T) {
	q := choiceQ(KindSingleChoice,
		Option{ID: "a"}, Option{ID: "b", Correct: true}, Option{ID: "c"})

	cases := []struct {
		name     string
		selected string
		want     bool
	}{
		{"correct option", "b", true},
		{"wrong option", "a", false},
		{"more than one selected", "b,c", false},
		{"nothing selected", "", false},
		{"json payload", `["b"]`, true},
		{"duplicate of the correct option still one selection", "b,b", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := Evaluate(q, 2, Submission{SelectedSerialized: tc.selected})
			if res.Correct != tc.want {
				t.Fatalf("correct=%v, want %v", res.Correct, tc.want)
			}
		})
	}
}

// A single-choice question with two options flagged correct is a content
// authoring anomaly; either one selected alone must still grade correct.
func TestEvaluateSingleChoiceMultipleFlagged(t *testing.T) {
	q := choiceQ(KindSingleChoice,
		Option{ID: "a", Correct: true}, Option{ID: "b", Correct: true}, Option{ID: "c"})

	for _, sel := range []string{"a", "b"} {
		if res := Evaluate(q, 1, Submission{SelectedSerialized: sel}); !res.Correct {
			t.Fatalf("selecting %q alone should be correct", sel)
		}
	}
	if res := Evaluate(q, 1, Submission{SelectedSerialized: "a,b"}); res.Correct {
		t.Fatal("selecting both should be incorrect")
	}
}

func TestEvaluateMultipleChoice(t *testing.T) {
	q := choiceQ(KindMultipleChoice,
		Option{ID: "a", Correct: true}, Option{ID: "b", Correct: true}, Option{ID: "c"})

	cases := []struct {
		name     string
		selected string
		want     bool
	}{
		{"exact set", "a,b", true},
		{"order insensitive", "b,a", true},
		{"subset", "a", false},
		{"superset", "a,b,c", false},
		{"empty", "", false},
		{"json payload", `["a","b"]`, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := Evaluate(q, 3, Submission{SelectedSerialized: tc.selected})
			if res.Correct != tc.want {
				t.Fatalf("correct=%v, want %v", res.Correct, tc.want)
			}
		})
	}
}

// No option flagged correct: every submission grades incorrect, never an error.
func TestEvaluateMultipleChoiceNoCorrectOptions(t *testing.T) {
	q := choiceQ(KindMultipleChoice, Option{ID: "a"}, Option{ID: "b"})
	for _, sel := range []string{"", "a", "a,b", "garbage[["} {
		if res := Evaluate(q, 3, Submission{SelectedSerialized: sel}); res.Correct || res.Points != 0 {
			t.Fatalf("selection %q: got %+v, want incorrect/0", sel, res)
		}
	}
}

func TestEvaluateUnknownKind(t *testing.T) {
	q := Question{ID: "q1", Kind: Kind("essay"), Points: 4}
	if res := Evaluate(q, 4, Submission{Text: "anything"}); res.Correct || res.Points != 0 {
		t.Fatalf("unknown kind must grade incorrect, got %+v", res)
	}
}

func TestEvaluateIsPure(t *testing.T) {
	q := choiceQ(KindMultipleChoice, Option{ID: "a", Correct: true}, Option{ID: "b", Correct: true})
	sub := Submission{SelectedSerialized: "b,a"}
	first := Evaluate(q, 3, sub)
	for i := 0; i < 10; i++ {
		if got := Evaluate(q, 3, sub); got != first {
			t.Fatalf("call %d: got %+v, want %+v", i, got, first)
		}
	}
}

func TestParseSelection(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want []string
	}{
		{"empty", "", nil},
		{"comma list", "1,2,3", []string{"1", "2", "3"}},
		{"comma list with spaces", " a , b ", []string{"a", "b"}},
		{"dangling commas", ",a,,b,", []string{"a", "b"}},
		{"duplicates collapse", "a,b,a", []string{"a", "b"}},
		{"json strings", `["x","y"]`, []string{"x", "y"}},
		{"json numbers", `[1,2]`, []string{"1", "2"}},
		{"json malformed", `["x",`, nil},
		{"json non-scalar element", `[{"id":1}]`, nil},
		{"not structured at all", "]]][[", []string{"]]][["}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ParseSelection(tc.in)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("ParseSelection(%q) = %#v, want %#v", tc.in, got, tc.want)
			}
		})
	}
}
