package exam_test

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/pomogitepozhaluyst/quiz3/internal/exam"
	"github.com/pomogitepozhaluyst/quiz3/internal/grading"
)

/* ---------------- In-memory fakes that satisfy the exam store interfaces ---------------- */

type fakeStore struct {
	questions map[string]grading.Question
	tests     map[string]exam.Test
	weights   map[string][]exam.QuestionWeight // testID -> weights
	sessions  map[string]exam.Session
	answers   map[string]map[string]exam.Answer // sessionID -> questionID -> answer
	saves     int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		questions: map[string]grading.Question{},
		tests:     map[string]exam.Test{},
		weights:   map[string][]exam.QuestionWeight{},
		sessions:  map[string]exam.Session{},
		answers:   map[string]map[string]exam.Answer{},
	}
}

func (f *fakeStore) GradingQuestion(_ context.Context, id string) (grading.Question, error) {
	q, ok := f.questions[id]
	if !ok {
		return grading.Question{}, exam.ErrQuestionNotFound
	}
	return q, nil
}

func (f *fakeStore) GetTest(_ context.Context, id string) (exam.Test, error) {
	t, ok := f.tests[id]
	if !ok {
		return exam.Test{}, exam.ErrTestNotFound
	}
	return t, nil
}

func (f *fakeStore) QuestionWeights(_ context.Context, testID string) ([]exam.QuestionWeight, error) {
	return f.weights[testID], nil
}

func (f *fakeStore) CreateSession(_ context.Context, s exam.Session) error {
	f.sessions[s.ID] = s
	return nil
}

func (f *fakeStore) GetSession(_ context.Context, id string) (exam.Session, error) {
	s, ok := f.sessions[id]
	if !ok {
		return exam.Session{}, exam.ErrSessionNotFound
	}
	return s, nil
}

func (f *fakeStore) CountSessions(_ context.Context, userID, testID string) (int, error) {
	n := 0
	for _, s := range f.sessions {
		if s.UserID == userID && s.TestID == testID {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) ListSessions(_ context.Context, userID, testID string) ([]exam.Session, error) {
	var out []exam.Session
	for _, s := range f.sessions {
		if s.UserID == userID && s.TestID == testID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt > out[j].StartedAt })
	return out, nil
}

func (f *fakeStore) ListAnswers(_ context.Context, sessionID string) ([]exam.Answer, error) {
	var out []exam.Answer
	for _, a := range f.answers[sessionID] {
		out = append(out, a)
	}
	return out, nil
}

func (f *fakeStore) SaveAnswer(_ context.Context, a exam.Answer, totals exam.ScoreSnapshot) error {
	f.saves++
	if f.answers[a.SessionID] == nil {
		f.answers[a.SessionID] = map[string]exam.Answer{}
	}
	f.answers[a.SessionID][a.QuestionID] = a
	s := f.sessions[a.SessionID]
	s.Score, s.MaxScore, s.Percentage = totals.Score, totals.MaxScore, totals.Percentage
	f.sessions[a.SessionID] = s
	return nil
}

func (f *fakeStore) FinalizeSession(_ context.Context, s exam.Session) error {
	f.sessions[s.ID] = s
	return nil
}

type recordedCompletion struct {
	session exam.Session
	answers []exam.Answer
}

type fakeListener struct{ completions []recordedCompletion }

func (l *fakeListener) SessionCompleted(_ context.Context, s exam.Session, answers []exam.Answer) error {
	l.completions = append(l.completions, recordedCompletion{s, answers})
	return nil
}

/* ------------------------------------------ Seed ------------------------------------------ */

// Two-question test: Q1 text "Paris" worth 5, Q2 single-choice worth 3.
func seedTest(f *fakeStore) {
	f.tests["t1"] = exam.Test{ID: "t1", Title: "Geography", AuthorID: "teacher", MaxAttempts: 0, IsActive: true}
	f.questions["q1"] = grading.Question{ID: "q1", Kind: grading.KindText, CorrectText: "Paris", Points: 1}
	f.questions["q2"] = grading.Question{ID: "q2", Kind: grading.KindSingleChoice, Points: 1,
		Options: []grading.Option{{ID: "a"}, {ID: "b", Correct: true}, {ID: "c"}}}
	f.weights["t1"] = []exam.QuestionWeight{
		{QuestionID: "q1", TestPoints: 5, IntrinsicPoints: 1},
		{QuestionID: "q2", TestPoints: 3, IntrinsicPoints: 1},
	}
}

func fixedClock(sec *int64) func() time.Time {
	return func() time.Time { return time.Unix(*sec, 0) }
}

/* ------------------------------------------ Tests ------------------------------------------ */

func TestStartSessionPrecomputesMaxScore(t *testing.T) {
	f := newFakeStore()
	seedTest(f)
	svc := exam.NewService(f, f, f)

	s, err := svc.StartSession(context.Background(), "u1", "t1", "")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if s.MaxScore != 8 || s.Score != 0 || s.Status != exam.SessionOpen || s.AttemptNumber != 1 {
		t.Fatalf("unexpected session: %+v", s)
	}
}

func TestStartSessionAttemptLimit(t *testing.T) {
	f := newFakeStore()
	seedTest(f)
	test := f.tests["t1"]
	test.MaxAttempts = 2
	f.tests["t1"] = test
	svc := exam.NewService(f, f, f)
	ctx := context.Background()

	for i := 1; i <= 2; i++ {
		s, err := svc.StartSession(ctx, "u1", "t1", "")
		if err != nil {
			t.Fatalf("attempt %d: %v", i, err)
		}
		if s.AttemptNumber != i {
			t.Fatalf("attempt_number=%d, want %d", s.AttemptNumber, i)
		}
	}
	if _, err := svc.StartSession(ctx, "u1", "t1", ""); !errors.Is(err, exam.ErrAttemptLimit) {
		t.Fatalf("third start: got %v, want ErrAttemptLimit", err)
	}
	// another user is unaffected
	if _, err := svc.StartSession(ctx, "u2", "t1", ""); err != nil {
		t.Fatalf("other user: %v", err)
	}
}

func TestStartSessionUnlimitedAttempts(t *testing.T) {
	f := newFakeStore()
	seedTest(f)
	svc := exam.NewService(f, f, f)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if _, err := svc.StartSession(ctx, "u1", "t1", ""); err != nil {
			t.Fatalf("attempt %d: %v", i, err)
		}
	}
}

func TestStartSessionUnknownTest(t *testing.T) {
	f := newFakeStore()
	svc := exam.NewService(f, f, f)
	if _, err := svc.StartSession(context.Background(), "u1", "nope", ""); !errors.Is(err, exam.ErrTestNotFound) {
		t.Fatalf("got %v, want ErrTestNotFound", err)
	}
}

func TestSubmitAnswerScoresAndRecomputes(t *testing.T) {
	f := newFakeStore()
	seedTest(f)
	svc := exam.NewService(f, f, f)
	ctx := context.Background()

	s, _ := svc.StartSession(ctx, "u1", "t1", "")

	ans, totals, err := svc.SubmitAnswer(ctx, "u1", s.ID, exam.AnswerInput{
		QuestionID: "q1", Text: " paris ",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !ans.Correct || ans.Points != 5 {
		t.Fatalf("answer: %+v", ans)
	}
	// 5 of 8 rounds to 63, ties away from zero
	if totals.Score != 5 || totals.MaxScore != 8 || totals.Percentage != 63 {
		t.Fatalf("totals: %+v", totals)
	}

	ans, totals, err = svc.SubmitAnswer(ctx, "u1", s.ID, exam.AnswerInput{
		QuestionID: "q2", SelectedSerialized: "b",
	})
	if err != nil {
		t.Fatalf("submit q2: %v", err)
	}
	if !ans.Correct || ans.Points != 3 || totals.Score != 8 || totals.Percentage != 100 {
		t.Fatalf("after q2: ans=%+v totals=%+v", ans, totals)
	}
}

func TestSubmitAnswerIdempotentResubmission(t *testing.T) {
	f := newFakeStore()
	seedTest(f)
	svc := exam.NewService(f, f, f)
	ctx := context.Background()

	s, _ := svc.StartSession(ctx, "u1", "t1", "")
	in := exam.AnswerInput{QuestionID: "q1", Text: "Paris"}

	_, first, err := svc.SubmitAnswer(ctx, "u1", s.ID, in)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	for i := 0; i < 3; i++ {
		_, again, err := svc.SubmitAnswer(ctx, "u1", s.ID, in)
		if err != nil {
			t.Fatalf("resubmit %d: %v", i, err)
		}
		if again != first {
			t.Fatalf("resubmit %d changed totals: %+v != %+v", i, again, first)
		}
	}
	if len(f.answers[s.ID]) != 1 {
		t.Fatalf("expected 1 answer record, got %d", len(f.answers[s.ID]))
	}
}

// A corrected-to-wrong resubmission drops the score; it never stacks.
func TestSubmitAnswerOverwriteDropsScore(t *testing.T) {
	f := newFakeStore()
	seedTest(f)
	svc := exam.NewService(f, f, f)
	ctx := context.Background()

	s, _ := svc.StartSession(ctx, "u1", "t1", "")
	_, totals, _ := svc.SubmitAnswer(ctx, "u1", s.ID, exam.AnswerInput{QuestionID: "q1", Text: "Paris"})
	if totals.Score != 5 {
		t.Fatalf("setup: %+v", totals)
	}
	_, totals, err := svc.SubmitAnswer(ctx, "u1", s.ID, exam.AnswerInput{QuestionID: "q1", Text: "London"})
	if err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	if totals.Score != 0 || totals.Percentage != 0 {
		t.Fatalf("score must drop to 0, got %+v", totals)
	}
}

func TestSubmitAnswerGuards(t *testing.T) {
	f := newFakeStore()
	seedTest(f)
	svc := exam.NewService(f, f, f)
	ctx := context.Background()
	s, _ := svc.StartSession(ctx, "u1", "t1", "")

	if _, _, err := svc.SubmitAnswer(ctx, "u1", "missing", exam.AnswerInput{QuestionID: "q1"}); !errors.Is(err, exam.ErrSessionNotFound) {
		t.Fatalf("missing session: %v", err)
	}
	if _, _, err := svc.SubmitAnswer(ctx, "intruder", s.ID, exam.AnswerInput{QuestionID: "q1"}); !errors.Is(err, exam.ErrSessionNotFound) {
		t.Fatalf("foreign session must look absent: %v", err)
	}
	if _, _, err := svc.SubmitAnswer(ctx, "u1", s.ID, exam.AnswerInput{QuestionID: "ghost"}); !errors.Is(err, exam.ErrQuestionNotFound) {
		t.Fatalf("missing question: %v", err)
	}

	if _, err := svc.CompleteSession(ctx, "u1", s.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if _, _, err := svc.SubmitAnswer(ctx, "u1", s.ID, exam.AnswerInput{QuestionID: "q1"}); !errors.Is(err, exam.ErrSessionClosed) {
		t.Fatalf("closed session: %v", err)
	}
}

// Malformed selection payloads degrade to a wrong answer, never an error.
func TestSubmitAnswerMalformedSelection(t *testing.T) {
	f := newFakeStore()
	seedTest(f)
	svc := exam.NewService(f, f, f)
	ctx := context.Background()
	s, _ := svc.StartSession(ctx, "u1", "t1", "")

	ans, totals, err := svc.SubmitAnswer(ctx, "u1", s.ID, exam.AnswerInput{
		QuestionID: "q2", SelectedSerialized: `["b",`,
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if ans.Correct || ans.Points != 0 || totals.Score != 0 {
		t.Fatalf("malformed payload must grade incorrect: ans=%+v totals=%+v", ans, totals)
	}
}

func TestCompleteSession(t *testing.T) {
	f := newFakeStore()
	seedTest(f)
	clock := int64(1000)
	listener := &fakeListener{}
	svc := exam.NewService(f, f, f,
		exam.WithClock(fixedClock(&clock)),
		exam.WithCompletionListener(listener))
	ctx := context.Background()

	s, _ := svc.StartSession(ctx, "u1", "t1", "")
	_, _, _ = svc.SubmitAnswer(ctx, "u1", s.ID, exam.AnswerInput{QuestionID: "q1", Text: "Paris"})

	clock = 1090
	done, err := svc.CompleteSession(ctx, "u1", s.ID)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if done.Status != exam.SessionCompleted || done.FinishedAt != 1090 || done.TimeSpentSec != 90 {
		t.Fatalf("finalized session: %+v", done)
	}
	if done.Score != 5 || done.MaxScore != 8 || done.Percentage != 63 {
		t.Fatalf("final totals: %+v", done)
	}
	if len(listener.completions) != 1 || len(listener.completions[0].answers) != 1 {
		t.Fatalf("listener not notified correctly: %+v", listener.completions)
	}

	// second completion is rejected and mutates nothing
	before := f.sessions[s.ID]
	if _, err := svc.CompleteSession(ctx, "u1", s.ID); !errors.Is(err, exam.ErrAlreadyCompleted) {
		t.Fatalf("second complete: %v", err)
	}
	if f.sessions[s.ID] != before {
		t.Fatal("second complete mutated the session")
	}
	if len(listener.completions) != 1 {
		t.Fatal("second complete re-notified listeners")
	}
}

func TestCompleteSessionClockSkewClampsToZero(t *testing.T) {
	f := newFakeStore()
	seedTest(f)
	clock := int64(2000)
	svc := exam.NewService(f, f, f, exam.WithClock(fixedClock(&clock)))
	ctx := context.Background()

	s, _ := svc.StartSession(ctx, "u1", "t1", "")
	clock = 1500 // clock went backwards
	done, err := svc.CompleteSession(ctx, "u1", s.ID)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if done.TimeSpentSec != 0 {
		t.Fatalf("time_spent must clamp to 0, got %d", done.TimeSpentSec)
	}
}

func TestRecomputeIsStable(t *testing.T) {
	f := newFakeStore()
	seedTest(f)
	svc := exam.NewService(f, f, f)
	ctx := context.Background()

	s, _ := svc.StartSession(ctx, "u1", "t1", "")
	_, _, _ = svc.SubmitAnswer(ctx, "u1", s.ID, exam.AnswerInput{QuestionID: "q1", Text: "Paris"})

	first, err := svc.Recompute(ctx, s.ID)
	if err != nil {
		t.Fatalf("recompute: %v", err)
	}
	for i := 0; i < 3; i++ {
		again, err := svc.Recompute(ctx, s.ID)
		if err != nil {
			t.Fatalf("recompute %d: %v", i, err)
		}
		if again != first {
			t.Fatalf("recompute %d drifted: %+v != %+v", i, again, first)
		}
	}
}

// max_score counts every bound question, answered or not; an empty weight
// set yields percentage 0 with no division.
func TestRecomputeEdgeWeights(t *testing.T) {
	f := newFakeStore()
	seedTest(f)
	f.tests["t0"] = exam.Test{ID: "t0", Title: "Empty", AuthorID: "teacher", IsActive: true}
	svc := exam.NewService(f, f, f)
	ctx := context.Background()

	s, err := svc.StartSession(ctx, "u1", "t0", "")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	totals, err := svc.Recompute(ctx, s.ID)
	if err != nil {
		t.Fatalf("recompute: %v", err)
	}
	if totals.MaxScore != 0 || totals.Percentage != 0 {
		t.Fatalf("empty test totals: %+v", totals)
	}
}

func TestSessionHistory(t *testing.T) {
	f := newFakeStore()
	seedTest(f)
	clock := int64(1000)
	svc := exam.NewService(f, f, f, exam.WithClock(fixedClock(&clock)))
	ctx := context.Background()

	first, _ := svc.StartSession(ctx, "u1", "t1", "")
	clock = 2000
	second, _ := svc.StartSession(ctx, "u1", "t1", "")
	_, _ = svc.StartSession(ctx, "u2", "t1", "")

	got, err := svc.SessionHistory(ctx, "u1", "t1")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d sessions, want 2", len(got))
	}
	if got[0].ID != second.ID || got[1].ID != first.ID {
		t.Errorf("order = [%s %s], want newest first", got[0].ID, got[1].ID)
	}

	if _, err := svc.SessionHistory(ctx, "u1", "nope"); !errors.Is(err, exam.ErrTestNotFound) {
		t.Errorf("unknown test: got %v, want ErrTestNotFound", err)
	}
	empty, err := svc.SessionHistory(ctx, "u3", "t1")
	if err != nil || len(empty) != 0 {
		t.Errorf("no attempts: got %v, %v", empty, err)
	}
}
