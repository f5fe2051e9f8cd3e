package intake

import (
	"context"
	"errors"
	"sync"
	"testing"
)

// mockOracle scripts oracle behavior per call.
type mockOracle struct {
	classify func(utterance string, candidates []Question, answered []string) ([]string, error)
	judge    func(q Question, utterance string, recent []Turn) (*SufficiencyVerdict, error)
	summary  func(transcript []Turn, bank []Question) (*SummaryResult, error)
}

func (m *mockOracle) ClassifyCoverage(ctx context.Context, utterance string, candidates []Question, answered []string) ([]string, error) {
	if m.classify == nil {
		return nil, nil
	}
	return m.classify(utterance, candidates, answered)
}

func (m *mockOracle) JudgeSufficiency(ctx context.Context, q Question, utterance string, recent []Turn) (*SufficiencyVerdict, error) {
	if m.judge == nil {
		return &SufficiencyVerdict{Reply: "ok", Emotion: EmotionNeutral, Sufficient: true}, nil
	}
	return m.judge(q, utterance, recent)
}

func (m *mockOracle) Summarize(ctx context.Context, transcript []Turn, bank []Question) (*SummaryResult, error) {
	if m.summary == nil {
		return &SummaryResult{}, nil
	}
	return m.summary(transcript, bank)
}

func testBank() []Question {
	return []Question{
		{Id: "q1", Text: "How did you sleep last night?", Required: true, Type: QuestionFreeText},
		{Id: "q2", Text: "How is your appetite?", Required: true, Type: QuestionFreeText},
		{Id: "q3", Text: "Any pain right now?", Required: true, Type: QuestionFreeText},
	}
}

func sufficientJudge(reply string) func(Question, string, []Turn) (*SufficiencyVerdict, error) {
	return func(Question, string, []Turn) (*SufficiencyVerdict, error) {
		return &SufficiencyVerdict{Reply: reply, Emotion: EmotionGentle, Sufficient: true}, nil
	}
}

func TestSingleUtteranceCoversMultipleQuestions(t *testing.T) {
	// Scenario: one utterance answers the current question and the next
	// one; the engine should jump straight past both.
	bank := testBank()[:2]
	oracle := &mockOracle{
		classify: func(string, []Question, []string) ([]string, error) {
			return []string{"q1", "q2"}, nil
		},
		judge: sufficientJudge("Thank you, noted."),
	}
	engine := NewEngine(bank, oracle, Config{}, nil)

	result, err := engine.Submit(context.Background(), "I only slept 2 hours and have no appetite")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Completed {
		t.Error("expected interview to complete after one turn")
	}
	if len(result.CoveredIds) != 1 || result.CoveredIds[0] != "q2" {
		t.Errorf("CoveredIds = %v, want [q2]", result.CoveredIds)
	}

	st := engine.State()
	if st.CurrentIndex != len(bank) || !st.Completed {
		t.Errorf("terminal state inconsistent: index=%d completed=%v", st.CurrentIndex, st.Completed)
	}
}

func TestInsufficientAnswerStaysOnQuestion(t *testing.T) {
	// Three insufficient verdicts in a row: pointer never moves, no error.
	oracle := &mockOracle{
		judge: func(Question, string, []Turn) (*SufficiencyVerdict, error) {
			return &SufficiencyVerdict{Reply: "When did it start?", Emotion: EmotionThinking, Sufficient: false}, nil
		},
	}
	engine := NewEngine(testBank(), oracle, Config{}, nil)

	for i := 0; i < 3; i++ {
		result, err := engine.Submit(context.Background(), "badly")
		if err != nil {
			t.Fatalf("turn %d: unexpected error: %v", i, err)
		}
		if result.CurrentIndex != 0 {
			t.Errorf("turn %d: CurrentIndex = %d, want 0", i, result.CurrentIndex)
		}
		if result.Advanced {
			t.Errorf("turn %d: advanced on insufficient verdict", i)
		}
	}
}

func TestOracleFailureEmitsFallback(t *testing.T) {
	oracle := &mockOracle{
		judge: func(Question, string, []Turn) (*SufficiencyVerdict, error) {
			return nil, ErrOracleUnavailable
		},
	}
	engine := NewEngine(testBank(), oracle, Config{}, nil)

	result, err := engine.Submit(context.Background(), "my head hurts")
	if err != nil {
		t.Fatalf("oracle failure must not surface as an error, got: %v", err)
	}
	if result.Reply != DefaultFallbackReply {
		t.Errorf("Reply = %q, want fallback", result.Reply)
	}
	if result.Emotion != EmotionNeutral {
		t.Errorf("Emotion = %q, want neutral", result.Emotion)
	}
	if result.Advanced || result.CurrentIndex != 0 {
		t.Error("engine must not advance on oracle failure")
	}
}

func TestCoverageFailureIsEmptyCoverage(t *testing.T) {
	oracle := &mockOracle{
		classify: func(string, []Question, []string) ([]string, error) {
			return nil, ErrOracleUnavailable
		},
		judge: sufficientJudge("Got it."),
	}
	engine := NewEngine(testBank(), oracle, Config{}, nil)

	result, err := engine.Submit(context.Background(), "slept fine")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.CoveredIds) != 0 {
		t.Errorf("CoveredIds = %v, want none", result.CoveredIds)
	}
	if !result.Advanced {
		t.Error("sufficiency verdict should still advance the question")
	}
}

func TestSufficiencyJudgeWinsOverCoverageForCurrentQuestion(t *testing.T) {
	// Coverage classifier claims the current question is covered, but the
	// judge says insufficient. The judge wins: no advance.
	oracle := &mockOracle{
		classify: func(string, []Question, []string) ([]string, error) {
			return []string{"q1"}, nil
		},
		judge: func(Question, string, []Turn) (*SufficiencyVerdict, error) {
			return &SufficiencyVerdict{Reply: "Tell me more.", Emotion: EmotionThinking, Sufficient: false}, nil
		},
	}
	engine := NewEngine(testBank(), oracle, Config{}, nil)

	result, err := engine.Submit(context.Background(), "hmm")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Advanced || result.CurrentIndex != 0 {
		t.Error("coverage must never override an insufficient verdict on the current question")
	}
	if _, ok := engine.State().Answers["q1"]; ok {
		t.Error("current question must not be marked answered by coverage alone")
	}
}

func TestAdvanceSkipsAlreadyCoveredQuestions(t *testing.T) {
	// First turn covers q2 out of order; after q1 is sufficient the engine
	// should land on q3, never revisiting q2.
	calls := 0
	oracle := &mockOracle{
		classify: func(string, []Question, []string) ([]string, error) {
			calls++
			if calls == 1 {
				return []string{"q2"}, nil
			}
			return nil, nil
		},
		judge: sufficientJudge("Understood."),
	}
	engine := NewEngine(testBank(), oracle, Config{}, nil)

	result, err := engine.Submit(context.Background(), "slept ok, appetite is terrible")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.NextQuestion == nil || result.NextQuestion.Id != "q3" {
		t.Fatalf("NextQuestion = %+v, want q3", result.NextQuestion)
	}
}

func TestPointerOnlyMovesForward(t *testing.T) {
	sufficient := false
	oracle := &mockOracle{
		judge: func(Question, string, []Turn) (*SufficiencyVerdict, error) {
			sufficient = !sufficient
			return &SufficiencyVerdict{Reply: "ok", Emotion: EmotionNeutral, Sufficient: sufficient}, nil
		},
	}
	engine := NewEngine(testBank(), oracle, Config{}, nil)

	last := 0
	prevAnswered := 0
	for i := 0; i < 6; i++ {
		result, err := engine.Submit(context.Background(), "something")
		if err != nil {
			if errors.Is(err, ErrSessionComplete) {
				break
			}
			t.Fatalf("turn %d: %v", i, err)
		}
		if result.CurrentIndex < last {
			t.Fatalf("pointer moved backwards: %d -> %d", last, result.CurrentIndex)
		}
		last = result.CurrentIndex

		answered := len(engine.State().Answers)
		if answered < prevAnswered {
			t.Fatalf("answered set shrank: %d -> %d", prevAnswered, answered)
		}
		prevAnswered = answered
	}
}

func TestSubmitAfterCompleteFails(t *testing.T) {
	oracle := &mockOracle{
		classify: func(string, []Question, []string) ([]string, error) {
			return []string{"q1", "q2", "q3"}, nil
		},
		judge: sufficientJudge("done"),
	}
	engine := NewEngine(testBank(), oracle, Config{}, nil)

	if _, err := engine.Submit(context.Background(), "everything at once"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := engine.Submit(context.Background(), "one more thing"); !errors.Is(err, ErrSessionComplete) {
		t.Errorf("err = %v, want ErrSessionComplete", err)
	}
}

func TestBlankUtteranceRejected(t *testing.T) {
	engine := NewEngine(testBank(), &mockOracle{}, Config{}, nil)
	if _, err := engine.Submit(context.Background(), " ​ \n "); !errors.Is(err, ErrBlankUtterance) {
		t.Errorf("err = %v, want ErrBlankUtterance", err)
	}
}

func TestStaleTurnIsDiscarded(t *testing.T) {
	// Turn 1 blocks inside the oracle until turn 2 has fully committed.
	// Turn 1 must then be discarded; state reflects only turn 2.
	release := make(chan struct{})
	var once sync.Once
	firstCall := true
	var mu sync.Mutex

	oracle := &mockOracle{
		judge: func(q Question, utterance string, recent []Turn) (*SufficiencyVerdict, error) {
			mu.Lock()
			isFirst := firstCall
			firstCall = false
			mu.Unlock()
			if isFirst {
				<-release
			}
			return &SufficiencyVerdict{Reply: "ack: " + utterance, Emotion: EmotionNeutral, Sufficient: false}, nil
		},
	}
	engine := NewEngine(testBank(), oracle, Config{}, nil)

	var staleErr error
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, staleErr = engine.Submit(context.Background(), "stale utterance")
	}()

	// Second turn: runs to completion while the first is parked.
	for {
		mu.Lock()
		started := !firstCall
		mu.Unlock()
		if started {
			break
		}
	}
	if _, err := engine.Submit(context.Background(), "fresh utterance"); err != nil {
		t.Fatalf("fresh turn failed: %v", err)
	}

	once.Do(func() { close(release) })
	wg.Wait()

	if !errors.Is(staleErr, ErrTurnSuperseded) {
		t.Errorf("stale turn err = %v, want ErrTurnSuperseded", staleErr)
	}

	st := engine.State()
	for _, turn := range st.Transcript {
		if turn.Text == "stale utterance" || turn.Text == "ack: stale utterance" {
			t.Error("stale turn leaked into transcript")
		}
	}
	if st.TurnSeq != 2 {
		t.Errorf("TurnSeq = %d, want 2", st.TurnSeq)
	}
}

func TestRecentContextFiltersAndTruncates(t *testing.T) {
	var captured []Turn
	long := make([]rune, 0, 300)
	for i := 0; i < 300; i++ {
		long = append(long, 'x')
	}

	oracle := &mockOracle{
		judge: func(q Question, utterance string, recent []Turn) (*SufficiencyVerdict, error) {
			captured = recent
			return &SufficiencyVerdict{Reply: "ok", Emotion: EmotionNeutral, Sufficient: false}, nil
		},
	}
	engine := NewEngine(testBank(), oracle, Config{ContextTurns: 2, MaxTurnRunes: 50}, nil)
	engine.RecordAssistant("How did you sleep last night?")
	engine.RecordAssistant("   ") // blank turn, must be dropped
	engine.RecordAssistant(string(long))

	if _, err := engine.Submit(context.Background(), "fine"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(captured) != 2 {
		t.Fatalf("context length = %d, want 2", len(captured))
	}
	if len([]rune(captured[1].Text)) > 50+len([]rune("…[truncated]")) {
		t.Errorf("turn text not truncated: %d runes", len([]rune(captured[1].Text)))
	}
	for _, turn := range captured {
		if turn.Text == "   " {
			t.Error("blank turn leaked into context")
		}
	}
}

func TestUnknownCoverageIdsIgnored(t *testing.T) {
	oracle := &mockOracle{
		classify: func(string, []Question, []string) ([]string, error) {
			return []string{"q2", "made-up-id"}, nil
		},
		judge: sufficientJudge("ok"),
	}
	engine := NewEngine(testBank(), oracle, Config{}, nil)

	if _, err := engine.Submit(context.Background(), "answer"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	st := engine.State()
	if _, ok := st.Answers["made-up-id"]; ok {
		t.Error("hallucinated question id entered the answered set")
	}
	if _, ok := st.Answers["q2"]; !ok {
		t.Error("valid covered question missing from answered set")
	}
}
