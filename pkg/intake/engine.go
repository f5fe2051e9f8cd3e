package intake

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"medintake-be/pkg/textutil"
)

var (
	// ErrSessionComplete is a caller contract violation: submitting an
	// answer after the interview already finished.
	ErrSessionComplete = errors.New("interview already complete")

	// ErrTurnSuperseded means a newer utterance started processing while
	// this one was waiting on the oracle; its result was discarded.
	ErrTurnSuperseded = errors.New("turn superseded by a newer utterance")

	// ErrBlankUtterance rejects input that is empty after Unicode
	// whitespace normalization.
	ErrBlankUtterance = errors.New("utterance is blank")
)

// DefaultFallbackReply is spoken verbatim when the oracle cannot be reached.
// No technical detail leaks to the patient-facing surface.
const DefaultFallbackReply = "I'm sorry, I didn't quite catch that. Could you tell me that one more time?"

// Config carries the engine tunables. Zero values fall back to defaults so
// a zero Config is usable in tests.
type Config struct {
	// ContextTurns is the number of most recent transcript turns handed to
	// the oracle as context. Deployments tune this between 6 and 20.
	ContextTurns int
	// MaxTurnRunes bounds each context turn's text in code points before a
	// truncation marker is appended.
	MaxTurnRunes int
	// FallbackReply overrides DefaultFallbackReply, e.g. for localization.
	FallbackReply string
}

func (c Config) withDefaults() Config {
	if c.ContextTurns <= 0 {
		c.ContextTurns = 10
	}
	if c.MaxTurnRunes <= 0 {
		c.MaxTurnRunes = 200
	}
	if c.FallbackReply == "" {
		c.FallbackReply = DefaultFallbackReply
	}
	return c
}

// State is the serializable dialogue state of one interview session.
// CurrentIndex == len(bank) and Completed == true always hold together;
// Complete() is the single place both are set.
type State struct {
	CurrentIndex int               `json:"current_index"`
	Answers      map[string]string `json:"answers"` // question id -> attributed utterance
	Transcript   []Turn            `json:"transcript"`
	Completed    bool              `json:"completed"`
	TurnSeq      uint64            `json:"turn_seq"`
}

// NewState returns the initial state pointing at the first question.
func NewState() State {
	return State{Answers: map[string]string{}}
}

func (s State) clone() State {
	out := s
	out.Answers = make(map[string]string, len(s.Answers))
	for k, v := range s.Answers {
		out.Answers[k] = v
	}
	out.Transcript = make([]Turn, len(s.Transcript))
	copy(out.Transcript, s.Transcript)
	return out
}

// TurnResult is what one accepted utterance produced.
type TurnResult struct {
	Seq          uint64
	Reply        string
	Emotion      string
	Sufficient   bool
	CoveredIds   []string // other questions this utterance satisfied out of order
	Advanced     bool
	NextQuestion *Question // nil when staying on the same question or completed
	CurrentIndex int
	Completed    bool
}

// Engine owns the dialogue state of exactly one interview session. All
// transitions are synchronous; the oracle calls are the only suspension
// points. A monotonic sequence number guards against a stale oracle
// response committing out of order.
type Engine struct {
	bank   []Question
	oracle AnswerOracle
	cfg    Config
	logger *log.Logger

	mu  sync.Mutex
	st  State
	seq uint64 // latest assigned turn sequence
}

// NewEngine creates an engine for a fresh interview over bank.
func NewEngine(bank []Question, oracle AnswerOracle, cfg Config, logger *log.Logger) *Engine {
	return &Engine{
		bank:   bank,
		oracle: oracle,
		cfg:    cfg.withDefaults(),
		logger: logger,
		st:     NewState(),
	}
}

// Restore creates an engine resuming from a persisted state snapshot.
func Restore(bank []Question, oracle AnswerOracle, cfg Config, logger *log.Logger, st State) *Engine {
	if st.Answers == nil {
		st.Answers = map[string]string{}
	}
	return &Engine{
		bank:   bank,
		oracle: oracle,
		cfg:    cfg.withDefaults(),
		logger: logger,
		st:     st.clone(),
		seq:    st.TurnSeq,
	}
}

// State returns a snapshot of the current dialogue state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.st.clone()
}

// Questions returns the bank the engine was built over.
func (e *Engine) Questions() []Question {
	return e.bank
}

// CurrentQuestion returns the question being asked, or nil once complete.
func (e *Engine) CurrentQuestion() *Question {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.st.Completed || e.st.CurrentIndex >= len(e.bank) {
		return nil
	}
	q := e.bank[e.st.CurrentIndex]
	return &q
}

// RecordAssistant appends an assistant turn outside the submit flow, e.g.
// the greeting and the first question at session start.
func (e *Engine) RecordAssistant(text string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.st.Transcript = append(e.st.Transcript, Turn{
		Role:      RoleAssistant,
		Text:      text,
		Timestamp: time.Now(),
	})
}

// Submit processes one finalized patient utterance. If a newer utterance
// starts processing while this one is waiting on the oracle, this one's
// result is discarded and ErrTurnSuperseded returned; engine state then
// reflects only the newer turn's effects.
func (e *Engine) Submit(ctx context.Context, utterance string) (*TurnResult, error) {
	if textutil.IsBlank(utterance) {
		return nil, ErrBlankUtterance
	}

	e.mu.Lock()
	if e.st.Completed {
		e.mu.Unlock()
		return nil, ErrSessionComplete
	}
	e.seq++
	seq := e.seq
	st := e.st.clone()
	e.mu.Unlock()

	result := e.process(ctx, &st, seq, utterance)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.seq != seq {
		return nil, ErrTurnSuperseded
	}
	st.TurnSeq = seq
	e.st = st
	return result, nil
}

// process runs the full transition on a private state copy. It never fails:
// oracle errors degrade to deterministic fallbacks.
func (e *Engine) process(ctx context.Context, st *State, seq uint64, utterance string) *TurnResult {
	st.Transcript = append(st.Transcript, Turn{
		Role:      RolePatient,
		Text:      utterance,
		Timestamp: time.Now(),
	})

	current := e.bank[st.CurrentIndex]

	// Which other, still-open questions does this utterance settle?
	covered := e.classifyCoverage(ctx, st, utterance)
	var coveredOthers []string
	for _, id := range covered {
		if id == current.Id {
			// The sufficiency judge owns the verdict on the question
			// actually being asked; coverage never overrides it.
			continue
		}
		st.Answers[id] = utterance
		coveredOthers = append(coveredOthers, id)
	}

	verdict := e.judgeSufficiency(ctx, st, current, utterance)

	st.Transcript = append(st.Transcript, Turn{
		Role:      RoleAssistant,
		Text:      verdict.Reply,
		Timestamp: time.Now(),
	})

	result := &TurnResult{
		Seq:          seq,
		Reply:        verdict.Reply,
		Emotion:      verdict.Emotion,
		Sufficient:   verdict.Sufficient,
		CoveredIds:   coveredOthers,
		CurrentIndex: st.CurrentIndex,
	}

	if !verdict.Sufficient {
		return result
	}

	st.Answers[current.Id] = utterance
	result.Advanced = true

	if next := e.nextOpenIndex(st, st.CurrentIndex); next < len(e.bank) {
		st.CurrentIndex = next
		q := e.bank[next]
		result.NextQuestion = &q
		result.CurrentIndex = next
		st.Transcript = append(st.Transcript, Turn{
			Role:      RoleAssistant,
			Text:      q.Text,
			Timestamp: time.Now(),
		})
	} else {
		st.CurrentIndex = len(e.bank)
		st.Completed = true
		result.CurrentIndex = st.CurrentIndex
		result.Completed = true
	}

	return result
}

// classifyCoverage asks the oracle which open questions the utterance
// answers. Oracle failure means empty coverage, never a fatal error; ids the
// oracle invents that are not open candidates are dropped (and logged, since
// an unknown id would otherwise violate the answered-set invariant).
func (e *Engine) classifyCoverage(ctx context.Context, st *State, utterance string) []string {
	var candidates []Question
	candidateIds := make(map[string]bool)
	var answered []string
	for _, q := range e.bank {
		if _, ok := st.Answers[q.Id]; ok {
			answered = append(answered, q.Id)
			continue
		}
		candidates = append(candidates, q)
		candidateIds[q.Id] = true
	}

	covered, err := e.oracle.ClassifyCoverage(ctx, utterance, candidates, answered)
	if err != nil {
		e.logf("[ENGINE] coverage classification failed, assuming none: %v", err)
		return nil
	}

	var valid []string
	for _, id := range covered {
		if !candidateIds[id] {
			e.logf("[ENGINE] oracle referenced unknown or closed question %q, ignoring", id)
			continue
		}
		valid = append(valid, id)
	}
	return valid
}

// judgeSufficiency asks the oracle for a verdict on the current question.
// On failure the engine emits the fixed apologetic reply, keeps
// sufficient=false and stays on the same question. Never advances silently.
func (e *Engine) judgeSufficiency(ctx context.Context, st *State, current Question, utterance string) *SufficiencyVerdict {
	// Context excludes the patient turn just appended; the utterance is
	// passed to the oracle separately.
	recent := e.recentContext(st.Transcript[:len(st.Transcript)-1])

	verdict, err := e.oracle.JudgeSufficiency(ctx, current, utterance, recent)
	if err != nil {
		e.logf("[ENGINE] sufficiency judgment failed, using fallback reply: %v", err)
		return &SufficiencyVerdict{
			Reply:      e.cfg.FallbackReply,
			Emotion:    EmotionNeutral,
			Sufficient: false,
		}
	}
	if textutil.IsBlank(verdict.Reply) {
		verdict.Reply = e.cfg.FallbackReply
	}
	if !ValidEmotion(verdict.Emotion) {
		verdict.Emotion = EmotionNeutral
	}
	return verdict
}

// recentContext returns the most recent ContextTurns turns, skipping
// whitespace-only ones and bounding each turn's text.
func (e *Engine) recentContext(transcript []Turn) []Turn {
	var recent []Turn
	for i := len(transcript) - 1; i >= 0 && len(recent) < e.cfg.ContextTurns; i-- {
		t := transcript[i]
		if textutil.IsBlank(t.Text) {
			continue
		}
		t.Text = textutil.TruncateRunes(t.Text, e.cfg.MaxTurnRunes)
		recent = append(recent, t)
	}
	// restore chronological order
	for i, j := 0, len(recent)-1; i < j; i, j = i+1, j-1 {
		recent[i], recent[j] = recent[j], recent[i]
	}
	return recent
}

// nextOpenIndex finds the smallest index j > i whose question is still
// unanswered, or len(bank) when none is left.
func (e *Engine) nextOpenIndex(st *State, i int) int {
	for j := i + 1; j < len(e.bank); j++ {
		if _, ok := st.Answers[e.bank[j].Id]; !ok {
			return j
		}
	}
	return len(e.bank)
}

func (e *Engine) logf(format string, args ...interface{}) {
	if e.logger != nil {
		e.logger.Printf(format, args...)
	}
}
