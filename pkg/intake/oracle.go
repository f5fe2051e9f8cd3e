package intake

import (
	"context"
	"errors"
)

var (
	// ErrOracleUnavailable means the underlying model call could not be
	// completed after exhausting retries. Callers recover locally; this
	// never propagates to the patient-facing surface.
	ErrOracleUnavailable = errors.New("oracle unavailable")

	// ErrOracleMalformed means the response was not parseable as the
	// expected schema even after balanced-brace extraction.
	ErrOracleMalformed = errors.New("oracle response malformed")
)

// SufficiencyVerdict is the oracle's judgment on the question currently
// being asked.
type SufficiencyVerdict struct {
	Reply      string `json:"reply"`
	Emotion    string `json:"emotion"`
	Sufficient bool   `json:"sufficient"`
}

// SummaryResult is the batched extraction produced after the interview.
type SummaryResult struct {
	FormattedAnswers []FormattedAnswer `json:"formatted_answers"`
	Summary          string            `json:"summary"`
}

// AnswerOracle is the opaque decision-making service (a language model)
// the engine consults. Implementations own their retry budget; the engine
// treats ErrOracleUnavailable as "no judgment", never as fatal.
type AnswerOracle interface {
	// ClassifyCoverage returns the subset of candidate question ids that
	// utterance plausibly answers. Empty set when evidence is ambiguous:
	// a false positive silently skips a question, a false negative just
	// asks it again later.
	ClassifyCoverage(ctx context.Context, utterance string, candidates []Question, answered []string) ([]string, error)

	// JudgeSufficiency decides whether question now has enough information,
	// and produces the acknowledgment or follow-up to speak. recentContext
	// lets the oracle track which facets (onset, location, severity,
	// trigger) are still missing across multiple turns on the same question.
	JudgeSufficiency(ctx context.Context, question Question, utterance string, recentContext []Turn) (*SufficiencyVerdict, error)

	// Summarize re-examines the full transcript against the question bank
	// and extracts one best answer per question plus a short narrative.
	Summarize(ctx context.Context, transcript []Turn, bank []Question) (*SummaryResult, error)
}
