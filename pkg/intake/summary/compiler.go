// Package summary turns a finished interview transcript into one best
// answer per question plus a short narrative.
package summary

import (
	"context"
	"log"

	"medintake-be/pkg/intake"
	"medintake-be/pkg/textutil"
)

// FallbackNarrative is used when the oracle cannot produce a summary at all.
const FallbackNarrative = "The interview was recorded, but an automatic summary could not be generated. Please review the transcript manually."

// Compiler re-examines the full transcript against the question bank.
// It holds no mutable state; Summarize may be called repeatedly and yields
// identical output for identical input (given a deterministic oracle).
type Compiler struct {
	oracle intake.AnswerOracle
	logger *log.Logger
}

func NewCompiler(oracle intake.AnswerOracle, logger *log.Logger) *Compiler {
	return &Compiler{
		oracle: oracle,
		logger: logger,
	}
}

// Summarize produces exactly one FormattedAnswer per bank question, in bank
// order, plus a narrative. It never fails: on total oracle failure every
// question gets the no-answer sentinel with low confidence and the fixed
// fallback narrative.
func (c *Compiler) Summarize(ctx context.Context, transcript []intake.Turn, bank []intake.Question) *intake.SummaryResult {
	if len(bank) == 0 {
		return &intake.SummaryResult{FormattedAnswers: []intake.FormattedAnswer{}}
	}

	raw, err := c.oracle.Summarize(ctx, transcript, bank)
	if err != nil {
		if c.logger != nil {
			c.logger.Printf("[SUMMARY] oracle failed, falling back to sentinel answers: %v", err)
		}
		return c.fallback(bank)
	}

	return c.normalize(raw, bank)
}

// normalize forces the oracle output into the guaranteed shape: bank order,
// every question id exactly once, no empty answers, valid confidence.
func (c *Compiler) normalize(raw *intake.SummaryResult, bank []intake.Question) *intake.SummaryResult {
	byId := make(map[string]intake.FormattedAnswer, len(raw.FormattedAnswers))
	for _, fa := range raw.FormattedAnswers {
		if _, dup := byId[fa.QuestionId]; dup {
			continue // keep the first occurrence
		}
		byId[fa.QuestionId] = fa
	}

	answers := make([]intake.FormattedAnswer, 0, len(bank))
	for _, q := range bank {
		fa, ok := byId[q.Id]
		if !ok || textutil.IsBlank(fa.ExtractedAnswer) {
			answers = append(answers, intake.FormattedAnswer{
				QuestionId:      q.Id,
				QuestionText:    q.Text,
				ExtractedAnswer: intake.NoAnswerSentinel,
				Confidence:      intake.ConfidenceLow,
			})
			continue
		}
		fa.QuestionId = q.Id
		fa.QuestionText = q.Text
		if !validConfidence(fa.Confidence) {
			fa.Confidence = intake.ConfidenceLow
		}
		answers = append(answers, fa)
	}

	narrative := raw.Summary
	if textutil.IsBlank(narrative) {
		narrative = FallbackNarrative
	}

	return &intake.SummaryResult{
		FormattedAnswers: answers,
		Summary:          narrative,
	}
}

func (c *Compiler) fallback(bank []intake.Question) *intake.SummaryResult {
	answers := make([]intake.FormattedAnswer, 0, len(bank))
	for _, q := range bank {
		answers = append(answers, intake.FormattedAnswer{
			QuestionId:      q.Id,
			QuestionText:    q.Text,
			ExtractedAnswer: intake.NoAnswerSentinel,
			Confidence:      intake.ConfidenceLow,
		})
	}
	return &intake.SummaryResult{
		FormattedAnswers: answers,
		Summary:          FallbackNarrative,
	}
}

func validConfidence(c string) bool {
	return c == intake.ConfidenceHigh || c == intake.ConfidenceMedium || c == intake.ConfidenceLow
}
