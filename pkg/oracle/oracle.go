// Package oracle implements the interview decision-making contract on top of
// an LLM provider. All three calls are prompt-in, JSON-out; each prompt pins
// the output schema and runs with temperature 0 for deterministic parsing.
package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"medintake-be/pkg/intake"
	"medintake-be/pkg/llm"
)

// Oracle answers coverage, sufficiency, and summary questions by prompting
// the underlying provider. The provider is expected to already carry the
// retry policy (see pkg/llm/retry); by the time an error reaches here the
// budget is spent.
type Oracle struct {
	llmProvider llm.LLMProvider
	logger      *log.Logger
}

var _ intake.AnswerOracle = &Oracle{}

func New(llmProvider llm.LLMProvider, logger *log.Logger) *Oracle {
	return &Oracle{
		llmProvider: llmProvider,
		logger:      logger,
	}
}

type coverageResponse struct {
	CoveredIds []string `json:"covered_ids"`
}

// ClassifyCoverage returns the subset of candidate question ids the utterance
// plausibly answers. The prompt demands conservative classification: when the
// model is unsure, the id is left out and the question gets asked later.
func (o *Oracle) ClassifyCoverage(ctx context.Context, utterance string, candidates []intake.Question, answered []string) ([]string, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	prompt := o.buildCoveragePrompt(utterance, candidates, answered)

	response, err := o.llmProvider.Generate(ctx, prompt, llm.WithTemperature(0.0))
	if err != nil {
		o.logf("[ORACLE] coverage call failed: %v", err)
		return nil, fmt.Errorf("%w: %v", intake.ErrOracleUnavailable, err)
	}

	var parsed coverageResponse
	if err := parseJSON(response, &parsed); err != nil {
		o.logf("[ORACLE] coverage response unparseable: %v", err)
		return nil, fmt.Errorf("%w: %v", intake.ErrOracleMalformed, err)
	}

	return parsed.CoveredIds, nil
}

// JudgeSufficiency decides whether the current question has enough
// information and produces the reply to speak next.
func (o *Oracle) JudgeSufficiency(ctx context.Context, question intake.Question, utterance string, recentContext []intake.Turn) (*intake.SufficiencyVerdict, error) {
	prompt := o.buildSufficiencyPrompt(question, utterance, recentContext)

	response, err := o.llmProvider.Generate(ctx, prompt, llm.WithTemperature(0.0))
	if err != nil {
		o.logf("[ORACLE] sufficiency call failed: %v", err)
		return nil, fmt.Errorf("%w: %v", intake.ErrOracleUnavailable, err)
	}

	var verdict intake.SufficiencyVerdict
	if err := parseJSON(response, &verdict); err != nil {
		o.logf("[ORACLE] sufficiency response unparseable: %v", err)
		return nil, fmt.Errorf("%w: %v", intake.ErrOracleMalformed, err)
	}

	verdict.Emotion = strings.ToLower(strings.TrimSpace(verdict.Emotion))
	return &verdict, nil
}

// Summarize extracts one best answer per bank question from the transcript.
func (o *Oracle) Summarize(ctx context.Context, transcript []intake.Turn, bank []intake.Question) (*intake.SummaryResult, error) {
	prompt := o.buildSummaryPrompt(transcript, bank)

	response, err := o.llmProvider.Generate(ctx, prompt, llm.WithTemperature(0.0), llm.WithMaxTokens(2048))
	if err != nil {
		o.logf("[ORACLE] summary call failed: %v", err)
		return nil, fmt.Errorf("%w: %v", intake.ErrOracleUnavailable, err)
	}

	var result intake.SummaryResult
	if err := parseJSON(response, &result); err != nil {
		o.logf("[ORACLE] summary response unparseable: %v", err)
		return nil, fmt.Errorf("%w: %v", intake.ErrOracleMalformed, err)
	}

	for i := range result.FormattedAnswers {
		result.FormattedAnswers[i].Confidence = strings.ToLower(strings.TrimSpace(result.FormattedAnswers[i].Confidence))
	}
	return &result, nil
}

func (o *Oracle) buildCoveragePrompt(utterance string, candidates []intake.Question, answered []string) string {
	var prompt strings.Builder

	prompt.WriteString("<system>\n")
	prompt.WriteString("You are a medical intake classifier. Your ONLY job is to decide which of the listed open questions the patient's statement already answers.\n")
	prompt.WriteString("You do NOT reply to the patient. You only classify.\n")
	prompt.WriteString("Be conservative: include a question id ONLY when the statement clearly contains an answer to it. When unsure, leave it out.\n")
	prompt.WriteString("</system>\n\n")

	prompt.WriteString("<patient_statement>\n")
	prompt.WriteString(utterance)
	prompt.WriteString("\n</patient_statement>\n\n")

	prompt.WriteString("<open_questions>\n")
	for _, q := range candidates {
		prompt.WriteString(fmt.Sprintf("- id=%s: \"%s\"\n", q.Id, q.Text))
	}
	prompt.WriteString("</open_questions>\n\n")

	if len(answered) > 0 {
		prompt.WriteString("<already_answered>\n")
		prompt.WriteString("These question ids are closed. NEVER include them in your output:\n")
		for _, id := range answered {
			prompt.WriteString(fmt.Sprintf("- %s\n", id))
		}
		prompt.WriteString("</already_answered>\n\n")
	}

	prompt.WriteString("<output_format>\n")
	prompt.WriteString("Respond with ONLY valid JSON:\n")
	prompt.WriteString("{\n")
	prompt.WriteString("  \"covered_ids\": [\"id of each open question the statement answers, empty array if none\"]\n")
	prompt.WriteString("}\n")
	prompt.WriteString("</output_format>")

	return prompt.String()
}

func (o *Oracle) buildSufficiencyPrompt(question intake.Question, utterance string, recentContext []intake.Turn) string {
	var prompt strings.Builder

	prompt.WriteString("<system>\n")
	prompt.WriteString("You are a warm, professional medical intake assistant conducting a spoken interview.\n")
	prompt.WriteString("Judge whether the patient has now given enough information for the current question, then compose your next spoken line.\n")
	prompt.WriteString("If the answer is incomplete, your reply must be a short, gentle follow-up asking for the missing detail (onset, location, severity, trigger).\n")
	prompt.WriteString("If the answer is complete, your reply must be a brief acknowledgment. Do NOT ask the next interview question; the system appends it.\n")
	prompt.WriteString("Speak plainly. One or two short sentences, suitable for text-to-speech.\n")
	prompt.WriteString("</system>\n\n")

	prompt.WriteString("<current_question>\n")
	prompt.WriteString(question.Text)
	if len(question.Options) > 0 {
		prompt.WriteString("\nExpected answer is one of: ")
		prompt.WriteString(strings.Join(question.Options, ", "))
	}
	prompt.WriteString("\n</current_question>\n\n")

	if len(recentContext) > 0 {
		prompt.WriteString("<recent_conversation>\n")
		for _, t := range recentContext {
			prompt.WriteString(fmt.Sprintf("%s: %s\n", t.Role, t.Text))
		}
		prompt.WriteString("</recent_conversation>\n\n")
	}

	prompt.WriteString("<patient_statement>\n")
	prompt.WriteString(utterance)
	prompt.WriteString("\n</patient_statement>\n\n")

	prompt.WriteString("<output_format>\n")
	prompt.WriteString("Respond with ONLY valid JSON:\n")
	prompt.WriteString("{\n")
	prompt.WriteString("  \"reply\": \"your next spoken line\",\n")
	prompt.WriteString("  \"emotion\": \"neutral|gentle|thinking|serious|happy\",\n")
	prompt.WriteString("  \"sufficient\": true\n")
	prompt.WriteString("}\n")
	prompt.WriteString("</output_format>")

	return prompt.String()
}

func (o *Oracle) buildSummaryPrompt(transcript []intake.Turn, bank []intake.Question) string {
	var prompt strings.Builder

	prompt.WriteString("<system>\n")
	prompt.WriteString("You are a medical scribe. Extract the patient's answer to each interview question from the full transcript below.\n")
	prompt.WriteString("Use the patient's own information, rephrased into a concise clinical note. Do not invent facts.\n")
	prompt.WriteString(fmt.Sprintf("If no turn in the transcript answers a question, use exactly \"%s\" with confidence \"low\".\n", intake.NoAnswerSentinel))
	prompt.WriteString("</system>\n\n")

	prompt.WriteString("<questions>\n")
	for _, q := range bank {
		prompt.WriteString(fmt.Sprintf("- id=%s: \"%s\"\n", q.Id, q.Text))
	}
	prompt.WriteString("</questions>\n\n")

	prompt.WriteString("<transcript>\n")
	for _, t := range transcript {
		prompt.WriteString(fmt.Sprintf("%s: %s\n", t.Role, t.Text))
	}
	prompt.WriteString("</transcript>\n\n")

	prompt.WriteString("<output_format>\n")
	prompt.WriteString("Respond with ONLY valid JSON. Include every question id exactly once:\n")
	prompt.WriteString("{\n")
	prompt.WriteString("  \"formatted_answers\": [\n")
	prompt.WriteString("    {\"question_id\": \"...\", \"question_text\": \"...\", \"extracted_answer\": \"...\", \"confidence\": \"high|medium|low\"}\n")
	prompt.WriteString("  ],\n")
	prompt.WriteString("  \"summary\": \"3-5 sentence narrative of the interview\"\n")
	prompt.WriteString("}\n")
	prompt.WriteString("</output_format>")

	return prompt.String()
}

// parseJSON unmarshals the model response into out, first extracting the
// leading balanced JSON object since models often wrap JSON in prose or
// markdown fences.
func parseJSON(response string, out interface{}) error {
	jsonContent := extractJSON(response)
	if jsonContent == "" {
		return fmt.Errorf("no JSON object found in response")
	}
	if err := json.Unmarshal([]byte(jsonContent), out); err != nil {
		return fmt.Errorf("JSON unmarshal failed: %w", err)
	}
	return nil
}

// extractJSON returns the first balanced brace-delimited substring of
// response, tracking string literals and escapes so braces inside quoted
// text do not break the balance count.
func extractJSON(response string) string {
	start := strings.Index(response, "{")
	if start == -1 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(response); i++ {
		ch := response[i]
		if escaped {
			escaped = false
			continue
		}
		switch ch {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return response[start : i+1]
				}
			}
		}
	}
	return ""
}

func (o *Oracle) logf(format string, args ...interface{}) {
	if o.logger != nil {
		o.logger.Printf(format, args...)
	}
}
