// Package intake contains the interview domain: the question bank shapes,
// the dialogue engine that walks a patient through them, and the oracle
// contract both depend on.
package intake

import "time"

// QuestionType constrains how an answer is captured on the client side.
type QuestionType string

const (
	QuestionFreeText     QuestionType = "free_text"
	QuestionSingleChoice QuestionType = "single_choice"
	QuestionMultiChoice  QuestionType = "multi_choice"
	QuestionScale        QuestionType = "scale"
)

// Question is one entry of a question bank. Immutable once loaded.
type Question struct {
	Id       string       `json:"id"`
	Text     string       `json:"text"`
	Required bool         `json:"required"`
	Type     QuestionType `json:"type"`
	Options  []string     `json:"options,omitempty"` // present iff type needs options
}

// Transcript roles
const (
	RolePatient   = "patient"
	RoleAssistant = "assistant"
)

// Turn is one message exchange unit in the transcript. Append-only during an
// active session; insertion order is meaningful.
type Turn struct {
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Emotion tags the speech playback adapter understands.
const (
	EmotionNeutral  = "neutral"
	EmotionGentle   = "gentle"
	EmotionThinking = "thinking"
	EmotionSerious  = "serious"
	EmotionHappy    = "happy"
)

// ValidEmotion reports whether tag is one the playback adapter accepts.
func ValidEmotion(tag string) bool {
	switch tag {
	case EmotionNeutral, EmotionGentle, EmotionThinking, EmotionSerious, EmotionHappy:
		return true
	}
	return false
}

// Confidence levels for extracted answers.
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

// NoAnswerSentinel is used instead of an empty string when no turn in the
// transcript plausibly answers a question.
const NoAnswerSentinel = "no answer found"

// FormattedAnswer is the per-question outcome of the post-interview summary.
type FormattedAnswer struct {
	QuestionId      string `json:"question_id"`
	QuestionText    string `json:"question_text"`
	ExtractedAnswer string `json:"extracted_answer"`
	Confidence      string `json:"confidence"`
}
