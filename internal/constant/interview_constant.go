package constant

// Module names used in structured log entries.
const (
	ModuleInterview     = "Interview"
	ModuleQuestionnaire = "Questionnaire"
	ModuleAuth          = "Auth"
	ModuleArchive       = "Archive"
	ModuleHub           = "Hub"
)

// Spoken lines outside the oracle flow. The greeting and closing are fixed
// so the opening and ending of every interview sound the same.
const (
	GreetingLine = "Hello, thank you for coming in today. I'm going to ask you a few questions about how you've been feeling. Please answer in your own words."
	ClosingLine  = "That was my last question. Thank you for your patience, the doctor will review your answers shortly."
)

// ArchiveTopic is the in-process topic carrying completed-interview ids from
// the interview service to the archive consumer.
const ArchiveTopic = "INTERVIEW_COMPLETED"
