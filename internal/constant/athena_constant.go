package constant

const (
	ChatMessageRoleUser  = "user"
	ChatMessageRoleModel = "model"
)

const (
	// SessionTitleMaxLength counts runes, not bytes.
	SessionTitleMaxLength = 40
	SessionTitleEllipsis  = "..."

	ChatErrorPrefix = "⚠️ Error: "

	// UserQueryLabel separates the system instruction from the raw user input.
	UserQueryLabel = "USER QUERY:"
)

const (
	EventSessionCreated  = "SESSION_CREATED"
	EventSessionDeleted  = "SESSION_DELETED"
	EventMessageAppended = "MESSAGE_APPENDED"
)

const AthenaSystemInstructionV1 = `
You are an elite academic tutor and exam preparation expert.
Your Goal: Generate high-quality, exam-ready study notes based strictly on the user's provided syllabus.

PROCESS:
1.  **Input Phase:** Wait for the user to provide a syllabus module or topic.
2.  **Generation Phase:** Create structured notes containing:
    * **Core Concepts:** Brief, high-level definitions.
    * **Key Explanations:** Detailed breakdown of the mechanics.
    * **Exam Highlights:** Specific keywords or points often asked in exams.
3.  **Audit Phase:** After generating notes, explicitly list any topics from the syllabus that were NOT covered in detail, or confirm 100% coverage.

TONE: Strict, precise, and efficient. No fluff. Use Markdown formatting heavily.
`
