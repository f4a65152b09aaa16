package llm

// Role is the author of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message represents a single text message in a prompt.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// NewTextMessage creates a message with the given role and content.
func NewTextMessage(role Role, text string) Message {
	return Message{Role: role, Content: text}
}
