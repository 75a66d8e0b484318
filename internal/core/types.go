package core

// ChatRequest is the payload sent to an OpenAI-compatible chat completion endpoint.
type ChatRequest struct {
	Temperature *float64  `json:"temperature,omitempty"`
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
}

// Message represents a single message in the chat
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Message roles understood by chat completion endpoints.
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// Float64Ptr returns a pointer to v. Used for optional numeric request fields
// where the zero value must still be sent.
func Float64Ptr(v float64) *float64 {
	return &v
}
