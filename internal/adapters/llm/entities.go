package llm

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// DetectPrompt is the advisory content-policy verdict instruction. The
// verdict never drives enforcement on its own.
const DetectPrompt = "You are a content policy reviewer for a group chat. " +
	"Analyze the following message and respond with true if it violates a " +
	"policy against explicit, violent or otherwise not-safe-for-work " +
	"content, false if it does not. Respond with the single word only."

type ChatCompletionMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatCompletionResponse struct {
	Choices []ChatCompletionChoice `json:"choices"`
}

type ChatCompletionChoice struct {
	Message ChatCompletionMessage `json:"message"`
}

type GenerationParameters struct {
	Temperature      float32
	TopK             int32
	TopP             float32
	MaxOutputTokens  int32
	ResponseMIMEType string
}
