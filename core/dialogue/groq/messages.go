package groq

import (
	"github.com/jinzhu/copier"
	"github.com/tkresnik/aria-core/core/dialogue"
)

type messageRole string

const (
	messageRoleSystem    messageRole = "system"
	messageRoleUser      messageRole = "user"
	messageRoleAssistant messageRole = "assistant"
)

type message struct {
	Role    messageRole `json:"role"`
	Content string      `json:"content"`
}

// toMessages maps the orchestrator-side history onto the provider's chat
// message schema. The roles share names, so the field copy is delegated to
// copier and only the system prompt is prepended by hand.
func toMessages(systemPrompt string, req dialogue.Request) []message {
	messages := make([]message, 0, len(req.History)+2)
	if systemPrompt != "" {
		messages = append(messages, message{Role: messageRoleSystem, Content: systemPrompt})
	}

	var history []message
	_ = copier.Copy(&history, req.History)
	messages = append(messages, history...)

	return append(messages, message{Role: messageRoleUser, Content: req.UserText})
}

type requestBody struct {
	Model    string    `json:"model"`
	Messages []message `json:"messages"`
	Stream   bool      `json:"stream"`
}

type streamingResponseBody struct {
	Choices []struct {
		Delta struct {
			Content      string  `json:"content"`
			FinishReason *string `json:"finish_reason"`
		} `json:"delta"`
	} `json:"choices"`
}
