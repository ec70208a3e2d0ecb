package app

import (
	"context"
	"strings"

	"contractrisk/internal/apiclient"
	"contractrisk/internal/session"
)

// ChatService keeps one continuation handle per scope so follow-up questions land
// in the same backend conversation.
type ChatService struct{}

type Answer struct {
	Question       string
	Response       string
	ConversationID string
}

func NewChatService() *ChatService {
	return &ChatService{}
}

// Ask sends question within scope. Scope session.GeneralScope talks to the
// general assistant; any other scope is a contract id.
func (s *ChatService) Ask(ctx context.Context, sess *session.Session, api *apiclient.Client, scope, question string) (*Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}
	scope = strings.TrimSpace(scope)
	if scope == "" {
		scope = session.GeneralScope
	}

	contractID := scope
	if scope == session.GeneralScope {
		contractID = ""
	}
	current := sess.ChatHandle(scope)

	reply, err := api.Chat(ctx, question, contractID, current)
	if err != nil {
		return nil, err
	}
	if reply.ConversationID != "" && reply.ConversationID != current {
		sess.SetChatHandle(scope, reply.ConversationID)
	}
	return &Answer{
		Question:       question,
		Response:       reply.Response,
		ConversationID: sess.ChatHandle(scope),
	}, nil
}

// Clear starts a fresh conversation for scope only.
func (s *ChatService) Clear(sess *session.Session, scope string) {
	sess.ClearChatHandle(scope)
}

// Greeting is the assistant's opening line for a scope.
func Greeting(scope string) string {
	if scope == session.GeneralScope {
		return "Hello! I am your General Legal Assistant. Ask me anything about legal concepts."
	}
	return "Hello! I have analyzed this contract. Ask me anything about it."
}
