package apiclient

import (
	"context"
	"net/http"
)

type ChatRequest struct {
	Question       string  `json:"question"`
	ContractID     *string `json:"contractId"`
	ConversationID string  `json:"conversationId"`
}

type ChatReply struct {
	Response       string `json:"response"`
	ConversationID string `json:"conversationId"`
}

// Chat asks one question. contractID "" means the general assistant and is sent
// as null; conversationID continues an earlier thread when non-empty.
func (c *Client) Chat(ctx context.Context, question, contractID, conversationID string) (*ChatReply, error) {
	req := ChatRequest{
		Question:       question,
		ConversationID: conversationID,
	}
	if contractID != "" {
		req.ContractID = &contractID
	}
	var out ChatReply
	if err := c.Do(ctx, http.MethodPost, "/contracts/chat", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
