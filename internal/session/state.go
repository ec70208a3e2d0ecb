package session

import "time"

const (
	NoticeInfo    = "info"
	NoticeSuccess = "success"
	NoticeError   = "error"
)

// GeneralScope is the chat scope used when a conversation is not tied to a contract.
const GeneralScope = "general"

// State is everything persisted for one browser session.
type State struct {
	Token        string            `json:"token,omitempty"`
	ChatHandles  map[string]string `json:"chat_handles,omitempty"`
	Flash        []Notice          `json:"flash,omitempty"`
	PendingLogin string            `json:"pending_login,omitempty"`
	Reset        *ResetFlow        `json:"reset,omitempty"`
}

type Notice struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// ResetFlow tracks the forgot-password steps between requests.
type ResetFlow struct {
	Email    string    `json:"email"`
	OTP      string    `json:"otp,omitempty"`
	SentAt   time.Time `json:"sent_at"`
	Verified bool      `json:"verified"`
}

func (s *State) Empty() bool {
	return s.Token == "" && len(s.ChatHandles) == 0 && len(s.Flash) == 0 &&
		s.PendingLogin == "" && s.Reset == nil
}

func (s *State) clone() *State {
	out := &State{
		Token:        s.Token,
		PendingLogin: s.PendingLogin,
	}
	if len(s.ChatHandles) > 0 {
		out.ChatHandles = make(map[string]string, len(s.ChatHandles))
		for k, v := range s.ChatHandles {
			out.ChatHandles[k] = v
		}
	}
	if len(s.Flash) > 0 {
		out.Flash = append([]Notice(nil), s.Flash...)
	}
	if s.Reset != nil {
		r := *s.Reset
		out.Reset = &r
	}
	return out
}
