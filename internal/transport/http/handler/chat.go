package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"contractrisk/internal/app"
	"contractrisk/internal/session"
	"contractrisk/internal/transport/http/middleware"
	"contractrisk/internal/transport/http/response"
)

const chatUnavailableReply = "Error: Could not connect to the AI."

type ChatHandler struct {
	chatService *app.ChatService
}

type chatForm struct {
	Question string `form:"question" json:"question"`
}

type chatPage struct {
	Scope      string
	General    bool
	Greeting   string
	Question   string
	Reply      string
	Continuing bool
}

func NewChatHandler(chatService *app.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

func (h *ChatHandler) Page(c *gin.Context) {
	render(c, http.StatusOK, "chat", "Chat", h.page(c))
}

func (h *ChatHandler) Send(c *gin.Context) {
	var form chatForm
	_ = c.ShouldBind(&form)
	page := h.page(c)
	if strings.TrimSpace(form.Question) == "" {
		render(c, http.StatusOK, "chat", "Chat", page)
		return
	}

	page.Question = form.Question
	answer, err := h.chatService.Ask(c.Request.Context(), middleware.CurrentSession(c), middleware.CurrentClient(c), page.Scope, form.Question)
	if err != nil {
		if _, ok := middleware.PendingRedirect(c); ok {
			fail(c, err)
			return
		}
		page.Reply = chatUnavailableReply
		render(c, http.StatusOK, "chat", "Chat", page)
		return
	}
	page.Reply = answer.Response
	page.Continuing = true
	render(c, http.StatusOK, "chat", "Chat", page)
}

// Ask is the JSON variant of Send for scripted clients.
func (h *ChatHandler) Ask(c *gin.Context) {
	var form chatForm
	if err := c.ShouldBindJSON(&form); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}
	scope := c.Param("scope")
	answer, err := h.chatService.Ask(c.Request.Context(), middleware.CurrentSession(c), middleware.CurrentClient(c), scope, form.Question)
	if err != nil {
		if r, ok := middleware.PendingRedirect(c); ok {
			response.ErrorWithData(c, http.StatusUnauthorized, response.CodeSessionExpired, app.UserMessage(err), gin.H{
				"redirect":       r.Path,
				"redirect_after": r.After.Milliseconds(),
			})
			return
		}
		switch {
		case errors.Is(err, app.ErrEmptyQuestion):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "question is empty")
		default:
			response.BackendError(c, err)
		}
		return
	}
	response.OK(c, gin.H{
		"response":        answer.Response,
		"conversation_id": answer.ConversationID,
	})
}

func (h *ChatHandler) Clear(c *gin.Context) {
	scope := c.Param("scope")
	h.chatService.Clear(middleware.CurrentSession(c), scope)
	flash(c, session.NoticeInfo, "Started a new conversation.")
	back(c, "/chat/"+scope)
}

func (h *ChatHandler) page(c *gin.Context) chatPage {
	scope := c.Param("scope")
	return chatPage{
		Scope:      scope,
		General:    scope == session.GeneralScope,
		Greeting:   app.Greeting(scope),
		Continuing: middleware.CurrentSession(c).ChatHandle(scope) != "",
	}
}
