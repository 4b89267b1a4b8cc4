package chat

import (
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/partdeck/partdeck/pkg/logging"
)

const maxMessageRunes = 10000

type Handler struct {
	Orchestrator *Orchestrator
	Store        Store
	Logger       logging.Logger

	// conversationLocks serializes concurrent requests to the same
	// conversation so turns commit in arrival order.
	conversationLocks sync.Map
}

type ChatRequest struct {
	ConversationID string `json:"conversation_id,omitempty"`
	Message        string `json:"message"`
	// Tools is accepted for API compatibility; the tool set offered to the
	// model is fixed server side.
	Tools []string `json:"tools,omitempty"`
}

type ChatResponse struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func NewHandler(orchestrator *Orchestrator, store Store, logger logging.Logger) *Handler {
	return &Handler{
		Orchestrator: orchestrator,
		Store:        store,
		Logger:       logger,
	}
}

func RegisterRoutes(router gin.IRoutes, handler *Handler) {
	router.POST("/chat", handler.HandleChat)
	router.POST("/reset", handler.HandleReset)
}

func (h *Handler) HandleChat(c *gin.Context) {
	if h.Orchestrator == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "orchestrator unavailable"})
		return
	}

	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}
	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}
	if len([]rune(req.Message)) > maxMessageRunes {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message too long"})
		return
	}

	conversationID := strings.TrimSpace(req.ConversationID)
	if conversationID == "" {
		conversationID = DefaultConversationID
	}
	c.Set("conversation_id", conversationID)

	lockVal, _ := h.conversationLocks.LoadOrStore(conversationID, &sync.Mutex{})
	convMu, ok := lockVal.(*sync.Mutex)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal lock error"})
		return
	}
	convMu.Lock()
	defer func() {
		convMu.Unlock()
		if convMu.TryLock() {
			h.conversationLocks.Delete(conversationID)
			convMu.Unlock()
		}
	}()

	conversationsActive.Inc()
	content, err := h.Orchestrator.HandleMessage(c.Request.Context(), conversationID, req.Message)
	conversationsActive.Dec()
	if err != nil {
		h.Logger.WithError(err).WithField("conversation_id", conversationID).Warn("Chat turn failed")
		c.JSON(http.StatusOK, ChatResponse{Role: "assistant", Content: ErrorMessage})
		return
	}

	c.JSON(http.StatusOK, ChatResponse{Role: "assistant", Content: content})
}

func (h *Handler) HandleReset(c *gin.Context) {
	if err := h.Store.ResetAll(c.Request.Context()); err != nil {
		h.Logger.WithError(err).Warn("Failed to reset conversations")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to reset conversations"})
		return
	}
	c.JSON(http.StatusOK, ChatResponse{Role: "assistant", Content: GreetingMessage})
}
