package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"gymbuddy/models"
	"gymbuddy/services/matchup"
	"gymbuddy/utils"
)

// MatchupHandler exposes the negotiation surface over HTTP. It translates
// requests into service calls and typed service errors into status codes;
// no business rules live here.
type MatchupHandler struct {
	Service matchup.MatchupService
	Logger  *zap.Logger
}

// NewMatchupHandler constructs a MatchupHandler.
func NewMatchupHandler(svc matchup.MatchupService, logger *zap.Logger) *MatchupHandler {
	return &MatchupHandler{Service: svc, Logger: logger}
}

// GetOverlapHandler returns the shared availability slots for a user pair.
func (h *MatchupHandler) GetOverlapHandler(c *gin.Context) {
	userA, userB := c.Query("userA"), c.Query("userB")
	if userA == "" || userB == "" {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", "userA and userB query parameters are required")
		return
	}
	slots, err := h.Service.GetOverlap(c.Request.Context(), userA, userB)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	if slots == nil {
		slots = []models.OverlapSlot{}
	}
	c.JSON(http.StatusOK, gin.H{"overlap": slots})
}

// GetWeeklyPlansHandler returns the ranked weekly plans for a user pair.
func (h *MatchupHandler) GetWeeklyPlansHandler(c *gin.Context) {
	userA, userB := c.Query("userA"), c.Query("userB")
	if userA == "" || userB == "" {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", "userA and userB query parameters are required")
		return
	}
	plans, err := h.Service.GetWeeklyPlans(c.Request.Context(), userA, userB)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	if plans == nil {
		plans = []models.WeeklyPlan{}
	}
	c.JSON(http.StatusOK, gin.H{"plans": plans})
}

// ProposeHandler creates a pending proposal for one specific session.
func (h *MatchupHandler) ProposeHandler(c *gin.Context) {
	var input struct {
		ProposerID string `json:"proposerId" binding:"required"`
		PartnerID  string `json:"partnerId" binding:"required"`
		Day        string `json:"day" binding:"required"`
		Start      int    `json:"start"`
		End        int    `json:"end"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}
	p, err := h.Service.Propose(c.Request.Context(), input.ProposerID, input.PartnerID, models.Day(input.Day), input.Start, input.End)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"proposal": p})
}

// SuggestHandler auto-proposes the best ranked plan's earlier session.
func (h *MatchupHandler) SuggestHandler(c *gin.Context) {
	var input struct {
		ProposerID string `json:"proposerId" binding:"required"`
		PartnerID  string `json:"partnerId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}
	p, err := h.Service.Suggest(c.Request.Context(), input.ProposerID, input.PartnerID)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"proposal": p})
}

// RespondHandler applies the partner's decision to a pending proposal.
func (h *MatchupHandler) RespondHandler(c *gin.Context) {
	proposalID := c.Param("proposalID")
	var input struct {
		ResponderID string                   `json:"responderId" binding:"required"`
		Decision    string                   `json:"decision" binding:"required"`
		CounterSlot *models.SessionCandidate `json:"counterSlot,omitempty"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}
	result, err := h.Service.Respond(c.Request.Context(), proposalID, input.ResponderID, models.Decision(input.Decision), input.CounterSlot)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// CancelSessionHandler cancels a confirmed session on a participant's behalf.
func (h *MatchupHandler) CancelSessionHandler(c *gin.Context) {
	h.closeSession(c, h.Service.Cancel)
}

// CompleteSessionHandler marks a confirmed session as completed.
func (h *MatchupHandler) CompleteSessionHandler(c *gin.Context) {
	h.closeSession(c, h.Service.Complete)
}

func (h *MatchupHandler) closeSession(c *gin.Context, op func(ctx context.Context, sessionID, requesterID string) error) {
	sessionID := c.Param("sessionID")
	var input struct {
		RequesterID string `json:"requesterId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}
	if err := op(c.Request.Context(), sessionID, input.RequesterID); err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessionId": sessionID})
}

// GetSessionsHandler lists a user's sessions.
func (h *MatchupHandler) GetSessionsHandler(c *gin.Context) {
	userID := c.Query("userId")
	if userID == "" {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", "userId query parameter is required")
		return
	}
	sessions, err := h.Service.SessionsFor(c.Request.Context(), userID)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	if sessions == nil {
		sessions = []models.ConfirmedSession{}
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

// writeServiceError maps the negotiation error taxonomy onto HTTP statuses.
func (h *MatchupHandler) writeServiceError(c *gin.Context, err error) {
	var (
		conflictErr    *matchup.ConflictError
		unavailableErr *matchup.UnavailableError
		notAuthErr     *matchup.NotAuthorizedError
		invalidErr     *matchup.InvalidSlotError
		notFoundErr    *matchup.NotFoundError
	)
	switch {
	case errors.As(err, &conflictErr):
		utils.JSONError(c, http.StatusConflict, "conflict", err.Error())
	case errors.As(err, &unavailableErr):
		utils.JSONError(c, http.StatusUnprocessableEntity, "slot unavailable", err.Error())
	case errors.As(err, &notAuthErr):
		utils.JSONError(c, http.StatusForbidden, "not authorized", err.Error())
	case errors.As(err, &invalidErr):
		utils.JSONError(c, http.StatusBadRequest, "invalid slot", err.Error())
	case errors.As(err, &notFoundErr):
		utils.JSONError(c, http.StatusNotFound, "not found", err.Error())
	default:
		h.Logger.Error("matchup operation failed", zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, "internal error", "the operation could not be completed")
	}
}
