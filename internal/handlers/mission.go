package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/momentumhq/momentum-backend/internal/bandit"
	"github.com/momentumhq/momentum-backend/internal/logger"
	pkgerrors "github.com/momentumhq/momentum-backend/internal/pkg/errors"
	"github.com/momentumhq/momentum-backend/internal/requestdata"
	"github.com/momentumhq/momentum-backend/internal/services"
)

type MissionHandler struct {
	log        *logger.Logger
	missionSvc services.MissionService
}

func NewMissionHandler(log *logger.Logger, missionSvc services.MissionService) *MissionHandler {
	return &MissionHandler{
		log:        log.With("handler", "MissionHandler"),
		missionSvc: missionSvc,
	}
}

// GET /api/mission/suggestion?mode=deep_work
// Returns the user's mission for the current phase, generating one on
// first request.
func (h *MissionHandler) GetSuggestion(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", pkgerrors.ErrUnauthorized)
		return
	}

	mode := bandit.Mode(c.Query("mode"))
	recentHistory := c.QueryArray("recent")

	mission, err := h.missionSvc.GetSuggestion(c.Request.Context(), rd.UserID, mode, recentHistory)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, mission)
}

type feedbackRequest struct {
	Rating int `json:"rating" binding:"required"`
}

// POST /api/mission/:id/feedback
func (h *MissionHandler) ApplyFeedback(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", pkgerrors.ErrUnauthorized)
		return
	}

	missionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_argument", fmt.Errorf("invalid mission id: %w", pkgerrors.ErrInvalidArgument))
		return
	}

	var req feedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_argument", err)
		return
	}

	if err := h.missionSvc.ApplyExplicitFeedback(c.Request.Context(), rd.UserID, missionID, req.Rating); err != nil {
		RespondServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type editRequest struct {
	Action       string `json:"action"`
	Hint         string `json:"hint"`
	ChangeReason string `json:"change_reason"`
}

// PATCH /api/mission/:id
// Records a user rewrite of the mission copy. Not a reward signal.
func (h *MissionHandler) EditMission(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", pkgerrors.ErrUnauthorized)
		return
	}

	missionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_argument", fmt.Errorf("invalid mission id: %w", pkgerrors.ErrInvalidArgument))
		return
	}

	var req editRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_argument", err)
		return
	}

	mission, err := h.missionSvc.EditMission(c.Request.Context(), rd.UserID, missionID, req.Action, req.Hint, req.ChangeReason)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, mission)
}
