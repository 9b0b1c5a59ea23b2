package api

import (
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"github.com/clipscribe/clipscribe/internal/apperrors"
	"github.com/clipscribe/clipscribe/internal/caption"
	"github.com/clipscribe/clipscribe/internal/server"
	"github.com/clipscribe/clipscribe/internal/validation"
)

type enhanceRequest struct {
	Text      string `json:"text" validate:"required"`
	ProjectID string `json:"projectId" validate:"omitempty,uuid"`
}

type rewriteResponse struct {
	Text            string `json:"text"`
	OriginalLength  int    `json:"originalLength"`
	RewrittenLength int    `json:"rewrittenLength"`
	ProjectUpdated  bool   `json:"projectUpdated,omitempty"`
}

// enhance cleans the transcript up through the language model. When a
// project id is supplied, the enhanced text replaces the stored
// transcript and the caption formats are re-rendered around it.
func (h *Handlers) enhance(c *gin.Context) {
	var req enhanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		server.RespondWithError(c, apperrors.Validation("invalid request body"))
		return
	}
	if err := validation.Validate(&req); err != nil {
		server.RespondWithError(c, err)
		return
	}

	enhanced, err := h.deps.Rewriter.Enhance(c.Request.Context(), req.Text)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}

	updated := false
	if req.ProjectID != "" {
		if err := h.applyTextToProject(c, req.ProjectID, enhanced); err != nil {
			server.RespondWithError(c, err)
			return
		}
		updated = true
	}

	server.RespondOK(c, rewriteResponse{
		Text:            enhanced,
		OriginalLength:  utf8.RuneCountInString(req.Text),
		RewrittenLength: utf8.RuneCountInString(enhanced),
		ProjectUpdated:  updated,
	})
}

type translateRequest struct {
	Text           string `json:"text" validate:"required"`
	SourceLanguage string `json:"sourceLanguage"`
	TargetLanguage string `json:"targetLanguage" validate:"required"`
}

type translateResponse struct {
	Text             string `json:"text"`
	SourceLanguage   string `json:"sourceLanguage,omitempty"`
	TargetLanguage   string `json:"targetLanguage"`
	OriginalLength   int    `json:"originalLength"`
	TranslatedLength int    `json:"translatedLength"`
}

func (h *Handlers) translate(c *gin.Context) {
	var req translateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		server.RespondWithError(c, apperrors.Validation("invalid request body"))
		return
	}
	if err := validation.Validate(&req); err != nil {
		server.RespondWithError(c, err)
		return
	}

	translated, err := h.deps.Rewriter.Translate(c.Request.Context(), req.Text, req.SourceLanguage, req.TargetLanguage)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}

	server.RespondOK(c, translateResponse{
		Text:             translated,
		SourceLanguage:   req.SourceLanguage,
		TargetLanguage:   req.TargetLanguage,
		OriginalLength:   utf8.RuneCountInString(req.Text),
		TranslatedLength: utf8.RuneCountInString(translated),
	})
}

// applyTextToProject persists rewritten text into the named project,
// redistributed across the stored segment timings.
func (h *Handlers) applyTextToProject(c *gin.Context, rawProjectID, text string) error {
	userID, err := h.callerID(c)
	if err != nil {
		return err
	}
	projectID, err := validation.ValidateUUID("projectId", rawProjectID)
	if err != nil {
		return err
	}

	ctx := c.Request.Context()
	project, err := h.deps.Projects.ByID(ctx, projectID, userID)
	if err != nil {
		return err
	}
	if project.SegmentsJSON == "" {
		return apperrors.Validation("project has no transcript to update")
	}

	segments, err := caption.ParseJSON([]byte(project.SegmentsJSON))
	if err != nil {
		return apperrors.Internal("parse stored segments", err)
	}
	remapped := caption.RemapText(segments, text)
	formats, err := caption.Serialize(remapped)
	if err != nil {
		return apperrors.Internal("serialize captions", err)
	}
	return h.deps.Projects.UpdateText(ctx, project.ID, userID, text, formats.JSON, formats.SRT, formats.VTT)
}
