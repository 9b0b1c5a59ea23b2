package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/clipscribe/clipscribe/internal/apperrors"
	"github.com/clipscribe/clipscribe/internal/caption"
	"github.com/clipscribe/clipscribe/internal/database"
	"github.com/clipscribe/clipscribe/internal/server"
	"github.com/clipscribe/clipscribe/internal/validation"
)

const (
	defaultPageSize = 50
	maxPageSize     = 100
)

type projectSummary struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Status          string    `json:"status"`
	Quality         string    `json:"quality,omitempty"`
	Language        string    `json:"language,omitempty"`
	SourceURL       string    `json:"sourceUrl,omitempty"`
	DurationSeconds float64   `json:"durationSeconds,omitempty"`
	WordCount       int       `json:"wordCount,omitempty"`
	SegmentCount    int       `json:"segmentCount,omitempty"`
	FailedChunks    int       `json:"failedChunks,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

type projectDetail struct {
	projectSummary
	FullText string          `json:"fullText,omitempty"`
	Segments json.RawMessage `json:"segments,omitempty"`
	SRT      string          `json:"srt,omitempty"`
	VTT      string          `json:"vtt,omitempty"`
}

func projectSummaryFrom(p *database.Project) projectSummary {
	return projectSummary{
		ID:              p.ID.String(),
		Title:           p.Title,
		Status:          p.Status,
		Quality:         p.Quality,
		Language:        p.Language,
		SourceURL:       p.SourceURL,
		DurationSeconds: p.DurationSeconds,
		WordCount:       p.WordCount,
		SegmentCount:    p.SegmentCount,
		FailedChunks:    p.FailedChunks,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}

func projectDetailFrom(p *database.Project) projectDetail {
	detail := projectDetail{
		projectSummary: projectSummaryFrom(p),
		FullText:       p.FullText,
		SRT:            p.SRT,
		VTT:            p.VTT,
	}
	if p.SegmentsJSON != "" {
		detail.Segments = json.RawMessage(p.SegmentsJSON)
	}
	return detail
}

func (h *Handlers) listProjects(c *gin.Context) {
	userID, err := h.callerID(c)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}

	limit := intQuery(c, "limit", defaultPageSize)
	if limit < 1 || limit > maxPageSize {
		limit = defaultPageSize
	}
	offset := intQuery(c, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	ctx := c.Request.Context()
	projects, err := h.deps.Projects.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	total, err := h.deps.Projects.CountByUser(ctx, userID)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}

	summaries := make([]projectSummary, 0, len(projects))
	for i := range projects {
		summaries = append(summaries, projectSummaryFrom(&projects[i]))
	}
	server.RespondOKWithMeta(c, summaries, &server.Meta{
		Limit:  limit,
		Offset: offset,
		Total:  total,
	})
}

func (h *Handlers) getProject(c *gin.Context) {
	project, err := h.loadProject(c)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, projectDetailFrom(project))
}

func (h *Handlers) deleteProject(c *gin.Context) {
	userID, err := h.callerID(c)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	projectID, err := validation.ValidateUUID("id", c.Param("id"))
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	if err := h.deps.Projects.Delete(c.Request.Context(), projectID, userID); err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondNoContent(c)
}

type renameProjectRequest struct {
	Title string `json:"title" validate:"required,max=200"`
}

func (h *Handlers) renameProject(c *gin.Context) {
	var req renameProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		server.RespondWithError(c, apperrors.Validation("invalid request body"))
		return
	}
	if err := validation.Validate(&req); err != nil {
		server.RespondWithError(c, err)
		return
	}

	project, err := h.loadProject(c)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	project.Title = req.Title
	if err := h.deps.Projects.Update(c.Request.Context(), project); err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, projectSummaryFrom(project))
}

type updateTextRequest struct {
	Text string `json:"text" validate:"required"`
}

// updateProjectText replaces the transcript text, redistributing it
// across the stored segment timings by word count, and re-renders
// every caption format.
func (h *Handlers) updateProjectText(c *gin.Context) {
	var req updateTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		server.RespondWithError(c, apperrors.Validation("invalid request body"))
		return
	}
	if err := validation.Validate(&req); err != nil {
		server.RespondWithError(c, err)
		return
	}

	project, err := h.loadProject(c)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	if project.SegmentsJSON == "" {
		server.RespondWithError(c, apperrors.Validation("project has no transcript to update"))
		return
	}

	segments, err := caption.ParseJSON([]byte(project.SegmentsJSON))
	if err != nil {
		server.RespondWithError(c, apperrors.Internal("parse stored segments", err))
		return
	}
	remapped := caption.RemapText(segments, req.Text)
	formats, err := caption.Serialize(remapped)
	if err != nil {
		server.RespondWithError(c, apperrors.Internal("serialize captions", err))
		return
	}

	err = h.deps.Projects.UpdateText(c.Request.Context(), project.ID, project.UserID,
		req.Text, formats.JSON, formats.SRT, formats.VTT)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}

	project.FullText = req.Text
	project.SegmentsJSON = formats.JSON
	project.SRT = formats.SRT
	project.VTT = formats.VTT
	server.RespondOK(c, projectDetailFrom(project))
}

// exportCaptions re-renders the stored segments in the requested
// format. An alternate text query redistributes that text across the
// stored timings before rendering.
func (h *Handlers) exportCaptions(c *gin.Context) {
	format := c.DefaultQuery("format", "srt")
	if verr := validation.New().
		OneOf("format", format, []string{"srt", "vtt", "json", "video"}).
		Validate(); verr != nil {
		server.RespondWithError(c, verr)
		return
	}

	project, err := h.loadProject(c)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	if project.SegmentsJSON == "" {
		server.RespondWithError(c, apperrors.NotFound("captions", project.ID.String()))
		return
	}

	segments, err := caption.ParseJSON([]byte(project.SegmentsJSON))
	if err != nil {
		server.RespondWithError(c, apperrors.Internal("parse stored segments", err))
		return
	}
	if alt := c.Query("text"); alt != "" {
		segments = caption.RemapText(segments, alt)
	}

	switch format {
	case "srt":
		respondAttachment(c, "captions.srt", "application/x-subrip", caption.FormatSRT(segments))
	case "vtt":
		respondAttachment(c, "captions.vtt", "text/vtt", caption.FormatVTT(segments))
	case "video":
		respondAttachment(c, "captions.txt", "text/plain; charset=utf-8", caption.FormatVideo(segments))
	case "json":
		formats, err := caption.Serialize(segments)
		if err != nil {
			server.RespondWithError(c, apperrors.Internal("serialize captions", err))
			return
		}
		c.Data(http.StatusOK, "application/json", []byte(formats.JSON))
	}
}

// loadProject resolves the :id path parameter to a project owned by
// the caller.
func (h *Handlers) loadProject(c *gin.Context) (*database.Project, error) {
	userID, err := h.callerID(c)
	if err != nil {
		return nil, err
	}
	projectID, err := validation.ValidateUUID("id", c.Param("id"))
	if err != nil {
		return nil, err
	}
	return h.deps.Projects.ByID(c.Request.Context(), projectID, userID)
}

func respondAttachment(c *gin.Context, filename, contentType, body string) {
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, contentType, []byte(body))
}

func intQuery(c *gin.Context, name string, def int) int {
	raw := c.Query(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}
