package api

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/clipscribe/clipscribe/internal/apperrors"
	"github.com/clipscribe/clipscribe/internal/database"
	"github.com/clipscribe/clipscribe/internal/logger"
	"github.com/clipscribe/clipscribe/internal/media"
	"github.com/clipscribe/clipscribe/internal/server"
	"github.com/clipscribe/clipscribe/internal/transcription"
	"github.com/clipscribe/clipscribe/internal/validation"
)

type transcribeRequest struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Quality string `json:"quality"`
}

// transcribe accepts either a multipart upload under the "file" field
// or a JSON body naming a source URL, runs the pipeline, and returns
// the completed project.
func (h *Handlers) transcribe(c *gin.Context) {
	user, err := h.currentUser(c)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	ctx := c.Request.Context()

	var mediaPath, title, sourceURL, quality string
	var size int64

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		mediaPath, size, title, quality, err = h.receiveUpload(c)
		if err != nil {
			server.RespondWithError(c, err)
			return
		}
	} else {
		var req transcribeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			server.RespondWithError(c, apperrors.Validation("invalid request body"))
			return
		}
		if verr := validation.New().
			Required("url", req.URL).
			URL("url", req.URL).
			Validate(); verr != nil {
			server.RespondWithError(c, verr)
			return
		}
		mediaPath, size, err = h.deps.Fetcher.Fetch(ctx, req.URL)
		if err != nil {
			server.RespondWithError(c, err)
			return
		}
		sourceURL = req.URL
		title = req.Title
		quality = req.Quality
	}
	defer os.Remove(mediaPath)

	if quality == "" {
		quality = transcription.QualityBalanced
	}
	if verr := validation.New().
		OneOf("quality", quality, transcription.ValidQualities()).
		Validate(); verr != nil {
		server.RespondWithError(c, verr)
		return
	}
	if title == "" {
		title = "Untitled"
	}

	project := &database.Project{
		UserID:    user.ID,
		Title:     title,
		SourceURL: sourceURL,
		Quality:   quality,
		Status:    database.ProjectProcessing,
	}
	if err := h.deps.Projects.Create(ctx, project); err != nil {
		server.RespondWithError(c, err)
		return
	}

	if _, err := h.deps.Pipeline.Run(ctx, user, project, mediaPath, size); err != nil {
		server.RespondWithError(c, err)
		return
	}

	h.archiveCaptions(ctx, project)
	server.RespondOK(c, projectDetailFrom(project))
}

// receiveUpload spools the multipart file field to the temp directory.
func (h *Handlers) receiveUpload(c *gin.Context) (path string, size int64, title, quality string, err error) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		return "", 0, "", "", apperrors.MissingField("file")
	}
	defer file.Close()

	dir := h.deps.TempDir
	if dir == "" {
		dir = os.TempDir()
	}
	out, err := os.CreateTemp(dir, "upload-*"+filepath.Ext(header.Filename))
	if err != nil {
		return "", 0, "", "", apperrors.Internal("create temp file", err)
	}
	size, err = io.Copy(out, file)
	closeErr := out.Close()
	if err != nil {
		os.Remove(out.Name())
		return "", 0, "", "", apperrors.Internal("spool upload", err)
	}
	if closeErr != nil {
		os.Remove(out.Name())
		return "", 0, "", "", apperrors.Internal("spool upload", closeErr)
	}

	title = c.PostForm("title")
	if title == "" {
		title = header.Filename
	}
	return out.Name(), size, title, c.PostForm("quality"), nil
}

type extractAudioRequest struct {
	URL string `json:"url" validate:"required,url"`
}

// extractAudio fetches a remote source and returns its audio track as
// a download. YouTube links need a downloader, not a plain fetch, so
// they are refused up front with the video id for the client to act on.
func (h *Handlers) extractAudio(c *gin.Context) {
	var req extractAudioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		server.RespondWithError(c, apperrors.Validation("invalid request body"))
		return
	}
	if err := validation.Validate(&req); err != nil {
		server.RespondWithError(c, err)
		return
	}
	if media.IsYouTubeURL(req.URL) {
		msg := "YouTube links cannot be fetched directly; upload the file instead"
		if id := youTubeVideoID(req.URL); id != "" {
			msg = fmt.Sprintf("%s (video %s)", msg, id)
		}
		server.RespondWithError(c, apperrors.Validation(msg))
		return
	}

	ctx := c.Request.Context()
	src, _, err := h.deps.Fetcher.Fetch(ctx, req.URL)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	defer os.Remove(src)

	audio, err := h.deps.Extractor.ExtractAudio(ctx, src)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	defer os.Remove(audio)

	c.FileAttachment(audio, "audio.wav")
}

// archiveCaptions uploads the rendered caption files to the artifact
// store when one is configured. Failures are logged and ignored; the
// database copy remains authoritative.
func (h *Handlers) archiveCaptions(ctx context.Context, project *database.Project) {
	if h.deps.Archive == nil {
		return
	}
	artifacts := map[string]string{
		fmt.Sprintf("projects/%s/captions.srt", project.ID):  project.SRT,
		fmt.Sprintf("projects/%s/captions.vtt", project.ID):  project.VTT,
		fmt.Sprintf("projects/%s/segments.json", project.ID): project.SegmentsJSON,
	}
	for key, content := range artifacts {
		if content == "" {
			continue
		}
		if err := h.deps.Archive.Upload(ctx, key, strings.NewReader(content)); err != nil {
			h.log.Warn("caption archive upload failed", logger.Fields(
				"key", key,
				"error", err.Error(),
			))
		}
	}
}

func youTubeVideoID(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	host := strings.ToLower(strings.TrimPrefix(u.Hostname(), "www."))
	if host == "youtu.be" {
		return strings.Trim(u.Path, "/")
	}
	return u.Query().Get("v")
}
