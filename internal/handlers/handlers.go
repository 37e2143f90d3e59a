package handlers

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/example/bg-remove/internal/compositor"
	"github.com/example/bg-remove/internal/usecase"
)

// RegisterRoutes wires the HTTP handlers to the Gin router. The root and
// health endpoints are unauthenticated static JSON; everything else sits
// behind the API-key middleware. maxUploadBytes bounds the uploaded file
// size; larger files are rejected before any processing starts.
func RegisterRoutes(router *gin.Engine, uc *usecase.ProcessUseCase, authMiddleware gin.HandlerFunc, maxUploadBytes int64) {
	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "Background Removal API - Use POST /remove-background to remove image backgrounds"})
	})

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	authorized := router.Group("/", authMiddleware)

	authorized.POST("/remove-background", func(c *gin.Context) {
		file, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
			return
		}

		// Validation order matters: every check runs before the model is
		// invoked, so a bad request never costs an inference call.
		if file.Size > maxUploadBytes {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{
				"error": fmt.Sprintf("file too large, maximum size is %d bytes", maxUploadBytes),
			})
			return
		}

		if !strings.HasPrefix(file.Header.Get("Content-Type"), "image/") {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file must be an image"})
			return
		}

		background, err := compositor.ParseColor(c.PostForm("background_color"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		addShadow := false
		if raw := c.PostForm("add_shadow"); raw != "" {
			addShadow, err = strconv.ParseBool(raw)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "add_shadow must be a boolean"})
				return
			}
		}

		src, err := file.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unable to open uploaded file"})
			return
		}
		defer src.Close()

		data, err := io.ReadAll(src)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read uploaded file"})
			return
		}

		opts := usecase.Options{
			Filename:   file.Filename,
			Background: background,
			AddShadow:  addShadow,
		}

		requestID, png, err := uc.Process(c.Request.Context(), opts, data)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("error processing image: %v", err)})
			return
		}

		c.Header("X-Request-ID", requestID)
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", outputFilename(file.Filename)))
		c.Data(http.StatusOK, "image/png", png)
	})

	authorized.GET("/jobs/:id", func(c *gin.Context) {
		requestID := c.Param("id")

		log, err := uc.GetJob(c.Request.Context(), requestID)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"request_id":       log.RequestID,
			"filename":         log.Filename,
			"background_color": log.BackgroundColor,
			"shadow":           log.Shadow,
			"output_width":     log.OutputWidth,
			"output_height":    log.OutputHeight,
			"duration_ms":      log.DurationMs,
			"success":          log.Success,
			"details":          log.Details,
			"created_at":       log.CreatedAt,
		})
	})

	authorized.GET("/metrics", func(c *gin.Context) {
		summary, err := uc.GetMetricsSummary(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, summary)
	})
}

// outputFilename derives the response filename: original extension stripped,
// no_bg_ prefix, .png suffix.
func outputFilename(original string) string {
	base := filepath.Base(original)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" {
		stem = "image"
	}
	return "no_bg_" + stem + ".png"
}
