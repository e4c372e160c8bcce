package adapters

import (
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/watchroom/server/internal/config"
)

// uploadFieldName is the fixed multipart field the client must use.
const uploadFieldName = "video"

// HandleUpload stores one media file under a generated name and returns
// the path the client later passes as videoUrl in video-load. The server
// treats that path as an opaque reference from then on.
func HandleUpload(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		file, err := c.FormFile(uploadFieldName)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing file field: " + uploadFieldName})
			return
		}
		if file.Size > cfg.UploadLimit {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
			return
		}

		name := uuid.NewString() + filepath.Ext(file.Filename)
		dst := filepath.Join(cfg.UploadDir, name)
		if err := c.SaveUploadedFile(file, dst); err != nil {
			log.Error().Str("module", "adapters.upload").Err(err).Msg("save upload")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store file"})
			return
		}

		log.Info().Str("module", "adapters.upload").Str("file", name).
			Int64("size", file.Size).Msg("stored upload")
		c.JSON(http.StatusOK, gin.H{
			"filename":     name,
			"originalname": file.Filename,
			"path":         "/uploads/" + name,
		})
	}
}
