package dashboard

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/siteboard/siteboard/internal/models"
)

// handleSSE streams change-feed events to the browser. Each connection
// keeps its own cursor over the outbox table, seeded at the current
// maximum id so only changes made after connecting are sent.
func handleSSE(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")
		c.Header("X-Accel-Buffering", "no")

		writeSSE(c.Writer, "connected", map[string]string{"type": "connected"})
		c.Writer.Flush()

		var lastSeenID uint
		if err := db.Model(&models.ChangeEvent{}).
			Select("COALESCE(MAX(id), 0)").Scan(&lastSeenID).Error; err != nil {
			return
		}

		ctx := c.Request.Context()
		ticker := time.NewTicker(3 * time.Second)
		heartbeat := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		defer heartbeat.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-heartbeat.C:
				writeSSE(c.Writer, "heartbeat", map[string]string{
					"timestamp": time.Now().UTC().Format(time.RFC3339),
				})
				c.Writer.Flush()
			case <-ticker.C:
				var events []models.ChangeEvent
				if err := db.Where("id > ?", lastSeenID).
					Order("id ASC").Limit(100).
					Find(&events).Error; err != nil {
					continue
				}
				if len(events) == 0 {
					continue
				}
				lastSeenID = events[len(events)-1].ID
				for _, e := range events {
					writeSSE(c.Writer, "change", e)
				}
				c.Writer.Flush()
			}
		}
	}
}

// writeSSE writes a single SSE event to the writer.
func writeSSE(w io.Writer, event string, data any) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, string(jsonData))
}
