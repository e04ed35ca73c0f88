package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/example/resumehub/internal/core"
	"github.com/example/resumehub/internal/live"
	"github.com/example/resumehub/internal/metrics"
)

const keepAliveInterval = 25 * time.Second

// StreamHandler serves live resume subscriptions as Server-Sent Events.
type StreamHandler struct {
	resumeService core.ResumeService
	metrics       *metrics.Metrics
	logger        *zap.Logger
	keepAlive     time.Duration
	// done is closed when the server starts shutting down. Open streams end
	// and release their listeners instead of holding the shutdown open.
	done <-chan struct{}
}

// NewStreamHandler creates a new StreamHandler. m and done may be nil.
func NewStreamHandler(rs core.ResumeService, m *metrics.Metrics, done <-chan struct{}, logger *zap.Logger) *StreamHandler {
	return &StreamHandler{resumeService: rs, metrics: m, logger: logger, keepAlive: keepAliveInterval, done: done}
}

// StreamMine handles GET /resumes/stream. Every change to the caller's resumes
// sends the full list, most recent first.
func (h *StreamHandler) StreamMine(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		return
	}
	sub, err := h.resumeService.SubscribeByOwner(c.Request.Context(), p.UserID)
	if err != nil {
		mapErrorToStatus(c, h.logger, err)
		return
	}
	serveEvents(c, h, sub)
}

// StreamResume handles GET /resumes/:id/stream. Absent or unreadable resumes are sent as null.
func (h *StreamHandler) StreamResume(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		return
	}
	sub, err := h.resumeService.SubscribeForViewer(c.Request.Context(), p, c.Param("id"))
	if err != nil {
		mapErrorToStatus(c, h.logger, err)
		return
	}
	serveEvents(c, h, sub)
}

// serveEvents forwards snapshots as JSON "update" events until the client goes away,
// the subscription fails or the server shuts down. The subscription is always
// closed on return.
func serveEvents[T any](c *gin.Context, h *StreamHandler, sub *live.Subscription[T]) {
	defer sub.Close()
	if h.metrics != nil {
		defer h.metrics.TrackSubscription()()
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-h.done:
			return
		case <-ticker.C:
			c.SSEvent("ping", time.Now().UTC().Format(time.RFC3339))
			c.Writer.Flush()
		case snap, ok := <-sub.Updates():
			if !ok {
				return
			}
			if snap.Err != nil {
				h.logger.Warn("Live subscription failed", zap.String("path", c.FullPath()), zap.Error(snap.Err))
				c.SSEvent("error", `{"error":"Live updates are unavailable"}`)
				c.Writer.Flush()
				return
			}
			payload, err := json.Marshal(snap.Value)
			if err != nil {
				h.logger.Error("Failed to encode live update", zap.Error(err))
				return
			}
			c.SSEvent("update", string(payload))
			c.Writer.Flush()
		}
	}
}
