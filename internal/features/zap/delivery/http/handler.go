package http

import (
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	boardservice "zapboard-backend/internal/features/board/service"
	"zapboard-backend/internal/features/zap/aggregate"
	"zapboard-backend/internal/features/zap/models"
	"zapboard-backend/internal/features/zap/monitor"
)

const (
	heartbeatInterval = 30 * time.Second
	sessionBuffer     = 256
)

type StreamHandler struct {
	boardService boardservice.BoardService
	monitor      *monitor.Monitor
	log          zerolog.Logger
}

func NewStreamHandler(boardService boardservice.BoardService, mon *monitor.Monitor, log zerolog.Logger) *StreamHandler {
	return &StreamHandler{boardService: boardService, monitor: mon, log: log}
}

func (h *StreamHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/boards/:id/stream", h.Stream)
}

type streamSnapshot struct {
	Message     *models.ZapMessage   `json:"message,omitempty"`
	TotalSats   int64                `json:"totalSats"`
	Count       int                  `json:"count"`
	Leaderboard []*models.ZapMessage `json:"leaderboard"`
	RankChanges []models.RankChange  `json:"rankChanges,omitempty"`
}

// Stream opens a live board session: it resolves the board, subscribes to its
// receipts and pushes one snapshot per admitted message over SSE. All session
// state lives in this handler goroutine.
func (h *StreamHandler) Stream(c *gin.Context) {
	boardID := c.Param("id")
	ctx := c.Request.Context()

	config, err := h.boardService.Get(ctx, boardID)
	if err != nil {
		c.Error(err)
		return
	}

	msgCh := make(chan *models.ZapMessage, sessionBuffer)
	cancel, err := h.monitor.Subscribe(ctx, config.BoardID, config.CreatorPubkey, func(msg *models.ZapMessage) {
		select {
		case msgCh <- msg:
		default:
			h.log.Warn().Str("board_id", boardID).Msg("Stream session buffer full, dropping message")
		}
	})
	if err != nil {
		c.Error(err)
		return
	}
	defer cancel()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	agg := aggregate.New()
	var prevTopIDs []string

	c.SSEvent("snapshot", streamSnapshot{
		TotalSats:   agg.TotalSats(),
		Count:       agg.Count(),
		Leaderboard: agg.Leaderboard(),
	})
	c.Writer.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case msg := <-msgCh:
			agg.Add(msg)
			leaderboard := agg.Leaderboard()
			changes := aggregate.RankChanges(prevTopIDs, leaderboard)
			prevTopIDs = aggregate.TopIDs(leaderboard)

			c.SSEvent("zap", streamSnapshot{
				Message:     msg,
				TotalSats:   agg.TotalSats(),
				Count:       agg.Count(),
				Leaderboard: leaderboard,
				RankChanges: changes,
			})
			return true
		case <-heartbeat.C:
			c.SSEvent("ping", time.Now().UnixMilli())
			return true
		case <-ctx.Done():
			return false
		}
	})
}
