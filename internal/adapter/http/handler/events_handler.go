package handler

import (
	"io"
	"time"

	"token-settlement-gateway/internal/stream"
	"token-settlement-gateway/pkg/apperror"
	"token-settlement-gateway/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// heartbeatInterval keeps idle SSE connections alive through proxies.
const heartbeatInterval = 15 * time.Second

// EventsHandler streams payment lifecycle events over Server-Sent Events.
// One connection may watch any mix of merchants and individual payments;
// an event matching several of its keys is still delivered once.
type EventsHandler struct {
	registry *stream.Registry
	buffer   int
	log      zerolog.Logger
}

// NewEventsHandler creates a new EventsHandler. buffer is the per-connection
// event queue size.
func NewEventsHandler(registry *stream.Registry, buffer int, log zerolog.Logger) *EventsHandler {
	return &EventsHandler{registry: registry, buffer: buffer, log: log}
}

// Stream handles GET /api/v1/events?merchant_id=...&payment_id=...
func (h *EventsHandler) Stream(c *gin.Context) {
	merchantIDs := c.QueryArray("merchant_id")
	paymentIDs := c.QueryArray("payment_id")
	if len(merchantIDs) == 0 && len(paymentIDs) == 0 {
		response.Error(c, apperror.Validation("at least one merchant_id or payment_id is required"))
		return
	}

	keys := make([]stream.Key, 0, len(merchantIDs)+len(paymentIDs))
	for _, raw := range merchantIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			response.Error(c, apperror.Validation("invalid merchant_id"))
			return
		}
		keys = append(keys, stream.MerchantKey(id.String()))
	}
	for _, raw := range paymentIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			response.Error(c, apperror.Validation("invalid payment_id"))
			return
		}
		keys = append(keys, stream.PaymentKey(id.String()))
	}

	obs := stream.NewChannelObserver(h.buffer)
	obsID := h.registry.Register(obs)
	defer func() {
		h.registry.OnDisconnect(obsID)
		obs.Close()
	}()

	for _, key := range keys {
		if err := h.registry.Subscribe(obsID, key); err != nil {
			response.Error(c, apperror.InternalError(err))
			return
		}
	}

	h.log.Debug().
		Uint64("observer", uint64(obsID)).
		Int("keys", len(keys)).
		Msg("event stream connected")

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")

	c.SSEvent("subscribed", gin.H{
		"merchant_ids": merchantIDs,
		"payment_ids":  paymentIDs,
	})
	c.Writer.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	clientGone := c.Request.Context().Done()
	c.Stream(func(w io.Writer) bool {
		select {
		case event := <-obs.Events():
			c.SSEvent(string(event.Type), event)
			return true
		case <-heartbeat.C:
			c.SSEvent("heartbeat", time.Now().Unix())
			return true
		case <-clientGone:
			return false
		}
	})

	h.log.Debug().Uint64("observer", uint64(obsID)).Msg("event stream disconnected")
}
