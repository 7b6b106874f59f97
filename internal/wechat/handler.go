// Readmark - WeChat Library Reading Companion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readmark

package wechat

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/tomtom215/readmark/internal/cache"
	"github.com/tomtom215/readmark/internal/logging"
	"github.com/tomtom215/readmark/internal/metrics"
)

const (
	maxMessageBytes = 1 << 20

	// The platform retries an unanswered message three times within
	// about fifteen seconds.
	dedupWindow   = time.Minute
	dedupCapacity = 10000
)

// Handler serves the webhook: GET for the platform handshake, POST for
// messages. Both require a valid signature.
type Handler struct {
	token   string
	gateway *Gateway
	seen    *cache.LRU[struct{}]
	now     func() time.Time
}

func NewHandler(token string, g *Gateway) *Handler {
	return &Handler{
		token:   token,
		gateway: g,
		seen:    cache.NewLRU[struct{}](dedupCapacity, dedupWindow),
		now:     time.Now,
	}
}

// deliveryKey identifies a delivery across retries. Events carry no MsgId.
func deliveryKey(msg *Message) string {
	if msg.MsgID != 0 {
		return strconv.FormatInt(msg.MsgID, 10)
	}
	return msg.FromUserName + ":" + strconv.FormatInt(msg.CreateTime, 10) + ":" + msg.Event + ":" + msg.EventKey
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if err := VerifySignature(h.token, q.Get("signature"), q.Get("timestamp"), q.Get("nonce")); err != nil {
		metrics.RecordWeChatReply("rejected")
		logging.Ctx(r.Context()).Warn().Str("remote", r.RemoteAddr).Msg("rejected webhook request with invalid signature")
		http.Error(w, "Invalid signature", http.StatusForbidden)
		return
	}

	switch r.Method {
	case http.MethodGet:
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = io.WriteString(w, q.Get("echostr"))
	case http.MethodPost:
		h.serveMessage(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	}
}

func (h *Handler) serveMessage(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxMessageBytes))
	if err != nil {
		metrics.RecordWeChatReply("malformed")
		http.Error(w, "XML parse error", http.StatusBadRequest)
		return
	}
	msg, err := ParseMessage(body)
	if err != nil {
		metrics.RecordWeChatReply("malformed")
		logging.Ctx(r.Context()).Error().Err(err).Msg("failed to parse webhook body")
		http.Error(w, "XML parse error", http.StatusBadRequest)
		return
	}
	metrics.RecordWeChatMessage(msg.MsgType)

	ctx := logging.ContextWithOpenID(r.Context(), msg.FromUserName)
	if h.seen.Seen(deliveryKey(msg)) {
		metrics.RecordWeChatReply("duplicate")
		logging.Ctx(ctx).Debug().Int64("msg_id", msg.MsgID).Msg("dropped retried webhook delivery")
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = io.WriteString(w, "success")
		return
	}
	content := h.gateway.HandleMessage(ctx, msg)

	// The platform treats "success" as an acknowledged message with no reply.
	if content == "" {
		metrics.RecordWeChatReply("empty")
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = io.WriteString(w, "success")
		return
	}

	out, err := EncodeTextReply(msg, content, h.now())
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("failed to encode reply")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	metrics.RecordWeChatReply("text")
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	_, _ = w.Write(out)
}
