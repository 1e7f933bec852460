package chat

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/zhouzirui/lingualive/backend/internal/config"
	"github.com/zhouzirui/lingualive/backend/internal/model/chat"
	chatservice "github.com/zhouzirui/lingualive/backend/internal/service/chat"
	"github.com/zhouzirui/lingualive/backend/pkg/protocol"
)

// WebSocketHandler 处理 /ws/{role} 的中继连接
type WebSocketHandler struct {
	chatSvc  *chatservice.Service
	cfg      config.RelayConfig
	log      *zap.SugaredLogger
	upgrader websocket.Upgrader
}

// NewWebSocketHandler 创建WebSocket处理器
func NewWebSocketHandler(chatSvc *chatservice.Service, cfg config.RelayConfig, log *zap.SugaredLogger) *WebSocketHandler {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &WebSocketHandler{
		chatSvc: chatSvc,
		cfg:     cfg,
		log:     log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterWebSocketRoutes 注册WebSocket路由
func (h *WebSocketHandler) RegisterWebSocketRoutes(r chi.Router) {
	r.Get("/ws/{role}", h.handleWebSocket)
}

// wsPeer 把一个服务端连接适配为中继的 Peer，写操作串行化。
type wsPeer struct {
	conn         *websocket.Conn
	writeTimeout time.Duration

	mu        sync.Mutex
	closeOnce sync.Once
}

func (p *wsPeer) Send(frame protocol.Frame) error {
	data, err := protocol.Encode(frame)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	_ = p.conn.SetWriteDeadline(time.Now().Add(p.writeTimeout))
	return p.conn.WriteMessage(websocket.TextMessage, data)
}

func (p *wsPeer) Close() error {
	var err error
	p.closeOnce.Do(func() {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = p.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(p.writeTimeout))
		err = p.conn.Close()
	})
	return err
}

// handleWebSocket 处理WebSocket连接
func (h *WebSocketHandler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	role, err := chat.ParseRole(chi.URLParam(r, "role"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if h.chatSvc == nil {
		http.Error(w, "chat service unavailable", http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warnw("websocket upgrade failed", "role", role, "error", err)
		return
	}

	peer := &wsPeer{conn: conn, writeTimeout: h.cfg.WriteTimeout}
	defer peer.Close()

	if err := h.chatSvc.Join(role, peer); err != nil {
		h.log.Warnw("join rejected", "role", role, "error", err)
		return
	}
	defer h.chatSvc.Leave(role, peer)

	log := h.log.With("role", role, "remote", r.RemoteAddr)
	log.Infow("websocket connected")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	_ = conn.SetReadDeadline(time.Now().Add(h.cfg.ReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(h.cfg.ReadTimeout))
	})

	go h.pingLoop(ctx, conn)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warnw("websocket read error", "error", err)
			} else {
				log.Infow("websocket disconnected")
			}
			return
		}

		_ = conn.SetReadDeadline(time.Now().Add(h.cfg.ReadTimeout))
		h.handleFrame(ctx, log, role, peer, data)
	}
}

func (h *WebSocketHandler) handleFrame(ctx context.Context, log *zap.SugaredLogger, role chat.Role, peer chatservice.Peer, data []byte) {
	frame, err := protocol.Decode(data)
	if err != nil {
		log.Warnw("dropping malformed frame", "error", err)
		h.sendError(log, peer, "invalid frame")
		return
	}

	switch f := frame.(type) {
	case protocol.SetLanguage:
		lang := chat.Language(f.Lang)
		if err := h.chatSvc.SetLanguage(role, lang); err != nil {
			h.sendError(log, peer, err.Error())
			return
		}
		if err := peer.Send(protocol.NewLanguageAck(lang.String())); err != nil {
			log.Warnw("send lang_ack failed", "error", err)
		}
	case protocol.Chat:
		if _, err := h.chatSvc.Broadcast(ctx, role, f.Text, f.Translate); err != nil {
			if errors.Is(err, chatservice.ErrEmptyMessage) {
				return
			}
			h.sendError(log, peer, err.Error())
		}
	case protocol.Relay:
		// 兼容直接发送 {sender, original} 的旧客户端：以 original 作为正文。
		if _, err := h.chatSvc.Broadcast(ctx, role, f.Original, true); err != nil && !errors.Is(err, chatservice.ErrEmptyMessage) {
			h.sendError(log, peer, err.Error())
		}
	default:
		log.Debugw("ignoring frame", "type", frame.FrameType())
	}
}

// sendError 发送错误帧
func (h *WebSocketHandler) sendError(log *zap.SugaredLogger, peer chatservice.Peer, message string) {
	if err := peer.Send(protocol.NewError(message)); err != nil {
		log.Warnw("send error frame failed", "error", err)
	}
}

// pingLoop 定期发送ping消息
func (h *WebSocketHandler) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(h.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(h.cfg.WriteTimeout)); err != nil {
				return
			}
		}
	}
}
