package app

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lxzan/gws"
	"go.uber.org/zap"
)

const (
	WebSocketServerPingWait = 40 * time.Second
	sessionUIDKey           = "uid"
)

// WSConfig websocket 服务配置
type WSConfig struct {
	GWSOption gws.ServerOption
	PingWait  time.Duration
}

// EventHub pushes per-user change events to every websocket the user has open.
// Connections are read-only subscribers; the only inbound frames are pings and "close".
// EventHub 按用户维护 websocket 连接并推送变更事件
type EventHub struct {
	gws.BuiltinEventHandler

	logger   *zap.Logger
	config   WSConfig
	upgrader *gws.Upgrader

	mu    sync.RWMutex
	conns map[int64]map[*gws.Conn]struct{}
}

// NewEventHub 创建事件推送中心
func NewEventHub(cfg WSConfig, logger *zap.Logger) *EventHub {
	if cfg.PingWait <= 0 {
		cfg.PingWait = WebSocketServerPingWait
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &EventHub{
		logger: logger,
		config: cfg,
		conns:  make(map[int64]map[*gws.Conn]struct{}),
	}
	h.upgrader = gws.NewUpgrader(h, &h.config.GWSOption)
	return h
}

// Handler upgrades an authenticated request; the auth middleware must run first
// Handler 升级已认证的请求，需先经过用户认证中间件
func (h *EventHub) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := GetUID(c)
		if uid <= 0 {
			c.AbortWithStatus(401)
			return
		}
		socket, err := h.upgrader.Upgrade(c.Writer, c.Request)
		if err != nil {
			h.logger.Error("EventHub upgrade err", zap.Int64("uid", uid), zap.Error(err))
			return
		}
		socket.Session().Store(sessionUIDKey, uid)
		h.add(uid, socket)
		go socket.ReadLoop()
	}
}

// Publish sends payload to all connections of uid
// Publish 向用户的所有连接推送消息
func (h *EventHub) Publish(uid int64, payload []byte) {
	h.mu.RLock()
	targets := make([]*gws.Conn, 0, len(h.conns[uid]))
	for conn := range h.conns[uid] {
		targets = append(targets, conn)
	}
	h.mu.RUnlock()

	if len(targets) == 0 {
		return
	}

	b := gws.NewBroadcaster(gws.OpcodeText, payload)
	defer b.Close()
	for _, conn := range targets {
		if err := b.Broadcast(conn); err != nil {
			h.logger.Warn("EventHub broadcast err", zap.Int64("uid", uid), zap.Error(err))
		}
	}
}

// Count 返回用户当前连接数
func (h *EventHub) Count(uid int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[uid])
}

// Total 返回全部连接数
func (h *EventHub) Total() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, set := range h.conns {
		n += len(set)
	}
	return n
}

// Shutdown 关闭全部连接
func (h *EventHub) Shutdown() {
	h.mu.Lock()
	all := h.conns
	h.conns = make(map[int64]map[*gws.Conn]struct{})
	h.mu.Unlock()

	for _, set := range all {
		for conn := range set {
			_ = conn.WriteClose(1001, []byte("ServerShutdown"))
		}
	}
}

func (h *EventHub) add(uid int64, conn *gws.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conns[uid] == nil {
		h.conns[uid] = make(map[*gws.Conn]struct{})
	}
	h.conns[uid][conn] = struct{}{}
}

func (h *EventHub) remove(conn *gws.Conn) {
	v, ok := conn.Session().Load(sessionUIDKey)
	if !ok {
		return
	}
	uid, _ := v.(int64)

	h.mu.Lock()
	defer h.mu.Unlock()
	if set := h.conns[uid]; set != nil {
		delete(set, conn)
		if len(set) == 0 {
			delete(h.conns, uid)
		}
	}
}

func (h *EventHub) OnOpen(socket *gws.Conn) {
	_ = socket.SetDeadline(time.Now().Add(h.config.PingWait))
}

func (h *EventHub) OnClose(socket *gws.Conn, err error) {
	h.remove(socket)
	h.logger.Debug("EventHub client leave", zap.Error(err))
}

func (h *EventHub) OnPing(socket *gws.Conn, payload []byte) {
	_ = socket.SetDeadline(time.Now().Add(h.config.PingWait))
	_ = socket.WritePong(payload)
}

func (h *EventHub) OnPong(socket *gws.Conn, payload []byte) {
	_ = socket.SetDeadline(time.Now().Add(h.config.PingWait))
}

func (h *EventHub) OnMessage(socket *gws.Conn, message *gws.Message) {
	defer message.Close()
	_ = socket.SetDeadline(time.Now().Add(h.config.PingWait))
	if message.Opcode == gws.OpcodeText && message.Data.String() == "close" {
		_ = socket.WriteClose(1000, []byte("ClientClose"))
	}
}
