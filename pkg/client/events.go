package client

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/haierkeys/page-notes-service/internal/domain"

	"github.com/bytedance/sonic"
	"github.com/lxzan/gws"
	"github.com/pkg/errors"
)

// PingInterval 客户端心跳间隔，需小于服务端 PingWait
const PingInterval = 20 * time.Second

// eventHandler 把推送帧解析为 NoteEvent
type eventHandler struct {
	gws.BuiltinEventHandler
	onEvent func(domain.NoteEvent)
	closed  chan error
}

func (h *eventHandler) OnClose(socket *gws.Conn, err error) {
	select {
	case h.closed <- err:
	default:
	}
}

func (h *eventHandler) OnMessage(socket *gws.Conn, message *gws.Message) {
	defer message.Close()
	if message.Opcode != gws.OpcodeText {
		return
	}
	var event domain.NoteEvent
	if err := sonic.Unmarshal(message.Data.Bytes(), &event); err != nil || event.Action == "" {
		return
	}
	h.onEvent(event)
}

// eventsURL http(s) 地址转换为 ws(s)
func (c *Client) eventsURL() string {
	u := *c.base
	switch strings.ToLower(u.Scheme) {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = c.base.Path + "/api/notes/events"
	return u.String()
}

// Subscribe blocks delivering change events of the token's user until ctx is done or the connection drops
// Subscribe 订阅当前用户的笔记变更事件，阻塞到 ctx 结束或连接断开
func (c *Client) Subscribe(ctx context.Context, onEvent func(domain.NoteEvent)) error {
	header := http.Header{}
	if c.token != "" {
		header.Set("Authorization", "Bearer "+c.token)
	}

	handler := &eventHandler{onEvent: onEvent, closed: make(chan error, 1)}
	socket, _, err := gws.NewClient(handler, &gws.ClientOption{
		Addr:          c.eventsURL(),
		RequestHeader: header,
	})
	if err != nil {
		return errors.Wrap(err, "dial events")
	}
	go socket.ReadLoop()

	ticker := time.NewTicker(PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = socket.WriteClose(1000, []byte("ClientClose"))
			return nil
		case err := <-handler.closed:
			return errors.Wrap(err, "events connection closed")
		case <-ticker.C:
			if err := socket.WritePing(nil); err != nil {
				return errors.Wrap(err, "events ping")
			}
		}
	}
}
