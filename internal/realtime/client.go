package realtime

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// 跨域已由 CORS 中间件统一控制
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWS 将 HTTP 连接升级为 WebSocket 并挂到 Hub 上
// 客户端只收不发；恢复连接后应调用快照接口补全状态再继续消费事件。
func ServeWS(hub *Hub, logger *zap.Logger, w http.ResponseWriter, r *http.Request, scopes ...string) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	sub := hub.Subscribe(scopes...)

	go writePump(conn, sub, logger)
	go readPump(conn, hub, sub)

	return nil
}

// writePump 将订阅通道中的事件帧写出，并周期性发送 ping 保活
func writePump(conn *websocket.Conn, sub *Subscriber, logger *zap.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case frame, ok := <-sub.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub 已注销该订阅端
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				logger.Debug("WebSocket 写失败", zap.Error(err))
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump 只处理控制帧；客户端数据帧一律丢弃
func readPump(conn *websocket.Conn, hub *Hub, sub *Subscriber) {
	defer func() {
		hub.Unsubscribe(sub)
		conn.Close()
	}()

	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
