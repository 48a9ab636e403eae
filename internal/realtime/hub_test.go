package realtime

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"go.uber.org/zap"
)

func startTestHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return hub
}

func recvEvent(t *testing.T, sub *Subscriber) *Event {
	t.Helper()
	select {
	case frame, ok := <-sub.C:
		if !ok {
			t.Fatal("订阅通道被意外关闭")
		}
		var event Event
		if err := json.Unmarshal(frame, &event); err != nil {
			t.Fatalf("事件帧解析失败: %v", err)
		}
		return &event
	case <-time.After(2 * time.Second):
		t.Fatal("等待事件超时")
	}
	return nil
}

func TestHub_FanoutByScope(t *testing.T) {
	hub := startTestHub(t)

	sessionSub := hub.Subscribe("session:s1")
	classroomSub := hub.Subscribe("classroom:c1")
	otherSub := hub.Subscribe("session:s2")

	hub.Publish(Event{
		Type:      EventAttendanceUpdate,
		SessionID: "s1",
		Payload:   map[string]interface{}{"student_id": "stu-001"},
	}, "session:s1", "classroom:c1")

	for _, sub := range []*Subscriber{sessionSub, classroomSub} {
		event := recvEvent(t, sub)
		if event.Type != EventAttendanceUpdate {
			t.Errorf("期望事件类型 %s，实际=%s", EventAttendanceUpdate, event.Type)
		}
		if event.SessionID != "s1" {
			t.Errorf("期望 SessionID=s1，实际=%s", event.SessionID)
		}
		if event.Timestamp.IsZero() {
			t.Error("Publish 应补齐事件时间戳")
		}
	}

	// 其他 scope 的订阅端不应收到
	select {
	case frame := <-otherSub.C:
		t.Errorf("session:s2 订阅端不应收到事件: %s", frame)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestHub_MultiScopeSubscriberDeliveredOnce(t *testing.T) {
	hub := startTestHub(t)

	sub := hub.Subscribe("session:s1", "classroom:c1")
	hub.Publish(Event{Type: EventSessionClosed, SessionID: "s1"}, "session:s1", "classroom:c1")

	recvEvent(t, sub)

	// 同一事件命中两个 scope 也只投递一次
	select {
	case frame := <-sub.C:
		t.Errorf("事件不应重复投递: %s", frame)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestHub_Unsubscribe(t *testing.T) {
	hub := startTestHub(t)

	sub := hub.Subscribe("session:s1")
	hub.Unsubscribe(sub)

	// 注销后通道由 Hub 关闭
	select {
	case _, ok := <-sub.C:
		if ok {
			t.Error("注销后不应再收到事件帧")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("等待通道关闭超时")
	}

	hub.Publish(Event{Type: EventSessionStarted, SessionID: "s1"}, "session:s1")
}

func TestHub_SlowSubscriberDropped(t *testing.T) {
	hub := startTestHub(t)

	slow := hub.Subscribe("session:s1")

	// 打满发送缓冲后再多发一条，慢消费者被踢
	for i := 0; i <= subscriberBuffer+1; i++ {
		hub.Publish(Event{Type: EventAttendanceUpdate, SessionID: "s1"}, "session:s1")
	}
	// 等事件循环消化完广播队列
	time.Sleep(50 * time.Millisecond)

	deadline := time.After(2 * time.Second)
	received := 0
	for {
		select {
		case _, ok := <-slow.C:
			if !ok {
				if received > subscriberBuffer {
					t.Errorf("缓冲为 %d，收到 %d 条后才关闭", subscriberBuffer, received)
				}
				return
			}
			received++
		case <-deadline:
			t.Fatal("慢消费者未被踢出")
		}
	}
}

func TestHub_ShutdownClosesSubscribers(t *testing.T) {
	hub := NewHub(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()

	sub := hub.Subscribe("session:s1")
	cancel()
	<-done

	select {
	case _, ok := <-sub.C:
		if ok {
			t.Error("停机后不应再投递事件帧")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("停机后订阅通道应被关闭")
	}

	// 停机后的操作不应阻塞
	hub.Publish(Event{Type: EventSessionStarted}, "session:s1")
	hub.Unsubscribe(sub)
}
