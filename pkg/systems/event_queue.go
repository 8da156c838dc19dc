package systems

import "container/heap"

// scheduledEvent 在模拟时间 at 触发的回调
type scheduledEvent struct {
	at  float64
	seq uint64 // 同一时刻按调度顺序触发
	fn  func()
}

type eventHeap []*scheduledEvent

func (h eventHeap) Len() int { return len(h) }
func (h eventHeap) Less(i, j int) bool {
	if h[i].at != h[j].at {
		return h[i].at < h[j].at
	}
	return h[i].seq < h[j].seq
}
func (h eventHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *eventHeap) Push(x interface{}) { *h = append(*h, x.(*scheduledEvent)) }
func (h *eventHeap) Pop() interface{} {
	old := *h
	n := len(old)
	ev := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return ev
}

// EventQueue 模拟时间上的定时事件队列
//
// 取代基于真实时钟的定时器链：每帧调用一次 Advance，
// 所有到期事件按 (时间, 调度顺序) 依次触发，行为完全确定，便于测试。
type EventQueue struct {
	now    float64
	seq    uint64
	events eventHeap
}

// NewEventQueue 创建事件队列，模拟时钟从 0 开始
func NewEventQueue() *EventQueue {
	return &EventQueue{
		events: make(eventHeap, 0, 16),
	}
}

// Now 返回当前模拟时间（秒）
// 在事件回调内调用时返回该事件的触发时间
func (q *EventQueue) Now() float64 {
	return q.now
}

// Schedule 在 delay 秒后触发 fn（delay <= 0 表示下一次 Advance 时触发）
func (q *EventQueue) Schedule(delay float64, fn func()) {
	if delay < 0 {
		delay = 0
	}
	q.ScheduleAt(q.now+delay, fn)
}

// ScheduleAt 在模拟时间 at 触发 fn
func (q *EventQueue) ScheduleAt(at float64, fn func()) {
	if fn == nil {
		return
	}
	q.seq++
	heap.Push(&q.events, &scheduledEvent{at: at, seq: q.seq, fn: fn})
}

// Advance 推进模拟时钟 dt 秒并触发所有到期事件
//
// 回调中新调度的、且在本次推进窗口内到期的事件同样会在本次调用中触发。
// 返回触发的事件数。
func (q *EventQueue) Advance(dt float64) int {
	if dt < 0 {
		dt = 0
	}
	target := q.now + dt
	fired := 0
	for len(q.events) > 0 && q.events[0].at <= target {
		ev := heap.Pop(&q.events).(*scheduledEvent)
		if ev.at > q.now {
			q.now = ev.at
		}
		ev.fn()
		fired++
	}
	q.now = target
	return fired
}

// Len 返回待触发事件数
func (q *EventQueue) Len() int {
	return len(q.events)
}
