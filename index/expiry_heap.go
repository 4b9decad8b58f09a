package index

import "container/heap"

// ExpiryEntry 过期时间堆内的元素 只有带TTL的key才会入堆
type ExpiryEntry struct {
	Key       string `json:"key"`
	ExpiredAt int64  `json:"expiredAt"`
	CreatedAt int64  `json:"createdAt"`
}

// entrySlice 实现heap.Interface 对外不暴露 外面只用ExpiryHeap
type entrySlice []ExpiryEntry

func (es entrySlice) Len() int {
	return len(es)
}

func (es entrySlice) Less(i, j int) bool {
	if es[i].ExpiredAt != es[j].ExpiredAt {
		return es[i].ExpiredAt < es[j].ExpiredAt
	}
	// 过期时间相同时按创建时间排 再相同就按key排 保证顺序完全确定
	if es[i].CreatedAt != es[j].CreatedAt {
		return es[i].CreatedAt < es[j].CreatedAt
	}
	return es[i].Key < es[j].Key
}

func (es entrySlice) Swap(i, j int) {
	es[i], es[j] = es[j], es[i]
}

func (es *entrySlice) Push(x any) {
	*es = append(*es, x.(ExpiryEntry))
}

func (es *entrySlice) Pop() any {
	old := *es
	n := len(old)
	result := old[n-1]
	*es = old[:n-1]
	return result
}

// ExpiryHeap 以过期时间戳为序的小根堆
// 没有按任意key删除的操作 需要删除某个key的时候只能过滤后整体重建 代价O(n) 这是刻意保持的简单实现
type ExpiryHeap struct {
	entries entrySlice
}

func NewExpiryHeap() *ExpiryHeap {
	return &ExpiryHeap{
		entries: make(entrySlice, 0),
	}
}

// Push 插入一个元素 O(log n)
func (eh *ExpiryHeap) Push(entry ExpiryEntry) {
	heap.Push(&eh.entries, entry)
}

// Pop 取出过期时间最早的元素 堆为空时第二个返回值为false
func (eh *ExpiryHeap) Pop() (ExpiryEntry, bool) {
	if len(eh.entries) == 0 {
		return ExpiryEntry{}, false
	}
	return heap.Pop(&eh.entries).(ExpiryEntry), true
}

// Peek 查看过期时间最早的元素 不取出
func (eh *ExpiryHeap) Peek() (ExpiryEntry, bool) {
	if len(eh.entries) == 0 {
		return ExpiryEntry{}, false
	}
	return eh.entries[0], true
}

// RemoveKey 删掉指定key的元素 方式就是过滤剩余元素后自底向上重建 O(n)
func (eh *ExpiryHeap) RemoveKey(key string) {
	remained := make(entrySlice, 0, len(eh.entries))
	for _, entry := range eh.entries {
		if entry.Key != key {
			remained = append(remained, entry)
		}
	}
	eh.entries = remained
	heap.Init(&eh.entries)
}

// Rebuild 用给定的元素集合整体重建堆 加载meta文件的时候用
func (eh *ExpiryHeap) Rebuild(entries []ExpiryEntry) {
	eh.entries = make(entrySlice, len(entries))
	copy(eh.entries, entries)
	heap.Init(&eh.entries)
}

// Length 堆内元素数量
func (eh *ExpiryHeap) Length() int {
	return len(eh.entries)
}

// Snapshot 复制出堆内全部元素 持久化的时候用 顺序是堆内部的数组顺序而不是排好的顺序
func (eh *ExpiryHeap) Snapshot() []ExpiryEntry {
	result := make([]ExpiryEntry, len(eh.entries))
	copy(result, eh.entries)
	return result
}
