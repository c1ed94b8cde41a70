package core

import (
	"cmp"
	"container/heap"
)

type pqItem[K cmp.Ordered] struct {
	key      K
	priority uint64
	index    int
}

// priorityQueue is a min-heap keyed by priority with ties broken by key, so that pops are deterministic
type priorityQueue[K cmp.Ordered] struct {
	m    map[K]*pqItem[K]
	item []*pqItem[K]
}

func newPriorityQueue[K cmp.Ordered]() *priorityQueue[K] {
	return &priorityQueue[K]{
		m: make(map[K]*pqItem[K]),
	}
}

func (pq *priorityQueue[K]) Len() int { return len(pq.item) }

func (pq *priorityQueue[K]) Less(i, j int) bool {
	a, b := pq.item[i], pq.item[j]
	if a.priority != b.priority {
		return a.priority < b.priority
	}
	return a.key < b.key
}

func (pq *priorityQueue[K]) Swap(i, j int) {
	pq.item[i], pq.item[j] = pq.item[j], pq.item[i]
	pq.item[i].index, pq.item[j].index = i, j
}

func (pq *priorityQueue[K]) Push(x any) {
	item := x.(*pqItem[K])
	item.index = pq.Len()
	pq.m[item.key] = item
	pq.item = append(pq.item, item)
}

func (pq *priorityQueue[K]) Pop() any {
	item := pq.item[pq.Len()-1]
	delete(pq.m, item.key)
	pq.item = pq.item[:pq.Len()-1]
	return item
}

// Set inserts key, or moves it to the new priority if it is already queued
func (pq *priorityQueue[K]) Set(key K, priority uint64) {
	if item, ok := pq.m[key]; ok {
		item.priority = priority
		heap.Fix(pq, item.index)
		return
	}
	heap.Push(pq, &pqItem[K]{key: key, priority: priority})
}

func (pq *priorityQueue[K]) PopMin() (K, uint64) {
	item := heap.Pop(pq).(*pqItem[K])
	return item.key, item.priority
}

func (pq *priorityQueue[K]) Contains(key K) bool {
	_, ok := pq.m[key]
	return ok
}
