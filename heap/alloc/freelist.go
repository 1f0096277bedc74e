package alloc

import "github.com/joshuapare/tagalloc/heap"

// anchor is the free-list sentinel. Offset 0 is the start fencepost footer,
// never a block header, so it cannot collide with a real entry.
const anchor = 0

// freeList is a circular doubly linked list of free block headers. The links
// of real entries live in the arena; the anchor's links live here.
type freeList struct {
	h     *heap.Heap
	head  int // anchor.next
	tail  int // anchor.prev
	count int
}

func newFreeList(h *heap.Heap) freeList {
	return freeList{h: h, head: anchor, tail: anchor}
}

func (l *freeList) next(off int) int {
	if off == anchor {
		return l.head
	}
	n, _ := l.h.Links(off)
	return n
}

func (l *freeList) prev(off int) int {
	if off == anchor {
		return l.tail
	}
	_, p := l.h.Links(off)
	return p
}

func (l *freeList) setNext(off, v int) {
	if off == anchor {
		l.head = v
		return
	}
	l.h.SetNext(off, v)
}

func (l *freeList) setPrev(off, v int) {
	if off == anchor {
		l.tail = v
		return
	}
	l.h.SetPrev(off, v)
}

// empty reports whether only the anchor remains.
func (l *freeList) empty() bool {
	return l.head == anchor
}

// pushBack links off in front of the anchor.
func (l *freeList) pushBack(off int) {
	last := l.tail
	l.h.SetLinks(off, anchor, last)
	l.setNext(last, off)
	l.tail = off
	l.count++
}

// remove unlinks off and clears its links.
func (l *freeList) remove(off int) {
	next, prev := l.h.Links(off)
	l.setNext(prev, next)
	l.setPrev(next, prev)
	l.h.SetLinks(off, anchor, anchor)
	l.count--
}

// replace puts nu into old's position. old's links are cleared.
func (l *freeList) replace(old, nu int) {
	next, prev := l.h.Links(old)
	l.h.SetLinks(nu, next, prev)
	l.setNext(prev, nu)
	l.setPrev(next, nu)
	l.h.SetLinks(old, anchor, anchor)
}

// firstFit returns the first entry, in list order, whose size is at least
// need. The anchor is never matched.
func (l *freeList) firstFit(need uint64) (int, bool) {
	for off := l.head; off != anchor; off = l.next(off) {
		if l.h.BlockSize(off) >= need {
			return off, true
		}
	}
	return 0, false
}

// walk calls fn for each entry in list order until fn returns false.
func (l *freeList) walk(fn func(off int) bool) {
	for off := l.head; off != anchor; off = l.next(off) {
		if !fn(off) {
			return
		}
	}
}
