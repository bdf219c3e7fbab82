package gudp

type node struct {
	next, prev *node
	pkt        *Packet
}

// packetQueue is a doubly linked list of packets kept in sequence-number
// allocation order. Members are compared by pointer address. The queue is not
// thread-safe; the owning endpoint table's lock guards it.
type packetQueue struct {
	head, tail *node
	size       int
}

// Len is constant time.
func (q *packetQueue) Len() int {
	return q.size
}

// Front returns the oldest packet, or nil if the queue is empty.
func (q *packetQueue) Front() *Packet {
	if q.head != nil {
		return q.head.pkt
	}
	return nil
}

// PushBack appends p.
func (q *packetQueue) PushBack(p *Packet) {
	n := &node{
		prev: q.tail,
		pkt:  p,
	}
	if q.head == nil {
		q.head = n
	}
	if q.tail != nil {
		q.tail.next = n
	}
	q.tail = n
	q.size++
}

// PopFront removes and returns the oldest packet, or nil if the queue is
// empty.
func (q *packetQueue) PopFront() *Packet {
	if q.head == nil {
		return nil
	}
	ret := q.head
	q.unlink(ret)
	return ret.pkt
}

// Find returns the first packet with sequence number seq without removing
// it. This function is O(n).
func (q *packetQueue) Find(seq int32) *Packet {
	for it := q.head; it != nil; it = it.next {
		if it.pkt.Seq == seq {
			return it.pkt
		}
	}
	return nil
}

// Remove deletes p if present and reports whether it was found. This function
// is O(n).
func (q *packetQueue) Remove(p *Packet) bool {
	for it := q.head; it != nil; it = it.next {
		if it.pkt == p {
			q.unlink(it)
			return true
		}
	}
	return false
}

// RemoveThrough pops packets from the front while their sequence number is at
// most ack, and returns how many were removed. It relies on the queue being
// ordered by sequence number.
func (q *packetQueue) RemoveThrough(ack int32) int {
	n := 0
	for q.head != nil && q.head.pkt.Seq <= ack {
		q.unlink(q.head)
		n++
	}
	return n
}

// Clear drops every packet.
func (q *packetQueue) Clear() {
	q.head = nil
	q.tail = nil
	q.size = 0
}

func (q *packetQueue) unlink(n *node) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		q.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		q.tail = n.prev
	}
	n.next = nil
	n.prev = nil
	q.size--
}
