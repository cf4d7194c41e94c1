package store

import (
	. "github.com/weberc2/blockfs/pkg/types"
)

// Cache is a fixed-capacity LRU of inodes. The most recently used entry is
// at `head`.
type Cache struct {
	head   *entry
	tail   *entry
	spare  *entry
	lookup map[Ino]*entry

	// entries are carved from pool in order until it is exhausted
	pool []entry
	used int
}

func NewCache(capacity int) *Cache {
	if capacity < 1 {
		panic("inode cache capacity must be at least 1")
	}
	return &Cache{
		lookup: make(map[Ino]*entry, capacity),
		pool:   make([]entry, capacity),
	}
}

func (c *Cache) Get(ino Ino, out *Inode) bool {
	e, exists := c.lookup[ino]
	if !exists {
		return false
	}

	c.unlink(e)
	c.pushFront(e)
	*out = e.value
	return true
}

// Peek fetches an inode without promoting it.
func (c *Cache) Peek(ino Ino, out *Inode) bool {
	e, exists := c.lookup[ino]
	if !exists {
		return false
	}
	*out = e.value
	return true
}

func (c *Cache) Remove(ino Ino, removed *Inode) bool {
	e, exists := c.lookup[ino]
	if !exists {
		return false
	}

	c.unlink(e)
	delete(c.lookup, ino)
	*removed = e.value

	// keep the wiped entry around for the next push
	e.value = Inode{}
	e.next = c.spare
	c.spare = e
	return true
}

func (c *Cache) Push(inode *Inode, evicted *Inode) (evict bool) {
	if e, exists := c.lookup[inode.Ino]; exists {
		c.unlink(e)
		c.pushFront(e)
		e.value = *inode
		return false
	}

	e := c.spare
	if e != nil {
		c.spare = e.next
	} else if c.used < len(c.pool) {
		e = &c.pool[c.used]
		c.used++
	} else {
		e = c.tail
		c.unlink(e)
		*evicted = e.value
		delete(c.lookup, evicted.Ino)
		evict = true
	}

	e.value = *inode
	c.lookup[inode.Ino] = e
	c.pushFront(e)
	return
}

func (c *Cache) Len() int { return len(c.lookup) }

func (c *Cache) unlink(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
	e.prev, e.next = nil, nil
}

func (c *Cache) pushFront(e *entry) {
	e.prev = nil
	e.next = c.head
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

type entry struct {
	prev  *entry
	next  *entry
	value Inode
}
