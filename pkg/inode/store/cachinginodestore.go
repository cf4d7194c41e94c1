package store

import (
	"fmt"
	"slices"

	. "github.com/weberc2/blockfs/pkg/types"
)

var _ InodeStore = (*CachingInodeStore)(nil)

// CachingInodeStore is a write-back cache in front of another store. Puts
// only reach the backend on eviction or flush.
type CachingInodeStore struct {
	backend InodeStore
	cache   Cache
	dirty   map[Ino]struct{}

	// evicted dirty inodes whose write-back failed; retried on flush
	parked map[Ino]Inode
}

func NewCachingInodeStore(
	backend InodeStore,
	cacheCapacity int,
) *CachingInodeStore {
	return &CachingInodeStore{
		backend: backend,
		cache:   *NewCache(cacheCapacity),
		dirty:   make(map[Ino]struct{}),
		parked:  make(map[Ino]Inode),
	}
}

func (store *CachingInodeStore) Put(inode *Inode) error {
	store.dirty[inode.Ino] = struct{}{}
	delete(store.parked, inode.Ino)
	if err := store.admit(inode); err != nil {
		return fmt.Errorf("storing inode `%d`: %w", inode.Ino, err)
	}
	return nil
}

func (store *CachingInodeStore) Get(ino Ino, output *Inode) error {
	if store.cache.Get(ino, output) {
		return nil
	}
	if parked, ok := store.parked[ino]; ok {
		*output = parked
		return nil
	}
	if err := store.backend.Get(ino, output); err != nil {
		return fmt.Errorf("fetching inode `%d` from backend: %w", ino, err)
	}
	if err := store.admit(output); err != nil {
		return fmt.Errorf("fetching inode `%d`: %w", ino, err)
	}
	return nil
}

// admit caches `inode`, writing back whatever the cache pushes out. An
// evictee that cannot be written back is parked rather than dropped.
func (store *CachingInodeStore) admit(inode *Inode) error {
	var evicted Inode
	if !store.cache.Push(inode, &evicted) {
		return nil
	}
	if err := store.writeBack(&evicted); err != nil {
		store.parked[evicted.Ino] = evicted
		return fmt.Errorf("evicting inode `%d`: %w", evicted.Ino, err)
	}
	return nil
}

// writeBack sends `inode` to the backend if it has unflushed changes.
func (store *CachingInodeStore) writeBack(inode *Inode) error {
	if _, ok := store.dirty[inode.Ino]; !ok {
		return nil
	}
	if err := store.backend.Put(inode); err != nil {
		return err
	}
	delete(store.dirty, inode.Ino)
	delete(store.parked, inode.Ino)
	return nil
}

// Flush writes back and evicts a single inode.
func (store *CachingInodeStore) Flush(ino Ino) error {
	var removed Inode
	if !store.cache.Remove(ino, &removed) {
		parked, ok := store.parked[ino]
		if !ok {
			return nil
		}
		removed = parked
	}
	if err := store.writeBack(&removed); err != nil {
		store.parked[ino] = removed
		return fmt.Errorf("flushing inode `%d`: %w", ino, err)
	}
	return nil
}

// FlushAll writes back every dirty inode, in ino order, leaving the cache
// populated.
func (store *CachingInodeStore) FlushAll() error {
	inos := make([]Ino, 0, len(store.dirty))
	for ino := range store.dirty {
		inos = append(inos, ino)
	}
	slices.Sort(inos)

	var inode Inode
	for _, ino := range inos {
		if !store.cache.Peek(ino, &inode) {
			parked, ok := store.parked[ino]
			if !ok {
				return fmt.Errorf("flushing inode `%d`: dirty but not cached", ino)
			}
			inode = parked
		}
		if err := store.writeBack(&inode); err != nil {
			return fmt.Errorf("flushing inode `%d`: %w", ino, err)
		}
	}
	return nil
}

func (store *CachingInodeStore) Dirty() int { return len(store.dirty) }
