package store

import (
	"bytes"
	"sort"
	"sync"

	"github.com/ssargent/statext/pkg/account"
)

// HashIndex maps each account address to its latest frame
type HashIndex struct {
	entries map[account.Address]*IndexEntry
	mutex   sync.RWMutex
}

// NewHashIndex creates a new hash index
func NewHashIndex() *HashIndex {
	return &HashIndex{
		entries: make(map[account.Address]*IndexEntry),
	}
}

// Put adds or updates the entry for addr
func (idx *HashIndex) Put(addr account.Address, entry *IndexEntry) {
	idx.mutex.Lock()
	defer idx.mutex.Unlock()

	idx.entries[addr] = entry
}

// Get retrieves the entry for addr
func (idx *HashIndex) Get(addr account.Address) (*IndexEntry, bool) {
	idx.mutex.RLock()
	defer idx.mutex.RUnlock()

	entry, exists := idx.entries[addr]
	return entry, exists
}

// Size returns the number of addresses in the index
func (idx *HashIndex) Size() int {
	idx.mutex.RLock()
	defer idx.mutex.RUnlock()

	return len(idx.entries)
}

// Clear removes all entries from the index
func (idx *HashIndex) Clear() {
	idx.mutex.Lock()
	defer idx.mutex.Unlock()

	idx.entries = make(map[account.Address]*IndexEntry)
}

// Addresses returns every indexed address in byte order
func (idx *HashIndex) Addresses() []account.Address {
	idx.mutex.RLock()
	defer idx.mutex.RUnlock()

	addrs := make([]account.Address, 0, len(idx.entries))
	for addr := range idx.entries {
		addrs = append(addrs, addr)
	}
	sort.Slice(addrs, func(i, j int) bool { return bytes.Compare(addrs[i][:], addrs[j][:]) < 0 })
	return addrs
}

// BuildFromLog scans a log file and populates the index. Later frames
// replace earlier ones. It returns the number of frames read.
func (idx *HashIndex) BuildFromLog(reader *LogReader) (int64, error) {
	idx.mutex.Lock()
	defer idx.mutex.Unlock()

	idx.entries = make(map[account.Address]*IndexEntry)

	if err := reader.Seek(0); err != nil {
		return 0, err
	}

	iterator := reader.Iterator()
	defer iterator.Close()

	var frames int64
	for iterator.Next() {
		frame := iterator.Frame()
		entry := &IndexEntry{
			FileID:    0, // Single file for now
			Offset:    iterator.Offset(),
			Size:      uint32(frame.Size()),
			Timestamp: frame.Timestamp,
		}
		for _, e := range frame.Entries {
			idx.entries[e.Address] = entry
		}
		frames++
	}

	return frames, iterator.Err()
}

// Stats returns index statistics
func (idx *HashIndex) Stats() *IndexStats {
	idx.mutex.RLock()
	defer idx.mutex.RUnlock()

	return &IndexStats{
		TotalAccounts: len(idx.entries),
	}
}

// IndexStats holds statistics about the index
type IndexStats struct {
	TotalAccounts int
}
