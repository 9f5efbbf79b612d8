// Copyright (c) 2026 The verse developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

// journal keeps storage writes in a stack of levels.
// Each level inherits key/value of the level below it, so the whole stack
// acts as a single map with save-restore/snapshot-revert manner.
type journal struct {
	src      func(key storageKey) ([]byte, bool, error)
	levels   []*journalLevel
	keyRevs  map[storageKey][]int
}

type journalLevel struct {
	kvs map[storageKey][]byte
}

func newJournal(src func(key storageKey) ([]byte, bool, error)) *journal {
	return &journal{
		src:     src,
		keyRevs: make(map[storageKey][]int),
	}
}

// Depth returns depth of the level stack.
func (j *journal) Depth() int {
	return len(j.levels)
}

// Push pushes a new level on the stack and returns stack depth before push.
func (j *journal) Push() int {
	j.levels = append(j.levels, &journalLevel{kvs: make(map[storageKey][]byte)})
	return len(j.levels) - 1
}

// Pop pops the top level, reverting all writes made since the matching Push.
func (j *journal) Pop() {
	top := j.levels[len(j.levels)-1]
	for key := range top.kvs {
		revs := j.keyRevs[key]
		revs = revs[:len(revs)-1]
		if len(revs) == 0 {
			delete(j.keyRevs, key)
		} else {
			j.keyRevs[key] = revs
		}
	}
	j.levels = j.levels[:len(j.levels)-1]
}

// PopTo pops levels until stack depth reaches depth.
func (j *journal) PopTo(depth int) {
	for len(j.levels) > depth {
		j.Pop()
	}
}

// Get gets value for given key. The second return value indicates
// whether the key was found.
func (j *journal) Get(key storageKey) ([]byte, bool, error) {
	if revs, ok := j.keyRevs[key]; ok {
		lvl := j.levels[revs[len(revs)-1]]
		if v, ok := lvl.kvs[key]; ok {
			return v, true, nil
		}
	}
	return j.src(key)
}

// Put puts key value into the top level.
// It panics if no level was pushed.
func (j *journal) Put(key storageKey, value []byte) {
	top := j.levels[len(j.levels)-1]
	if _, ok := top.kvs[key]; !ok {
		j.keyRevs[key] = append(j.keyRevs[key], len(j.levels)-1)
	}
	top.kvs[key] = value
}

// Journal iterates committed writes from bottom to top level.
// Later writes to the same key win; cb returning false stops iteration.
func (j *journal) Journal(cb func(key storageKey, value []byte) bool) {
	for key, revs := range j.keyRevs {
		lvl := j.levels[revs[len(revs)-1]]
		if !cb(key, lvl.kvs[key]) {
			return
		}
	}
}
