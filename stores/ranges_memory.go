package stores

import (
	"context"
	"net/netip"
	"sort"
	"sync"

	"github.com/9seconds/whereabouts/wherelib"
	"github.com/asergeyev/nradix"
	"github.com/juju/errors"
)

const memoryRangeStorePrealloc = 1024

// MemoryRangeStore keeps learned ranges in a radix tree. It is lost on
// restart, so it is good for tests and single node deployments where
// learning from scratch is acceptable.
type MemoryRangeStore struct {
	tree   *nradix.Tree
	ranges map[netip.Prefix]*wherelib.LearnedIPRange
	lock   sync.RWMutex
}

// FindContaining walks from the longest prefix to the shortest one.
// Radix tree returns only the most specific match, so the next lookup
// is done with a mask which is one bit shorter than a found prefix.
func (m *MemoryRangeStore) FindContaining(_ context.Context, addr netip.Addr) ([]wherelib.LearnedIPRange, error) {
	addr = addr.Unmap()
	rv := []wherelib.LearnedIPRange{}

	m.lock.RLock()
	defer m.lock.RUnlock()

	for bits := addr.BitLen(); bits >= 0; {
		prefix, err := addr.Prefix(bits)
		if err != nil {
			return nil, errors.Annotatef(err, "cannot make a prefix of %s", addr)
		}

		value, err := m.tree.FindCIDR(prefix.String())
		if err != nil {
			return nil, errors.Annotatef(err, "cannot lookup %s", prefix)
		}

		found, ok := value.(*wherelib.LearnedIPRange)
		if !ok {
			break
		}

		rv = append(rv, *found)
		bits = found.CIDR.Bits() - 1
	}

	return rv, nil
}

func (m *MemoryRangeStore) Upsert(_ context.Context, prefix netip.Prefix, fn wherelib.UpsertFunc) error {
	prefix = prefix.Masked()

	m.lock.Lock()
	defer m.lock.Unlock()

	var current *wherelib.LearnedIPRange

	if value, ok := m.ranges[prefix]; ok {
		copied := *value
		current = &copied
	}

	value, err := fn(current)
	if err != nil {
		return err
	}

	value.CIDR = prefix

	if stored, ok := m.ranges[prefix]; ok {
		*stored = value

		return nil
	}

	stored := &value

	if err := m.tree.AddCIDR(prefix.String(), stored); err != nil {
		return errors.Annotatef(err, "cannot add %s to a tree", prefix)
	}

	m.ranges[prefix] = stored

	return nil
}

func (m *MemoryRangeStore) ListActive(_ context.Context) ([]wherelib.LearnedIPRange, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()

	rv := []wherelib.LearnedIPRange{}

	for _, v := range m.ranges {
		if v.IsActive {
			rv = append(rv, *v)
		}
	}

	sort.Slice(rv, func(i, j int) bool {
		return rv[i].CIDR.String() < rv[j].CIDR.String()
	})

	return rv, nil
}

func NewMemoryRangeStore() *MemoryRangeStore {
	return &MemoryRangeStore{
		tree:   nradix.NewTree(memoryRangeStorePrealloc),
		ranges: map[netip.Prefix]*wherelib.LearnedIPRange{},
	}
}
