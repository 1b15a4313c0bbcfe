package v4v

import (
	"fmt"

	"go.uber.org/multierr"
)

// Mapper implements the guest page mapper (§4.A): on-demand map/unmap of a
// ring's pinned frames. Mappings are cached per ring and dropped on
// UnmapAll, which every public entry point that called Map must invoke on
// exit so mapping residency never outlives a single operation.
type Mapper struct {
	mem GuestMemory
}

// NewMapper wraps a GuestMemory collaborator.
func NewMapper(mem GuestMemory) *Mapper {
	return &Mapper{mem: mem}
}

// Map returns a cached or freshly established view of ring's frame i.
// Mapping failures surface as ErrMemoryFault.
func (m *Mapper) Map(ring *RingInfo, i int) ([]byte, error) {
	if i < 0 || i >= len(ring.Mfns) {
		return nil, fmt.Errorf("frame index %d out of range [0,%d): %w", i, len(ring.Mfns), ErrInvalidArgument)
	}
	if ring.MappingCache[i] != nil {
		return ring.MappingCache[i], nil
	}
	frame, err := m.mem.Frame(ring.Mfns[i])
	if err != nil {
		return nil, fmt.Errorf("map frame %d of ring %s: %w", i, ring.ID, err)
	}
	ring.MappingCache[i] = frame
	return frame, nil
}

// UnmapAll drops every cached mapping for ring. It never fails; releasing a
// mapping is just discarding the cached slice, not unpinning the frame.
func (m *Mapper) UnmapAll(ring *RingInfo) {
	for i := range ring.MappingCache {
		ring.MappingCache[i] = nil
	}
}

// pinFrames pins npage frames for domain via owner, rolling back everything
// already pinned if any pin fails partway through — the transactional
// all-or-nothing behavior required of register_ring.
func pinFrames(owner PageOwner, domain uint16, pfns []uint64) ([]uint64, error) {
	mfns := make([]uint64, 0, len(pfns))
	for _, pfn := range pfns {
		mfn, err := owner.PinWritable(domain, pfn)
		if err != nil {
			var unpinErr error
			for _, done := range mfns {
				unpinErr = multierr.Append(unpinErr, owner.Unpin(domain, done))
			}
			if unpinErr != nil {
				return nil, multierr.Combine(fmt.Errorf("pin pfn %d: %w", pfn, ErrMemoryFault), unpinErr)
			}
			return nil, fmt.Errorf("pin pfn %d: %w", pfn, ErrMemoryFault)
		}
		mfns = append(mfns, mfn)
	}
	return mfns, nil
}

// unpinFrames releases every mfn, aggregating any failures.
func unpinFrames(owner PageOwner, domain uint16, mfns []uint64) error {
	var err error
	for _, mfn := range mfns {
		err = multierr.Append(err, owner.Unpin(domain, mfn))
	}
	return err
}
