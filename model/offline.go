package model

import (
	"encoding/binary"

	"github.com/cockroachdb/errors"

	"github.com/tensorarena/arena/arena"
)

// OfflineAllocationTable is the parsed contents of an
// "OfflineMemoryAllocation" metadata entry: a format version, the subgraph
// it applies to, and one arena offset per tensor (-1 meaning "plan
// online") (spec.md §6).
type OfflineAllocationTable struct {
	Version       int32
	SubgraphIndex int32
	Offsets       []int32
}

// wordSize is the width of each little-endian integer word in the table.
const wordSize = 4

// ParseOfflineAllocationTable decodes the raw bytes of an
// "OfflineMemoryAllocation" metadata entry. It only checks that the buffer
// is long enough to hold the header and the declared number of offsets;
// semantic validation (version must be 1, subgraph index must be 0, offset
// count must equal the tensor count) is the caller's responsibility, since
// those rules belong to the builder that knows the tensor count (spec.md
// §4.2 step 2).
func ParseOfflineAllocationTable(a *arena.Arena, buf []byte) (OfflineAllocationTable, error) {
	const headerWords = 3
	if len(buf) < headerWords*wordSize {
		return OfflineAllocationTable{}, errors.Newf(
			"model: OfflineMemoryAllocation buffer is %d bytes, need at least %d for the header",
			len(buf), headerWords*wordSize,
		)
	}

	version := int32(binary.LittleEndian.Uint32(buf[0:4]))
	subgraphIndex := int32(binary.LittleEndian.Uint32(buf[4:8]))
	n := int32(binary.LittleEndian.Uint32(buf[8:12]))
	if n < 0 {
		return OfflineAllocationTable{}, errors.Newf("model: OfflineMemoryAllocation declares negative tensor count %d", n)
	}

	need := headerWords*wordSize + int(n)*wordSize
	if len(buf) < need {
		return OfflineAllocationTable{}, errors.Newf(
			"model: OfflineMemoryAllocation buffer is %d bytes, need %d to hold %d offsets",
			len(buf), need, n,
		)
	}

	offsets, err := CopyIntArray(a, buf[headerWords*wordSize:need])
	if err != nil {
		return OfflineAllocationTable{}, errors.Wrap(err, "model: copying OfflineMemoryAllocation offsets")
	}

	return OfflineAllocationTable{
		Version:       version,
		SubgraphIndex: subgraphIndex,
		Offsets:       offsets,
	}, nil
}
