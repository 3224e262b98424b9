package db

import (
	"fmt"

	"github.com/cfoust/odb/pkg/srsc"
)

// LocalId identifies an asset within one database and kind.
type LocalId = srsc.RecordId

// Reference addresses an asset either in the current database
// (DependencyIndex 0) or in one of its declared dependencies.
type Reference struct {
	LocalId         LocalId
	DependencyIndex uint16
}

var (
	NullReference = Reference{}

	// Layer textures use these instead of the null reference.
	NoTexture        = Reference{LocalId: 0xFFFF, DependencyIndex: 0xFFFF}
	InvisibleTexture = Reference{LocalId: 0xFFFE, DependencyIndex: 0xFFFF}
)

func NewReference(id LocalId, dependencyIndex uint16) Reference {
	return Reference{
		LocalId:         id,
		DependencyIndex: dependencyIndex,
	}
}

// IsNull reports whether this references nothing. Not applicable to layer
// textures, see IsNullTexture.
func (r Reference) IsNull() bool {
	return r.LocalId == 0 && r.DependencyIndex == 0
}

// IsNullTexture reports whether this is one of the texture sentinels
// (0xffff:0xffff for none, 0xfffe:0xffff for invisible).
func (r Reference) IsNullTexture() bool {
	return r.DependencyIndex == 0xFFFF || r.LocalId == 0xFFFF
}

func (r Reference) IsInvisibleTexture() bool {
	return r == InvisibleTexture
}

// Compare orders by dependency index, then local id.
func (r Reference) Compare(other Reference) int {
	switch {
	case r.DependencyIndex < other.DependencyIndex:
		return -1
	case r.DependencyIndex > other.DependencyIndex:
		return 1
	case r.LocalId < other.LocalId:
		return -1
	case r.LocalId > other.LocalId:
		return 1
	}

	return 0
}

func (r Reference) Less(other Reference) bool {
	return r.Compare(other) < 0
}

func (r Reference) String() string {
	return fmt.Sprintf("0x%x:%d", r.LocalId, r.DependencyIndex)
}

// ReadReference decodes a u32 local id followed by a u16 dependency index.
func ReadReference(p *srsc.Buffer) (Reference, error) {
	ref := Reference{}
	err := p.Get(&ref.LocalId, &ref.DependencyIndex)
	return ref, err
}

func (r Reference) Put(p *srsc.Buffer) error {
	return p.Put(r.LocalId, r.DependencyIndex)
}
