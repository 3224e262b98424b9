package db

import (
	"sort"
	"testing"

	"github.com/cfoust/odb/pkg/srsc"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReferenceSentinels(t *testing.T) {
	assert.NotEqual(t, NewReference(5, 0), NewReference(5, 1))

	assert.True(t, NullReference.IsNull())
	assert.False(t, NullReference.IsNullTexture())

	assert.True(t, NoTexture.IsNullTexture())
	assert.True(t, InvisibleTexture.IsNullTexture())
	assert.True(t, InvisibleTexture.IsInvisibleTexture())
	assert.False(t, NoTexture.IsInvisibleTexture())
	assert.False(t, NoTexture.IsNull())

	assert.False(t, NewReference(42, 3).IsNullTexture())
}

func TestReferenceOrder(t *testing.T) {
	refs := []Reference{
		NewReference(1, 2),
		NewReference(9, 0),
		NewReference(0, 2),
		NewReference(3, 1),
	}

	sort.Slice(refs, func(i, j int) bool {
		return refs[i].Less(refs[j])
	})

	assert.Equal(t, []Reference{
		NewReference(9, 0),
		NewReference(3, 1),
		NewReference(0, 2),
		NewReference(1, 2),
	}, refs)

	assert.Equal(t, 0, NewReference(4, 4).Compare(NewReference(4, 4)))

	// Usable as a map key
	seen := map[Reference]bool{NewReference(5, 0): true}
	assert.False(t, seen[NewReference(5, 1)])
}

func TestReadReference(t *testing.T) {
	p := srsc.Buffer{}
	require.NoError(t, NewReference(0x12345678, 3).Put(&p))
	assert.Equal(t, 6, p.Len())
	assert.Equal(t, []byte{0x78, 0x56, 0x34, 0x12, 3, 0}, []byte(p))

	ref, err := ReadReference(&p)
	require.NoError(t, err)
	assert.Equal(t, NewReference(0x12345678, 3), ref)
	assert.Equal(t, "0x12345678:3", ref.String())

	_, err = ReadReference(&p)
	assert.ErrorIs(t, err, srsc.ErrIO)
}
