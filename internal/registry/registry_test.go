package registry

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autentica/marketplace/internal/domain"
)

var seedTokens = []common.Address{
	common.HexToAddress("0x0000000000000000000000000000000000000001"),
	common.HexToAddress("0x0000000000000000000000000000000000000002"),
	common.HexToAddress("0x0000000000000000000000000000000000000003"),
}

func TestNew_SeedsInitialSet(t *testing.T) {
	r := New(seedTokens)
	assert.Equal(t, len(seedTokens), r.Count())

	for i, want := range seedTokens {
		got, err := r.At(i)
		require.NoError(t, err)
		assert.Equal(t, want, got, "token at index %d", i)
	}
}

func TestAt_OutOfBounds(t *testing.T) {
	r := New(seedTokens)

	_, err := r.At(r.Count())
	assert.ErrorIs(t, err, domain.ErrIndexOutOfBounds)

	_, err = r.At(-1)
	assert.ErrorIs(t, err, domain.ErrIndexOutOfBounds)
}

func TestContains(t *testing.T) {
	r := New(seedTokens)
	assert.True(t, r.Contains(seedTokens[0]))
	assert.False(t, r.Contains(common.HexToAddress("0x0000000000000000000000000000000000000005")))
}

func TestAdd(t *testing.T) {
	r := New(seedTokens)
	extra := common.HexToAddress("0x0000000000000000000000000000000000000005")

	require.NoError(t, r.Add(extra))
	assert.True(t, r.Contains(extra))
	assert.Equal(t, len(seedTokens)+1, r.Count())
}

func TestAdd_ZeroAddress(t *testing.T) {
	r := New(seedTokens)
	err := r.Add(common.Address{})
	assert.ErrorIs(t, err, domain.ErrZeroAddress)
}

func TestAdd_Duplicate(t *testing.T) {
	r := New(seedTokens)
	err := r.Add(seedTokens[0])
	assert.ErrorIs(t, err, domain.ErrAlreadyAllowed)
}

func TestRemoveAt_SwapsWithLast(t *testing.T) {
	r := New(seedTokens)

	removed, err := r.RemoveAt(0)
	require.NoError(t, err)
	assert.Equal(t, seedTokens[0], removed)

	// The former last element now occupies slot 0.
	got, err := r.At(0)
	require.NoError(t, err)
	assert.Equal(t, seedTokens[2], got)
	assert.Equal(t, 2, r.Count())
	assert.False(t, r.Contains(seedTokens[0]))
}

func TestRemoveAt_OutOfBounds(t *testing.T) {
	r := New(seedTokens)
	_, err := r.RemoveAt(r.Count())
	assert.ErrorIs(t, err, domain.ErrIndexOutOfBounds)
}

func TestRemoveAll_RoundTrip(t *testing.T) {
	r := New(seedTokens)

	for r.Count() > 0 {
		_, err := r.RemoveAt(0)
		require.NoError(t, err)
	}

	assert.Equal(t, 0, r.Count())
	for _, addr := range seedTokens {
		assert.False(t, r.Contains(addr))
	}
}

func TestAddAfterRemove_MembershipSurvives(t *testing.T) {
	r := New(seedTokens)

	removed, err := r.RemoveAt(1)
	require.NoError(t, err)
	require.NoError(t, r.Add(removed))

	assert.Equal(t, len(seedTokens), r.Count())
	for _, addr := range seedTokens {
		assert.True(t, r.Contains(addr))
	}
}
