package roster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newReconstructor() *Reconstructor {
	return NewReconstructor(Config{RevoteAfterMerge: true}, zap.NewNop())
}

func TestReconstructSingleChain(t *testing.T) {
	records := framesOf([]string{"A", "B"}, []string{"B", "C"}, []string{"C", "D"})

	res, err := newReconstructor().Reconstruct(records)

	require.NoError(t, err)
	require.Len(t, res.Chains, 1)
	assert.Equal(t, []string{"A", "B", "C", "D"}, names(res.Chains[0]))
	assert.Equal(t, VotedRecord{Name: "C", Role: "member", Counter: 3000, Recency: 3600}, res.Chains[0][2])
	assert.Equal(t, 4, res.Identities)
	assert.Equal(t, 3, res.Derived)
}

func TestReconstructDisjointSegments(t *testing.T) {
	records := framesOf([]string{"A", "B"}, []string{"C", "D"})

	res, err := newReconstructor().Reconstruct(records)

	require.NoError(t, err)
	require.Len(t, res.Chains, 2)
	assert.Equal(t, []string{"A", "B"}, names(res.Chains[0]))
	assert.Equal(t, []string{"C", "D"}, names(res.Chains[1]))
}

func TestReconstructMergesMisreadNames(t *testing.T) {
	records := framesOf([]string{"A", "B"}, []string{"A", "B"}, []string{"B", "C"})
	misread := rec("A", 3, 100)
	misread.Name = "4"
	records = append(records, misread, rec("B", 3, 200))

	res, err := newReconstructor().Reconstruct(records)

	require.NoError(t, err)
	require.Len(t, res.Merges, 1)
	assert.Equal(t, Merge{Survivor: "A", Absorbed: "4"}, res.Merges[0])
	require.Len(t, res.Chains, 1)
	assert.Equal(t, []string{"A", "B", "C"}, names(res.Chains[0]))
}

func TestReconstructNoRecords(t *testing.T) {
	_, err := newReconstructor().Reconstruct(nil)

	assert.ErrorIs(t, err, ErrNoChains)
}

func TestReconstructOutvotesFieldNoise(t *testing.T) {
	records := framesOf([]string{"A", "B"}, []string{"A", "B"}, []string{"A", "B"})
	records[2].Counter = 4900 // one misread of A's fans

	res, err := newReconstructor().Reconstruct(records)

	require.NoError(t, err)
	require.Len(t, res.Chains, 1)
	assert.Equal(t, int64(5000), res.Chains[0][0].Counter)
}
