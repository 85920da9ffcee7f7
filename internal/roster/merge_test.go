package roster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeIdenticalCollapsesNameVariants(t *testing.T) {
	variant := rec("A", 2, 100)
	variant.Name = "A'"
	records := append(framesOf([]string{"A", "B"}, []string{"A", "B"}), variant)
	g := GroupRecords(records)

	merges := MergeIdentical(g, VoteAll(g))

	require.Len(t, merges, 1)
	assert.Equal(t, Merge{Survivor: "A", Absorbed: "A'"}, merges[0])
	assert.Equal(t, []string{"A", "B"}, g.Keys())
	assert.Len(t, g.Records("A"), 3)
}

func TestMergeIdenticalOnlyMergesEqualVotes(t *testing.T) {
	g := GroupRecords(framesOf([]string{"A", "B", "C"}, []string{"C", "D"}))
	votes := VoteAll(g)

	merges := MergeIdentical(g, votes)
	assert.Empty(t, merges)

	keys := g.Keys()
	for i, a := range keys {
		for _, b := range keys[i+1:] {
			assert.False(t, votes[a].SameFields(votes[b]), "%s and %s", a, b)
		}
	}
}

func TestMergeIdenticalChainsSeveralVariants(t *testing.T) {
	var records []ParsedRecord
	for i, name := range []string{"A", "A1", "A", "A2", "A"} {
		r := rec("A", i, 100)
		r.Name = name
		records = append(records, r)
	}
	g := GroupRecords(records)
	votes := VoteAll(g)

	merges := MergeIdentical(g, votes)

	assert.Len(t, merges, 2)
	assert.Equal(t, []string{"A"}, g.Keys())
	for _, m := range merges {
		assert.True(t, votes[m.Survivor].SameFields(votes[m.Absorbed]))
	}
}
