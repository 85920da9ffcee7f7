package roster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChainsOverlappingFrames(t *testing.T) {
	g := GroupRecords(framesOf([]string{"A", "B"}, []string{"B", "C"}, []string{"C", "D"}))
	gr := BuildGraph(g)

	chains, err := gr.Chains()

	require.NoError(t, err)
	assert.Equal(t, [][]string{{"A", "B", "C", "D"}}, chains)
}

func TestChainsWithoutOverlapStaySeparate(t *testing.T) {
	g := GroupRecords(framesOf([]string{"A", "B"}, []string{"C", "D"}))
	gr := BuildGraph(g)

	chains, err := gr.Chains()

	require.NoError(t, err)
	assert.Equal(t, [][]string{{"A", "B"}, {"C", "D"}}, chains)
}

func TestChainsDropTransitiveEdges(t *testing.T) {
	g := GroupRecords(framesOf(
		[]string{"A", "B", "C"},
		[]string{"B", "C", "D"},
		[]string{"C", "D", "E"},
	))
	gr := BuildGraph(g)
	assert.Equal(t, 7, gr.Derived())

	chains, err := gr.Chains()

	require.NoError(t, err)
	assert.Equal(t, [][]string{{"A", "B", "C", "D", "E"}}, chains)
	assert.Empty(t, gr.Dropped())
	assert.Len(t, gr.Edges(), 4)
}

func TestEdgesOnlyFromSharedFrames(t *testing.T) {
	g := GroupRecords(framesOf([]string{"A", "B", "C"}, []string{"C", "D"}, []string{"E"}))
	gr := BuildGraph(g)

	for _, e := range gr.Edges() {
		shared := false
		for _, ra := range g.Records(e.From) {
			for _, rb := range g.Records(e.To) {
				if ra.FrameIndex == rb.FrameIndex {
					shared = true
					assert.Less(t, ra.Offset, rb.Offset)
				}
			}
		}
		assert.True(t, shared, "edge %s -> %s", e.From, e.To)
	}
}

func TestFirstSharedFrameFixesOrientation(t *testing.T) {
	records := []ParsedRecord{
		rec("A", 0, 100), rec("B", 0, 200),
		rec("A", 1, 300), rec("B", 1, 200),
		rec("A", 2, 100), rec("B", 2, 200),
	}
	gr := BuildGraph(GroupRecords(records))

	edges := gr.Edges()

	require.Len(t, edges, 1)
	assert.Equal(t, "A", edges[0].From)
	assert.Equal(t, "B", edges[0].To)
	assert.Equal(t, 0, edges[0].Frame)
	assert.Equal(t, 2, edges[0].Support)
}

func TestChainsBreakCycleAtWeakestEdge(t *testing.T) {
	records := []ParsedRecord{
		rec("A", 0, 10), rec("B", 0, 20),
		rec("B", 1, 10), rec("C", 1, 20),
		rec("C", 2, 10), rec("A", 2, 20),
		rec("A", 3, 10), rec("B", 3, 20),
		rec("C", 4, 10), rec("A", 4, 20),
	}
	gr := BuildGraph(GroupRecords(records))
	require.NotNil(t, gr.FindCycle())

	chains, err := gr.Chains()

	require.NoError(t, err)
	assert.Nil(t, gr.FindCycle())
	assert.Equal(t, [][]string{{"C", "A", "B"}}, chains)
	dropped := gr.Dropped()
	require.Len(t, dropped, 1)
	assert.Equal(t, "B", dropped[0].From)
	assert.Equal(t, "C", dropped[0].To)
}

func TestChainsResolveBranchBySupport(t *testing.T) {
	// B and D never share a frame, so both hang below A.
	records := []ParsedRecord{
		rec("A", 0, 10), rec("B", 0, 20),
		rec("A", 1, 10), rec("B", 1, 20),
		rec("A", 2, 10), rec("D", 2, 20),
	}
	gr := BuildGraph(GroupRecords(records))

	chains, err := gr.Chains()

	require.NoError(t, err)
	assert.Equal(t, [][]string{{"A", "B"}, {"D"}}, chains)
	assert.Len(t, gr.Dropped(), 1)
}

func TestChainsSingleIdentity(t *testing.T) {
	gr := BuildGraph(GroupRecords(framesOf([]string{"A"}, []string{"A"})))

	chains, err := gr.Chains()

	require.NoError(t, err)
	assert.Equal(t, [][]string{{"A"}}, chains)
}

func TestChainsWithoutSharedFramesFail(t *testing.T) {
	gr := BuildGraph(GroupRecords(framesOf([]string{"A"}, []string{"B"})))

	_, err := gr.Chains()

	assert.ErrorIs(t, err, ErrNoOrderEvidence)
	assert.ErrorIs(t, err, ErrNoChains)
}

func TestChainsEmptyGraphFails(t *testing.T) {
	_, err := BuildGraph(NewGroups()).Chains()

	assert.ErrorIs(t, err, ErrNoChains)
}
