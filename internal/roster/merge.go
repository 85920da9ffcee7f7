package roster

// Merge records one group absorbed into another.
type Merge struct {
	Survivor string
	Absorbed string
}

// MergeIdentical unions every pair of live groups whose votes agree on role,
// counter and recency. Names are ignored: they are the noisiest field, so two
// groups with identical voted values are taken to be spelling variants of one
// member. Two distinct members with coincidentally identical values would be
// merged as well.
func MergeIdentical(g *Groups, votes map[string]VotedRecord) []Merge {
	var merges []Merge
	keys := g.Keys()
	for i, a := range keys {
		for _, b := range keys[i+1:] {
			if !g.IsLive(a) {
				break
			}
			if !g.IsLive(b) {
				continue
			}
			va, okA := votes[a]
			vb, okB := votes[b]
			if !okA || !okB || !va.SameFields(vb) {
				continue
			}
			survivor := g.Union(a, b)
			absorbed := b
			if survivor == b {
				absorbed = a
			}
			merges = append(merges, Merge{Survivor: survivor, Absorbed: absorbed})
		}
	}
	return merges
}
