package roster

// Vote computes the consensus of a group with three independent per-field
// majorities. Ties go to the value encountered first.
func Vote(name string, records []ParsedRecord) VotedRecord {
	roles := make([]string, len(records))
	counters := make([]int64, len(records))
	recencies := make([]int64, len(records))
	for i, r := range records {
		roles[i] = r.Role
		counters[i] = r.Counter
		recencies[i] = r.Recency
	}
	return VotedRecord{
		Name:    name,
		Role:    majority(roles),
		Counter: majority(counters),
		Recency: majority(recencies),
	}
}

// VoteAll votes every live group of g.
func VoteAll(g *Groups) map[string]VotedRecord {
	out := make(map[string]VotedRecord, g.Len())
	for _, key := range g.Keys() {
		out[key] = Vote(key, g.Records(key))
	}
	return out
}

func majority[T comparable](values []T) T {
	var zero T
	if len(values) == 0 {
		return zero
	}
	counts := make(map[T]int, len(values))
	order := make([]T, 0, len(values))
	for _, v := range values {
		if counts[v] == 0 {
			order = append(order, v)
		}
		counts[v]++
	}
	best := order[0]
	for _, v := range order[1:] {
		if counts[v] > counts[best] {
			best = v
		}
	}
	return best
}
