package roster

import "go.uber.org/zap"

type Config struct {
	// RevoteAfterMerge votes merged groups again over their combined records.
	RevoteAfterMerge bool
}

// Result is the outcome of one reconstruction.
type Result struct {
	Chains     [][]VotedRecord
	Identities int
	Merges     []Merge
	Edges      []Edge
	Derived    int
	Dropped    []Edge
}

type Reconstructor struct {
	cfg    Config
	logger *zap.Logger
}

func NewReconstructor(cfg Config, logger *zap.Logger) *Reconstructor {
	return &Reconstructor{cfg: cfg, logger: logger}
}

// Reconstruct turns the parsed records of one video into ordered chains of
// voted members.
func (r *Reconstructor) Reconstruct(records []ParsedRecord) (*Result, error) {
	groups := GroupRecords(records)
	if groups.Len() == 0 {
		return nil, ErrNoChains
	}

	votes := VoteAll(groups)
	merges := MergeIdentical(groups, votes)
	for _, m := range merges {
		r.logger.Debug("merged identity groups",
			zap.String("survivor", m.Survivor),
			zap.String("absorbed", m.Absorbed),
		)
	}
	if r.cfg.RevoteAfterMerge && len(merges) > 0 {
		votes = VoteAll(groups)
	}

	graph := BuildGraph(groups)
	names, err := graph.Chains()
	if err != nil {
		return nil, err
	}
	for _, e := range graph.Dropped() {
		r.logger.Debug("dropped conflicting order edge",
			zap.String("from", e.From),
			zap.String("to", e.To),
			zap.Int("support", e.Support),
		)
	}

	chains := make([][]VotedRecord, 0, len(names))
	for _, chain := range names {
		voted := make([]VotedRecord, 0, len(chain))
		for _, name := range chain {
			voted = append(voted, votes[name])
		}
		chains = append(chains, voted)
	}

	return &Result{
		Chains:     chains,
		Identities: groups.Len(),
		Merges:     merges,
		Edges:      graph.Edges(),
		Derived:    graph.Derived(),
		Dropped:    graph.Dropped(),
	}, nil
}
