package roster

// Groups holds identity groups keyed by extracted name. Merges are recorded
// as a union-find over keys, so every record always belongs to exactly one
// live group and later records with a merged key land in the survivor.
type Groups struct {
	keys    []string // first-seen order
	index   map[string]int
	parent  []int
	records [][]ParsedRecord // populated on roots only
}

func NewGroups() *Groups {
	return &Groups{index: make(map[string]int)}
}

// GroupRecords groups records by exact name in arrival order.
func GroupRecords(records []ParsedRecord) *Groups {
	g := NewGroups()
	for _, rec := range records {
		g.Add(rec)
	}
	return g
}

// Add appends rec to the group currently owning its name.
func (g *Groups) Add(rec ParsedRecord) {
	i, ok := g.index[rec.Name]
	if !ok {
		i = len(g.keys)
		g.keys = append(g.keys, rec.Name)
		g.index[rec.Name] = i
		g.parent = append(g.parent, i)
		g.records = append(g.records, nil)
	}
	root := g.find(i)
	g.records[root] = append(g.records[root], rec)
}

func (g *Groups) find(i int) int {
	for g.parent[i] != i {
		g.parent[i] = g.parent[g.parent[i]]
		i = g.parent[i]
	}
	return i
}

// Find returns the live key that owns key.
func (g *Groups) Find(key string) (string, bool) {
	i, ok := g.index[key]
	if !ok {
		return "", false
	}
	return g.keys[g.find(i)], true
}

// IsLive reports whether key names a surviving group.
func (g *Groups) IsLive(key string) bool {
	i, ok := g.index[key]
	return ok && g.find(i) == i
}

// Union merges the groups owning a and b. The group holding fewer records is
// absorbed into the larger; on a tie the group seen first survives. The
// survivor key is returned.
func (g *Groups) Union(a, b string) string {
	ia, okA := g.index[a]
	ib, okB := g.index[b]
	if !okA || !okB {
		return ""
	}
	ra, rb := g.find(ia), g.find(ib)
	if ra == rb {
		return g.keys[ra]
	}
	survivor, absorbed := ra, rb
	la, lb := len(g.records[ra]), len(g.records[rb])
	if lb > la || (lb == la && rb < ra) {
		survivor, absorbed = rb, ra
	}
	g.records[survivor] = append(g.records[survivor], g.records[absorbed]...)
	g.records[absorbed] = nil
	g.parent[absorbed] = survivor
	return g.keys[survivor]
}

// Keys returns the live keys in first-seen order.
func (g *Groups) Keys() []string {
	var out []string
	for i, k := range g.keys {
		if g.find(i) == i {
			out = append(out, k)
		}
	}
	return out
}

// Records returns the records of the live group owning key.
func (g *Groups) Records(key string) []ParsedRecord {
	i, ok := g.index[key]
	if !ok {
		return nil
	}
	return g.records[g.find(i)]
}

// Len returns the number of live groups.
func (g *Groups) Len() int {
	n := 0
	for i := range g.keys {
		if g.find(i) == i {
			n++
		}
	}
	return n
}
