package roster

type member struct {
	role    string
	fans    int64
	recency int64
}

var members = map[string]member{
	"A": {"leader", 5000, 60},
	"B": {"officer", 4000, 120},
	"C": {"member", 3000, 3600},
	"D": {"member", 2000, 86400},
	"E": {"member", 1000, 10},
}

func rec(name string, frame, offset int) ParsedRecord {
	m := members[name]
	return ParsedRecord{
		Role:       m.role,
		Name:       name,
		Counter:    m.fans,
		Recency:    m.recency,
		FrameIndex: frame,
		Offset:     offset,
	}
}

// framesOf lays every frame out top to bottom, 100px per row.
func framesOf(frames ...[]string) []ParsedRecord {
	var out []ParsedRecord
	for f, names := range frames {
		for i, n := range names {
			out = append(out, rec(n, f, 100*(i+1)))
		}
	}
	return out
}

func names(chain []VotedRecord) []string {
	out := make([]string, len(chain))
	for i, v := range chain {
		out[i] = v.Name
	}
	return out
}
