package roster

// ParsedRecord is one successfully parsed row observation.
type ParsedRecord struct {
	Role       string
	Name       string
	Counter    int64 // total fans
	Recency    int64 // seconds since last login
	FrameIndex int
	Offset     int // vertical offset of the row inside its frame
}

// VotedRecord is the consensus value of every field of one identity.
type VotedRecord struct {
	Name    string
	Role    string
	Counter int64
	Recency int64
}

// SameFields reports whether both records agree on every field but the name.
func (v VotedRecord) SameFields(o VotedRecord) bool {
	return v.Role == o.Role && v.Counter == o.Counter && v.Recency == o.Recency
}
