package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JohnDoeAntler/uma-club-helper-bot/internal/domain/entity"
)

var at = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

func sample() []entity.Member {
	return []entity.Member{
		{Name: "Alice", Role: "leader", TotalFans: 5000, LastLogin: 60},
		{Name: `Bob "B"`, Role: "member", TotalFans: 4000, LastLogin: 7200},
	}
}

func TestCodeblock(t *testing.T) {
	got := Codeblock(sample(), at)
	assert.Equal(t, ",\"Alice\",\"Bob \"\"B\"\"\"\n2026-03-14 09:26:53,5000,4000", got)
	assert.Empty(t, Codeblock(nil, at))
}

func TestCodeblockConvertsToUTC(t *testing.T) {
	local := at.In(time.FixedZone("HKT", 8*3600))
	assert.Equal(t, Codeblock(sample(), at), Codeblock(sample(), local))
}

func TestWriteJSON(t *testing.T) {
	res := &entity.RosterResult{
		Chains: [][]entity.Member{sample()[:1], sample()[1:]},
		Stats:  entity.RosterStats{FramesSampled: 10},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, res))

	var doc struct {
		Members []entity.Member    `json:"members"`
		Chains  int                `json:"chains"`
		Stats   entity.RosterStats `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, sample(), doc.Members)
	assert.Equal(t, 2, doc.Chains)
	assert.Equal(t, 10, doc.Stats.FramesSampled)
}

func TestWriteJSONEmptyRoster(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, &entity.RosterResult{}))
	assert.Contains(t, buf.String(), `"members": []`)
}

func TestWriteCSV(t *testing.T) {
	res := &entity.RosterResult{Chains: [][]entity.Member{sample()}}
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, res))
	assert.Equal(t,
		"chain,position,name,role,total_fans,last_login\n"+
			"0,0,Alice,leader,5000,60\n"+
			"0,1,\"Bob \"\"B\"\"\",member,4000,7200\n",
		buf.String())
}

func TestAppendWideNewTable(t *testing.T) {
	header, row, err := AppendWide(nil, sample(), at)
	require.NoError(t, err)
	assert.Equal(t, []string{"Timestamp", "Alice", `Bob "B"`}, header)
	assert.Equal(t, []string{"2026-03-14 09:26:53", "5000", "4000"}, row)
}

func TestAppendWideKnownAndNewMembers(t *testing.T) {
	existing := []string{"Timestamp", "Carol", "Alice"}
	header, row, err := AppendWide(existing, sample(), at)
	require.NoError(t, err)

	assert.Equal(t, []string{"Timestamp", "Carol", "Alice", `Bob "B"`}, header)
	assert.Equal(t, []string{"2026-03-14 09:26:53", "", "5000", "4000"}, row)
	assert.Equal(t, []string{"Timestamp", "Carol", "Alice"}, existing)
}

func TestAppendWideRejectsForeignTable(t *testing.T) {
	_, _, err := AppendWide([]string{"Date", "Alice"}, sample(), at)
	assert.ErrorIs(t, err, ErrInvalidTable)
}

func TestAppendWideCSVPadsOlderRows(t *testing.T) {
	in := strings.NewReader("Timestamp,Alice\n2026-03-07 09:00:00,4500\n")
	var out bytes.Buffer
	require.NoError(t, AppendWideCSV(in, &out, sample(), at))

	assert.Equal(t,
		"Timestamp,Alice,\"Bob \"\"B\"\"\"\n"+
			"2026-03-07 09:00:00,4500,\n"+
			"2026-03-14 09:26:53,5000,4000\n",
		out.String())
}

func TestAppendWideCSVEmptyInput(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, AppendWideCSV(strings.NewReader(""), &out, sample()[:1], at))
	assert.Equal(t, "Timestamp,Alice\n2026-03-14 09:26:53,5000\n", out.String())
}
