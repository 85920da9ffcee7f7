// Package report renders reconstructed rosters for humans and spreadsheets.
package report

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/JohnDoeAntler/uma-club-helper-bot/internal/domain/entity"
)

// TimestampLayout is the snapshot time format, always in UTC.
const TimestampLayout = "2006-01-02 15:04:05"

// TimestampColumn heads the first column of a wide snapshot table.
const TimestampColumn = "Timestamp"

var ErrInvalidTable = errors.New("invalid snapshot table")

// Codeblock renders members as two CSV lines: an empty cell followed by the
// quoted names, then the timestamp followed by the fan totals. Empty input
// renders nothing.
func Codeblock(members []entity.Member, at time.Time) string {
	if len(members) == 0 {
		return ""
	}
	header := make([]string, 0, len(members)+1)
	data := make([]string, 0, len(members)+1)
	header = append(header, "")
	data = append(data, at.UTC().Format(TimestampLayout))
	for _, m := range members {
		header = append(header, `"`+strings.ReplaceAll(m.Name, `"`, `""`)+`"`)
		data = append(data, strconv.FormatInt(m.TotalFans, 10))
	}
	return strings.Join(header, ",") + "\n" + strings.Join(data, ",")
}

// WriteJSON writes the member list with its run statistics.
func WriteJSON(w io.Writer, result *entity.RosterResult) error {
	doc := struct {
		Members []entity.Member    `json:"members"`
		Chains  int                `json:"chains"`
		Stats   entity.RosterStats `json:"stats"`
	}{
		Members: result.Members(),
		Chains:  len(result.Chains),
		Stats:   result.Stats,
	}
	if doc.Members == nil {
		doc.Members = []entity.Member{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// WriteCSV writes one row per member with its chain and position.
func WriteCSV(w io.Writer, result *entity.RosterResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"chain", "position", "name", "role", "total_fans", "last_login"}); err != nil {
		return err
	}
	for c, chain := range result.Chains {
		for p, m := range chain {
			err := cw.Write([]string{
				strconv.Itoa(c),
				strconv.Itoa(p),
				m.Name,
				m.Role,
				strconv.FormatInt(m.TotalFans, 10),
				strconv.FormatInt(m.LastLogin, 10),
			})
			if err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// AppendWide adds one snapshot row to a wide table whose header is
// Timestamp followed by member names. Known members fill their column,
// unknown members get a new column at the end, absent members stay empty.
// A nil header starts a new table.
func AppendWide(header []string, members []entity.Member, at time.Time) ([]string, []string, error) {
	if len(header) == 0 {
		header = []string{TimestampColumn}
	}
	if header[0] != TimestampColumn {
		return nil, nil, fmt.Errorf("%w: first column should be %q, got %q", ErrInvalidTable, TimestampColumn, header[0])
	}

	out := slices.Clone(header)
	row := make([]string, len(header))
	row[0] = at.UTC().Format(TimestampLayout)
	for _, m := range members {
		fans := strconv.FormatInt(m.TotalFans, 10)
		if i := slices.Index(out[1:], m.Name); i >= 0 {
			row[i+1] = fans
			continue
		}
		out = append(out, m.Name)
		row = append(row, fans)
	}
	return out, row, nil
}

// AppendWideCSV reads a wide table from r (which may be empty), appends a
// snapshot and writes the whole table to w.
func AppendWideCSV(r io.Reader, w io.Writer, members []entity.Member, at time.Time) error {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return fmt.Errorf("read table: %w", err)
	}
	// rows written before the header grew are shorter
	var header []string
	if len(records) > 0 {
		header = records[0]
	}
	newHeader, row, err := AppendWide(header, members, at)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(newHeader); err != nil {
		return err
	}
	for _, rec := range records[min(1, len(records)):] {
		if err := cw.Write(pad(rec, len(newHeader))); err != nil {
			return err
		}
	}
	if err := cw.Write(row); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

func pad(rec []string, n int) []string {
	for len(rec) < n {
		rec = append(rec, "")
	}
	return rec
}
