package teams

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/gofrs/flock"
)

var csvHeader = []string{
	"id", "icpc_id", "label", "teamid", "name", "display_name",
	"affiliation", "group_id", "username", "user_fullname", "password",
}

// Store persists the team roster to a CSV file so repeated runs reuse the
// same accounts. Access is guarded by a sibling lock file, so concurrent
// runs cannot interleave appends.
type Store struct {
	path string
	lock *flock.Flock
}

// NewStore creates a Store for the given CSV path.
func NewStore(path string) *Store {
	return &Store{
		path: path,
		lock: flock.New(path + ".lock"),
	}
}

// Load reads all teams from the CSV file. A missing file yields an empty
// roster, not an error.
func (s *Store) Load() ([]Team, error) {
	if err := s.lock.Lock(); err != nil {
		return nil, fmt.Errorf("teams: lock %s: %w", s.path, err)
	}
	defer func() { _ = s.lock.Unlock() }()
	return s.loadLocked()
}

func (s *Store) loadLocked() ([]Team, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("teams: open %s: %w", s.path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("teams: read %s: %w", s.path, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	var roster []Team
	for _, row := range rows[1:] { // skip header
		if len(row) < len(csvHeader) {
			return nil, fmt.Errorf("teams: malformed row in %s: %v", s.path, row)
		}
		num, err := strconv.Atoi(row[3])
		if err != nil {
			return nil, fmt.Errorf("teams: bad teamid %q in %s", row[3], s.path)
		}
		roster = append(roster, Team{
			ID:           row[0],
			ICPCID:       row[1],
			Label:        row[2],
			TeamNum:      num,
			Name:         row[4],
			DisplayName:  row[5],
			Affiliation:  row[6],
			GroupID:      row[7],
			Username:     row[8],
			UserFullName: row[9],
			Password:     row[10],
		})
	}
	return roster, nil
}

// Append writes the given teams to the end of the CSV file, creating it with
// a header row when absent.
func (s *Store) Append(roster []Team) error {
	if len(roster) == 0 {
		return nil
	}
	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("teams: lock %s: %w", s.path, err)
	}
	defer func() { _ = s.lock.Unlock() }()

	_, statErr := os.Stat(s.path)
	writeHeader := os.IsNotExist(statErr)

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("teams: open %s: %w", s.path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if writeHeader {
		if err := w.Write(csvHeader); err != nil {
			return fmt.Errorf("teams: write %s: %w", s.path, err)
		}
	}
	for _, t := range roster {
		row := []string{
			t.ID, t.ICPCID, t.Label, strconv.Itoa(t.TeamNum), t.Name,
			t.DisplayName, t.Affiliation, t.GroupID, t.Username,
			t.UserFullName, t.Password,
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("teams: write %s: %w", s.path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("teams: flush %s: %w", s.path, err)
	}
	return nil
}
