// Package rebootcause persists why the device rebooted. The reboot path
// signs off a human-readable cause file; at the next boot that file is
// consumed into a JSON record and an append-only history, which the show
// tooling reads back.
package rebootcause

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"

	"github.com/nixpig/nosreboot/internal/platform"
)

const (
	// CauseFileName is the pending sign-off consumed at the next boot.
	CauseFileName = "reboot-cause.txt"
	// PreviousFileName records the cause of the boot we're currently in.
	PreviousFileName = "previous-reboot-cause.json"
	// HistoryDirName accumulates one record per boot.
	HistoryDirName = "history"

	// UnknownCause is recorded when no sign-off was found at boot, e.g.
	// after a power loss or a watchdog reset.
	UnknownCause = "Unknown"

	// notAvailable fills fields that can't be recovered from a free-form
	// sign-off.
	notAvailable = "N/A"
)

// TimeFormat renders timestamps the way date(1) does, which is what the
// rest of the image expects to find in the cause file. The _2 verb space-pads
// single-digit days exactly like date(1).
const TimeFormat = time.UnixDate

const genTimeFormat = "2006_01_02_15_04_05"

// causePattern matches the sign-off line written by SignOff.
var causePattern = regexp.MustCompile(
	`^User issued '(.+)' command \[User: (.*), Time: (.*)\]$`,
)

var currentUser = user.Current

// Record is one persisted reboot cause.
type Record struct {
	GenTime string `json:"gen_time"`
	Cause   string `json:"cause"`
	User    string `json:"user"`
	Time    string `json:"time"`
	Comment string `json:"comment"`
}

// String renders the record as the sign-off line it was parsed from, or the
// bare cause when there was no sign-off.
func (r *Record) String() string {
	if r.User == "" || r.User == notAvailable {
		return r.Cause
	}

	return fmt.Sprintf(
		"User issued '%s' command [User: %s, Time: %s]",
		r.Cause, r.User, r.Time,
	)
}

// InvokingUser resolves the login user requesting the reboot: the sudo
// caller when run through sudo, else the process owner.
func InvokingUser() string {
	if u := os.Getenv("SUDO_USER"); u != "" {
		return u
	}

	if u, err := currentUser(); err == nil && u.Username != "" {
		return u.Username
	}

	return notAvailable
}

// Store reads and writes reboot-cause state under a single cause directory.
type Store struct {
	fs  afero.Fs
	dir string
}

func NewStore(fsys afero.Fs, dir string) *Store {
	return &Store{fs: fsys, dir: dir}
}

// SignOff records that the given user requested a reboot at the given time.
// The record is what the next boot reports as its reboot cause.
func (s *Store) SignOff(requestUser string, at time.Time) error {
	if err := s.fs.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create cause directory: %w", err)
	}

	line := fmt.Sprintf(
		"User issued 'reboot' command [User: %s, Time: %s]\n",
		requestUser, at.Format(TimeFormat),
	)

	if err := platform.AtomicWriteFile(
		s.fs,
		filepath.Join(s.dir, CauseFileName),
		[]byte(line),
		0o644,
	); err != nil {
		return fmt.Errorf("write cause file: %w", err)
	}

	return nil
}

// Process consumes a pending sign-off into the previous-cause record and the
// history. Run once per boot; with no pending sign-off the cause is Unknown.
func (s *Store) Process(now time.Time) (*Record, error) {
	rec := s.pendingRecord()
	rec.GenTime = now.Format(genTimeFormat)

	b, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal cause record: %w", err)
	}
	b = append(b, '\n')

	if err := s.fs.MkdirAll(filepath.Join(s.dir, HistoryDirName), 0o755); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}

	if err := platform.AtomicWriteFile(
		s.fs,
		filepath.Join(s.dir, PreviousFileName),
		b,
		0o644,
	); err != nil {
		return nil, fmt.Errorf("write previous cause: %w", err)
	}

	historyName := fmt.Sprintf("%s_reboot_cause.json", rec.GenTime)
	if err := platform.AtomicWriteFile(
		s.fs,
		filepath.Join(s.dir, HistoryDirName, historyName),
		b,
		0o644,
	); err != nil {
		return nil, fmt.Errorf("write history record: %w", err)
	}

	// Consume the sign-off so a crash before the next sign-off doesn't
	// replay this cause.
	if err := s.fs.Remove(filepath.Join(s.dir, CauseFileName)); err != nil {
		log.Debug().Err(err).Msg("no pending cause file to remove")
	}

	return rec, nil
}

// pendingRecord parses the pending sign-off, if any.
func (s *Store) pendingRecord() *Record {
	b, err := afero.ReadFile(s.fs, filepath.Join(s.dir, CauseFileName))
	if err != nil {
		return &Record{
			Cause: UnknownCause,
			User:  notAvailable,
			Time:  notAvailable,
		}
	}

	line := strings.TrimSpace(string(b))

	if m := causePattern.FindStringSubmatch(line); m != nil {
		return &Record{Cause: m[1], User: m[2], Time: m[3]}
	}

	// Platform tooling may leave free-form causes; keep them verbatim.
	return &Record{Cause: line, User: notAvailable, Time: notAvailable}
}

// Previous returns the cause record of the current boot.
func (s *Store) Previous() (*Record, error) {
	b, err := afero.ReadFile(s.fs, filepath.Join(s.dir, PreviousFileName))
	if err != nil {
		return nil, fmt.Errorf("read previous cause: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(b, &rec); err != nil {
		return nil, fmt.Errorf("parse previous cause: %w", err)
	}

	return &rec, nil
}

// History returns the recorded causes, oldest first. A device that has never
// processed a cause has an empty history, not an error.
func (s *Store) History() ([]Record, error) {
	historyDir := filepath.Join(s.dir, HistoryDirName)

	entries, err := afero.ReadDir(s.fs, historyDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read history directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		names = append(names, entry.Name())
	}

	// Generation-time prefixed names sort chronologically.
	sort.Strings(names)

	records := make([]Record, 0, len(names))
	for _, name := range names {
		b, err := afero.ReadFile(s.fs, filepath.Join(historyDir, name))
		if err != nil {
			log.Debug().Err(err).Str("record", name).Msg("skipping unreadable history record")
			continue
		}

		var rec Record
		if err := json.Unmarshal(b, &rec); err != nil {
			log.Debug().Err(err).Str("record", name).Msg("skipping corrupt history record")
			continue
		}

		records = append(records, rec)
	}

	return records, nil
}
