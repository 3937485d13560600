package printer

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// timestampLayout names spool files by wall-clock time at
// day.month.year-hour:minute:second granularity, matching what the
// printing side expects to find on disk.
const timestampLayout = "02.01.2006-15:04:05"

// maxNameAttempts bounds the random-name fallback so a spool directory
// full of colliding names cannot spin the server forever.
const maxNameAttempts = 1000

// pickName returns the path the next job will be spooled to. Normally
// that is the current timestamp under the spool directory. If the
// clock cannot be read, it falls back to probing random names until it
// finds one that does not exist yet, giving up after maxNameAttempts.
func (s *Server) pickName() (string, error) {
	t, err := s.now()
	if err == nil {
		return filepath.Join(s.cfg.Dir, t.Format(timestampLayout)), nil
	}
	s.log.WithError(err).Warn("cannot read current time, using a random filename")

	for i := 0; i < maxNameAttempts; i++ {
		name := filepath.Join(s.cfg.Dir, fmt.Sprintf("file-%d", s.randInt()))
		if _, err := os.Stat(name); errors.Is(err, fs.ErrNotExist) {
			return name, nil
		}
	}
	return "", fmt.Errorf("no unused random filename after %d attempts", maxNameAttempts)
}
