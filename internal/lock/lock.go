// Package lock makes sure only one terminal countdown runs per config
// directory.
package lock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/go-ps"

	"github.com/julianstephens/constancia/internal/constants"
	"github.com/julianstephens/constancia/internal/logger"
)

var (
	findProcessFunc = ps.FindProcess
	getpidFunc      = os.Getpid
	nowFunc         = time.Now
)

// ErrHeld is returned by Acquire while another live process owns the lock.
var ErrHeld = errors.New("timer is already running in another process")

// Holder is the content of a lockfile: pid|executable|started (RFC 3339).
type Holder struct {
	PID        int
	Executable string
	Started    time.Time
}

func (h Holder) String() string {
	return fmt.Sprintf("%d|%s|%s", h.PID, h.Executable, h.Started.Format(time.RFC3339))
}

func parseHolder(content string) (Holder, error) {
	parts := strings.Split(strings.TrimSpace(content), "|")
	if len(parts) != 3 {
		return Holder{}, errors.New("lockfile is malformed")
	}
	pid, err := strconv.Atoi(parts[0])
	if err != nil || pid <= 0 {
		return Holder{}, errors.New("invalid process ID in lockfile")
	}
	started, err := time.Parse(time.RFC3339, parts[2])
	if err != nil {
		return Holder{}, errors.New("invalid start time in lockfile")
	}
	return Holder{PID: pid, Executable: parts[1], Started: started}, nil
}

// Lock is a held lockfile.
type Lock struct {
	path   string
	holder Holder
}

// Path returns the lockfile location inside dir.
func Path(dir string) string {
	return filepath.Join(dir, constants.TimerLockfileName)
}

// alive reports whether h still names a running process of the same
// executable. A recycled pid running something else counts as dead.
func alive(h Holder) bool {
	p, err := findProcessFunc(h.PID)
	if err != nil || p == nil {
		return false
	}
	return h.Executable == "" || p.Executable() == h.Executable
}

func selfExecutable() string {
	p, err := findProcessFunc(getpidFunc())
	if err != nil || p == nil {
		return ""
	}
	return p.Executable()
}

// Status returns the live holder of the lock in dir, if any.
func Status(dir string) (Holder, bool, error) {
	content, err := os.ReadFile(Path(dir))
	if os.IsNotExist(err) {
		return Holder{}, false, nil
	}
	if err != nil {
		return Holder{}, false, fmt.Errorf("failed to read lockfile: %w", err)
	}
	h, err := parseHolder(string(content))
	if err != nil {
		return Holder{}, false, nil
	}
	if !alive(h) {
		return h, false, nil
	}
	return h, true, nil
}

// Acquire takes the lock in dir. Stale or malformed lockfiles are replaced.
func Acquire(dir string) (*Lock, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}

	h, held, err := Status(dir)
	if err != nil {
		return nil, err
	}
	if held {
		return nil, fmt.Errorf("%w (pid %d since %s)", ErrHeld, h.PID, h.Started.Format(time.Kitchen))
	}

	path := Path(dir)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to remove stale lockfile: %w", err)
	}

	me := Holder{PID: getpidFunc(), Executable: selfExecutable(), Started: nowFunc().Truncate(time.Second)}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err != nil {
		if os.IsExist(err) {
			return nil, ErrHeld
		}
		return nil, fmt.Errorf("failed to create lockfile: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(me.String()); err != nil {
		return nil, fmt.Errorf("failed to write lockfile: %w", err)
	}
	logger.Debug("Timer lock acquired", "path", path, "pid", me.PID)
	return &Lock{path: path, holder: me}, nil
}

// Release removes the lockfile if it still belongs to this lock.
func (l *Lock) Release() error {
	content, err := os.ReadFile(l.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read lockfile: %w", err)
	}
	h, err := parseHolder(string(content))
	if err != nil || h.PID != l.holder.PID {
		return nil
	}
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove lockfile: %w", err)
	}
	return nil
}
