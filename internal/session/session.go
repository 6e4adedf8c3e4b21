// Package session keeps a single interactive session per identity on one machine.
//
// A lockfile under <configDir>/sessions holds "pid|identity|executable". A lock whose
// process is gone, or is no longer a grove binary, is stale and gets replaced.
package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mitchellh/go-ps"

	"github.com/julianstephens/grove/internal/constants"
	grerrors "github.com/julianstephens/grove/internal/errors"
	"github.com/julianstephens/grove/internal/identity"
	"github.com/julianstephens/grove/internal/logger"
)

var (
	findProcessFunc = ps.FindProcess
	getpidFunc      = os.Getpid
)

// Lock is a held session
type Lock struct {
	path string
	pid  int
}

type holder struct {
	pid        int
	identity   string
	executable string
}

// Path returns the lockfile location for an identity key
func Path(dir, key string) (string, error) {
	id, err := identity.ParseKey(key)
	if err != nil {
		return "", err
	}
	name := string(id.Kind) + "-" + strings.NewReplacer("/", "_", "\\", "_", ":", "_").Replace(id.ID) + ".lock"
	return filepath.Join(dir, constants.SessionDirName, name), nil
}

// Acquire takes the session lock for key or returns ErrSessionActive
// when another live grove process holds it.
func Acquire(dir, key string) (*Lock, error) {
	path, err := Path(dir, key)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}

	pid := getpidFunc()
	content := fmt.Sprintf("%d|%s|%s", pid, key, executableName())

	// One retry: the first attempt may find a stale lock to clear.
	for attempt := 0; attempt < 2; attempt++ {
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
		if err == nil {
			_, werr := f.WriteString(content)
			cerr := f.Close()
			if werr != nil || cerr != nil {
				_ = os.Remove(path)
				return nil, fmt.Errorf("failed to write session lock: %w", errors.Join(werr, cerr))
			}
			logger.Debug("Acquired session lock", "identity", key, "pid", pid)
			return &Lock{path: path, pid: pid}, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("failed to create session lock: %w", err)
		}

		h, err := readLock(path)
		if err == nil && h.pid != pid && isAlive(h) {
			return nil, fmt.Errorf("%w: %s is held by pid %d", grerrors.ErrSessionActive, key, h.pid)
		}
		logger.Info("Replacing stale session lock", "identity", key, "path", path)
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to remove stale session lock: %w", err)
		}
	}
	return nil, fmt.Errorf("%w: %s", grerrors.ErrSessionActive, key)
}

// Release removes the lockfile if this process still owns it
func (l *Lock) Release() error {
	if l == nil {
		return nil
	}
	h, err := readLock(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err == nil && h.pid != l.pid {
		return nil
	}
	if err := os.Remove(l.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to release session lock: %w", err)
	}
	return nil
}

func readLock(path string) (holder, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return holder{}, err
	}
	parts := strings.Split(strings.TrimSpace(string(content)), "|")
	if len(parts) != 3 {
		return holder{}, errors.New("session lock is malformed")
	}
	pid, err := strconv.Atoi(parts[0])
	if err != nil || pid <= 0 {
		return holder{}, errors.New("invalid process ID in session lock")
	}
	return holder{pid: pid, identity: parts[1], executable: parts[2]}, nil
}

func isAlive(h holder) bool {
	process, err := findProcessFunc(h.pid)
	if err != nil || process == nil {
		return false
	}
	// guards against pid reuse by an unrelated program
	return strings.HasPrefix(process.Executable(), h.executable)
}

func executableName() string {
	exe, err := os.Executable()
	if err != nil {
		return constants.AppName
	}
	return filepath.Base(exe)
}
