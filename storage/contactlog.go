package storage

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"portfolio/model"
)

// ContactLog is the backend's append-only JSON-lines log of contact submissions.
type ContactLog struct {
	path string
	mu   sync.Mutex
}

// NewContactLog creates a log appending to path.
func NewContactLog(path string) *ContactLog {
	return &ContactLog{path: path}
}

func (l *ContactLog) Path() string { return l.path }

// Append writes rec as a single line.
func (l *ContactLog) Append(rec model.ContactRecord) error {
	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode contact: %w", err)
	}
	line = append(line, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(line); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Records reads back every entry in write order.
func (l *ContactLog) Records() ([]model.ContactRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var out []model.ContactRecord
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		if len(sc.Bytes()) == 0 {
			continue
		}
		var rec model.ContactRecord
		if err := json.Unmarshal(sc.Bytes(), &rec); err != nil {
			return nil, fmt.Errorf("decode contact line %d: %w", len(out)+1, err)
		}
		out = append(out, rec)
	}
	return out, sc.Err()
}

// Size returns the log size in bytes, zero when the log does not exist yet.
func (l *ContactLog) Size() (int64, error) {
	fi, err := os.Stat(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}
