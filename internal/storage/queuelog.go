// Package storage provides the file-backed persistence layer for Grove: the
// append-only queue journal that lets queue state survive process restarts.
package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/grovekit/grove/internal/core"
)

// logExt is the file extension of queue journal files.
const logExt = ".jsonl"

// FileQueueJournal implements core.QueueJournal with one append-only JSONL
// file per (project, branch) key under baseDir/<project>/<branch>.jsonl.
// Branch names are validated to the [a-z0-9-] alphabet before they reach
// this layer, so the key maps safely onto the filesystem.
type FileQueueJournal struct {
	baseDir string
}

// NewFileQueueJournal creates a journal rooted at baseDir. The directory is
// created lazily on first append.
func NewFileQueueJournal(baseDir string) *FileQueueJournal {
	return &FileQueueJournal{baseDir: baseDir}
}

func (j *FileQueueJournal) logPath(project, branch string) string {
	return filepath.Join(j.baseDir, project, branch+logExt)
}

// Append writes one JSON-encoded entry followed by a newline to the key's
// journal file, creating the file and its directory as needed.
func (j *FileQueueJournal) Append(project, branch string, entry core.QueueLogEntry) error {
	path := j.logPath(project, branch)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("creating journal directory: %w", err)
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshalling journal entry: %w", err)
	}
	data = append(data, '\n')

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("opening journal %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("writing journal %s: %w", path, err)
	}
	return nil
}

// Replay reads the key's journal back in order. A missing file is an empty
// queue. A file with any undecodable line is treated as corrupt: the whole
// log is discarded, the file is truncated so future appends start clean,
// and recovered is reported as true. Corruption is never an error.
func (j *FileQueueJournal) Replay(project, branch string) ([]core.QueueLogEntry, bool, error) {
	path := j.logPath(project, branch)

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		// Unreadable log: self-heal to empty.
		return nil, true, nil
	}
	defer func() { _ = f.Close() }()

	var entries []core.QueueLogEntry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var entry core.QueueLogEntry
		if err := json.Unmarshal(line, &entry); err != nil {
			_ = os.WriteFile(path, nil, 0o600)
			return nil, true, nil
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		_ = os.WriteFile(path, nil, 0o600)
		return nil, true, nil
	}

	return entries, false, nil
}

// Compact atomically rewrites the key's journal as a single snapshot entry.
func (j *FileQueueJournal) Compact(project, branch string, snapshot core.QueueSnapshot) error {
	path := j.logPath(project, branch)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("creating journal directory: %w", err)
	}

	entry := core.QueueLogEntry{Op: core.OpSnapshot, Snapshot: &snapshot}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshalling snapshot: %w", err)
	}
	data = append(data, '\n')

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("writing snapshot %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replacing journal %s: %w", path, err)
	}
	return nil
}

// Keys enumerates every (project, branch) pair with a journal file on disk.
func (j *FileQueueJournal) Keys() ([]core.QueueKeyPair, error) {
	projects, err := os.ReadDir(j.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading journal directory: %w", err)
	}

	var keys []core.QueueKeyPair
	for _, p := range projects {
		if !p.IsDir() {
			continue
		}
		logs, err := os.ReadDir(filepath.Join(j.baseDir, p.Name()))
		if err != nil {
			continue
		}
		for _, l := range logs {
			if l.IsDir() || !strings.HasSuffix(l.Name(), logExt) {
				continue
			}
			keys = append(keys, core.QueueKeyPair{
				Project: p.Name(),
				Branch:  strings.TrimSuffix(l.Name(), logExt),
			})
		}
	}
	return keys, nil
}
