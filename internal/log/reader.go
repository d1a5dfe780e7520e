package log

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// SessionInfo holds information about a logged pass.
type SessionInfo struct {
	ID        string
	PassID    string // first 8 characters of the pass id
	Timestamp time.Time
	Dir       string
}

// DescriptorLog holds the content of a single failure log file.
type DescriptorLog struct {
	ID      string
	Content string
}

// ListSessions returns all sessions in the logs directory, sorted newest first.
func ListSessions(baseDir string) ([]SessionInfo, error) {
	entries, err := os.ReadDir(baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read logs directory: %w", err)
	}

	var sessions []SessionInfo
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		ts, pass, ok := strings.Cut(e.Name(), "_")
		if !ok {
			continue
		}
		t, err := time.Parse(sessionTimeFormat, ts)
		if err != nil {
			continue // skip non-session directories
		}
		sessions = append(sessions, SessionInfo{
			ID:        e.Name(),
			PassID:    pass,
			Timestamp: t,
			Dir:       filepath.Join(baseDir, e.Name()),
		})
	}

	sort.Slice(sessions, func(i, j int) bool {
		if !sessions[i].Timestamp.Equal(sessions[j].Timestamp) {
			return sessions[i].Timestamp.After(sessions[j].Timestamp)
		}
		return sessions[i].ID > sessions[j].ID
	})

	return sessions, nil
}

// ReadSessionLogs reads all log files from a session directory, sorted by id.
func ReadSessionLogs(sessionDir string) ([]DescriptorLog, error) {
	entries, err := os.ReadDir(sessionDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read session directory: %w", err)
	}

	var logs []DescriptorLog
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".log") {
			continue
		}
		content, err := os.ReadFile(filepath.Join(sessionDir, e.Name()))
		if err != nil {
			continue
		}
		logs = append(logs, DescriptorLog{
			ID:      unescapeID(strings.TrimSuffix(e.Name(), ".log")),
			Content: string(content),
		})
	}

	sort.Slice(logs, func(i, j int) bool { return logs[i].ID < logs[j].ID })
	return logs, nil
}

// ReadDescriptorLog reads the failure log of one descriptor from a session.
func ReadDescriptorLog(sessionDir, id string) (string, error) {
	content, err := os.ReadFile(filepath.Join(sessionDir, logFilename(id)))
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("no log found for descriptor %s", id)
		}
		return "", fmt.Errorf("failed to read log file: %w", err)
	}
	return string(content), nil
}

func unescapeID(name string) string {
	return strings.NewReplacer("%2F", "/", "%5C", `\`).Replace(name)
}
