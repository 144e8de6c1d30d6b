// File: internal/journal/reader.go
package journal

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/xkilldash9x/deskops/api/schemas"
)

// ReadSteps loads the step records from a journal file, skipping session
// markers, error summaries, and malformed lines. Tolerance here is
// deliberate: a journal cut short by a crash must still replay.
func ReadSteps(path string) ([]schemas.StepRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening journal: %w", err)
	}
	defer f.Close()

	var steps []schemas.StepRecord
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		// Marker lines carry an "event" discriminator; step lines never do.
		var probe struct {
			Event      string         `json:"event"`
			NextAction schemas.Action `json:"next_action"`
		}
		if err := json.Unmarshal(line, &probe); err != nil {
			continue
		}
		if probe.Event != "" || probe.NextAction == "" {
			continue
		}

		var rec schemas.StepRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			continue
		}
		steps = append(steps, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning journal: %w", err)
	}
	return steps, nil
}

// LatestRunDir returns the most recently modified run directory under
// runsDir.
func LatestRunDir(runsDir string) (string, error) {
	entries, err := os.ReadDir(runsDir)
	if err != nil {
		return "", fmt.Errorf("reading runs directory: %w", err)
	}

	type candidate struct {
		path    string
		modTime int64
	}
	var dirs []candidate
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		dirs = append(dirs, candidate{
			path:    filepath.Join(runsDir, e.Name()),
			modTime: info.ModTime().UnixNano(),
		})
	}
	if len(dirs) == 0 {
		return "", fmt.Errorf("no run directories under %s", runsDir)
	}

	sort.Slice(dirs, func(i, j int) bool { return dirs[i].modTime > dirs[j].modTime })
	return dirs[0].path, nil
}
