package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// saveJSON writes v to dir as <prefix>_<YYYYMMDD_HHMMSS>.json with 2-space
// indentation. Same-second collisions reuse the filename; last write wins.
func saveJSON(dir, prefix string, v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal %s: %w", prefix, err)
	}

	filename := fmt.Sprintf("%s_%s.json", prefix, time.Now().Format("20060102_150405"))
	path := filepath.Join(dir, filename)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}
