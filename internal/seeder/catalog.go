package seeder

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Ayash-Bera/device-advisor/internal/models"
)

// ReadCatalog loads an existing catalog file. A missing file is an
// empty catalog.
func ReadCatalog(path string) ([]models.Candidate, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}

	var records []models.Candidate
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse catalog %s: %w", path, err)
	}
	return records, nil
}

// MergeCatalog keys records by URL; fresh records replace existing ones.
// The result is sorted by URL so reseeding produces stable files.
func MergeCatalog(existing, fresh []models.Candidate) []models.Candidate {
	byURL := make(map[string]models.Candidate, len(existing)+len(fresh))
	for _, c := range existing {
		byURL[catalogKey(c)] = c
	}
	for _, c := range fresh {
		byURL[catalogKey(c)] = c
	}

	merged := make([]models.Candidate, 0, len(byURL))
	for _, c := range byURL {
		merged = append(merged, c)
	}
	sort.Slice(merged, func(i, j int) bool {
		return catalogKey(merged[i]) < catalogKey(merged[j])
	})
	return merged
}

func catalogKey(c models.Candidate) string {
	if c.URL != "" {
		return c.URL
	}
	return c.ObjectID
}

// WriteCatalog replaces the file atomically.
func WriteCatalog(path string, records []models.Candidate) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode catalog: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create catalog directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".catalog-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write catalog: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write catalog: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}

// ReadURLList reads one URL per line, skipping blanks and # comments.
func ReadURLList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open URL list: %w", err)
	}
	defer f.Close()

	var urls []string
	seen := make(map[string]bool)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || seen[line] {
			continue
		}
		seen[line] = true
		urls = append(urls, line)
	}
	return urls, scanner.Err()
}
