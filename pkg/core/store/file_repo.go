package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"dpr_engine/pkg/core/report"
)

// FileRepo stores one JSON file per report under a directory.
// Used for local runs without PostgreSQL.
type FileRepo struct {
	mu  sync.Mutex
	dir string
}

// NewFileRepo creates the directory if needed (empty = .cache/reports)
func NewFileRepo(dir string) (*FileRepo, error) {
	if dir == "" {
		dir = filepath.Join(".cache", "reports")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create report dir: %w", err)
	}
	return &FileRepo{dir: dir}, nil
}

// ErrInvalidID is returned for ids that cannot be used as a file name
var ErrInvalidID = errors.New("invalid report id")

// ValidateID rejects empty ids and ids containing path separators or ".."
func ValidateID(id string) error {
	if id == "" || strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}

func (f *FileRepo) path(id string) (string, error) {
	if err := ValidateID(id); err != nil {
		return "", fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	return filepath.Join(f.dir, id+".json"), nil
}

// Save writes the report, replacing any previous version
func (f *FileRepo) Save(_ context.Context, rep *report.ProjectReport) error {
	p, err := f.path(rep.ID)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return os.Rename(tmp, p)
}

// Load reads one report
func (f *FileRepo) Load(_ context.Context, id string) (*report.ProjectReport, error) {
	p, err := f.path(id)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to read report: %w", err)
	}
	return decodeReport(data)
}

// ListByUser scans the directory for a user's reports, newest first
func (f *FileRepo) ListByUser(_ context.Context, userID string) ([]*report.ProjectReport, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}

	var out []*report.ProjectReport
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(f.dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", e.Name(), err)
		}
		rep, err := decodeReport(data)
		if err != nil {
			fmt.Printf("[WARNING] Skipping unreadable report %s: %v\n", e.Name(), err)
			continue
		}
		if rep.UserID == userID {
			out = append(out, rep)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func sortNewestFirst(reps []*report.ProjectReport) {
	sort.SliceStable(reps, func(i, j int) bool {
		return reps[i].UpdatedAt.After(reps[j].UpdatedAt)
	})
}
