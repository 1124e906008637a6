package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const ManifestFile = "index.json"

// ReportRecord describes one topic's report files from a run.
type ReportRecord struct {
	Topic          string    `json:"topic"`
	Files          []string  `json:"files"`
	Found          int       `json:"found"`
	Retained       int       `json:"retained"`
	BelowThreshold int       `json:"below_threshold"`
	Failures       int       `json:"failures"`
	GeneratedAt    time.Time `json:"generated_at"`
}

// Manifest lists the reports written by a single run. It is rewritten in
// full on every Save; earlier runs are not merged in.
type Manifest struct {
	filePath    string
	mu          sync.Mutex
	GeneratedAt time.Time      `json:"generated_at"`
	Reports     []ReportRecord `json:"reports"`
}

func NewManifest(dir string) *Manifest {
	return &Manifest{
		filePath:    filepath.Join(dir, ManifestFile),
		GeneratedAt: time.Now(),
		Reports:     []ReportRecord{},
	}
}

func (m *Manifest) Path() string {
	return m.filePath
}

// Record adds a report. File paths are stored relative to the manifest
// directory when possible.
func (m *Manifest) Record(rec ReportRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()

	dir := filepath.Dir(m.filePath)
	files := make([]string, 0, len(rec.Files))
	for _, f := range rec.Files {
		if rel, err := filepath.Rel(dir, f); err == nil {
			f = rel
		}
		files = append(files, f)
	}
	rec.Files = files
	if rec.GeneratedAt.IsZero() {
		rec.GeneratedAt = time.Now()
	}
	m.Reports = append(m.Reports, rec)
}

func (m *Manifest) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Reports)
}

// Save writes the manifest as indented JSON, replacing any previous file.
func (m *Manifest) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	file, err := os.Create(m.filePath)
	if err != nil {
		return fmt.Errorf("failed to create manifest: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(m); err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	return nil
}

// LoadManifest reads a manifest written by Save.
func LoadManifest(path string) (*Manifest, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest: %w", err)
	}
	defer file.Close()

	m := &Manifest{filePath: path}
	if err := json.NewDecoder(file).Decode(m); err != nil {
		return nil, fmt.Errorf("failed to decode manifest: %w", err)
	}
	return m, nil
}
