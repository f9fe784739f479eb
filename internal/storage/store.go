package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rs/xid"

	"github.com/san-kum/pidloop/internal/experiment"
	"github.com/san-kum/pidloop/internal/settings"
)

const (
	metadataFile = "metadata.json"
	settingsFile = "settings.yaml"
	tracesFile   = "traces.csv"
)

var ErrRunNotFound = errors.New("storage: run not found")

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

func (s *Store) Dir(runID string) string {
	return filepath.Join(s.baseDir, runID)
}

type RunMetadata struct {
	ID         string             `json:"id"`
	Name       string             `json:"name"`
	Plant      string             `json:"plant"`
	Timestamp  time.Time          `json:"timestamp"`
	Period     float64            `json:"period"`
	Duration   float64            `json:"duration"`
	Integrator string             `json:"integrator"`
	Channels   int                `json:"channels"`
	Cycles     uint64             `json:"cycles"`
	Published  uint64             `json:"published"`
	Skipped    uint64             `json:"skipped"`
	Fault      string             `json:"fault,omitempty"`
	Metrics    map[string]float64 `json:"metrics"`
}

// NewMetadata describes a finished run. The ID is assigned by Save.
func NewMetadata(name, integrator string, sc *settings.Config, res *experiment.Result) RunMetadata {
	meta := RunMetadata{
		Name:       name,
		Plant:      sc.Plant,
		Timestamp:  time.Now(),
		Period:     sc.Period.Seconds(),
		Duration:   sc.Duration.Seconds(),
		Integrator: integrator,
		Channels:   len(sc.Channels),
		Cycles:     res.Cycles,
		Published:  res.Published,
		Skipped:    res.Skipped,
		Metrics:    finiteMetrics(res.Metrics),
	}
	if res.Fault != nil {
		meta.Fault = res.Fault.Error()
	}
	return meta
}

// finiteMetrics drops values JSON cannot carry.
func finiteMetrics(in map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(in))
	for k, v := range in {
		if finite(v) {
			out[k] = v
		}
	}
	return out
}

// Save writes a run directory holding the metadata, the settings and the
// per-cycle traces, and returns the run ID.
func (s *Store) Save(meta RunMetadata, sc *settings.Config, res *experiment.Result) (string, error) {
	meta.ID = fmt.Sprintf("%s_%s", meta.Name, xid.New().String())
	runDir := s.Dir(meta.ID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	metaFile, err := os.Create(filepath.Join(runDir, metadataFile))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	if err := settings.Save(filepath.Join(runDir, settingsFile), sc); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, tracesFile))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	if err := WriteTraces(csvFile, res.Traces); err != nil {
		return "", err
	}
	return meta.ID, nil
}

// List returns every readable run, newest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool {
		if !runs[i].Timestamp.Equal(runs[j].Timestamp) {
			return runs[i].Timestamp.After(runs[j].Timestamp)
		}
		return runs[i].ID > runs[j].ID
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.Dir(runID), metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func (s *Store) LoadSettings(runID string) (*settings.Config, error) {
	return settings.Load(filepath.Join(s.Dir(runID), settingsFile))
}

func (s *Store) LoadTraces(runID string) ([]experiment.Trace, error) {
	f, err := os.Open(filepath.Join(s.Dir(runID), tracesFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}
	defer f.Close()
	return ReadTraces(f)
}
