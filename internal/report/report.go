package report

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Status is the outcome of one dataset record
type Status string

const (
	StatusUploaded Status = "uploaded"
	StatusFailed   Status = "failed"
	// StatusOrphaned means the object was stored but its row was not inserted
	StatusOrphaned Status = "orphaned"
	// StatusSkipped means a previous run already loaded the record
	StatusSkipped Status = "skipped"
)

// RunConfig is the configuration section of the report
type RunConfig struct {
	Repo      string `yaml:"repo"`
	Split     string `yaml:"split"`
	Bucket    string `yaml:"bucket"`
	Table     string `yaml:"table"`
	Sink      string `yaml:"sink"`
	Requested int    `yaml:"requested"`
	Selected  int    `yaml:"selected"`
	Delay     string `yaml:"delay"`
	Resume    bool   `yaml:"resume"`
	Timestamp string `yaml:"timestamp"`
}

// ItemResult is the outcome for a single record (Index is 1-based)
type ItemResult struct {
	Index  int    `yaml:"index"`
	ID     string `yaml:"id,omitempty"`
	Object string `yaml:"object,omitempty"`
	URL    string `yaml:"url,omitempty"`
	Status Status `yaml:"status"`
	Error  string `yaml:"error,omitempty"`
}

type Totals struct {
	Uploaded int `yaml:"uploaded"`
	Failed   int `yaml:"failed"`
	Orphaned int `yaml:"orphaned"`
	Skipped  int `yaml:"skipped"`
}

// RunReport collects the outcome of an upload run
type RunReport struct {
	Config RunConfig    `yaml:"config"`
	Totals Totals       `yaml:"totals"`
	Items  []ItemResult `yaml:"items"`
}

// New starts a report stamped with the current time
func New(config RunConfig) *RunReport {
	config.Timestamp = time.Now().Format("2006-01-02_15-04-05")
	return &RunReport{Config: config}
}

// Add records an item and updates the totals
func (r *RunReport) Add(item ItemResult) {
	switch item.Status {
	case StatusUploaded:
		r.Totals.Uploaded++
	case StatusFailed:
		r.Totals.Failed++
	case StatusOrphaned:
		r.Totals.Orphaned++
	case StatusSkipped:
		r.Totals.Skipped++
	}
	r.Items = append(r.Items, item)
}

// Orphans returns the items whose object has no row
func (r *RunReport) Orphans() []ItemResult {
	var orphans []ItemResult
	for _, item := range r.Items {
		if item.Status == StatusOrphaned {
			orphans = append(orphans, item)
		}
	}
	return orphans
}

// Save writes the report as YAML, creating parent directories as needed
func (r *RunReport) Save(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}

	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write YAML file: %w", err)
	}

	return nil
}
