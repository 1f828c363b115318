package platform

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sadopc/earntime/internal/calendar"
)

// usageFile is the document an OS agent writes with today's cumulative
// foreground minutes:
//
//	date: 2024-03-04
//	minutes:
//	  com.example.video: 42
type usageFile struct {
	Date    string           `yaml:"date"`
	Minutes map[string]int64 `yaml:"minutes"`
}

// FileUsagePoller reads cumulative usage from a YAML file.
type FileUsagePoller struct {
	path string
	cal  calendar.Calendar
}

func NewFileUsagePoller(path string, cal calendar.Calendar) *FileUsagePoller {
	return &FileUsagePoller{path: path, cal: cal}
}

// Usage returns minutes per package for today. A missing file or one
// dated another day yields no usage.
func (p *FileUsagePoller) Usage(ctx context.Context) (map[string]int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p.path)
	if os.IsNotExist(err) {
		return map[string]int64{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read usage file: %w", err)
	}

	var doc usageFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse usage file: %w", err)
	}
	if doc.Date != "" && doc.Date != p.cal.Today() {
		return map[string]int64{}, nil
	}
	out := make(map[string]int64, len(doc.Minutes))
	for pkg, m := range doc.Minutes {
		if m < 0 {
			m = 0
		}
		out[pkg] = m
	}
	return out, nil
}
