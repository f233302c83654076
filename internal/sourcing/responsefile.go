// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sourcing

import (
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/sourcing-engine/pkg/types"
)

// ResponseFile is the on-disk representation of a completed search. Saved
// responses let a caller audit what each provider was asked and how the
// ranking came out without re-querying APIs.
type ResponseFile struct {
	Response types.SearchResponse `yaml:"response"`
	Summary  ResponseSummary      `yaml:"summary"`
}

// ResponseSummary stores result statistics and a timestamp.
type ResponseSummary struct {
	Total         int       `yaml:"total"`
	ViewMoreCount int       `yaml:"view_more_count"`
	FailedCount   int       `yaml:"failed_count"`
	SavedAt       time.Time `yaml:"saved_at"`
}

// WriteResponseFile saves a search response to a YAML file.
func WriteResponseFile(path string, resp *types.SearchResponse) error {
	failed := 0
	for _, s := range resp.Statuses {
		if s.Status != types.StatusOK {
			failed++
		}
	}

	rf := ResponseFile{
		Response: *resp,
		Summary: ResponseSummary{
			Total:         len(resp.Results),
			ViewMoreCount: resp.ViewMoreCount,
			FailedCount:   failed,
			SavedAt:       time.Now(),
		},
	}

	data, err := yaml.Marshal(&rf)
	if err != nil {
		return fmt.Errorf("marshaling response file: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadResponseFile loads a previously saved response file from disk.
func ReadResponseFile(path string) (*ResponseFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading response file: %w", err)
	}
	var rf ResponseFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("parsing response file: %w", err)
	}
	return &rf, nil
}
