package scraper

import (
	"encoding/json"
	"fmt"
	"os"
)

const MetadataFileExtension = ".meta"

// PageMetadata is what a replayed page needs besides its body: where it finally came from
// and how the server answered.
type PageMetadata struct {
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
	StatusCode  int    `json:"status_code,omitempty"` // 0 in files recorded before status codes were kept
}

func metadataFilename(pageFilename string) string {
	return pageFilename + MetadataFileExtension
}

// savePageMetadata writes metadata next to the recorded page.
func savePageMetadata(pageFilename string, metadata PageMetadata) error {
	name := metadataFilename(pageFilename)
	b, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	if err := os.WriteFile(name, b, os.FileMode(0644)); err != nil {
		return fmt.Errorf("failed to write metadata file %s: %w", name, err)
	}
	return nil
}

func loadPageMetadata(pageFilename string) (PageMetadata, error) {
	var metadata PageMetadata
	name := metadataFilename(pageFilename)
	b, err := os.ReadFile(name)
	if err != nil {
		return metadata, fmt.Errorf("failed to read metadata file %s: %w", name, err)
	}
	if err := json.Unmarshal(b, &metadata); err != nil {
		return metadata, fmt.Errorf("failed to parse metadata file %s: %w", name, err)
	}
	return metadata, nil
}
