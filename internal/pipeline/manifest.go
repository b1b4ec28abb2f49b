package pipeline

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// ManifestFile is written to the root of the output directory.
const ManifestFile = "manifest.json"

// Manifest records what a build produced.
type Manifest struct {
	Revision    string    `json:"revision,omitempty"`
	GeneratedAt time.Time `json:"generated_at"`
	Pages       []Page    `json:"pages"`
	Assets      int       `json:"assets"`
}

func writeManifest(outputDir string, m Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(outputDir, ManifestFile), data, 0o600)
}

// ReadManifest loads the manifest of a previous build.
func ReadManifest(outputDir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(outputDir, ManifestFile))
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}
