package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	yamlv3 "gopkg.in/yaml.v3"
)

// CachePath returns the on-disk cache file location for an org snapshot.
func CachePath(cacheDir, org string) string {
	return filepath.Join(cacheDir, org+".json")
}

// Save writes the snapshot as indented JSON, creating the directory if needed.
func (o *Org) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}
	data, err := json.MarshalIndent(o, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing snapshot to %s: %w", path, err)
	}
	return nil
}

// Load reads a snapshot previously written by Save.
func Load(path string) (*Org, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot %s: %w", path, err)
	}
	var o Org
	if err := json.Unmarshal(data, &o); err != nil {
		return nil, fmt.Errorf("parsing snapshot %s: %w", path, err)
	}
	return &o, nil
}

// LoadIdentities reads a YAML file mapping login to identity record.
func LoadIdentities(path string) (map[string]Identity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading identity file %s: %w", path, err)
	}
	var m map[string]Identity
	if err := yamlv3.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing identity file %s: %w", path, err)
	}
	return m, nil
}

// ApplyIdentities attaches identity records to users by login. Logins
// without a matching user are ignored.
func (o *Org) ApplyIdentities(identities map[string]Identity) {
	for i := range o.Users {
		if id, ok := identities[o.Users[i].Login]; ok {
			id := id
			o.Users[i].Identity = &id
		}
	}
}
