package main

import (
	"embed"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

//go:embed configs/*.yaml
var configsFS embed.FS

//go:embed rules/*.yaml
var rulesFS embed.FS

// defaultConfigName is the embedded config used when none is found on disk.
const defaultConfigName = "paraphrase"

// defaultRulesName is the embedded seed applied to an empty store.
const defaultRulesName = "default_phrases"

// getEmbeddedConfig returns the raw bytes of an embedded config file.
// name can be with or without the .yaml extension.
func getEmbeddedConfig(name string) ([]byte, error) {
	if !strings.HasSuffix(name, ".yaml") {
		name += ".yaml"
	}
	return configsFS.ReadFile(filepath.Join("configs", name))
}

// getEmbeddedRules returns the raw bytes of an embedded seed file.
// name can be with or without the .yaml extension.
func getEmbeddedRules(name string) ([]byte, error) {
	if !strings.HasSuffix(name, ".yaml") {
		name += ".yaml"
	}
	return rulesFS.ReadFile(filepath.Join("rules", name))
}

// listEmbeddedRules returns the names of all embedded seed files (without extension).
func listEmbeddedRules() ([]string, error) {
	entries, err := rulesFS.ReadDir("rules")
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded rules: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".yaml") {
			names = append(names, strings.TrimSuffix(e.Name(), ".yaml"))
		}
	}
	sort.Strings(names)
	return names, nil
}
