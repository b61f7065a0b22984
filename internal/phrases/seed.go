// Package phrases - seed.go loads rule seed files.
//
// DESIGN: A seed file is a YAML document with a "phrases" list of
// {original, simplified, category}. Seeding replaces every user rule
// (Catalog.Reset). WatchSeedFile re-seeds whenever the file is written.
package phrases

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// SeedFile is the on-disk seed format.
type SeedFile struct {
	Phrases []Rule `yaml:"phrases"`
}

// ParseSeed parses seed YAML. Categories are validated here so a bad file is
// rejected before any rule is written.
func ParseSeed(data []byte) ([]Rule, error) {
	var sf SeedFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}
	for i, r := range sf.Phrases {
		if err := r.Trimmed().Validate(); err != nil {
			return nil, fmt.Errorf("seed phrase %d: %w", i, err)
		}
	}
	return sf.Phrases, nil
}

// LoadSeedFile reads and parses a seed file.
func LoadSeedFile(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file '%s': %w", path, err)
	}
	return ParseSeed(data)
}

// seedDebounce absorbs the burst of events editors emit for one save.
const seedDebounce = 200 * time.Millisecond

// WatchSeedFile calls apply with the parsed rules every time path changes,
// until ctx is cancelled. Parse failures are logged and skipped so a broken
// edit never clears the catalog.
func WatchSeedFile(ctx context.Context, path string, apply func([]Rule) error) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create seed watcher: %w", err)
	}

	// Watch the directory: editors often replace the file instead of writing it.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch seed file '%s': %w", path, err)
	}

	go func() {
		defer watcher.Close()

		target := filepath.Clean(path)
		var timer *time.Timer
		var fire <-chan time.Time

		for {
			select {
			case <-ctx.Done():
				if timer != nil {
					timer.Stop()
				}
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
					continue
				}
				if timer == nil {
					timer = time.NewTimer(seedDebounce)
				} else {
					timer.Reset(seedDebounce)
				}
				fire = timer.C
			case <-fire:
				fire = nil
				rules, err := LoadSeedFile(path)
				if err != nil {
					log.Warn().Err(err).Str("path", path).Msg("seed reload skipped")
					continue
				}
				if err := apply(rules); err != nil {
					log.Error().Err(err).Str("path", path).Msg("seed reload failed")
					continue
				}
				log.Info().Str("path", path).Int("phrases", len(rules)).Msg("seed reloaded")
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warn().Err(err).Str("path", path).Msg("seed watcher error")
			}
		}
	}()

	return nil
}
