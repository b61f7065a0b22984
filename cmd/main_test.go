package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compresr/paraphrase-gateway/internal/config"
	"github.com/compresr/paraphrase-gateway/internal/monitoring"
	"github.com/compresr/paraphrase-gateway/internal/phrases"
)

const memoryConfig = `
server:
  port: 5000
  read_timeout: 5s
  write_timeout: 5s
  max_text_bytes: 4096
store:
  type: memory
cache:
  type: none
engine:
  passive_voice: true
tokenizer:
  strategy: estimate
monitoring:
  log_level: error
  log_output: stderr
`

func writeConfig(t *testing.T, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "paraphrase.yaml")
	require.NoError(t, os.WriteFile(path, []byte(data), 0600))
	return path
}

func TestEmbeddedConfig_IsValid(t *testing.T) {
	data, err := getEmbeddedConfig(defaultConfigName)
	require.NoError(t, err)

	cfg, err := config.LoadFromBytes(data)
	require.NoError(t, err)
	assert.True(t, cfg.Engine.PassiveVoice)
	assert.Equal(t, 1048576, cfg.Server.MaxTextBytes)
	assert.Contains(t, cfg.Server.AllowedOrigins, "chrome-extension://")
}

func TestEmbeddedRules(t *testing.T) {
	names, err := listEmbeddedRules()
	require.NoError(t, err)
	assert.Contains(t, names, defaultRulesName)

	rules, source, err := loadSeed("")
	require.NoError(t, err)
	assert.Len(t, rules, 36)
	assert.Contains(t, source, "embedded")

	seen := map[string]bool{}
	for _, r := range rules {
		assert.False(t, seen[r.Key()], "duplicate seed phrase %q", r.Original)
		seen[r.Key()] = true
	}
}

func TestLoadSeed_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte("phrases:\n  - original: utilize\n    simplified: use\n    category: verbose\n"), 0600))

	rules, source, err := loadSeed(path)
	require.NoError(t, err)
	assert.Equal(t, path, source)
	require.Len(t, rules, 1)

	_, _, err = loadSeed(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestNewApp_SeedsEmptyStore(t *testing.T) {
	cfg, err := config.LoadFromBytes([]byte(memoryConfig))
	require.NoError(t, err)

	ctx := context.Background()
	a, err := newApp(ctx, cfg, monitoring.Nop())
	require.NoError(t, err)
	defer a.Close()

	rules, err := a.service.ListRules(ctx)
	require.NoError(t, err)
	assert.Len(t, rules, 36)

	res, err := a.service.Simplify(ctx, "We cannot utilize this approach.", monitoring.SourceCLI)
	require.NoError(t, err)
	assert.Contains(t, res.SimplifiedText, "can't")
	assert.NotContains(t, res.SimplifiedText, "utilize")
}

func TestNewApp_SeedFromConfiguredFile(t *testing.T) {
	seed := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(seed, []byte("phrases:\n  - original: gadget\n    simplified: tool\n    category: verbose\n"), 0600))

	cfg, err := config.LoadFromBytes([]byte(memoryConfig))
	require.NoError(t, err)
	cfg.Store.SeedFile = seed

	a, err := newApp(context.Background(), cfg, monitoring.Nop())
	require.NoError(t, err)
	defer a.Close()

	rules, err := a.service.ListRules(context.Background())
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, "gadget", rules[0].Original)
}

func TestRunSimplify(t *testing.T) {
	path := writeConfig(t, memoryConfig)

	var out bytes.Buffer
	code := runSimplify([]string{"--config", path, "--quiet", "--text", "We basically cannot utilize it."}, os.Stdin, &out)
	require.Equal(t, 0, code)

	got := strings.TrimSpace(out.String())
	assert.NotContains(t, got, "basically")
	assert.NotContains(t, got, "utilize")
	assert.Contains(t, got, "can't")
}

func TestRunSimplify_EmptyText(t *testing.T) {
	path := writeConfig(t, memoryConfig)

	var out bytes.Buffer
	code := runSimplify([]string{"--config", path, "--quiet", "--text", "   "}, os.Stdin, &out)
	require.Equal(t, 0, code)
	assert.Equal(t, "\n", out.String())
}

func TestPrintRules(t *testing.T) {
	var out bytes.Buffer
	printRules(&out, []phrases.Rule{
		{Original: "utilize", Simplified: "use", Category: phrases.CategoryVerbose},
		{Original: "basically", Category: phrases.CategoryFiller},
	})

	text := out.String()
	assert.Contains(t, text, `"utilize" -> use`)
	assert.Contains(t, text, `"basically" -> `)
	assert.Contains(t, text, "(delete)")
	assert.Contains(t, text, "2 phrases")
}

func TestResolveConfig(t *testing.T) {
	path := writeConfig(t, memoryConfig)

	data, source, err := resolveConfig(path)
	require.NoError(t, err)
	assert.Equal(t, path, source)
	assert.Equal(t, memoryConfig, string(data))

	_, _, err = resolveConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
