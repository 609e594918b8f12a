package configutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Name    string            `json:"name"`
	Dir     string            `json:"dir"`
	Count   int               `json:"count"`
	Headers map[string]string `json:"headers"`
}

func writeFile(t testing.TB, path, contents string) {
	err := os.WriteFile(path, []byte(contents), 0600)
	if err != nil {
		t.Fatal(err)
	}
}

func TestLocalName(t *testing.T) {
	table := []struct {
		input    string
		expected string
	}{
		{input: "moexscrape.json5", expected: "moexscrape.local.json5"},
		{input: "dir/config.json5", expected: "dir/config.local.json5"},
		{input: "config", expected: "config.local"},
	}
	for _, row := range table {
		require.Equal(t, row.expected, LocalName(row.input))
	}
}

func TestReadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json5")

	_, err := ReadConfig[testConfig](path)
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, err, os.ErrNotExist)

	writeFile(t, path, `{
		// comments are fine in json5
		name: "base",
		dir: "pages",
		count: 3,
	}`)
	cfg, err := ReadConfig[testConfig](path)
	require.NoError(t, err)
	require.Equal(t, testConfig{Name: "base", Dir: "pages", Count: 3}, cfg)

	writeFile(t, filepath.Join(dir, "config.local.json5"), `{ name: "local", headers: { a: "b" } }`)
	cfg, err = ReadConfig[testConfig](path)
	require.NoError(t, err)
	require.Equal(t, "local", cfg.Name)
	require.Equal(t, "pages", cfg.Dir)
	require.Equal(t, 3, cfg.Count)
	require.Equal(t, map[string]string{"a": "b"}, cfg.Headers)
}

func TestReadConfigInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json5")
	writeFile(t, path, `{ name: `)
	_, err := ReadConfig[testConfig](path)
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrNotFound)
}

func TestReadRecursively(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0755))
	writeFile(t, filepath.Join(root, "recursive-test.json5"), `{ name: "root" }`)

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(nested))
	defer os.Chdir(wd)

	cfg, err := ReadRecursively[testConfig]("recursive-test.json5")
	require.NoError(t, err)
	require.Equal(t, "root", cfg.Name)

	_, err = ReadRecursively[testConfig]("definitely-missing-config.json5")
	require.ErrorIs(t, err, ErrNotFound)
}
