package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbaille/wts/internal/config"
)

const fixture = "\xef\xbb\xbfSTRING 1\n" +
	"// Units: H000 (Paladin), Hotkey (Hotkey)\n" +
	"{\n" +
	"Q\n" +
	"}\n" +
	"\n" +
	"STRING 3\n" +
	"// Units: H000 (Paladin), Name (Name)\n" +
	"{\n" +
	"Paladin\n" +
	"}\n" +
	"\n"

type env struct {
	dir  string
	file string
}

func setup(t *testing.T) env {
	t.Helper()
	for _, k := range []string{"WTS_FILE", "WTS_ARCHIVE", "WTS_ADDR", "WTS_LOG_LEVEL"} {
		t.Setenv(k, "")
	}
	t.Setenv("WTS_LOG_LEVEL", "error")

	dir := t.TempDir()
	file := filepath.Join(dir, "war3map.wts")
	require.NoError(t, os.WriteFile(file, []byte(fixture), 0644))
	return env{dir: dir, file: file}
}

func (e env) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{
		"--config", filepath.Join(e.dir, "config.yaml"),
		"--file", e.file,
	}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestListAndShow(t *testing.T) {
	e := setup(t)

	out, err := e.run(t, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Unit/H000/Hotkey")
	assert.Contains(t, out, "Paladin")

	out, err = e.run(t, "show", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "Key:     Unit/H000/Name")
	assert.Contains(t, out, "Content:\nPaladin\n")

	_, err = e.run(t, "show", "2")
	assert.Error(t, err)

	_, err = e.run(t, "show", "x")
	assert.Error(t, err)
}

func TestFind(t *testing.T) {
	e := setup(t)

	out, err := e.run(t, "find", "Unit", "H000", "Hotkey")
	require.NoError(t, err)
	assert.Contains(t, out, "ID:      1")

	_, err = e.run(t, "find", "Unit", "H000", "Hotkey", "--level", "2")
	assert.Error(t, err)

	_, err = e.run(t, "find", "Heroes", "H000", "Hotkey")
	assert.Error(t, err)
}

func TestAddEditRemove(t *testing.T) {
	e := setup(t)

	out, err := e.run(t, "add", "--comment", "Units: H000 (Paladin), Tip (Tip)", "Train", "Paladin")
	require.NoError(t, err)
	assert.Contains(t, out, "Added string: 4")

	out, err = e.run(t, "find", "Units", "H000", "Tip")
	require.NoError(t, err)
	assert.Contains(t, out, "Train Paladin")

	_, err = e.run(t, "edit", "4", "Summon", "Paladin")
	require.NoError(t, err)

	_, err = e.run(t, "rm", "1", "4")
	require.NoError(t, err)

	data, err := os.ReadFile(e.file)
	require.NoError(t, err)
	assert.Equal(t, "\xef\xbb\xbfSTRING 3\n// Units: H000 (Paladin), Name (Name)\n{\nPaladin\n}\n\n", string(data))

	_, err = e.run(t, "add", "}")
	assert.Error(t, err)

	_, err = e.run(t, "add", "--comment", "note\nSTRING 77", "text")
	assert.Error(t, err)
	_, err = e.run(t, "add", "--comment", "note\n{", "text")
	assert.Error(t, err)

	out, err = e.run(t, "add", "--comment", "note\n// more", "text")
	require.NoError(t, err)
	assert.Contains(t, out, "Added string: 4")

	out, err = e.run(t, "show", "--raw", "4")
	require.NoError(t, err)
	assert.Equal(t, "STRING 4\n// note\n// more\n{\ntext\n}\n\n", out)
}

func TestFmt(t *testing.T) {
	e := setup(t)
	target := filepath.Join(e.dir, "out.wts")

	out, err := e.run(t, "fmt", "--output", target)
	require.NoError(t, err)
	assert.Contains(t, out, "Formatted 2 strings")

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, fixture, string(data))
}

func TestKeysAndSurvey(t *testing.T) {
	e := setup(t)

	out, err := e.run(t, "keys")
	require.NoError(t, err)
	assert.Contains(t, out, "Unit/H000/Hotkey")
	assert.Contains(t, out, "Unit/H000/Name")

	out, err = e.run(t, "survey")
	require.NoError(t, err)
	assert.Contains(t, out, "Classified: 2")
	assert.Contains(t, out, "Next id:    4")
	assert.Contains(t, out, "Units")
}

func TestArchiveCommands(t *testing.T) {
	e := setup(t)
	db := filepath.Join(e.dir, "archive.db")

	out, err := e.run(t, "export", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "(2 strings)")
	prefix := out[len("Snapshot ") : len("Snapshot ")+8]

	out, err = e.run(t, "snapshots", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, prefix)

	out, err = e.run(t, "search", "--db", db, "Pala")
	require.NoError(t, err)
	assert.Contains(t, out, prefix)

	restored := filepath.Join(e.dir, "restored.wts")
	out, err = e.run(t, "import", "--db", db, "--output", restored, prefix)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote 2 strings")

	data, err := os.ReadFile(restored)
	require.NoError(t, err)
	assert.Equal(t, fixture, string(data))
}

func TestConfigInit(t *testing.T) {
	e := setup(t)
	path := filepath.Join(e.dir, "config.yaml")

	out, err := e.run(t, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote "+path)

	saved, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, e.file, saved.File)

	_, err = e.run(t, "config", "init")
	assert.Error(t, err)

	_, err = e.run(t, "config", "init", "--force")
	assert.NoError(t, err)
}
