package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeConfigFile drops a config file and points RUNONE_CONFIG at it.
func writeConfigFile(t *testing.T, content string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	t.Setenv("RUNONE_CONFIG", path)
}

func TestConfigPrecedence_FileBeatsDefaults(t *testing.T) {
	cleanEnv(t)
	base := t.TempDir()
	writeConfigFile(t, "lockgroup: filegrp\n")
	plantLock(t, base, "filegrp", "fromfile", "fromfile.locked", "otherhost 1")
	plantLock(t, base, ".locks", "fromdefault", "fromdefault.locked", "otherhost 2")

	out, err := executeCmd(t, "status", "--json", "-d", base)

	require.NoError(t, err)
	assert.Contains(t, out, `"fromfile"`)
	assert.NotContains(t, out, `"fromdefault"`)
}

func TestConfigPrecedence_EnvBeatsFile(t *testing.T) {
	cleanEnv(t)
	base := t.TempDir()
	writeConfigFile(t, "lockgroup: filegrp\n")
	t.Setenv("RUNONE_LOCKGROUP", "envgrp")
	plantLock(t, base, "filegrp", "fromfile", "fromfile.locked", "otherhost 1")
	plantLock(t, base, "envgrp", "fromenv", "fromenv.locked", "otherhost 2")

	out, err := executeCmd(t, "status", "--json", "-d", base)

	require.NoError(t, err)
	assert.Contains(t, out, `"fromenv"`)
	assert.NotContains(t, out, `"fromfile"`)
}

func TestConfigPrecedence_FlagBeatsEnvAndFile(t *testing.T) {
	cleanEnv(t)
	base := t.TempDir()
	writeConfigFile(t, "lockgroup: filegrp\n")
	t.Setenv("RUNONE_LOCKGROUP", "envgrp")
	plantLock(t, base, "filegrp", "fromfile", "fromfile.locked", "otherhost 1")
	plantLock(t, base, "envgrp", "fromenv", "fromenv.locked", "otherhost 2")
	plantLock(t, base, "flaggrp", "fromflag", "fromflag.locked", "otherhost 3")

	out, err := executeCmd(t, "status", "--json", "-d", base, "-g", "flaggrp")

	require.NoError(t, err)
	assert.Contains(t, out, `"fromflag"`)
	assert.NotContains(t, out, `"fromenv"`)
	assert.NotContains(t, out, `"fromfile"`)
}

func TestConfigPrecedence_MissingExplicitFileFails(t *testing.T) {
	cleanEnv(t)

	_, err := executeCmd(t, "status", "--config", filepath.Join(t.TempDir(), "nope.yaml"))

	assert.Error(t, err)
}

func TestLoadConfig_BadMaxAgeFlag(t *testing.T) {
	cleanEnv(t)

	_, err := executeCmd(t, "clean", "--max-age", "never", "-d", t.TempDir())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "--max-age")
}
