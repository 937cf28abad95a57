package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Gavin1937/aggregate-linker/pkg/errors"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestSplitPattern(t *testing.T) {
	tests := []struct {
		name       string
		pattern    string
		wantBase   string
		wantSuffix string
	}{
		{
			name:       "simple glob",
			pattern:    "/tmp/SymlinkSource_A/*.txt",
			wantBase:   "/tmp/SymlinkSource_A",
			wantSuffix: "*.txt",
		},
		{
			name:       "match all",
			pattern:    "/tmp/SymlinkSource_B/*",
			wantBase:   "/tmp/SymlinkSource_B",
			wantSuffix: "*",
		},
		{
			name:       "no wildcard means directory contents",
			pattern:    "/data/shared",
			wantBase:   "/data/shared",
			wantSuffix: "*",
		},
		{
			name:       "wildcard in intermediate component",
			pattern:    "/data/proj*/reports",
			wantBase:   "/data",
			wantSuffix: "proj*/reports",
		},
		{
			name:       "question mark",
			pattern:    "/logs/app?.log",
			wantBase:   "/logs",
			wantSuffix: "app?.log",
		},
		{
			name:       "wildcard at root",
			pattern:    "/*",
			wantBase:   "/",
			wantSuffix: "*",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base, suffix := SplitPattern(tt.pattern)
			assert.Equal(t, tt.wantBase, base)
			assert.Equal(t, tt.wantSuffix, suffix)
		})
	}
}

func TestLoad_Valid(t *testing.T) {
	src := t.TempDir()
	root := filepath.Join(t.TempDir(), "root")
	path := writeConfig(t, `{
		"ROOT_FOLDER": "`+root+`",
		"SOURCE_FOLDERS": [
			{"PATH": "`+src+`/*.txt", "FINAL_EXCLUDE": "*temp*.txt"},
			{"PATH": "`+src+`"}
		],
		"GLOBAL_EXCLUDE_PATTERNS": ["*Bank1*", ".*"],
		"HEAL_IDLE_TIMEOUT": 2
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, root, cfg.Root)
	assert.Equal(t, []string{"*Bank1*", ".*"}, cfg.GlobalExcludes)
	assert.Equal(t, 2*time.Second, cfg.HealIdleTimeout)

	require.Len(t, cfg.Sources, 2)
	assert.Equal(t, src, cfg.Sources[0].BaseDir)
	assert.Equal(t, "*.txt", cfg.Sources[0].GlobSuffix)
	assert.Equal(t, "*temp*.txt", cfg.Sources[0].ExcludePattern)
	assert.False(t, cfg.Sources[0].Disabled)

	assert.Equal(t, src, cfg.Sources[1].BaseDir)
	assert.Equal(t, "*", cfg.Sources[1].GlobSuffix)
	assert.Empty(t, cfg.Sources[1].ExcludePattern)
}

func TestLoad_DefaultHealTimeout(t *testing.T) {
	src := t.TempDir()
	path := writeConfig(t, `{
		"ROOT_FOLDER": "/tmp/root",
		"SOURCE_FOLDERS": [{"PATH": "`+src+`/*"}]
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultHealIdleTimeout, cfg.HealIdleTimeout)
	assert.Empty(t, cfg.GlobalExcludes)
}

func TestLoad_CreatesMissingBaseDir(t *testing.T) {
	base := filepath.Join(t.TempDir(), "not_yet_there")
	path := writeConfig(t, `{
		"ROOT_FOLDER": "/tmp/root",
		"SOURCE_FOLDERS": [{"PATH": "`+base+`/*.txt"}]
	}`)

	_, err := Load(path)
	require.NoError(t, err)

	info, err := os.Stat(base)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestLoad_InvalidGlobDisablesSpec(t *testing.T) {
	src := t.TempDir()
	path := writeConfig(t, `{
		"ROOT_FOLDER": "/tmp/root",
		"SOURCE_FOLDERS": [
			{"PATH": "`+src+`/[bad"},
			{"PATH": "`+src+`/*.txt"}
		]
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.Sources, 2)

	assert.True(t, cfg.Sources[0].Disabled)
	assert.NotEmpty(t, cfg.Sources[0].DisabledReason)
	assert.False(t, cfg.Sources[1].Disabled)
}

func TestLoad_InvalidExcludeDisablesSpec(t *testing.T) {
	src := t.TempDir()
	path := writeConfig(t, `{
		"ROOT_FOLDER": "/tmp/root",
		"SOURCE_FOLDERS": [{"PATH": "`+src+`/*", "FINAL_EXCLUDE": "[oops"}]
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.Sources, 1)
	assert.True(t, cfg.Sources[0].Disabled)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		missing  bool
		wantCode errors.ErrorCode
	}{
		{
			name:     "missing file",
			missing:  true,
			wantCode: errors.ErrConfigLoad,
		},
		{
			name:     "malformed JSON",
			content:  `{"ROOT_FOLDER": `,
			wantCode: errors.ErrConfigParse,
		},
		{
			name:     "empty root",
			content:  `{"ROOT_FOLDER": "", "SOURCE_FOLDERS": [{"PATH": "/tmp/x/*"}]}`,
			wantCode: errors.ErrConfigValid,
		},
		{
			name:     "no sources",
			content:  `{"ROOT_FOLDER": "/tmp/root", "SOURCE_FOLDERS": []}`,
			wantCode: errors.ErrConfigValid,
		},
		{
			name:     "invalid global exclude",
			content:  `{"ROOT_FOLDER": "/tmp/root", "SOURCE_FOLDERS": [{"PATH": "/tmp/x/*"}], "GLOBAL_EXCLUDE_PATTERNS": ["[broken"]}`,
			wantCode: errors.ErrPatternInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var path string
			if tt.missing {
				path = filepath.Join(t.TempDir(), "absent.json")
			} else {
				path = writeConfig(t, tt.content)
			}

			_, err := Load(path)
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, errors.GetCode(err))
		})
	}
}

func TestWriteDefault_RoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, WriteDefault(path))
	require.True(t, Exists(path))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Contains(t, cfg.Root, "SymlinkUnifiedRoot")
	require.Len(t, cfg.Sources, 2)
	assert.Equal(t, "*.txt", cfg.Sources[0].GlobSuffix)
	assert.Equal(t, "*temp*.txt", cfg.Sources[0].ExcludePattern)
	assert.Equal(t, "*backup*", cfg.Sources[1].ExcludePattern)
	assert.Equal(t, []string{"*Bank1*", ".*"}, cfg.GlobalExcludes)
	assert.Equal(t, DefaultHealIdleTimeout, cfg.HealIdleTimeout)
}

func TestExists(t *testing.T) {
	dir := t.TempDir()
	assert.False(t, Exists(filepath.Join(dir, "nope.json")))
	assert.False(t, Exists(dir))

	path := writeConfig(t, `{}`)
	assert.True(t, Exists(path))
}
