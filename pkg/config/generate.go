package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/Gavin1937/aggregate-linker/pkg/errors"
)

// defaultFile is the marshal shape for a generated config file. The
// key order follows the original tool's output.
type defaultFile struct {
	RootFolder            string          `json:"ROOT_FOLDER"`
	SourceFolders         []defaultSource `json:"SOURCE_FOLDERS"`
	GlobalExcludePatterns []string        `json:"GLOBAL_EXCLUDE_PATTERNS"`
	HealIdleTimeout       int             `json:"HEAL_IDLE_TIMEOUT"`
}

type defaultSource struct {
	Path         string `json:"PATH"`
	FinalExclude string `json:"FINAL_EXCLUDE,omitempty"`
}

// WriteDefault writes a starter configuration to path. The sources
// live under the OS temp directory so the file works out of the box,
// but the expectation is that the user edits it before the first real
// run.
func WriteDefault(path string) error {
	tmp := os.TempDir()

	cfg := defaultFile{
		RootFolder: filepath.Join(tmp, "SymlinkUnifiedRoot"),
		SourceFolders: []defaultSource{
			{
				Path:         filepath.Join(tmp, "SymlinkSource_A", "*.txt"),
				FinalExclude: "*temp*.txt",
			},
			{
				Path:         filepath.Join(tmp, "SymlinkSource_B", "*"),
				FinalExclude: "*backup*",
			},
		},
		GlobalExcludePatterns: []string{"*Bank1*", ".*"},
		HealIdleTimeout:       int(DefaultHealIdleTimeout.Seconds()),
	}

	data, err := json.MarshalIndent(cfg, "", "    ")
	if err != nil {
		return errors.Wrap(err, errors.ErrInternal, "cannot marshal default config")
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrapf(err, errors.ErrConfigWrite, "cannot write default config to %s", path)
	}
	return nil
}
