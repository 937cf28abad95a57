package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	kjson "github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/Gavin1937/aggregate-linker/pkg/errors"
	"github.com/Gavin1937/aggregate-linker/pkg/logging"
	"github.com/Gavin1937/aggregate-linker/pkg/types"
)

// DefaultFileName is the config file looked up when no --config flag
// is given.
const DefaultFileName = "config.json"

// DefaultHealIdleTimeout is the quiet period a recreated source
// directory must stay idle before it is rescanned.
const DefaultHealIdleTimeout = 5 * time.Second

// defaults are loaded below the user's file so omitted keys get sane
// values.
var defaults = []byte(`{
    "GLOBAL_EXCLUDE_PATTERNS": [],
    "HEAL_IDLE_TIMEOUT": 5
}`)

// Config is the parsed, validated configuration handed to the engine.
type Config struct {
	Root            string
	Sources         []types.SourceSpec
	GlobalExcludes  []string
	HealIdleTimeout time.Duration
}

// fileSchema mirrors the JSON layout of the config file.
type fileSchema struct {
	RootFolder            string         `koanf:"ROOT_FOLDER"`
	SourceFolders         []sourceFolder `koanf:"SOURCE_FOLDERS"`
	GlobalExcludePatterns []string       `koanf:"GLOBAL_EXCLUDE_PATTERNS"`
	HealIdleTimeout       int            `koanf:"HEAL_IDLE_TIMEOUT"`
}

type sourceFolder struct {
	Path         string `koanf:"PATH"`
	FinalExclude string `koanf:"FINAL_EXCLUDE"`
}

// Exists reports whether a config file is present at path.
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Load reads, parses and validates the config file at path, derives
// the source specifications and creates missing source base
// directories so they can be watched.
func Load(path string) (*Config, error) {
	logger := logging.GetLogger("config")

	if !Exists(path) {
		return nil, errors.Newf(errors.ErrConfigLoad, "config file %s not found", path)
	}

	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider(defaults), kjson.Parser()); err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "failed to load config defaults")
	}
	if err := k.Load(file.Provider(path), kjson.Parser()); err != nil {
		return nil, errors.Wrapf(err, errors.ErrConfigParse, "invalid JSON in %s", path)
	}

	var raw fileSchema
	if err := k.Unmarshal("", &raw); err != nil {
		return nil, errors.Wrapf(err, errors.ErrConfigParse, "cannot decode %s", path)
	}

	if raw.RootFolder == "" {
		return nil, errors.New(errors.ErrConfigValid, "ROOT_FOLDER cannot be empty")
	}
	if len(raw.SourceFolders) == 0 {
		return nil, errors.New(errors.ErrConfigValid, "SOURCE_FOLDERS cannot be empty")
	}

	root, err := filepath.Abs(raw.RootFolder)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigValid, "cannot resolve ROOT_FOLDER")
	}

	cfg := &Config{
		Root:            root,
		GlobalExcludes:  raw.GlobalExcludePatterns,
		HealIdleTimeout: time.Duration(raw.HealIdleTimeout) * time.Second,
	}
	if cfg.HealIdleTimeout <= 0 {
		cfg.HealIdleTimeout = DefaultHealIdleTimeout
	}

	for _, pat := range raw.GlobalExcludePatterns {
		if err := validatePattern(pat); err != nil {
			return nil, errors.Wrapf(err, errors.ErrPatternInvalid, "invalid global exclude pattern %q", pat)
		}
	}

	for _, sf := range raw.SourceFolders {
		if sf.Path == "" {
			continue
		}
		spec := deriveSpec(sf)
		if spec.Disabled {
			logger.Warn().
				Str("pattern", spec.Pattern).
				Str("reason", spec.DisabledReason).
				Msg("source disabled due to invalid pattern")
		} else if err := os.MkdirAll(spec.BaseDir, 0755); err == nil {
			logger.Debug().Str("dir", spec.BaseDir).Msg("source base directory verified")
		}
		cfg.Sources = append(cfg.Sources, spec)
	}

	if len(cfg.Sources) == 0 {
		return nil, errors.New(errors.ErrConfigValid, "SOURCE_FOLDERS contains no usable entries")
	}

	return cfg, nil
}

// deriveSpec turns one SOURCE_FOLDERS entry into a SourceSpec,
// validating its patterns. An invalid pattern disables the spec
// instead of failing the whole load.
func deriveSpec(sf sourceFolder) types.SourceSpec {
	base, suffix := SplitPattern(sf.Path)

	spec := types.SourceSpec{
		Pattern:        sf.Path,
		BaseDir:        base,
		GlobSuffix:     suffix,
		ExcludePattern: sf.FinalExclude,
	}

	if abs, err := filepath.Abs(base); err == nil {
		spec.BaseDir = abs
	}

	for _, part := range strings.Split(suffix, string(filepath.Separator)) {
		if err := validatePattern(part); err != nil {
			spec.Disabled = true
			spec.DisabledReason = "invalid glob suffix: " + suffix
			return spec
		}
	}
	if sf.FinalExclude != "" {
		if err := validatePattern(sf.FinalExclude); err != nil {
			spec.Disabled = true
			spec.DisabledReason = "invalid FINAL_EXCLUDE pattern: " + sf.FinalExclude
		}
	}

	return spec
}

// SplitPattern splits a PATH glob at its first wildcard component.
// The returned base is the deepest wildcard-free directory and suffix
// the remaining pattern. A wildcard-free pattern yields suffix "*"
// (the directory's direct children).
func SplitPattern(pattern string) (string, string) {
	sep := string(filepath.Separator)
	parts := strings.Split(filepath.Clean(pattern), sep)

	idx := len(parts)
	for i, p := range parts {
		if strings.ContainsAny(p, "*?[") {
			idx = i
			break
		}
	}

	base := strings.Join(parts[:idx], sep)
	if base == "" {
		base = sep
	}
	suffix := strings.Join(parts[idx:], sep)
	if suffix == "" {
		suffix = "*"
	}
	return base, suffix
}

// validatePattern reports whether p is a syntactically valid glob.
func validatePattern(p string) error {
	_, err := filepath.Match(p, "probe")
	return err
}
