// Package config manages gwernbuild's runtime configuration: defaults,
// GWERNBUILD_-prefixed environment overrides, and pflag command-line flags,
// finalized with path normalization and range validation.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/pflag"

	"github.com/gwern/gwernbuild/internal/identify"
)

const envPrefix = "GWERNBUILD_"

// Config holds every tunable the build driver and its subsystems need.
type Config struct {
	RootDir           string
	OutputDir         string
	CuratedMetadata   string
	AutoMetadata      string
	FragmentOutputDir string
	ArchiveDir        string
	ArchiveDB         string
	InvertCacheFile   string
	SiteURL           string

	Workers             int
	CheckMode           bool
	NoPreview           bool
	MaxNewArchives      int
	WikipediaClientSide bool
	SuffixDropOne       bool

	IncludeHidden bool
	Verbose       bool
}

// Default returns ready-to-use defaults prior to env/flag overrides,
// matching the layout a corpus root conventionally uses.
func Default() Config {
	return Config{
		RootDir:             ".",
		OutputDir:           "dist",
		CuratedMetadata:     "metadata/full.yaml",
		AutoMetadata:        "metadata/auto.yaml",
		FragmentOutputDir:   "metadata/annotation",
		ArchiveDir:          "doc/www",
		ArchiveDB:           "metadata/archive.yaml",
		InvertCacheFile:     "metadata/invert-cache.json",
		Workers:             4,
		WikipediaClientSide: true,
		SuffixDropOne:       true,
	}
}

// RegisterFlags attaches configuration flags to the provided FlagSet.
func RegisterFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.StringVarP(&cfg.RootDir, "root", "r", cfg.RootDir, "root directory containing the source document corpus")
	fs.StringVar(&cfg.OutputDir, "out", cfg.OutputDir, "output directory for rendered documents")
	fs.StringVar(&cfg.CuratedMetadata, "curated-metadata", cfg.CuratedMetadata, "path to the curated (hand-edited) annotation YAML")
	fs.StringVar(&cfg.AutoMetadata, "auto-metadata", cfg.AutoMetadata, "path to the auto (scraper-appended) annotation YAML")
	fs.StringVar(&cfg.FragmentOutputDir, "fragment-dir", cfg.FragmentOutputDir, "output directory for annotation fragment HTML files")
	fs.StringVar(&cfg.ArchiveDir, "archive-dir", cfg.ArchiveDir, "directory snapshots are stored under (doc/www layout)")
	fs.StringVar(&cfg.ArchiveDB, "archive-db", cfg.ArchiveDB, "path to the archive metadata database")
	fs.StringVar(&cfg.InvertCacheFile, "invert-cache", cfg.InvertCacheFile, "path to the image-invertibility memoization cache")
	fs.StringVar(&cfg.SiteURL, "site-url", cfg.SiteURL, "this site's own absolute URL prefix, for recognizing self-links")
	fs.IntVarP(&cfg.Workers, "workers", "j", cfg.Workers, "number of concurrent workers for scraping and document rendering")
	fs.BoolVar(&cfg.CheckMode, "check", cfg.CheckMode, "archive mode: never fetch, fail on any missing snapshot")
	fs.BoolVar(&cfg.NoPreview, "no-preview", cfg.NoPreview, "suppress the log line announcing each new archive snapshot for review (no viewer is opened either way)")
	fs.IntVar(&cfg.MaxNewArchives, "max-new-archives", cfg.MaxNewArchives, "cap on new archive snapshots per build (0 = unlimited)")
	fs.BoolVar(&cfg.WikipediaClientSide, "wikipedia-client-side", cfg.WikipediaClientSide, "handle Wikipedia popups client-side instead of scraping them server-side")
	fs.BoolVar(&cfg.SuffixDropOne, "suffix-drop-one", cfg.SuffixDropOne, "drop a '-1' disambiguation suffix in generated identifiers (keep '-2' and higher)")
	fs.BoolVar(&cfg.IncludeHidden, "hidden", cfg.IncludeHidden, "include hidden files when scanning the source corpus")
	fs.BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "enable verbose logging")
}

// ApplyEnvOverrides reads supported environment variables and overrides cfg
// in place, applied before flag parsing so flags always win ties.
func ApplyEnvOverrides(cfg *Config) {
	applyStringEnv("ROOT", func(v string) { cfg.RootDir = v })
	applyStringEnv("OUT", func(v string) { cfg.OutputDir = v })
	applyStringEnv("CURATED_METADATA", func(v string) { cfg.CuratedMetadata = v })
	applyStringEnv("AUTO_METADATA", func(v string) { cfg.AutoMetadata = v })
	applyStringEnv("FRAGMENT_DIR", func(v string) { cfg.FragmentOutputDir = v })
	applyStringEnv("ARCHIVE_DIR", func(v string) { cfg.ArchiveDir = v })
	applyStringEnv("ARCHIVE_DB", func(v string) { cfg.ArchiveDB = v })
	applyStringEnv("INVERT_CACHE", func(v string) { cfg.InvertCacheFile = v })
	applyStringEnv("SITE_URL", func(v string) { cfg.SiteURL = v })
	applyIntEnv("WORKERS", func(v int) { cfg.Workers = v })
	applyBoolEnv("CHECK", func(v bool) { cfg.CheckMode = v })
	applyBoolEnv("NO_PREVIEW", func(v bool) { cfg.NoPreview = v })
	applyIntEnv("MAX_NEW_ARCHIVES", func(v int) { cfg.MaxNewArchives = v })
	applyBoolEnv("WIKIPEDIA_CLIENT_SIDE", func(v bool) { cfg.WikipediaClientSide = v })
	applyBoolEnv("SUFFIX_DROP_ONE", func(v bool) { cfg.SuffixDropOne = v })
	applyBoolEnv("HIDDEN", func(v bool) { cfg.IncludeHidden = v })
	applyBoolEnv("VERBOSE", func(v bool) { cfg.Verbose = v })
}

func applyStringEnv(key string, apply func(string)) {
	if raw, ok := lookupNonEmpty(key); ok {
		apply(raw)
	}
}

func applyIntEnv(key string, apply func(int)) {
	if raw, ok := lookupNonEmpty(key); ok {
		if value, err := strconv.Atoi(raw); err == nil {
			apply(value)
		}
	}
}

func applyBoolEnv(key string, apply func(bool)) {
	if raw, ok := lookupNonEmpty(key); ok {
		if value, err := strconv.ParseBool(raw); err == nil {
			apply(value)
		}
	}
}

func lookupNonEmpty(key string) (string, bool) {
	raw, ok := os.LookupEnv(envPrefix + key)
	if !ok {
		return "", false
	}
	value := strings.TrimSpace(raw)
	if value == "" {
		return "", false
	}
	return value, true
}

// Finalize validates and normalizes paths, resolving every path field
// relative to RootDir's absolute form so the driver's subsystems never see
// a relative path whose meaning depends on the process's working directory.
func Finalize(cfg *Config) error {
	root, err := filepath.Abs(cfg.RootDir)
	if err != nil {
		return fmt.Errorf("resolve root directory: %w", err)
	}
	cfg.RootDir = root

	if cfg.Workers <= 0 {
		return fmt.Errorf("invalid worker count: %d", cfg.Workers)
	}
	if cfg.MaxNewArchives < 0 {
		return fmt.Errorf("invalid max-new-archives: %d", cfg.MaxNewArchives)
	}

	cfg.OutputDir = resolve(root, cfg.OutputDir)
	cfg.CuratedMetadata = resolve(root, cfg.CuratedMetadata)
	cfg.AutoMetadata = resolve(root, cfg.AutoMetadata)
	cfg.FragmentOutputDir = resolve(root, cfg.FragmentOutputDir)
	cfg.ArchiveDir = resolve(root, cfg.ArchiveDir)
	cfg.ArchiveDB = resolve(root, cfg.ArchiveDB)
	cfg.InvertCacheFile = resolve(root, cfg.InvertCacheFile)

	return nil
}

// SuffixMode translates the boolean flag into the identify package's
// SuffixMode, resolving the §9 open question about the "-1" disambiguation
// suffix.
func (c Config) SuffixMode() identify.SuffixMode {
	if c.SuffixDropOne {
		return identify.DropSuffixOne
	}
	return identify.KeepAllSuffixes
}

func resolve(root, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}
