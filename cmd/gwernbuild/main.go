// Package main provides the gwernbuild CLI: loads the annotation and
// archive stores, runs the rewrite pipeline over a source corpus, and
// writes annotation fragments.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/gwern/gwernbuild/internal/buildinfo"
	"github.com/gwern/gwernbuild/internal/config"
	"github.com/gwern/gwernbuild/internal/pipeline"
)

func main() {
	cfg := config.Default()
	config.ApplyEnvOverrides(&cfg)

	flags := pflag.NewFlagSet("gwernbuild", pflag.ExitOnError)
	config.RegisterFlags(flags, &cfg)
	showVersion := flags.Bool("version", false, "print version information and exit")

	if err := flags.Parse(os.Args[1:]); err != nil {
		slog.Error("flag parsing failed", slog.Any("err", err))
		os.Exit(1)
	}

	if *showVersion {
		os.Stdout.WriteString(buildinfo.Summary() + "\n")
		return
	}

	if err := config.Finalize(&cfg); err != nil {
		slog.Error("invalid configuration", slog.Any("err", err))
		os.Exit(1)
	}

	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	logger.Info("starting gwernbuild", slog.String("version", buildinfo.Summary()), slog.String("root", cfg.RootDir))

	ctx := context.Background()
	report, err := pipeline.Run(ctx, pipeline.Config{
		SourceRoot:          cfg.RootDir,
		OutputDir:           cfg.OutputDir,
		CuratedMetadata:     cfg.CuratedMetadata,
		AutoMetadata:        cfg.AutoMetadata,
		FragmentOutputDir:   cfg.FragmentOutputDir,
		ArchiveDir:          cfg.ArchiveDir,
		ArchiveDB:           cfg.ArchiveDB,
		InvertCacheFile:     cfg.InvertCacheFile,
		SiteURL:             cfg.SiteURL,
		Workers:             cfg.Workers,
		CheckMode:           cfg.CheckMode,
		NoPreview:           cfg.NoPreview,
		MaxNewArchives:      cfg.MaxNewArchives,
		WikipediaClientSide: cfg.WikipediaClientSide,
		SuffixMode:          cfg.SuffixMode(),
		IncludeHidden:       cfg.IncludeHidden,
		Logger:              logger,
	})
	if err != nil {
		logger.Error("build failed", slog.Any("err", err))
		os.Exit(1)
	}

	logger.Info("build succeeded",
		slog.Int("documents", report.DocumentsProcessed),
		slog.Int("annotations_created", report.AnnotationsCreated),
		slog.Int("archives_created", report.ArchivesCreated),
		slog.Int("fragments_written", report.FragmentsWritten),
	)
}
