package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/jldailey/suba"
)

func cmdRender(argv []string) {
	fs := pflag.NewFlagSet("render", pflag.ExitOnError)
	root := fs.StringP("root", "r", ".", "base directory for the template and its includes")
	argsFile := fs.StringP("args", "a", "", "YAML file with the template argument map")
	output := fs.StringP("output", "o", "", "write output to this file instead of stdout")
	encoding := fs.String("encoding", "", "source charset (IANA name, default UTF-8)")
	strip := fs.Bool("strip-whitespace", false, "collapse whitespace after newlines in literal text")
	skipCache := fs.Bool("no-cache", false, "force a recompile")
	logLevel := fs.String("log-level", "info", "log level (debug, info, warn, error)")
	logJSON := fs.Bool("log-json", false, "log as JSON")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: suba render [flags] <template>\n\nFlags:\n%s", fs.FlagUsages())
	}
	_ = fs.Parse(argv)

	if fs.NArg() < 1 {
		fs.Usage()
		os.Exit(1)
	}

	logger, err := buildLogger(*logLevel, *logJSON)
	if err != nil {
		fmt.Fprintf(os.Stderr, "suba: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	args := map[string]any{}
	if *argsFile != "" {
		data, err := os.ReadFile(*argsFile)
		if err != nil {
			logger.Fatal("reading args file", zap.Error(err))
		}
		if err := yaml.Unmarshal(data, &args); err != nil {
			logger.Fatal("parsing args file", zap.String("file", *argsFile), zap.Error(err))
		}
	}

	out := os.Stdout
	if *output != "" {
		f, err := os.Create(*output)
		if err != nil {
			logger.Fatal("creating output file", zap.Error(err))
		}
		defer f.Close()
		out = f
	}

	template := fs.Arg(0)
	logger.Debug("rendering",
		zap.String("template", template),
		zap.String("root", *root),
		zap.Int("args", len(args)))

	stream, err := suba.Render(suba.Options{
		Filename:        template,
		Root:            *root,
		StripWhitespace: *strip,
		Encoding:        *encoding,
		SkipCache:       *skipCache,
		Args:            args,
	})
	if err != nil {
		logger.Fatal("compile failed", zap.String("template", template), zap.Error(err))
	}

	w := bufio.NewWriter(out)
	for stream.Scan() {
		if _, err := w.WriteString(stream.Text()); err != nil {
			logger.Fatal("writing output", zap.Error(err))
		}
	}
	if err := stream.Err(); err != nil {
		logger.Fatal("render failed", zap.String("template", template), zap.Error(err))
	}
	if err := w.Flush(); err != nil {
		logger.Fatal("writing output", zap.Error(err))
	}
}
