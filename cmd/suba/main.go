package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "render":
		cmdRender(os.Args[2:])
	case "synth":
		cmdSynth(os.Args[2:])
	case "-h", "--help", "help":
		usage()
	default:
		// bare invocation: treat the first argument as a template file
		cmdRender(os.Args[1:])
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage:
  suba render [flags] <template>   render a template file to stdout
  suba synth <expression>          expand a selector expression to markup

Run "suba render --help" for render flags.
`)
}

// buildLogger constructs the CLI logger: human-readable to stderr,
// JSON when --log-json is set.
func buildLogger(level string, json bool) (*zap.Logger, error) {
	var cfg zap.Config
	if json {
		cfg = zap.NewProductionConfig()
		cfg.Encoding = "json"
	} else {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	return cfg.Build()
}
