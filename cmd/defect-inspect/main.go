package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/ironsheep/defect-inspect/internal/config"
	"github.com/ironsheep/defect-inspect/internal/pipeline"
	"github.com/ironsheep/defect-inspect/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Handle --version and -v flags before flag parsing so they work
	// without a positional argument.
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("defect-inspect %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		}
	}

	serve := flag.Bool("serve", false, "run as an MCP server on stdin/stdout instead of inspecting one file")
	output := flag.String("o", "", "annotated image output path (default: <input>.annotated.png)")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Usage = usage
	flag.Parse()

	// Logging goes to stderr; stdout carries findings JSON (one-shot
	// mode) or the RPC stream (--serve).
	log.SetOutput(os.Stderr)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	level := slog.LevelInfo
	if *debug || os.Getenv("DEFECT_LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	p := pipeline.New(cfg, logger)
	defer p.Close()

	if *serve {
		srv := server.New(p)
		if err := srv.Run(); err != nil {
			log.Fatalf("Server error: %v", err)
		}
		return
	}

	if flag.NArg() != 1 {
		usage()
		os.Exit(2)
	}

	if err := inspectFile(p, flag.Arg(0), *output); err != nil {
		log.Fatalf("Inspection failed: %v", err)
	}
}

// inspectFile runs the pipeline on one image file, writes the annotated
// image next to the input, and prints the ranked findings as JSON.
func inspectFile(p *pipeline.Pipeline, path, outputPath string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	result, err := p.Run(context.Background(), data)
	if err != nil {
		return err
	}

	if outputPath == "" {
		ext := filepath.Ext(path)
		outputPath = strings.TrimSuffix(path, ext) + ".annotated.png"
	}

	annotated, err := result.AnnotatedPNG()
	if err != nil {
		return fmt.Errorf("failed to encode annotated image: %w", err)
	}
	if err := os.WriteFile(outputPath, annotated, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", outputPath, err)
	}

	report := struct {
		Image     string             `json:"image"`
		Annotated string             `json:"annotated"`
		Width     int                `json:"width"`
		Height    int                `json:"height"`
		Findings  []pipeline.Finding `json:"findings"`
	}{
		Image:     path,
		Annotated: outputPath,
		Width:     result.Canonical.Bounds().Dx(),
		Height:    result.Canonical.Bounds().Dy(),
		Findings:  result.Findings(),
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}

func usage() {
	fmt.Fprintln(os.Stderr, "defect-inspect - surface defect detection for pipeline and building imagery")
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  defect-inspect [options] <image>   inspect one image (PNG, JPEG, GIF, BMP)")
	fmt.Fprintln(os.Stderr, "  defect-inspect --serve             run as MCP server on stdin/stdout")
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "Options:")
	flag.PrintDefaults()
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "Configuration is read from the environment (DEFECT_* variables) and an")
	fmt.Fprintln(os.Stderr, "optional .env file. DEFECT_MODEL_DIR points at the optional learned-model")
	fmt.Fprintln(os.Stderr, "artifacts (model.onnx, model.json, classes.txt); when absent the classical")
	fmt.Fprintln(os.Stderr, "detectors run alone.")
}
