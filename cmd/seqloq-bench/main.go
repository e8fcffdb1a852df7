package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/lmittmann/tint"

	"github.com/CreditWorthy/seqloq"
)

var exitFunc = os.Exit
var stderr io.Writer = os.Stderr

const defaultSamples = 10_000

type benchConfig struct {
	name    string
	mode    seqloq.BenchMode
	newLock func() seqloq.TestableLock
}

// benchConfigs returns the eight benchmark runs: each sound lock, timed
// from the reader side and from the writer side. Names become
// <out>/<name>.dat.
func benchConfigs() []benchConfig {
	locks := []struct {
		name    string
		newLock func() seqloq.TestableLock
	}{
		{"mutex", func() seqloq.TestableLock { return seqloq.NewMutexLock() }},
		{"rwlock", func() seqloq.TestableLock { return seqloq.NewRWMutexLock() }},
		{"seqloq", func() seqloq.TestableLock { return seqloq.NewSnapshotLock() }},
		{"seqloq-peek", func() seqloq.TestableLock { return seqloq.NewPeekLock() }},
	}

	var configs []benchConfig
	for _, l := range locks {
		configs = append(configs, benchConfig{l.name + "_read", seqloq.BenchReader, l.newLock})
	}
	for _, l := range locks {
		configs = append(configs, benchConfig{l.name + "_write", seqloq.BenchWriter, l.newLock})
	}
	return configs
}

func main() {
	outDir := flag.String("out", "target", "directory for .dat sample files")
	samples := flag.Int("samples", defaultSamples, "timed samples per configuration")
	flag.Parse()

	logger := slog.New(tint.NewHandler(stderr, &tint.Options{
		Level:      slog.LevelInfo,
		TimeFormat: "15:04:05",
	}))

	if err := run(logger, *outDir, *samples); err != nil {
		logger.Error("benchmark failed", "err", err)
		exitFunc(1)
		return
	}
}

func run(logger *slog.Logger, outDir string, samples int) error {
	if samples <= 0 {
		return fmt.Errorf("seqloq-bench: samples must be positive, got %d", samples)
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return fmt.Errorf("seqloq-bench: create %s: %w", outDir, err)
	}

	// Infrequent writers, demanding readers.
	writers := seqloq.DefaultThreadSpec()
	writers.Qty = 3
	readers := seqloq.DefaultThreadSpec()
	readers.Qty = 200
	readers.Pause = 0

	for _, c := range benchConfigs() {
		start := time.Now()
		out := make([]int64, 0, samples)
		req := &seqloq.BenchRequest{
			Mode:       c.mode,
			NumSamples: samples,
			Samples:    &out,
		}
		if err := seqloq.ReaderWriterTest(c.newLock(), readers, writers, req, false); err != nil {
			return fmt.Errorf("seqloq-bench: %s: %w", c.name, err)
		}

		path := filepath.Join(outDir, c.name+".dat")
		if err := writeSamples(path, out); err != nil {
			return err
		}
		logger.Info("configuration done",
			"name", c.name,
			"mode", c.mode,
			"samples", len(out),
			"elapsed", time.Since(start))
	}

	return nil
}

// writeSamples emits one nanosecond count per line.
func writeSamples(path string, samples []int64) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("seqloq-bench: create %s: %w", path, err)
	}

	w := bufio.NewWriter(f)
	for _, s := range samples {
		if _, writeErr := w.WriteString(strconv.FormatInt(s, 10) + "\n"); writeErr != nil {
			closeErr := f.Close()
			return errors.Join(
				fmt.Errorf("seqloq-bench: write %s: %w", path, writeErr),
				closeErr,
			)
		}
	}
	if flushErr := w.Flush(); flushErr != nil {
		closeErr := f.Close()
		return errors.Join(
			fmt.Errorf("seqloq-bench: flush %s: %w", path, flushErr),
			closeErr,
		)
	}

	if closeErr := f.Close(); closeErr != nil {
		return fmt.Errorf("seqloq-bench: close %s: %w", path, closeErr)
	}
	return nil
}
