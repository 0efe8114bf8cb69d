// Copyright 2024 The logstore Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// lgscat prints one field of every message in one or more log stores.
package main

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bpowers/logstore"
	"github.com/bpowers/logstore/internal/errs"
)

const metaField = "meta"

type catOptions struct {
	field   string
	all     bool
	keyFile string
	noMmap  bool
	verbose bool
}

func main() {
	err := newRootCommand(os.Stdout, os.Stderr).Execute()
	os.Exit(report(os.Stderr, err))
}

// report prints err, if any, and returns the process exit code: 1 for
// usage errors and 2 through 5 for IO, format, corruption and decode
// failures.
func report(w io.Writer, err error) int {
	if err == nil {
		return 0
	}
	_, _ = fmt.Fprintf(w, "lgscat: %v\n", err)
	switch errs.KindOf(err) {
	case errs.KindIO:
		return 2
	case errs.KindFormat:
		return 3
	case errs.KindCorruption:
		return 4
	case errs.KindDecode:
		return 5
	default:
		return 1
	}
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	var opts catOptions
	cmd := &cobra.Command{
		Use:           "lgscat [flags] files...",
		Short:         "Print the messages in log store files",
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			level := slog.LevelInfo
			if opts.verbose {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
			return run(stdout, logger, opts, args)
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	flags := cmd.Flags()
	flags.StringVarP(&opts.field, "field", "f", "MESSAGE", "field to print for each message")
	flags.BoolVarP(&opts.all, "all", "a", false, "also print every other field (except meta), indented")
	flags.StringVar(&opts.keyFile, "key-file", "", "file holding the hex-encoded key for encrypted stores")
	flags.BoolVar(&opts.noMmap, "no-mmap", false, "read stores through a buffered file instead of mmap")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "log store lifecycle events to stderr")

	return cmd
}

func readKey(path string) ([]byte, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("os.ReadFile: %w", err)
	}
	key, err := hex.DecodeString(strings.TrimSpace(string(contents)))
	if err != nil {
		return nil, fmt.Errorf("key file %q: %w", path, err)
	}
	return key, nil
}

func run(stdout io.Writer, logger *slog.Logger, opts catOptions, paths []string) error {
	storeOpts := []logstore.Option{
		logstore.WithLogger(logger),
		logstore.WithMmap(!opts.noMmap),
	}
	if opts.keyFile != "" {
		key, err := readKey(opts.keyFile)
		if err != nil {
			return err
		}
		storeOpts = append(storeOpts, logstore.WithKey(key))
	}

	w := bufio.NewWriter(stdout)
	defer func() {
		_ = w.Flush()
	}()

	kw := logstore.Intern(opts.field)
	for _, path := range paths {
		if err := cat(w, path, kw, opts.all, storeOpts); err != nil {
			return err
		}
	}

	return w.Flush()
}

func cat(w io.Writer, path string, kw logstore.Keyword, all bool, opts []logstore.Option) error {
	s, err := logstore.Open(path, opts...)
	if err != nil {
		return err
	}
	defer func() {
		_ = s.Close()
	}()

	for m, err := range s.All() {
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintln(w, m.Get(kw)); err != nil {
			return err
		}
		if !all {
			continue
		}
		for _, e := range m.Entries() {
			if e.Keyword == kw || e.Name == metaField {
				continue
			}
			if _, err := fmt.Fprintf(w, "  %s: %s\n", e.Name, e.Value); err != nil {
				return err
			}
		}
	}

	return nil
}
