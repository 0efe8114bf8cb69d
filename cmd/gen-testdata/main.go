// Copyright 2024 The logstore Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// gen-testdata writes a log store full of synthetic messages, for
// benchmarking and for poking at lgscat.
package main

import (
	"crypto/hmac"
	crand "crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/bpowers/logstore/internal/builder"
	"github.com/bpowers/logstore/internal/codec"
	"github.com/bpowers/logstore/internal/record"
)

const (
	messageIDKey = "d259c7f656caf7f1"
	suffixLen    = 16
)

var (
	hosts = []string{"web-1", "web-2", "db-1", "cache-1"}
	units = []string{"nginx.service", "postgresql.service", "redis.service", "sshd.service"}
)

type genOptions struct {
	out        string
	count      int
	codec      string
	keyFile    string
	seed       int64
	noCount    bool
	verbose    bool
	startEpoch int64
}

func newRand(seed int64) *rand.Rand {
	if seed == 0 {
		var seedBytes [8]byte
		_, _ = crand.Read(seedBytes[:])
		seed = int64(binary.LittleEndian.Uint64(seedBytes[:]))
	}
	return rand.New(rand.NewSource(seed))
}

func parseCodec(name string) (codec.Codec, error) {
	for _, c := range []codec.Codec{codec.None, codec.Snappy, codec.Zstd} {
		if strings.EqualFold(name, c.String()) {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown codec %q", name)
}

func main() {
	var opts genOptions
	cmd := &cobra.Command{
		Use:          "gen-testdata -o FILE",
		Short:        "Write a log store of synthetic messages",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return generate(opts)
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&opts.out, "out", "o", "", "path of the store to write")
	flags.IntVarP(&opts.count, "count", "n", 1000000, "number of messages")
	flags.StringVar(&opts.codec, "codec", codec.None.String(), "record compression: none, snappy or zstd")
	flags.StringVar(&opts.keyFile, "key-file", "", "file holding a hex-encoded key to encrypt records with")
	flags.Int64Var(&opts.seed, "seed", 0, "random seed (0 picks one)")
	flags.BoolVar(&opts.noCount, "no-count", false, "leave the record count undeclared in the header")
	flags.Int64Var(&opts.startEpoch, "start", 1700000000, "unix time of the first message")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "log progress to stderr")
	_ = cmd.MarkFlagRequired("out")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func generate(opts genOptions) error {
	level := slog.LevelInfo
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	c, err := parseCodec(opts.codec)
	if err != nil {
		return err
	}
	builderOpts := []builder.Option{builder.WithCodec(c), builder.WithLogger(logger)}
	if opts.keyFile != "" {
		contents, err := os.ReadFile(opts.keyFile)
		if err != nil {
			return fmt.Errorf("os.ReadFile: %w", err)
		}
		key, err := hex.DecodeString(strings.TrimSpace(string(contents)))
		if err != nil {
			return fmt.Errorf("key file %q: %w", opts.keyFile, err)
		}
		builderOpts = append(builderOpts, builder.WithKey(key))
	}
	if opts.noCount {
		builderOpts = append(builderOpts, builder.WithoutRecordCount())
	}

	b, err := builder.New(opts.out, builderOpts...)
	if err != nil {
		return err
	}
	if err := fill(b, opts, logger); err != nil {
		_ = b.Abort()
		return err
	}
	return b.Finalize()
}

func fill(b *builder.Builder, opts genOptions, logger *slog.Logger) error {
	rng := newRand(opts.seed)
	h := hmac.New(sha256.New, []byte(messageIDKey))
	ts := time.Unix(opts.startEpoch, 0)

	for i := 0; i < opts.count; i++ {
		var buf [suffixLen / 2]byte
		if _, err := rng.Read(buf[:]); err != nil {
			return err
		}
		message := fmt.Sprintf("request %d handled: %x", i, buf)
		h.Reset()
		h.Write([]byte(message))
		ts = ts.Add(time.Duration(rng.Intn(1000)) * time.Millisecond)

		fields := []record.Field{
			record.String("MESSAGE", message),
			record.String("MESSAGE_ID", hex.EncodeToString(h.Sum(nil))[:32]),
			record.String("_HOSTNAME", hosts[rng.Intn(len(hosts))]),
			record.String("_SYSTEMD_UNIT", units[rng.Intn(len(units))]),
			record.Int("PRIORITY", int64(rng.Intn(8))),
			record.Int("_PID", int64(1000+rng.Intn(30000))),
			record.Time("_SOURCE_REALTIME_TIMESTAMP", ts),
		}
		if rng.Intn(10) == 0 {
			fields = append(fields, record.Bytes("COREDUMP_SIGNATURE", buf[:]))
		}
		if err := b.Put(ts, fields...); err != nil {
			return err
		}
		if (i+1)%100000 == 0 {
			logger.Debug("progress", "written", i+1)
		}
	}

	return nil
}
