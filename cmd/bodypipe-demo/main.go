// Program bodypipe-demo serves streaming HTTP responses produced through
// bodypipe channels, along with the channel metrics.
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var rootCmd = &cobra.Command{
	Use:   "bodypipe-demo",
	Short: "Streaming HTTP bodies over bounded chunk channels",
}

var serveArgs struct {
	addr      string
	capacity  int
	chunkSize int
	logLevel  string
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "serve /stream and /metrics",
	Example: `  bodypipe-demo serve --addr :8080 --capacity 8
  curl -N 'localhost:8080/stream?lines=20&delay=100ms'
  curl -N 'localhost:8080/stream?lines=20&fail=10'`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := newConfig(serveArgs.addr, serveArgs.capacity, serveArgs.chunkSize, serveArgs.logLevel)
		if err != nil {
			return err
		}
		return runServe(cmd.Context(), cfg, os.Stderr)
	},
}

func init() {
	setupServeFlags(serveCmd.Flags())
	rootCmd.AddCommand(serveCmd)
}

func setupServeFlags(f *pflag.FlagSet) {
	f.StringVar(&serveArgs.addr, "addr", envString("BODYPIPE_ADDR", "localhost:8080"), "listen address ($BODYPIPE_ADDR)")
	f.IntVar(&serveArgs.capacity, "capacity", envInt("BODYPIPE_CAPACITY", 4), "chunks buffered per response ($BODYPIPE_CAPACITY)")
	f.IntVar(&serveArgs.chunkSize, "chunk-size", envInt("BODYPIPE_CHUNK_SIZE", 512), "bytes per chunk ($BODYPIPE_CHUNK_SIZE)")
	f.StringVar(&serveArgs.logLevel, "log-level", envString("BODYPIPE_LOG_LEVEL", "info"), "debug, info, warn or error ($BODYPIPE_LOG_LEVEL)")
}

func envString(name, def string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return def
}

func envInt(name string, def int) int {
	v := os.Getenv(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ignoring %s=%q: %v\n", name, v, err)
		return def
	}
	return n
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
