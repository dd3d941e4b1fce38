// Command lagrange-cli drives a single Coordinator run from a JSON
// configuration file (or from flags, for the toy parameters) and prints
// the resulting RunRecord as JSON.
package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"time"

	"github.com/spf13/cobra"
	_ "go.uber.org/automaxprocs"

	"github.com/shardmesh/lagrange/internal/netsim"
	"github.com/shardmesh/lagrange/internal/wire"
	"github.com/shardmesh/lagrange/pkg/config"
	"github.com/shardmesh/lagrange/pkg/coordinator"
	"github.com/shardmesh/lagrange/pkg/group"
	"github.com/shardmesh/lagrange/pkg/party"
)

// fileConfig is the on-disk JSON shape; it mirrors config.Config but uses
// JSON-friendly primitives (decimal strings, hex seeds) in place of
// *big.Int and the wire's Scalar type.
type fileConfig struct {
	PrimeP      string `json:"prime_p"`
	OrderQ      string `json:"order_q"`
	GeneratorG  string `json:"generator_g"`
	EvalAt      string `json:"eval_at,omitempty"`
	N           int    `json:"n"`
	DeadlineMs  int    `json:"deadline_ms,omitempty"`
	TestMode    bool   `json:"test_mode"`
	SeedHex     string `json:"seed_hex,omitempty"`
	Transcript  bool   `json:"capture_transcript,omitempty"`
	NetworkName string `json:"network_profile,omitempty"`
}

var (
	configPath    string
	toy           bool
	n             int
	profileArg    string
	deadline      time.Duration
	seedHex       string
	transcript    bool
	transcriptOut string
)

func main() {
	root := &cobra.Command{
		Use:   "lagrange-cli",
		Short: "Run the multi-party Lagrange interpolation protocol",
	}

	run := &cobra.Command{
		Use:   "run",
		Short: "Execute a single Coordinator run and print its RunRecord as JSON",
		RunE:  runOnce,
	}
	run.Flags().StringVarP(&configPath, "config", "c", "", "path to a JSON config file")
	run.Flags().BoolVar(&toy, "toy", false, "use the toy parameters (p=23, q=11, g=2) with deterministic test inputs")
	run.Flags().IntVarP(&n, "n", "n", 3, "number of participants (--toy mode only)")
	run.Flags().StringVar(&profileArg, "profile", "unlimited", "network profile: unlimited, lan, wan (--toy mode only)")
	run.Flags().DurationVar(&deadline, "deadline", 60*time.Second, "run deadline (--toy mode only)")
	run.Flags().StringVar(&seedHex, "seed", "", "hex seed for deterministic test inputs (--toy mode only)")
	run.Flags().BoolVar(&transcript, "transcript", false, "capture a debug transcript of every frame sent (--toy mode only)")
	run.Flags().StringVar(&transcriptOut, "transcript-out", "", "write the captured transcript as CBOR to this path")

	root.AddCommand(run)
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "lagrange-cli: %v\n", err)
		os.Exit(1)
	}
}

func runOnce(cmd *cobra.Command, args []string) error {
	var cfg *config.Config
	switch {
	case configPath != "":
		loaded, err := loadConfig(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	case toy:
		cfg = toyConfig()
	default:
		return fmt.Errorf("either --config or --toy must be given")
	}

	rec, err := coordinator.Run(context.Background(), cfg)
	if err != nil {
		return fmt.Errorf("coordinator: %w", err)
	}

	out, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal run record: %w", err)
	}
	fmt.Println(string(out))

	if transcriptOut != "" {
		if len(rec.Transcript) == 0 {
			return fmt.Errorf("--transcript-out given but no transcript was captured: pass --transcript or set capture_transcript in the config file")
		}
		data, err := wire.MarshalEntriesCBOR(rec.Transcript)
		if err != nil {
			return fmt.Errorf("marshal transcript: %w", err)
		}
		if err := os.WriteFile(transcriptOut, data, 0o644); err != nil {
			return fmt.Errorf("write transcript: %w", err)
		}
		fmt.Fprintf(os.Stderr, "transcript written to %s (%d entries)\n", transcriptOut, len(rec.Transcript))
	}

	if !rec.OK {
		return fmt.Errorf("run did not succeed: %s", rec.ErrorKind)
	}
	return nil
}

func toyConfig() *config.Config {
	var seed []byte
	if seedHex != "" {
		seed, _ = hex.DecodeString(seedHex)
	}
	return &config.Config{
		PrimeP:            group.ToyParams().P(),
		OrderQ:            group.ToyParams().Q(),
		GeneratorG:        big.NewInt(2),
		N:                 n,
		Profile:           parseProfile(profileArg),
		DeadlineMs:        int(deadline / time.Millisecond),
		TestMode:          true,
		Seed:              seed,
		CaptureTranscript: transcript,
	}
}

func parseProfile(name string) netsim.Profile {
	switch name {
	case "lan":
		return netsim.LAN
	case "wan":
		return netsim.WAN
	default:
		return netsim.Unlimited
	}
}

func loadConfig(path string) (*config.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var fc fileConfig
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	p, ok := new(big.Int).SetString(fc.PrimeP, 10)
	if !ok {
		return nil, fmt.Errorf("invalid prime_p %q", fc.PrimeP)
	}
	q, ok := new(big.Int).SetString(fc.OrderQ, 10)
	if !ok {
		return nil, fmt.Errorf("invalid order_q %q", fc.OrderQ)
	}
	g, ok := new(big.Int).SetString(fc.GeneratorG, 10)
	if !ok {
		return nil, fmt.Errorf("invalid generator_g %q", fc.GeneratorG)
	}

	var evalAt *big.Int
	if fc.EvalAt != "" {
		evalAt, ok = new(big.Int).SetString(fc.EvalAt, 10)
		if !ok {
			return nil, fmt.Errorf("invalid eval_at %q", fc.EvalAt)
		}
	}

	var seed []byte
	if fc.SeedHex != "" {
		decoded, err := hex.DecodeString(fc.SeedHex)
		if err != nil {
			return nil, fmt.Errorf("invalid seed_hex: %w", err)
		}
		seed = decoded
	}

	cfg := &config.Config{
		PrimeP:            p,
		OrderQ:            q,
		GeneratorG:        g,
		EvalAt:            evalAt,
		N:                 fc.N,
		Profile:           parseProfile(fc.NetworkName),
		DeadlineMs:        fc.DeadlineMs,
		TestMode:          fc.TestMode,
		Seed:              seed,
		CaptureTranscript: fc.Transcript,
	}
	if !fc.TestMode {
		cfg.Inputs = make(map[party.ID]party.PrivatePoint, fc.N)
	}
	return cfg, nil
}
