// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// xdm-sim runs a cross-context messaging scenario on a simulated
// browser. A host document embeds a guest document in a frame, the two
// complete the channel handshake, and the host sends each configured
// message. The guest echoes every message back and the host prints the
// replies with their verified origin.
//
// The scenario file is named by --config or the XDM_CONFIG environment
// variable. Without either, a built-in two-message echo scenario runs.
package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/xdm/lib/clock"
	"github.com/bureau-foundation/xdm/lib/config"
	"github.com/bureau-foundation/xdm/lib/eventloop"
	"github.com/bureau-foundation/xdm/lib/process"
	"github.com/bureau-foundation/xdm/lib/sealed"
	"github.com/bureau-foundation/xdm/lib/secret"
	"github.com/bureau-foundation/xdm/lib/version"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		process.Fatal(err)
	}
}

type options struct {
	configPath   string
	keyFile      string
	identityFile string
	channel      string
	mode         string
	generateKey  bool
	recipients   []string
	verbose      bool
	version      bool
	help         bool
}

func run(args []string, stdout, stderr io.Writer) error {
	var opts options
	flagSet := pflag.NewFlagSet("xdm-sim", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.StringVarP(&opts.configPath, "config", "c", "", "scenario file (.yaml, .yml, .json, .jsonc, .toml); defaults to $XDM_CONFIG")
	flagSet.StringVar(&opts.keyFile, "key-file", "", "hex master key file for verify and encrypt behaviors (- for stdin); overrides key_file")
	flagSet.StringVarP(&opts.identityFile, "identity", "i", "", "age identity file; the key file is then age-encrypted; overrides identity_file")
	flagSet.BoolVar(&opts.generateKey, "generate-key", false, "print a new master key and exit (hex, or age-armored with --recipient)")
	flagSet.StringArrayVarP(&opts.recipients, "recipient", "r", nil, "age recipient for --generate-key (repeatable)")
	flagSet.StringVar(&opts.channel, "channel", "", "override the scenario's channel name")
	flagSet.StringVar(&opts.mode, "mode", "", "override the scenario's mode (socket or rpc)")
	flagSet.BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")
	flagSet.BoolVar(&opts.version, "version", false, "print version information and exit")
	flagSet.BoolVarP(&opts.help, "help", "h", false, "show help")

	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			printHelp(stderr, flagSet)
			return nil
		}
		return process.Usagef("%v", err)
	}
	if opts.help {
		printHelp(stderr, flagSet)
		return nil
	}
	if opts.version {
		fmt.Fprintf(stdout, "xdm-sim %s\n", version.Info())
		return nil
	}
	if rest := flagSet.Args(); len(rest) > 0 {
		return process.Usagef("unexpected argument: %s", rest[0])
	}
	if opts.generateKey {
		return generateKey(stdout, opts.recipients)
	}
	if len(opts.recipients) > 0 {
		return process.Usagef("--recipient requires --generate-key")
	}

	logger := newLogger(stderr, opts.verbose)

	scenario, err := loadScenario(opts)
	if err != nil {
		return err
	}

	var master *secret.Key
	if scenario.NeedsKey() {
		master, err = loadKey(scenario.KeyFile, scenario.IdentityFile, logger)
		if err != nil {
			return err
		}
		defer master.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("running scenario",
		"mode", scenario.Mode,
		"channel", scenario.Channel,
		"host", scenario.Host.URL,
		"guest", scenario.Guest.URL,
		"messages", len(scenario.Messages),
	)
	loop := eventloop.New(clock.Real())
	return simulate(ctx, loop, scenario, master, logger, newReplyPrinter(stdout))
}

// loadScenario loads the scenario from --config, then XDM_CONFIG,
// then the built-in default, and applies command-line overrides.
func loadScenario(opts options) (*config.Scenario, error) {
	var (
		scenario *config.Scenario
		err      error
	)
	switch {
	case opts.configPath != "":
		scenario, err = config.LoadFile(opts.configPath)
	case os.Getenv(config.EnvironmentVariable) != "":
		scenario, err = config.Load()
	default:
		scenario = config.Default()
	}
	if err != nil {
		return nil, fmt.Errorf("loading scenario: %w", err)
	}

	if opts.keyFile != "" {
		scenario.KeyFile = opts.keyFile
	}
	if opts.identityFile != "" {
		scenario.IdentityFile = opts.identityFile
	}
	if opts.channel != "" {
		scenario.Channel = opts.channel
	}
	if opts.mode != "" {
		scenario.Mode = config.Mode(opts.mode)
	}
	if err := scenario.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return scenario, nil
}

// loadKey reads the master key from path, unwrapping it with the
// identities at identityPath when one is given. Without a path a
// random key is generated for this run.
func loadKey(path, identityPath string, logger *slog.Logger) (*secret.Key, error) {
	var (
		key *secret.Key
		err error
	)
	switch {
	case path == "":
		logger.Debug("no key file configured, generating an ephemeral key")
		return secret.Generate()
	case identityPath != "":
		key, err = sealed.ReadKeyFile(path, identityPath)
	default:
		key, err = secret.ReadKeyFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading key file: %w", err)
	}
	return key, nil
}

// generateKey writes a new master key to w: hex without recipients,
// otherwise wrapped to every recipient.
func generateKey(w io.Writer, recipients []string) error {
	key, err := secret.Generate()
	if err != nil {
		return err
	}
	defer key.Close()

	if len(recipients) > 0 {
		wrapped, err := sealed.Wrap(key, recipients)
		if err != nil {
			return err
		}
		_, err = w.Write(wrapped)
		return err
	}
	material, err := key.Bytes()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, hex.EncodeToString(material))
	return err
}

func printHelp(w io.Writer, flagSet *pflag.FlagSet) {
	fmt.Fprintf(w, `xdm-sim - run a cross-context messaging scenario on a simulated browser

USAGE
    xdm-sim [flags]

The host document embeds the guest in a frame, completes the channel
handshake, and sends each scenario message. The guest echoes them back
and each reply is printed to stdout with the origin it was verified
against. The exit status is non-zero if the handshake fails or not
every message is answered before the scenario timeout.

EXAMPLES
    # Built-in echo scenario
    xdm-sim

    # Scenario file with authenticated, compressed messages
    xdm-sim --config scenarios/verified.yaml --key-file /run/xdm/key

    # Same scenario over the RPC layer with debug logging
    xdm-sim --config scenarios/verified.yaml --mode rpc -v

    # Distribute a master key wrapped to a machine's age recipient
    xdm-sim --generate-key --recipient age1... > master.age
    xdm-sim --config scenarios/verified.yaml --key-file master.age --identity identity.txt

FLAGS
`)
	flagSet.SetOutput(w)
	flagSet.PrintDefaults()
}
