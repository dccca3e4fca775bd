// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bureau-foundation/xdm/lib/clock"
	"github.com/bureau-foundation/xdm/lib/config"
	"github.com/bureau-foundation/xdm/lib/eventloop"
	"github.com/bureau-foundation/xdm/lib/process"
	"github.com/bureau-foundation/xdm/lib/sealed"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

// runCommand runs the command with XDM_CONFIG cleared and returns its
// stdout and stderr.
func runCommand(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv(config.EnvironmentVariable, "")
	var stdout, stderr bytes.Buffer
	err := run(args, &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func requireLines(t *testing.T, output string, want ...string) {
	t.Helper()
	got := strings.Split(strings.TrimRight(output, "\n"), "\n")
	if len(got) != len(want) {
		t.Fatalf("got %d lines %q, want %q", len(got), got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestRunDefaultScenario(t *testing.T) {
	stdout, _, err := runCommand(t)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	requireLines(t, stdout,
		"reply 1 from http://guest.example: hello",
		"reply 2 from http://guest.example: world",
	)
}

func TestRunRPCWithBehaviors(t *testing.T) {
	long := strings.Repeat("fragmented and compressed ", 20)
	path := writeFile(t, "scenario.yaml", `
mode: rpc
channel: layered
host:
  url: https://app.example/index.html
guest:
  url: https://widget.example/frame.html
messages:
  - short
  - "`+long+`"
behaviors:
  - name: verify
  - name: compress
    algorithm: zstd
    min_size: 32
  - name: encrypt
max_length: 48
`)

	stdout, _, err := runCommand(t, "--config", path)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	requireLines(t, stdout,
		"reply 1 from https://widget.example: short",
		"reply 2 from https://widget.example: "+long,
	)
}

func TestRunKeyFileFromFlag(t *testing.T) {
	key := writeFile(t, "master.key", strings.Repeat("ab", 32)+"\n")
	path := writeFile(t, "scenario.jsonc", `{
  // Tags every message with a key both sides load from disk.
  "channel": "tagged",
  "messages": ["one"],
  "behaviors": [{"name": "verify"}],
  "key_file": "/nonexistent/key",
}`)

	stdout, _, err := runCommand(t, "--config", path, "--key-file", key)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	requireLines(t, stdout, "reply 1 from http://guest.example: one")
}

func TestRunMissingKeyFile(t *testing.T) {
	path := writeFile(t, "scenario.yaml", `
behaviors:
  - name: encrypt
key_file: /nonexistent/key
`)
	_, _, err := runCommand(t, "--config", path)
	if err == nil || !strings.Contains(err.Error(), "reading key file") {
		t.Fatalf("expected key file error, got %v", err)
	}
}

func TestRunLegacyOriginFields(t *testing.T) {
	for _, mode := range []string{"uri", "domain"} {
		t.Run(mode, func(t *testing.T) {
			path := writeFile(t, "scenario.yaml", `
host:
  url: http://host.example/index.html
  origin_mode: `+mode+`
guest:
  url: http://guest.example/frame.html
  origin_mode: `+mode+`
messages: [legacy]
`)
			stdout, _, err := runCommand(t, "--config", path)
			if err != nil {
				t.Fatalf("run: %v", err)
			}
			requireLines(t, stdout, "reply 1 from http://guest.example: legacy")
		})
	}
}

func TestRunScenarioFromEnvironment(t *testing.T) {
	path := writeFile(t, "scenario.yml", "messages: [from-env]\n")
	var stdout, stderr bytes.Buffer
	t.Setenv(config.EnvironmentVariable, path)
	if err := run(nil, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v", err)
	}
	requireLines(t, stdout.String(), "reply 1 from http://guest.example: from-env")
}

func TestRunFlagOverrides(t *testing.T) {
	stdout, _, err := runCommand(t, "--mode", "rpc", "--channel", "override")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	requireLines(t, stdout,
		"reply 1 from http://guest.example: hello",
		"reply 2 from http://guest.example: world",
	)

	_, _, err = runCommand(t, "--channel", "has space")
	if err == nil || !strings.Contains(err.Error(), "channel must not contain whitespace") {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRunVerboseLogsHandshake(t *testing.T) {
	_, stderr, err := runCommand(t, "-v")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(stderr, `"level":"DEBUG"`) {
		t.Errorf("expected debug output with --verbose, got:\n%s", stderr)
	}
	if !strings.Contains(stderr, "all replies received") {
		t.Errorf("expected completion log, got:\n%s", stderr)
	}
}

func TestRunVersionAndHelp(t *testing.T) {
	stdout, _, err := runCommand(t, "--version")
	if err != nil {
		t.Fatalf("--version: %v", err)
	}
	if !strings.HasPrefix(stdout, "xdm-sim ") {
		t.Errorf("--version printed %q", stdout)
	}

	stdout, stderr, err := runCommand(t, "--help")
	if err != nil {
		t.Fatalf("--help: %v", err)
	}
	if stdout != "" || !strings.Contains(stderr, "--key-file") {
		t.Errorf("--help wrote stdout %q, stderr %q", stdout, stderr)
	}
}

func TestRunUsageErrors(t *testing.T) {
	for _, args := range [][]string{{"--no-such-flag"}, {"extra"}} {
		_, _, err := runCommand(t, args...)
		if process.ExitCode(err) != process.ExitUsage {
			t.Errorf("run(%q) = %v, want usage error", args, err)
		}
	}
}

func TestSimulateStopsAtDeadline(t *testing.T) {
	scenario := config.Default()
	scenario.Timeout = "1ns"

	var out bytes.Buffer
	err := simulate(context.Background(), eventloop.New(clock.Real()), scenario, nil,
		slog.New(slog.DiscardHandler), newReplyPrinter(&out))
	if !errors.Is(err, errTimedOut) {
		t.Fatalf("simulate = %v, want %v", err, errTimedOut)
	}
	if out.Len() != 0 {
		t.Errorf("unexpected replies: %q", out.String())
	}
}

func TestSimulateCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := simulate(ctx, eventloop.New(clock.Real()), config.Default(), nil,
		slog.New(slog.DiscardHandler), newReplyPrinter(&bytes.Buffer{}))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("simulate = %v, want context.Canceled", err)
	}
}

func TestSimulateWithoutKey(t *testing.T) {
	scenario := config.Default()
	scenario.Behaviors = []config.BehaviorConfig{{Name: config.BehaviorVerify}}

	err := simulate(context.Background(), eventloop.New(clock.Real()), scenario, nil,
		slog.New(slog.DiscardHandler), newReplyPrinter(&bytes.Buffer{}))
	if err == nil || !strings.Contains(err.Error(), "need a key") {
		t.Fatalf("simulate = %v, want missing key error", err)
	}
}

func TestGenerateKeyHex(t *testing.T) {
	stdout, _, err := runCommand(t, "--generate-key")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	encoded := strings.TrimSpace(stdout)
	if len(encoded) != 64 {
		t.Fatalf("generated key %q is not 32 hex bytes", encoded)
	}

	// The printed key is usable as a key file.
	key := writeFile(t, "master.key", stdout)
	path := writeFile(t, "scenario.yaml", "messages: [hex]\nbehaviors: [{name: encrypt}]\n")
	stdout, _, err = runCommand(t, "--config", path, "--key-file", key)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	requireLines(t, stdout, "reply 1 from http://guest.example: hex")
}

func TestWrappedKeyRoundTrip(t *testing.T) {
	identity, err := sealed.GenerateIdentity()
	if err != nil {
		t.Fatalf("GenerateIdentity: %v", err)
	}
	wrapped, _, err := runCommand(t, "--generate-key", "--recipient", identity.Recipient)
	if err != nil {
		t.Fatalf("--generate-key: %v", err)
	}
	if !strings.HasPrefix(wrapped, "-----BEGIN AGE ENCRYPTED FILE-----") {
		t.Fatalf("wrapped key is not armored: %q", wrapped)
	}

	keyPath := writeFile(t, "master.age", wrapped)
	identityPath := writeFile(t, "identity.txt", identity.Secret+"\n")
	scenarioPath := writeFile(t, "scenario.yaml", `
messages: [wrapped]
behaviors:
  - name: verify
  - name: encrypt
identity_file: `+identityPath+`
`)
	stdout, _, err := runCommand(t, "--config", scenarioPath, "--key-file", keyPath)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	requireLines(t, stdout, "reply 1 from http://guest.example: wrapped")

	// A file holding no identity cannot unwrap it.
	_, _, err = runCommand(t, "--config", scenarioPath, "--key-file", keyPath, "--identity", writeFile(t, "other.txt", "garbage\n"))
	if err == nil {
		t.Fatal("expected unwrap failure with a bad identity file")
	}
}

func TestRecipientRequiresGenerateKey(t *testing.T) {
	_, _, err := runCommand(t, "--recipient", "age1xyz")
	if process.ExitCode(err) != process.ExitUsage {
		t.Fatalf("run = %v, want usage error", err)
	}
}
