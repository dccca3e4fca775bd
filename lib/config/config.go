// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// EnvironmentVariable names the scenario file when no --config flag is
// given.
const EnvironmentVariable = "XDM_CONFIG"

// Mode selects the API the scenario exercises.
type Mode string

const (
	// ModeSocket sends each message as a raw string and expects it
	// echoed back.
	ModeSocket Mode = "socket"

	// ModeRPC calls the guest's "echo" method once per message.
	ModeRPC Mode = "rpc"
)

// Behavior names an element inserted between the queue and the
// transport.
type Behavior string

const (
	BehaviorVerify   Behavior = "verify"
	BehaviorEncrypt  Behavior = "encrypt"
	BehaviorCompress Behavior = "compress"
)

// Origin field modes accepted by DocumentConfig.OriginMode.
var originModes = []string{"origin", "uri", "domain"}

// Compression algorithms accepted by BehaviorConfig.Algorithm.
var algorithms = []string{"", "auto", "none", "lz4", "zstd"}

// Scenario describes one xdm-sim run: a host document that embeds a
// guest document and exchanges messages with it.
type Scenario struct {
	// Mode is either "socket" or "rpc".
	Mode Mode `yaml:"mode" json:"mode" toml:"mode"`

	// Channel names the connection.
	Channel string `yaml:"channel" json:"channel" toml:"channel"`

	Host  DocumentConfig `yaml:"host" json:"host" toml:"host"`
	Guest DocumentConfig `yaml:"guest" json:"guest" toml:"guest"`

	// Messages are sent by the host in order.
	Messages []string `yaml:"messages" json:"messages" toml:"messages"`

	// Behaviors are stacked top first on both sides.
	Behaviors []BehaviorConfig `yaml:"behaviors" json:"behaviors" toml:"behaviors"`

	// KeyFile holds the hex master key for verify and encrypt
	// behaviors. "-" reads standard input. When empty a random key is
	// generated for the run.
	KeyFile string `yaml:"key_file" json:"key_file" toml:"key_file"`

	// IdentityFile, when set, holds the age identities that unwrap
	// KeyFile. KeyFile is then an age-encrypted key rather than hex.
	IdentityFile string `yaml:"identity_file" json:"identity_file" toml:"identity_file"`

	// MaxLength fragments messages longer than this many bytes. Zero
	// disables fragmenting.
	MaxLength int `yaml:"max_length" json:"max_length" toml:"max_length"`

	// HandshakeTimeout bounds the host's wait for the guest, as a
	// time.ParseDuration string. Empty waits forever.
	HandshakeTimeout string `yaml:"handshake_timeout" json:"handshake_timeout" toml:"handshake_timeout"`

	// Timeout bounds the whole run.
	Timeout string `yaml:"timeout" json:"timeout" toml:"timeout"`
}

// DocumentConfig describes one simulated document.
type DocumentConfig struct {
	// URL is the document's address.
	URL string `yaml:"url" json:"url" toml:"url"`

	// OriginMode selects which origin field the document's inbound
	// message events carry: "origin", "uri" or "domain".
	OriginMode string `yaml:"origin_mode" json:"origin_mode" toml:"origin_mode"`
}

// BehaviorConfig configures one behavior element.
type BehaviorConfig struct {
	Name Behavior `yaml:"name" json:"name" toml:"name"`

	// Algorithm selects the compression algorithm for the compress
	// behavior: "auto", "none", "lz4" or "zstd".
	Algorithm string `yaml:"algorithm" json:"algorithm" toml:"algorithm"`

	// MinSize is the smallest message the compress behavior
	// compresses.
	MinSize int `yaml:"min_size" json:"min_size" toml:"min_size"`
}

// Default returns a scenario that echoes two messages over a plain
// socket between two origins.
func Default() *Scenario {
	return &Scenario{
		Mode:    ModeSocket,
		Channel: "xdm1",
		Host: DocumentConfig{
			URL:        "http://host.example/index.html",
			OriginMode: "origin",
		},
		Guest: DocumentConfig{
			URL:        "http://guest.example/frame.html",
			OriginMode: "origin",
		},
		Messages:         []string{"hello", "world"},
		HandshakeTimeout: "5s",
		Timeout:          "10s",
	}
}

// Load loads the scenario named by the XDM_CONFIG environment
// variable. There is no fallback when it is unset.
func Load() (*Scenario, error) {
	path := os.Getenv(EnvironmentVariable)
	if path == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of a scenario file, or use --config flag", EnvironmentVariable)
	}
	return LoadFile(path)
}

// LoadFile loads the scenario at path over the defaults.
func LoadFile(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	scenario := Default()
	if err := scenario.decode(filepath.Ext(path), data); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return scenario, nil
}

func (s *Scenario) decode(extension string, data []byte) error {
	switch strings.ToLower(extension) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, s)
	case ".json", ".jsonc":
		return json.Unmarshal(jsonc.ToJSON(data), s)
	case ".toml":
		meta, err := toml.Decode(string(data), s)
		if err != nil {
			return err
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return fmt.Errorf("unknown keys: %v", undecoded)
		}
		return nil
	default:
		return fmt.Errorf("unsupported scenario file extension %q (want .yaml, .yml, .json, .jsonc or .toml)", extension)
	}
}

// HandshakeTimeoutDuration returns the parsed handshake timeout. An
// empty value is zero.
func (s *Scenario) HandshakeTimeoutDuration() (time.Duration, error) {
	return parseDuration("handshake_timeout", s.HandshakeTimeout)
}

// TimeoutDuration returns the parsed run timeout.
func (s *Scenario) TimeoutDuration() (time.Duration, error) {
	return parseDuration("timeout", s.Timeout)
}

// NeedsKey reports whether any configured behavior needs key material.
func (s *Scenario) NeedsKey() bool {
	for _, behavior := range s.Behaviors {
		if behavior.Name == BehaviorVerify || behavior.Name == BehaviorEncrypt {
			return true
		}
	}
	return false
}

func parseDuration(field, value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	if duration < 0 {
		return 0, fmt.Errorf("%s must not be negative", field)
	}
	return duration, nil
}

// Validate checks the scenario for errors. All problems are reported
// together.
func (s *Scenario) Validate() error {
	var errs []error

	if s.Mode != ModeSocket && s.Mode != ModeRPC {
		errs = append(errs, fmt.Errorf("mode must be one of: %v", []Mode{ModeSocket, ModeRPC}))
	}

	if s.Channel == "" {
		errs = append(errs, errors.New("channel is required"))
	} else if strings.ContainsAny(s.Channel, " \t\r\n") {
		errs = append(errs, errors.New("channel must not contain whitespace"))
	}

	errs = append(errs, s.Host.validate("host")...)
	errs = append(errs, s.Guest.validate("guest")...)
	if host, guest := documentOf(s.Host.URL), documentOf(s.Guest.URL); host != "" && host == guest {
		errs = append(errs, errors.New("host.url and guest.url must name different documents"))
	}

	if len(s.Messages) == 0 {
		errs = append(errs, errors.New("messages must not be empty"))
	}

	for i, behavior := range s.Behaviors {
		switch behavior.Name {
		case BehaviorVerify, BehaviorEncrypt:
		case BehaviorCompress:
			if !contains(algorithms, behavior.Algorithm) {
				errs = append(errs, fmt.Errorf("behaviors[%d].algorithm must be one of: %v", i, algorithms[1:]))
			}
		default:
			errs = append(errs, fmt.Errorf("behaviors[%d].name %q is not a known behavior", i, behavior.Name))
		}
		if behavior.MinSize < 0 {
			errs = append(errs, fmt.Errorf("behaviors[%d].min_size must not be negative", i))
		}
	}

	if s.IdentityFile != "" && s.KeyFile == "" {
		errs = append(errs, errors.New("identity_file requires key_file"))
	}

	if s.MaxLength < 0 {
		errs = append(errs, errors.New("max_length must not be negative"))
	}

	if _, err := s.HandshakeTimeoutDuration(); err != nil {
		errs = append(errs, err)
	}
	if timeout, err := s.TimeoutDuration(); err != nil {
		errs = append(errs, err)
	} else if timeout == 0 {
		errs = append(errs, errors.New("timeout is required"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

func (d DocumentConfig) validate(field string) []error {
	var errs []error
	parsed, err := url.Parse(d.URL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		errs = append(errs, fmt.Errorf("%s.url must be an absolute URL, got %q", field, d.URL))
	}
	if !contains(originModes, d.OriginMode) {
		errs = append(errs, fmt.Errorf("%s.origin_mode must be one of: %v", field, originModes))
	}
	return errs
}

// documentOf returns the URL without its query and fragment, or "" if
// it does not parse.
func documentOf(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	parsed.RawQuery = ""
	parsed.Fragment = ""
	return strings.ToLower(parsed.Scheme) + "://" + strings.ToLower(parsed.Host) + parsed.EscapedPath()
}

func contains(slice []string, s string) bool {
	for _, v := range slice {
		if v == s {
			return true
		}
	}
	return false
}
