// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bureau-foundation/xdm/behavior"
	"github.com/bureau-foundation/xdm/lib/codec"
	"github.com/bureau-foundation/xdm/lib/compress"
	"github.com/bureau-foundation/xdm/lib/config"
	"github.com/bureau-foundation/xdm/lib/eventloop"
	"github.com/bureau-foundation/xdm/lib/seal"
	"github.com/bureau-foundation/xdm/lib/secret"
	"github.com/bureau-foundation/xdm/lib/sim"
	"github.com/bureau-foundation/xdm/rpc"
	"github.com/bureau-foundation/xdm/socket"
	"github.com/bureau-foundation/xdm/stack"
)

// echoMethod is the method the guest serves in rpc mode.
const echoMethod = "echo"

var (
	errHandshakeFailed = errors.New("handshake with guest failed")
	errTimedOut        = errors.New("scenario timed out")
)

// simulation runs one scenario on a simulated browser. All fields
// except the constructor arguments are owned by the loop.
type simulation struct {
	scenario *config.Scenario
	master   *secret.Key
	logger   *slog.Logger
	out      *replyPrinter
	loop     *eventloop.Loop
	browser  *sim.Browser

	// stop ends the loop's Run.
	stop context.CancelFunc

	replies int
	failure error

	// teardown runs in reverse order once the loop has stopped.
	teardown []func()
}

// simulate runs scenario on loop until every message has been answered,
// the handshake fails, or ctx ends. Replies are printed to out in the
// order they arrive. master may be nil when no behavior needs a key.
func simulate(ctx context.Context, loop *eventloop.Loop, scenario *config.Scenario, master *secret.Key, logger *slog.Logger, out *replyPrinter) error {
	s := &simulation{
		scenario: scenario,
		master:   master,
		logger:   logger,
		out:      out,
		loop:     loop,
		browser:  sim.NewBrowser(loop, logger),
	}
	defer s.close()

	timeout, err := scenario.TimeoutDuration()
	if err != nil {
		return err
	}
	runContext, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	s.stop = cancel

	guestMode, err := parseOriginMode(scenario.Guest.OriginMode)
	if err != nil {
		return err
	}
	hostMode, err := parseOriginMode(scenario.Host.OriginMode)
	if err != nil {
		return err
	}
	if err := s.browser.Serve(scenario.Guest.URL, s.runGuest, sim.WithOriginMode(guestMode)); err != nil {
		return fmt.Errorf("serving guest: %w", err)
	}
	if err := s.browser.Serve(scenario.Host.URL, s.runHost); err != nil {
		return fmt.Errorf("serving host: %w", err)
	}
	if _, err := s.browser.Open(scenario.Host.URL, sim.WithOriginMode(hostMode)); err != nil {
		return fmt.Errorf("opening host: %w", err)
	}

	runErr := loop.Run(runContext)
	switch {
	case s.failure != nil:
		return s.failure
	case s.replies == len(scenario.Messages):
		return nil
	case errors.Is(runErr, context.DeadlineExceeded):
		return fmt.Errorf("%w after %s with %d of %d replies", errTimedOut, timeout, s.replies, len(scenario.Messages))
	default:
		return runErr
	}
}

func (s *simulation) close() {
	for i := len(s.teardown) - 1; i >= 0; i-- {
		s.teardown[i]()
	}
	s.teardown = nil
}

// fail records the first fatal error and stops the loop.
func (s *simulation) fail(err error) {
	if s.failure == nil {
		s.failure = err
	}
	s.stop()
}

// reply records one answered message and stops the loop after the
// last.
func (s *simulation) reply(message, origin string) {
	s.replies++
	s.out.reply(s.replies, origin, message)
	if s.replies == len(s.scenario.Messages) {
		s.logger.Info("all replies received", "count", s.replies)
		s.stop()
	}
}

// socketConfig returns the scenario's tuning applied to base, with a
// fresh set of behaviors.
func (s *simulation) socketConfig(base socket.Config, side string) (socket.Config, error) {
	handshakeTimeout, err := s.scenario.HandshakeTimeoutDuration()
	if err != nil {
		return socket.Config{}, err
	}
	behaviors, err := s.behaviors(side)
	if err != nil {
		return socket.Config{}, err
	}
	base.HandshakeTimeout = handshakeTimeout
	base.MaxLength = s.scenario.MaxLength
	base.Behaviors = behaviors
	base.Logger = s.logger.With("side", side)
	return base, nil
}

// behaviors builds one side's behavior elements. Keys derived here
// are closed by teardown.
func (s *simulation) behaviors(side string) ([]stack.Element, error) {
	logger := s.logger.With("side", side)
	var keys *seal.ChannelKeys
	channelKeys := func() (*seal.ChannelKeys, error) {
		if keys != nil {
			return keys, nil
		}
		if s.master == nil {
			return nil, errors.New("scenario behaviors need a key but none was loaded")
		}
		derived, err := seal.Derive(s.master, s.scenario.Channel)
		if err != nil {
			return nil, err
		}
		keys = derived
		s.teardown = append(s.teardown, derived.Close)
		return keys, nil
	}

	elements := make([]stack.Element, 0, len(s.scenario.Behaviors))
	for _, behaviorConfig := range s.scenario.Behaviors {
		var element stack.Element
		switch behaviorConfig.Name {
		case config.BehaviorVerify:
			derived, err := channelKeys()
			if err != nil {
				return nil, err
			}
			if element, err = behavior.NewVerify(behavior.VerifyConfig{Keys: derived, Logger: logger}); err != nil {
				return nil, err
			}
		case config.BehaviorEncrypt:
			derived, err := channelKeys()
			if err != nil {
				return nil, err
			}
			if element, err = behavior.NewEncrypt(behavior.EncryptConfig{Keys: derived, Logger: logger}); err != nil {
				return nil, err
			}
		case config.BehaviorCompress:
			algorithm, err := compress.ParseAlgorithm(behaviorConfig.Algorithm)
			if err != nil {
				return nil, err
			}
			if element, err = behavior.NewCompress(behavior.CompressConfig{
				Algorithm: algorithm,
				MinSize:   behaviorConfig.MinSize,
				Logger:    logger,
			}); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("unknown behavior %q", behaviorConfig.Name)
		}
		elements = append(elements, element)
	}
	return elements, nil
}

// runHost is the host document's script.
func (s *simulation) runHost(page *sim.Page) {
	base := socket.Config{
		Remote:    s.scenario.Guest.URL,
		Channel:   s.scenario.Channel,
		IsHost:    true,
		OnReady: func() {
			s.logger.Info("connected to guest", "channel", s.scenario.Channel)
		},
		OnFailure: func() {
			s.fail(errHandshakeFailed)
		},
	}
	tuned, err := s.socketConfig(base, "host")
	if err != nil {
		s.fail(err)
		return
	}

	switch s.scenario.Mode {
	case config.ModeRPC:
		s.runHostRPC(page, tuned)
	default:
		s.runHostSocket(page, tuned)
	}
}

func (s *simulation) runHostSocket(page *sim.Page, tuned socket.Config) {
	tuned.OnMessage = s.reply
	host, err := socket.New(page.Global(), tuned)
	if err != nil {
		s.fail(fmt.Errorf("creating host socket: %w", err))
		return
	}
	s.teardown = append(s.teardown, host.Destroy)
	for _, message := range s.scenario.Messages {
		host.PostMessage(message)
	}
}

func (s *simulation) runHostRPC(page *sim.Page, tuned socket.Config) {
	host, err := rpc.New(page.Global(), rpc.Config{Socket: tuned, Logger: s.logger.With("side", "host")})
	if err != nil {
		s.fail(fmt.Errorf("creating host endpoint: %w", err))
		return
	}
	s.teardown = append(s.teardown, host.Destroy)
	remote := host.Socket().RemoteOrigin()
	for _, message := range s.scenario.Messages {
		err := host.Call(echoMethod, message, func(data codec.RawMessage, err error) {
			if err != nil {
				s.fail(fmt.Errorf("calling %s: %w", echoMethod, err))
				return
			}
			var echoed string
			if err := rpc.Decode(data, &echoed); err != nil {
				s.fail(fmt.Errorf("decoding %s result: %w", echoMethod, err))
				return
			}
			s.reply(echoed, remote)
		})
		if err != nil {
			s.fail(fmt.Errorf("calling %s: %w", echoMethod, err))
			return
		}
	}
}

// runGuest is the guest document's script. It echoes every message.
func (s *simulation) runGuest(page *sim.Page) {
	base, err := socket.GuestConfig(page.Location())
	if err != nil {
		s.fail(fmt.Errorf("reading guest location: %w", err))
		return
	}
	tuned, err := s.socketConfig(base, "guest")
	if err != nil {
		s.fail(err)
		return
	}

	if s.scenario.Mode == config.ModeRPC {
		guest, err := rpc.New(page.Global(), rpc.Config{Socket: tuned, Logger: s.logger.With("side", "guest")})
		if err != nil {
			s.fail(fmt.Errorf("creating guest endpoint: %w", err))
			return
		}
		s.teardown = append(s.teardown, guest.Destroy)
		guest.Handle(echoMethod, func(params codec.RawMessage) (any, error) {
			var message string
			if err := rpc.Decode(params, &message); err != nil {
				return nil, rpc.ErrInvalidParams
			}
			return message, nil
		})
		return
	}

	var guest *socket.Socket
	tuned.OnMessage = func(message, origin string) {
		s.logger.Debug("guest echoing message", "origin", origin, "length", len(message))
		guest.PostMessage(message)
	}
	guest, err = socket.New(page.Global(), tuned)
	if err != nil {
		s.fail(fmt.Errorf("creating guest socket: %w", err))
		return
	}
	s.teardown = append(s.teardown, guest.Destroy)
}

func parseOriginMode(name string) (sim.OriginMode, error) {
	switch name {
	case "", "origin":
		return sim.OriginField, nil
	case "uri":
		return sim.URIField, nil
	case "domain":
		return sim.DomainField, nil
	default:
		return 0, fmt.Errorf("unknown origin mode %q", name)
	}
}
