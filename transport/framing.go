// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/bureau-foundation/xdm/lib/origin"
)

// Query parameters the host appends to the frame URL.
const (
	// QueryOrigin carries the host's origin.
	QueryOrigin = "xdm_e"

	// QueryChannel carries the channel name.
	QueryChannel = "xdm_c"

	// QueryProtocol selects the transport. ProtocolPostMessage is the
	// only value this package produces.
	QueryProtocol = "xdm_p"
)

// ProtocolPostMessage identifies the postMessage transport in
// QueryProtocol.
const ProtocolPostMessage = "1"

// frameSeparator joins the channel name and the payload on the wire.
const frameSeparator = " "

// readySuffix is appended to the channel name to form the handshake
// sentinel.
const readySuffix = "-ready"

// ErrNotFrame is returned by ParseFrameQuery when the location does
// not carry the host's origin and channel.
var ErrNotFrame = errors.New("transport: location is not a transport frame")

// Frame returns the wire form of payload on channel.
func Frame(channel, payload string) string {
	return channel + frameSeparator + payload
}

// Unframe strips channel's prefix from message. Reports false when
// message does not belong to channel. The payload may be empty.
func Unframe(channel, message string) (string, bool) {
	return strings.CutPrefix(message, channel+frameSeparator)
}

// ReadySentinel returns the message the guest sends to announce that
// it is listening on channel.
func ReadySentinel(channel string) string {
	return channel + readySuffix
}

// ValidateChannel checks that channel can be used as a wire prefix.
// The name must be non-empty and must not contain the frame separator,
// otherwise two channels could claim the same messages.
func ValidateChannel(channel string) error {
	if channel == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidChannel)
	}
	if strings.Contains(channel, frameSeparator) {
		return fmt.Errorf("%w: %q contains a space", ErrInvalidChannel, channel)
	}
	return nil
}

// FrameURL returns remote with the host's origin, the channel, and the
// protocol selector appended to its query string. Existing query
// parameters and the fragment are preserved.
func FrameURL(remote, localOrigin, channel string) (string, error) {
	return origin.AppendQuery(remote, map[string]string{
		QueryOrigin:   localOrigin,
		QueryChannel:  channel,
		QueryProtocol: ProtocolPostMessage,
	})
}

// FrameQuery is the configuration a guest reads from its own location.
type FrameQuery struct {
	// Origin is the host's origin, used as the guest's remote.
	Origin string

	// Channel is the channel name chosen by the host.
	Channel string

	// Protocol is the transport selector. Empty when the host did not
	// send one.
	Protocol string
}

// ParseFrameQuery extracts the parameters FrameURL added from a
// guest's location.
func ParseFrameQuery(location string) (FrameQuery, error) {
	parsed, err := url.Parse(location)
	if err != nil {
		return FrameQuery{}, fmt.Errorf("%w: %v", ErrNotFrame, err)
	}
	values := parsed.Query()
	query := FrameQuery{
		Origin:   values.Get(QueryOrigin),
		Channel:  values.Get(QueryChannel),
		Protocol: values.Get(QueryProtocol),
	}
	if query.Origin == "" {
		return FrameQuery{}, fmt.Errorf("%w: missing %s", ErrNotFrame, QueryOrigin)
	}
	if query.Channel == "" {
		return FrameQuery{}, fmt.Errorf("%w: missing %s", ErrNotFrame, QueryChannel)
	}
	return query, nil
}
