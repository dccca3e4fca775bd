// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"errors"
	"net/url"
	"testing"
)

func TestFrameUnframe(t *testing.T) {
	payloads := []string{"", " ", "hello", "xdm1 nested", "multi\nline", "héllo wörld"}
	for _, payload := range payloads {
		framed := Frame("xdm1", payload)
		got, ok := Unframe("xdm1", framed)
		if !ok || got != payload {
			t.Errorf("Unframe(Frame(%q)) = %q, %v", payload, got, ok)
		}
	}
}

func TestUnframeRejectsOtherChannels(t *testing.T) {
	for _, message := range []string{"xdm2 hello", "xdm10 hello", "xdm1hello", "xdm1", "xdm1-ready", " xdm1 hello"} {
		if payload, ok := Unframe("xdm1", message); ok {
			t.Errorf("Unframe(xdm1, %q) = %q, true; want rejection", message, payload)
		}
	}
}

func TestReadySentinel(t *testing.T) {
	if got := ReadySentinel("xdm1"); got != "xdm1-ready" {
		t.Errorf("ReadySentinel = %q, want xdm1-ready", got)
	}
	if _, ok := Unframe("xdm1", ReadySentinel("xdm1")); ok {
		t.Error("sentinel parsed as a data message")
	}
}

func TestFrameURL(t *testing.T) {
	frameURL, err := FrameURL("https://b.example/widget?lang=en#top", "https://a.example", "xdm1")
	if err != nil {
		t.Fatalf("FrameURL: %v", err)
	}
	parsed, err := url.Parse(frameURL)
	if err != nil {
		t.Fatalf("parsing %q: %v", frameURL, err)
	}
	if parsed.Fragment != "top" {
		t.Errorf("fragment = %q, want top", parsed.Fragment)
	}
	values := parsed.Query()
	want := map[string]string{
		"lang":        "en",
		QueryOrigin:   "https://a.example",
		QueryChannel:  "xdm1",
		QueryProtocol: ProtocolPostMessage,
	}
	for key, value := range want {
		if got := values.Get(key); got != value {
			t.Errorf("query %s = %q, want %q", key, got, value)
		}
	}
}

func TestParseFrameQuery(t *testing.T) {
	query, err := ParseFrameQuery("https://b.example/widget?xdm_e=https%3A%2F%2Fa.example&xdm_c=xdm1&xdm_p=1")
	if err != nil {
		t.Fatalf("ParseFrameQuery: %v", err)
	}
	want := FrameQuery{Origin: "https://a.example", Channel: "xdm1", Protocol: "1"}
	if query != want {
		t.Errorf("query = %+v, want %+v", query, want)
	}

	for _, location := range []string{
		"https://b.example/widget",
		"https://b.example/widget?xdm_c=xdm1",
		"https://b.example/widget?xdm_e=https%3A%2F%2Fa.example",
	} {
		if _, err := ParseFrameQuery(location); !errors.Is(err, ErrNotFrame) {
			t.Errorf("ParseFrameQuery(%q) = %v, want ErrNotFrame", location, err)
		}
	}
}

func TestValidateChannel(t *testing.T) {
	if err := ValidateChannel("xdm_42"); err != nil {
		t.Errorf("ValidateChannel(xdm_42) = %v", err)
	}
	for _, channel := range []string{"", "a b", " "} {
		if err := ValidateChannel(channel); !errors.Is(err, ErrInvalidChannel) {
			t.Errorf("ValidateChannel(%q) = %v, want ErrInvalidChannel", channel, err)
		}
	}
}
