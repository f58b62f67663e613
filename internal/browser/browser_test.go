package browser

import (
	"testing"
	"time"
)

func TestShouldBlock(t *testing.T) {
	set := map[string]bool{"fonts": true, "media": true, "fetch": true}
	cases := map[string]bool{
		"Font":       true,
		"Media":      true,
		"Image":      false,
		"Stylesheet": false,
		"Fetch":      false,
		"Document":   false,
	}
	for typ, want := range cases {
		if got := shouldBlock(set, typ); got != want {
			t.Errorf("shouldBlock(%s) = %v, want %v", typ, got, want)
		}
	}
}

func TestDecodeResource(t *testing.T) {
	res, err := decodeResource("/9j/", "image/jpeg")
	if err != nil {
		t.Fatalf("decodeResource: %v", err)
	}
	if len(res.Body) != 3 || res.Body[0] != 0xff || res.MediaType != "image/jpeg" {
		t.Errorf("got %+v", res)
	}
	if _, err := decodeResource("***", ""); err == nil {
		t.Error("expected error for invalid base64")
	}
}

func TestConfigDefaults(t *testing.T) {
	m := NewManager(Config{})
	if m.cfg.NavigateTimeout != 30*time.Second || m.cfg.Logger == nil {
		t.Errorf("defaults: %+v", m.cfg)
	}
	if len(m.cfg.ClipFrames) != 1 || m.cfg.ClipFrames[0] != "#html5-embed" {
		t.Errorf("clip frames: %v", m.cfg.ClipFrames)
	}
	if m.Browser() != nil {
		t.Error("browser before Start")
	}
	if _, err := OpenTab(t.Context(), m, ""); err == nil {
		t.Error("OpenTab without Start must fail")
	}
	m.Close()
	if _, err := m.Start(t.Context()); err == nil {
		t.Error("Start after Close must fail")
	}
}
