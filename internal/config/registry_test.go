package config_test

import (
	"errors"
	"testing"

	"github.com/MrWong99/talkgate/internal/config"
	"github.com/MrWong99/talkgate/pkg/audio"
	audiomock "github.com/MrWong99/talkgate/pkg/audio/mock"
	"github.com/MrWong99/talkgate/pkg/provider/vad"
	vadmock "github.com/MrWong99/talkgate/pkg/provider/vad/mock"
	"github.com/MrWong99/talkgate/pkg/transport"
	transportmock "github.com/MrWong99/talkgate/pkg/transport/mock"
)

func TestRegistry_Transport(t *testing.T) {
	reg := config.NewRegistry()

	var gotCfg config.TransportConfig
	reg.RegisterTransport("websocket", func(cfg config.TransportConfig) (transport.Client, error) {
		gotCfg = cfg
		return &transportmock.Client{}, nil
	})

	cfg := config.TransportConfig{Name: "websocket"}
	cfg.Websocket.URL = "wss://voice.example.com"
	client, err := reg.CreateTransport(cfg)
	if err != nil {
		t.Fatalf("CreateTransport: %v", err)
	}
	if client == nil {
		t.Fatal("CreateTransport returned nil client")
	}
	if gotCfg.Websocket.URL != "wss://voice.example.com" {
		t.Errorf("factory config = %+v, want websocket url passed through", gotCfg)
	}

	if _, err := reg.CreateTransport(config.TransportConfig{Name: "carrier-pigeon"}); !errors.Is(err, config.ErrNotRegistered) {
		t.Errorf("unknown transport err = %v, want ErrNotRegistered", err)
	}
}

func TestRegistry_NoTransportIsNil(t *testing.T) {
	reg := config.NewRegistry()

	for _, name := range []string{"", "none"} {
		client, err := reg.CreateTransport(config.TransportConfig{Name: name})
		if err != nil {
			t.Errorf("CreateTransport(%q): %v", name, err)
		}
		if client != nil {
			t.Errorf("CreateTransport(%q) = %v, want nil (discard setup)", name, client)
		}
	}
}

func TestRegistry_Capture(t *testing.T) {
	reg := config.NewRegistry()
	reg.RegisterCapture("wav", func(cfg config.CaptureConfig) (audio.Source, error) {
		return &audiomock.Source{}, nil
	})

	src, err := reg.CreateCapture(config.CaptureConfig{Source: "wav"})
	if err != nil {
		t.Fatalf("CreateCapture: %v", err)
	}
	if src == nil {
		t.Fatal("CreateCapture returned nil source")
	}

	if _, err := reg.CreateCapture(config.CaptureConfig{Source: "alsa"}); !errors.Is(err, config.ErrNotRegistered) {
		t.Errorf("unknown capture err = %v, want ErrNotRegistered", err)
	}
}

func TestRegistry_VADDefaultsToEnergy(t *testing.T) {
	reg := config.NewRegistry()

	var created string
	reg.RegisterVAD("energy", func(cfg config.VoiceActivityConfig) (vad.Engine, error) {
		created = "energy"
		return &vadmock.Engine{}, nil
	})

	// Empty engine name selects the built-in default.
	if _, err := reg.CreateVAD(config.VoiceActivityConfig{}); err != nil {
		t.Fatalf("CreateVAD: %v", err)
	}
	if created != "energy" {
		t.Errorf("created %q, want energy", created)
	}

	if _, err := reg.CreateVAD(config.VoiceActivityConfig{Engine: "webrtc"}); !errors.Is(err, config.ErrNotRegistered) {
		t.Errorf("unknown engine err = %v, want ErrNotRegistered", err)
	}
}

func TestRegistry_ReRegisterOverwrites(t *testing.T) {
	reg := config.NewRegistry()

	reg.RegisterVAD("energy", func(config.VoiceActivityConfig) (vad.Engine, error) {
		t.Error("stale factory invoked")
		return nil, nil
	})
	reg.RegisterVAD("energy", func(config.VoiceActivityConfig) (vad.Engine, error) {
		return &vadmock.Engine{}, nil
	})

	eng, err := reg.CreateVAD(config.VoiceActivityConfig{Engine: "energy"})
	if err != nil {
		t.Fatalf("CreateVAD: %v", err)
	}
	if eng == nil {
		t.Error("CreateVAD returned nil engine")
	}
}
