package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_ENV", "missing")
	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ControlPort != 65435 || cfg.MediaPort() != 65436 {
		t.Fatalf("ports=%d/%d, want 65435/65436", cfg.ControlPort, cfg.MediaPort())
	}
	if cfg.MixInterval != 20*time.Millisecond || cfg.AudioChunkSamples != 2048 {
		t.Fatalf("mix=%v chunk=%d", cfg.MixInterval, cfg.AudioChunkSamples)
	}
	if cfg.WSReadLimit != int64(cfg.MaxFrameBytes) {
		t.Fatalf("WSReadLimit=%d, want %d", cfg.WSReadLimit, cfg.MaxFrameBytes)
	}
	if cfg.ControlAddr() != "0.0.0.0:65435" || cfg.MediaAddr() != "0.0.0.0:65436" {
		t.Fatalf("addrs=%s %s", cfg.ControlAddr(), cfg.MediaAddr())
	}
}

func TestLoadFileEnvAndFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relay.yaml")
	yaml := "control_port: 7000\nmix_interval: 40ms\nhost: 127.0.0.1\n"
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	t.Setenv("RELAY_AUDIO_CHUNK_SAMPLES", "512")
	t.Setenv("RELAY_HOST", "10.1.1.1")

	cfg, err := Load([]string{"--config", path, "--control-port", "7100"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ControlPort != 7100 {
		t.Fatalf("ControlPort=%d, want flag value 7100", cfg.ControlPort)
	}
	if cfg.MixInterval != 40*time.Millisecond {
		t.Fatalf("MixInterval=%v, want 40ms from file", cfg.MixInterval)
	}
	if cfg.AudioChunkSamples != 512 {
		t.Fatalf("AudioChunkSamples=%d, want 512 from env", cfg.AudioChunkSamples)
	}
	if cfg.Host != "10.1.1.1" {
		t.Fatalf("Host=%q, want env over file", cfg.Host)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Setenv("CONFIG_ENV", "missing")
	cases := map[string][]string{
		"port":     {"--control-port", "65535"},
		"mode":     {"--mode", "loud"},
		"bad flag": {"--no-such-flag"},
	}
	for name, args := range cases {
		if _, err := Load(args); err == nil {
			t.Fatalf("%s: Load(%v) succeeded", name, args)
		}
	}
}
