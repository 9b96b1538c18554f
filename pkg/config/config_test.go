package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return p
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, `
server:
  address: 127.0.0.1
  port: 9090
  rate_limit:
    rps: 25
    burst: 50
storage:
  journal_path: /tmp/journal
  journal_enabled: true
ingest:
  queue:
    capacity: 2048
    max_pooled_buffer_bytes: 1MB
sweep:
  enabled: true
  cron: "*/2 * * * *"
  window: 10m
history:
  base_url: http://history:8081
  page_size: 25
  timeout: 5s
  scroll_throttle: 250ms
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr() != "127.0.0.1:9090" {
		t.Fatalf("addr %q", cfg.Addr())
	}
	if cfg.Server.RateLimit.RPS != 25 || cfg.Server.RateLimit.Burst != 50 {
		t.Fatalf("rate limit: %+v", cfg.Server.RateLimit)
	}
	if !cfg.Storage.JournalEnabled || cfg.Storage.JournalPath != "/tmp/journal" {
		t.Fatalf("storage: %+v", cfg.Storage)
	}
	if cfg.Ingest.Queue.MaxPooledBufferBytes.Int64() != 1000*1000 {
		t.Fatalf("size parse: %d", cfg.Ingest.Queue.MaxPooledBufferBytes.Int64())
	}
	if cfg.Sweep.Window.Duration() != 10*time.Minute {
		t.Fatalf("sweep window: %v", cfg.Sweep.Window.Duration())
	}
	if cfg.History.ScrollThrottle.Duration() != 250*time.Millisecond {
		t.Fatalf("throttle: %v", cfg.History.ScrollThrottle.Duration())
	}
}

func TestDurationNumericSeconds(t *testing.T) {
	var d Duration
	if err := yaml.Unmarshal([]byte(`30`), &d); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if d.Duration() != 30*time.Second {
		t.Fatalf("got %v", d.Duration())
	}
	if err := yaml.Unmarshal([]byte(`"1h30m"`), &d); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if d.Duration() != 90*time.Minute {
		t.Fatalf("got %v", d.Duration())
	}
	if err := yaml.Unmarshal([]byte(`"soon"`), &d); err == nil {
		t.Fatalf("bad duration accepted")
	}
}

func TestSizeBytesPlainInteger(t *testing.T) {
	var s SizeBytes
	if err := yaml.Unmarshal([]byte(`65536`), &s); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if s.Int64() != 65536 {
		t.Fatalf("got %d", s.Int64())
	}
	if err := yaml.Unmarshal([]byte(`"64KiB"`), &s); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if s.Int64() != 64*1024 {
		t.Fatalf("got %d", s.Int64())
	}
}

func TestAddrDefaults(t *testing.T) {
	c := &Config{}
	if c.Addr() != "0.0.0.0:8080" {
		t.Fatalf("default addr %q", c.Addr())
	}
}

func TestParseConfigEnvs(t *testing.T) {
	t.Setenv("ROOMSYNC_ADDR", "10.0.0.1:9000")
	t.Setenv("ROOMSYNC_JOURNAL_PATH", "/var/lib/roomsync")
	t.Setenv("ROOMSYNC_SWEEP_CRON", "*/5 * * * *")
	t.Setenv("ROOMSYNC_SWEEP_WINDOW", "15m")
	t.Setenv("ROOMSYNC_HISTORY_URL", "http://history:8081/")

	cfg, used := ParseConfigEnvs()
	if !used {
		t.Fatalf("env not detected")
	}
	if cfg.Addr() != "10.0.0.1:9000" {
		t.Fatalf("addr %q", cfg.Addr())
	}
	if !cfg.Storage.JournalEnabled || cfg.Storage.JournalPath != "/var/lib/roomsync" {
		t.Fatalf("storage: %+v", cfg.Storage)
	}
	if !cfg.Sweep.Enabled || cfg.Sweep.Window.Duration() != 15*time.Minute {
		t.Fatalf("sweep: %+v", cfg.Sweep)
	}
	if cfg.History.BaseURL != "http://history:8081" {
		t.Fatalf("trailing slash kept: %q", cfg.History.BaseURL)
	}
}

func TestEffectiveConfigExplicitFileMissing(t *testing.T) {
	flags := Flags{Config: "/nope/config.yaml", Set: map[string]bool{"config": true}}
	if _, err := LoadEffectiveConfig(flags, &Config{}, false, &Config{}, false); err == nil {
		t.Fatalf("missing explicit config accepted")
	}
}

func TestEffectiveConfigFlagsWin(t *testing.T) {
	flags := Flags{
		Addr:    "127.0.0.1:7000",
		Journal: "/tmp/j",
		Set:     map[string]bool{"addr": true, "journal": true},
	}
	fileCfg := &Config{}
	fileCfg.Server.Port = 9999
	res, err := LoadEffectiveConfig(flags, fileCfg, true, &Config{}, false)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.Source != "flags" || res.Addr != "127.0.0.1:7000" {
		t.Fatalf("result: %+v", res)
	}
	if !res.Config.Storage.JournalEnabled || res.JournalPath != "/tmp/j" {
		t.Fatalf("journal: %+v", res.Config.Storage)
	}
	if res.Config.Server.Port != 7000 {
		t.Fatalf("port not derived from addr: %d", res.Config.Server.Port)
	}
}

func TestEffectiveConfigFilePreferredOverEnv(t *testing.T) {
	fileCfg := &Config{}
	fileCfg.Server.Port = 9001
	envCfg := &Config{}
	envCfg.Server.Port = 9002

	res, err := LoadEffectiveConfig(Flags{Set: map[string]bool{}}, fileCfg, true, envCfg, true)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.Source != "config" || res.Addr != "0.0.0.0:9001" {
		t.Fatalf("result: %+v", res)
	}

	res, err = LoadEffectiveConfig(Flags{Set: map[string]bool{}}, &Config{}, false, envCfg, true)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.Source != "env" || res.Addr != "0.0.0.0:9002" {
		t.Fatalf("result: %+v", res)
	}
}

func TestResolveConfigPath(t *testing.T) {
	t.Setenv("ROOMSYNC_CONFIG", "/from/env.yaml")
	if got := ResolveConfigPath("./config.yaml", false); got != "/from/env.yaml" {
		t.Fatalf("env ignored: %q", got)
	}
	if got := ResolveConfigPath("/explicit.yaml", true); got != "/explicit.yaml" {
		t.Fatalf("flag ignored: %q", got)
	}
}
