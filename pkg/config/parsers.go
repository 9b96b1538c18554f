package config

import (
	"flag"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

// Flags holds parsed command-line flag values and which were set.
type Flags struct {
	Addr    string
	Journal string
	History string
	Config  string
	Set     map[string]bool
}

// EffectiveConfigResult holds the result of LoadEffectiveConfig.
type EffectiveConfigResult struct {
	Config      *Config
	Addr        string
	JournalPath string
	Source      string // "flags", "config", or "env"
}

// ParseConfigFlags parses command-line flags and returns them as a Flags struct.
func ParseConfigFlags() Flags {
	addrPtr := flag.String("addr", ":8080", "HTTP listen address")
	journalPtr := flag.String("journal", "", "event journal path (empty disables)")
	historyPtr := flag.String("history", "", "history backend base URL")
	cfgPtr := flag.String("config", "./config.yaml", "Path to config file")
	flag.Parse()
	setFlags := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { setFlags[f.Name] = true })
	return Flags{Addr: *addrPtr, Journal: *journalPtr, History: *historyPtr, Config: *cfgPtr, Set: setFlags}
}

// ParseConfigFile resolves the config path and loads the YAML file. It
// returns the parsed config, a boolean indicating whether the file was
// present, and an error for fatal parsing problems.
func ParseConfigFile(flags Flags) (*Config, bool, error) {
	cfgPath := ResolveConfigPath(flags.Config, flags.Set["config"])
	cfg, err := Load(cfgPath)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, false, nil
		}
		return nil, false, err
	}
	return cfg, true, nil
}

// ParseConfigEnvs reads environment variables into a fresh Config and
// reports whether any were used. This function does not mutate any caller
// provided config.
func ParseConfigEnvs() (*Config, bool) {
	envCfg := &Config{}
	envUsed := false

	if v := os.Getenv("ROOMSYNC_ADDR"); v != "" {
		envUsed = true
		if h, p, err := net.SplitHostPort(v); err == nil {
			envCfg.Server.Address = h
			if pi, err := strconv.Atoi(p); err == nil {
				envCfg.Server.Port = pi
			}
		} else {
			envCfg.Server.Address = v
		}
	} else {
		if host := os.Getenv("ROOMSYNC_ADDRESS"); host != "" {
			envUsed = true
			envCfg.Server.Address = host
		}
		if port := os.Getenv("ROOMSYNC_PORT"); port != "" {
			envUsed = true
			if pi, err := strconv.Atoi(port); err == nil {
				envCfg.Server.Port = pi
			}
		}
	}

	if v := os.Getenv("ROOMSYNC_JOURNAL_PATH"); v != "" {
		envUsed = true
		envCfg.Storage.JournalPath = v
		envCfg.Storage.JournalEnabled = true
	}
	if v := os.Getenv("ROOMSYNC_LOG_LEVEL"); v != "" {
		envUsed = true
		envCfg.Logging.Level = strings.ToLower(strings.TrimSpace(v))
	}
	if v := os.Getenv("ROOMSYNC_QUEUE_CAPACITY"); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			envUsed = true
			envCfg.Ingest.Queue.Capacity = n
		}
	}
	if v := os.Getenv("ROOMSYNC_SWEEP_CRON"); v != "" {
		envUsed = true
		envCfg.Sweep.Enabled = true
		envCfg.Sweep.Cron = strings.TrimSpace(v)
	}
	if v := os.Getenv("ROOMSYNC_SWEEP_WINDOW"); v != "" {
		if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
			envUsed = true
			envCfg.Sweep.Window = Duration(d)
		}
	}
	if v := os.Getenv("ROOMSYNC_HISTORY_URL"); v != "" {
		envUsed = true
		envCfg.History.BaseURL = strings.TrimRight(strings.TrimSpace(v), "/")
	}
	if v := os.Getenv("ROOMSYNC_HISTORY_PAGE_SIZE"); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			envUsed = true
			envCfg.History.PageSize = n
		}
	}

	return envCfg, envUsed
}

// LoadEffectiveConfig decides which single source to use (flags, config
// file, or env). It honors an explicit flags.Config (user provided
// --config) by using the config file only; otherwise it uses flags if any
// flags are set; else if a config file exists it uses that; otherwise env.
func LoadEffectiveConfig(flags Flags, fileCfg *Config, fileExists bool, envCfg *Config, envUsed bool) (EffectiveConfigResult, error) {
	var res EffectiveConfigResult

	if flags.Set["config"] {
		if !fileExists {
			return res, fmt.Errorf("config file %s not found", flags.Config)
		}
		res.Config = fileCfg
		res.Addr = fileCfg.Addr()
		res.JournalPath = fileCfg.Storage.JournalPath
		res.Source = "config"
		return res, nil
	}

	if flags.Set["addr"] || flags.Set["journal"] || flags.Set["history"] {
		addr := flags.Addr
		if !flags.Set["addr"] {
			addr = envCfg.Addr()
			if addr == "" {
				addr = fileCfg.Addr()
			}
		}
		journal := flags.Journal
		if !flags.Set["journal"] {
			if p := strings.TrimSpace(envCfg.Storage.JournalPath); p != "" {
				journal = p
			} else if p := strings.TrimSpace(fileCfg.Storage.JournalPath); p != "" {
				journal = p
			}
		}
		out := &Config{}
		out.Server.Address = addr
		out.Server.Port = parsePortFromAddr(addr)
		out.Storage.JournalPath = journal
		out.Storage.JournalEnabled = journal != ""
		if flags.Set["history"] {
			out.History.BaseURL = strings.TrimRight(flags.History, "/")
		} else {
			out.History = envCfg.History
			if out.History.BaseURL == "" {
				out.History = fileCfg.History
			}
		}
		res.Config = out
		res.Addr = addr
		res.JournalPath = journal
		res.Source = "flags"
		return res, nil
	}

	if fileExists {
		res.Config = fileCfg
		res.Addr = fileCfg.Addr()
		res.JournalPath = fileCfg.Storage.JournalPath
		res.Source = "config"
		return res, nil
	}
	res.Config = envCfg
	res.Addr = envCfg.Addr()
	res.JournalPath = envCfg.Storage.JournalPath
	res.Source = "env"
	return res, nil
}

// parsePortFromAddr extracts the port integer from a host:port string.
func parsePortFromAddr(a string) int {
	if a == "" {
		return 0
	}
	if _, p, err := net.SplitHostPort(a); err == nil {
		if pi, err := strconv.Atoi(p); err == nil {
			return pi
		}
	}
	return 0
}
