package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"
)

// defaultConfigFile is picked up from the working directory when --config
// is not given.
const defaultConfigFile = ".starmark.toml"

// duration wraps time.Duration so TOML values like "15m" parse naturally.
type duration time.Duration

func (d *duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = duration(parsed)
	return nil
}

// config mirrors the enrich command's flags in TOML form. Flags given on
// the command line always win over config values.
type config struct {
	Token        string   `toml:"token"`
	Sort         string   `toml:"sort"`
	MinRefs      int      `toml:"min_refs"`
	Replace      []string `toml:"replace"`
	ReplaceRegex []string `toml:"replace_regex"`
	Brand        bool     `toml:"brand"`
	LinkPrefix   string   `toml:"link_prefix"`
	CacheTTL     duration `toml:"cache_ttl"`
	Timeout      duration `toml:"timeout"`
}

// loadConfig reads the TOML config at path. An empty path falls back to the
// default file, which may legitimately be absent; an explicit path must
// exist.
func loadConfig(path string) (*config, error) {
	explicit := path != ""
	if !explicit {
		path = defaultConfigFile
	}

	var cfg config
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		if !explicit && os.IsNotExist(err) {
			return &cfg, nil
		}
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("load config %s: unknown key %q", path, undecoded[0].String())
	}
	return &cfg, nil
}

// apply copies config values into the flags for every flag the user did not
// set explicitly.
func (cfg *config) apply(cmd *cobra.Command, flags *enrichFlags) {
	set := cmd.Flags().Changed

	if !set("token") && cfg.Token != "" {
		flags.token = cfg.Token
	}
	if !set("sort") && cfg.Sort != "" {
		flags.sortBy = cfg.Sort
	}
	if !set("min-refs") && cfg.MinRefs > 0 {
		flags.minRefs = cfg.MinRefs
	}
	if !set("replace") && len(cfg.Replace) > 0 {
		flags.replace = cfg.Replace
	}
	if !set("replace-regex") && len(cfg.ReplaceRegex) > 0 {
		flags.replaceRegex = cfg.ReplaceRegex
	}
	if !set("brand") && cfg.Brand {
		flags.brand = true
	}
	if !set("link-prefix") && cfg.LinkPrefix != "" {
		flags.linkPrefix = cfg.LinkPrefix
	}
	if !set("cache-ttl") && cfg.CacheTTL > 0 {
		flags.cacheTTL = time.Duration(cfg.CacheTTL)
	}
	if !set("timeout") && cfg.Timeout > 0 {
		flags.timeout = time.Duration(cfg.Timeout)
	}
}
