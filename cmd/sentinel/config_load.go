package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"sentinel/internal/cli"
	"sentinel/internal/config"
	"sentinel/internal/logging"
	"sentinel/internal/version"
)

type Config struct {
	ConfigPath     string
	WatchDirs      []string
	Groups         []string
	Plugins        []string
	Debounce       time.Duration
	Clear          bool
	Notify         bool
	NoInteractions bool
	Verbose        bool
	Quiet          bool
	// LogLevel comes from SENTINEL_LOG_LEVEL; --verbose and --quiet win.
	LogLevel    logging.Level
	ShowVersion bool
	// Args are the positional arguments left after the flags.
	Args    []string
	Sources map[string]configSource
}

type configSource string

const (
	sourceDefault configSource = "default"
	sourceFile    configSource = "file"
	sourceEnv     configSource = "env"
	sourceFlag    configSource = "flag"
)

type configDefaults struct {
	Debounce       time.Duration
	Clear          bool
	Notify         bool
	NoInteractions bool
}

type flagValues struct {
	ConfigPath     string
	WatchDirs      cli.ListValue
	Groups         cli.ListValue
	Plugins        cli.ListValue
	Debounce       time.Duration
	Clear          bool
	Notify         bool
	NoInteractions bool
	Verbose        bool
	Quiet          bool
	Help           bool
	Version        bool
	Args           []string
	Set            map[string]bool
}

type helpOption struct {
	Name string
	Desc string
}

func loadConfig(args []string, out io.Writer) (Config, error) {
	defaults := defaultConfigValues()
	flags, err := parseFlags(args, defaults, out)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Args:    flags.Args,
		Sources: make(map[string]configSource),
	}

	configPath := ""
	configPathSource := sourceDefault
	if rawPath := strings.TrimSpace(os.Getenv("SENTINEL_CONFIG")); rawPath != "" {
		configPath = rawPath
		configPathSource = sourceEnv
	}
	if flags.Set["config"] {
		trimmed := strings.TrimSpace(flags.ConfigPath)
		if trimmed == "" {
			return Config{}, fmt.Errorf("invalid --config: value cannot be empty")
		}
		configPath = trimmed
		configPathSource = sourceFlag
	}
	cfg.ConfigPath = configPath
	cfg.Sources["config"] = configPathSource

	cfg.WatchDirs, cfg.Sources["watchdir"] = listSetting("SENTINEL_WATCHDIR", flags.WatchDirs, flags.Set["watchdir"])
	cfg.Groups, cfg.Sources["group"] = listSetting("SENTINEL_GROUP", flags.Groups, flags.Set["group"])
	cfg.Plugins, cfg.Sources["plugin"] = listSetting("SENTINEL_PLUGIN", flags.Plugins, flags.Set["plugin"])

	debounce := defaults.Debounce
	debounceSource := sourceDefault
	if rawDebounce := strings.TrimSpace(os.Getenv("SENTINEL_DEBOUNCE")); rawDebounce != "" {
		if parsed, err := time.ParseDuration(rawDebounce); err == nil && parsed > 0 {
			debounce = parsed
			debounceSource = sourceEnv
		}
	}
	if flags.Set["debounce"] {
		if flags.Debounce <= 0 {
			return Config{}, fmt.Errorf("invalid --debounce: must be > 0")
		}
		debounce = flags.Debounce
		debounceSource = sourceFlag
	}
	cfg.Debounce = debounce
	cfg.Sources["debounce"] = debounceSource

	cfg.Clear, cfg.Sources["clear"] = boolSetting("SENTINEL_CLEAR", defaults.Clear, flags.Clear, flags.Set["clear"])
	cfg.Notify, cfg.Sources["notify"] = boolSetting("SENTINEL_NOTIFY", defaults.Notify, flags.Notify, flags.Set["notify"])
	cfg.NoInteractions, cfg.Sources["no-interactions"] = boolSetting("SENTINEL_NO_INTERACTIONS", defaults.NoInteractions, flags.NoInteractions, flags.Set["no-interactions"])

	cfg.Verbose = flags.Verbose
	cfg.Quiet = flags.Quiet
	cfg.ShowVersion = flags.Version
	cfg.LogLevel = logging.LevelForFlags(cfg.Verbose, cfg.Quiet)
	cfg.Sources["log-level"] = sourceDefault
	if rawLevel := strings.TrimSpace(os.Getenv("SENTINEL_LOG_LEVEL")); rawLevel != "" && !cfg.Verbose && !cfg.Quiet {
		level, ok := logging.ParseLevel(rawLevel)
		if !ok {
			return Config{}, fmt.Errorf("invalid SENTINEL_LOG_LEVEL %q", rawLevel)
		}
		cfg.LogLevel = level
		cfg.Sources["log-level"] = sourceEnv
	}
	if flags.Set["verbose"] {
		cfg.Sources["verbose"] = sourceFlag
	}
	if flags.Set["quiet"] {
		cfg.Sources["quiet"] = sourceFlag
	}
	return cfg, nil
}

func listSetting(envKey string, flagValue []string, flagSet bool) ([]string, configSource) {
	if flagSet {
		return flagValue, sourceFlag
	}
	if values := cli.SplitList(os.Getenv(envKey)); len(values) > 0 {
		return values, sourceEnv
	}
	return nil, sourceDefault
}

func boolSetting(envKey string, fallback, flagValue, flagSet bool) (bool, configSource) {
	if flagSet {
		return flagValue, sourceFlag
	}
	if raw := strings.TrimSpace(os.Getenv(envKey)); raw != "" {
		if parsed, err := strconv.ParseBool(raw); err == nil {
			return parsed, sourceEnv
		}
	}
	return fallback, sourceDefault
}

// applyFileOptions fills settings still at their defaults from the
// Sentinelfile options.
func applyFileOptions(cfg *Config, options config.Options) {
	if cfg.Sources == nil {
		cfg.Sources = make(map[string]configSource)
	}
	if cfg.Sources["debounce"] == sourceDefault {
		if duration := options.DebounceDuration(); duration > 0 {
			cfg.Debounce = duration
			cfg.Sources["debounce"] = sourceFile
		}
	}
	if cfg.Sources["clear"] == sourceDefault && options.Clear != nil {
		cfg.Clear = *options.Clear
		cfg.Sources["clear"] = sourceFile
	}
	if cfg.Sources["notify"] == sourceDefault && options.Notify != nil {
		cfg.Notify = *options.Notify
		cfg.Sources["notify"] = sourceFile
	}
	if cfg.Sources["watchdir"] == sourceDefault && len(options.WatchDirs) > 0 {
		cfg.WatchDirs = append([]string(nil), options.WatchDirs...)
		cfg.Sources["watchdir"] = sourceFile
	}
}

func defaultConfigValues() configDefaults {
	return configDefaults{
		Debounce:       100 * time.Millisecond,
		Clear:          false,
		Notify:         true,
		NoInteractions: false,
	}
}

func parseFlags(args []string, defaults configDefaults, out io.Writer) (flagValues, error) {
	if args == nil {
		args = []string{}
	}
	if out == nil {
		out = os.Stdout
	}
	flags := flagValues{}
	fs := flag.NewFlagSet("sentinel", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&flags.ConfigPath, "config", "", "Sentinelfile path")
	fs.StringVar(&flags.ConfigPath, "c", "", "Sentinelfile path")
	cli.AddListFlag(fs, &flags.WatchDirs, "Directory to watch", "watchdir", "w")
	cli.AddListFlag(fs, &flags.Groups, "Group to scope to", "group", "g")
	cli.AddListFlag(fs, &flags.Plugins, "Plugin to scope to", "plugin", "P")
	fs.DurationVar(&flags.Debounce, "debounce", defaults.Debounce, "Debounce window")
	fs.BoolVar(&flags.Clear, "clear", defaults.Clear, "Clear the screen before each batch")
	fs.BoolVar(&flags.Notify, "notify", defaults.Notify, "Send notifications")
	fs.BoolVar(&flags.NoInteractions, "no-interactions", defaults.NoInteractions, "Do not read commands from stdin")
	fs.BoolVar(&flags.Verbose, "verbose", false, "Enable verbose logging")
	fs.BoolVar(&flags.Quiet, "quiet", false, "Reduce logging to warnings")
	helpVersion := cli.AddHelpVersionFlags(fs, "Show help", "Print version and exit")

	fs.Usage = func() {
		printHelp(out, defaults)
	}

	if err := fs.Parse(args); err != nil {
		return flagValues{}, err
	}

	set := make(map[string]bool)
	fs.Visit(func(flag *flag.Flag) {
		set[canonicalFlagName(flag.Name)] = true
	})
	flags.Help = helpVersion.Help
	flags.Version = helpVersion.Version
	flags.Args = fs.Args()
	flags.Set = set

	if flags.Help {
		set["help"] = true
		fs.Usage()
		return flags, flag.ErrHelp
	}
	if flags.Version {
		set["version"] = true
	}
	return flags, nil
}

func canonicalFlagName(name string) string {
	switch name {
	case "c":
		return "config"
	case "w":
		return "watchdir"
	case "g":
		return "group"
	case "P":
		return "plugin"
	default:
		return name
	}
}

func printHelp(out io.Writer, defaults configDefaults) {
	fmt.Fprintln(out, "Usage: sentinel [options]")
	fmt.Fprintln(out, "       sentinel run [options] <task> [group|plugin ...]")
	fmt.Fprintln(out, "       sentinel list [options]")
	fmt.Fprintln(out, "       sentinel schema")
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, "Sentinel watches files and runs plugin tasks when they change")
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, "Options:")

	writeOptionGroup(out, "Config", []helpOption{
		{
			Name: "--config, -c FILE",
			Desc: "Sentinelfile to load (env: SENTINEL_CONFIG, default: ./Sentinelfile.toml, then ~/.sentinel)",
		},
		{
			Name: "--group, -g NAME",
			Desc: "Only run plugins of these groups (env: SENTINEL_GROUP)",
		},
		{
			Name: "--plugin, -P NAME",
			Desc: "Only run these plugins (env: SENTINEL_PLUGIN)",
		},
	})

	writeOptionGroup(out, "Watching", []helpOption{
		{
			Name: "--watchdir, -w DIR",
			Desc: "Directories to watch (env: SENTINEL_WATCHDIR, default: current directory)",
		},
		{
			Name: "--debounce DURATION",
			Desc: fmt.Sprintf("Debounce window (env: SENTINEL_DEBOUNCE, default: %s)", defaults.Debounce),
		},
		{
			Name: "--clear",
			Desc: fmt.Sprintf("Clear the screen before each batch (env: SENTINEL_CLEAR, default: %t)", defaults.Clear),
		},
		{
			Name: "--notify",
			Desc: fmt.Sprintf("Send notifications (env: SENTINEL_NOTIFY, default: %t)", defaults.Notify),
		},
		{
			Name: "--no-interactions",
			Desc: fmt.Sprintf("Ignore stdin commands (env: SENTINEL_NO_INTERACTIONS, default: %t)", defaults.NoInteractions),
		},
	})

	writeOptionGroup(out, "Logging", []helpOption{
		{
			Name: "--verbose",
			Desc: "Enable verbose logging (env: SENTINEL_LOG_LEVEL=debug|info|warn|error)",
		},
		{
			Name: "--quiet",
			Desc: "Reduce logging to warnings",
		},
	})

	writeOptionGroup(out, "Other", []helpOption{
		{
			Name: "--help, -h",
			Desc: "Show help and exit",
		},
		{
			Name: "--version, -v",
			Desc: "Print version and exit",
		},
	})
}

func writeOptionGroup(out io.Writer, title string, options []helpOption) {
	if len(options) == 0 {
		return
	}
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, title+":")
	for _, option := range options {
		fmt.Fprintf(out, "  %-24s %s\n", option.Name, option.Desc)
	}
}

func logStartupFlags(logger *logging.Logger, cfg Config) {
	if logger == nil {
		return
	}
	flags := []string{}
	if cfg.Sources["config"] == sourceFlag {
		flags = append(flags, formatStringFlag("--config", cfg.ConfigPath))
	}
	if cfg.Sources["watchdir"] == sourceFlag {
		flags = append(flags, formatStringFlag("--watchdir", strings.Join(cfg.WatchDirs, ",")))
	}
	if cfg.Sources["group"] == sourceFlag {
		flags = append(flags, formatStringFlag("--group", strings.Join(cfg.Groups, ",")))
	}
	if cfg.Sources["plugin"] == sourceFlag {
		flags = append(flags, formatStringFlag("--plugin", strings.Join(cfg.Plugins, ",")))
	}
	if cfg.Sources["debounce"] == sourceFlag {
		flags = append(flags, formatStringFlag("--debounce", cfg.Debounce.String()))
	}
	if cfg.Sources["clear"] == sourceFlag {
		flags = append(flags, formatBoolFlag("--clear", cfg.Clear))
	}
	if cfg.Sources["notify"] == sourceFlag {
		flags = append(flags, formatBoolFlag("--notify", cfg.Notify))
	}
	if cfg.Sources["no-interactions"] == sourceFlag {
		flags = append(flags, formatBoolFlag("--no-interactions", cfg.NoInteractions))
	}
	if cfg.Sources["verbose"] == sourceFlag {
		flags = append(flags, formatBoolFlag("--verbose", cfg.Verbose))
	}
	if cfg.Sources["quiet"] == sourceFlag {
		flags = append(flags, formatBoolFlag("--quiet", cfg.Quiet))
	}
	if len(flags) > 0 {
		logger.Debug("startup flags", map[string]string{
			"flags": strings.Join(flags, " "),
		})
	}
}

func logVersionInfo(logger *logging.Logger) {
	if logger == nil {
		return
	}
	versionLabel := version.Label()
	logger.Info(fmt.Sprintf("Sentinel version %s", versionLabel), map[string]string{
		"version": versionLabel,
	})
}

func printVersion(out io.Writer) {
	fmt.Fprintln(out, version.GetVersionInfo().String())
}

func formatBoolFlag(name string, value bool) string {
	if value {
		return name
	}
	return name + "=false"
}

func formatStringFlag(name, value string) string {
	if value == "" {
		return ""
	}
	return name + " " + value
}
