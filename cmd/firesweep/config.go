package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Log     LogConfig
	FireSim FireSimConfig
	Build   BuildConfig
	Run     RunConfig
	Scrape  ScrapeConfig
	HWDB    HWDBConfig
	Results ResultsConfig
	Archive ArchiveConfig
	Server  ServerConfig
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string
	// File receives the run sweep log. It is truncated on every run.
	File string
}

// FireSimConfig describes how FireSim is invoked.
type FireSimConfig struct {
	Binary       string // may carry a prefix, e.g. "sudo -E firesim"
	HWDB         string
	BuildRecipes string
}

// BuildConfig holds build sweep configuration.
type BuildConfig struct {
	ConfigPath string
	Field      string
	Names      []string
}

// RunConfig holds run sweep configuration.
type RunConfig struct {
	ConfigPath    string
	HWConfigField string
	WorkloadField string
	HWConfigs     []string
	Workloads     []string
	Iterations    int
	OutputDir     string
	LogName       string
	CSVOutput     string
}

// LogPath is where the simulator leaves the UART log of the latest run.
func (c RunConfig) LogPath() string {
	return filepath.Join(c.OutputDir, c.LogName)
}

// ScrapeConfig holds UART log scraping configuration.
type ScrapeConfig struct {
	TailLines int
	MatchMode string
}

// HWDBConfig holds hardware database merge configuration.
type HWDBConfig struct {
	Enabled    bool
	EntriesDir string
	Mode       string // "upsert" or "append"
}

// ResultsConfig holds results database configuration.
type ResultsConfig struct {
	Enabled      bool
	Driver       string // "sqlite" or "mysql"
	Path         string
	Host         string
	Port         int
	User         string
	Password     string
	Database     string
	MaxOpenConns int
	MaxIdleConns int
}

// ArchiveConfig holds UART log archive configuration.
type ArchiveConfig struct {
	Enabled  bool
	Type     string // "local" or "s3"
	BaseDir  string
	S3Bucket string
	S3Region string
	S3Prefix string
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// LoadConfig loads configuration from file and environment variables.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment overrides, e.g. FIRESWEEP_RUN_ITERATIONS=5
	v.SetEnvPrefix("FIRESWEEP")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "simulation_script.log")

	v.SetDefault("firesim.binary", "firesim")
	v.SetDefault("firesim.hwdb", "~/chipyard/sims/firesim-staging/sample_config_hwdb.yaml")
	v.SetDefault("firesim.build_recipes", "~/chipyard/sims/firesim-staging/sample_config_build_recipes.yaml")

	v.SetDefault("build.config_path", "deploy/config_build.yaml")
	v.SetDefault("build.field", "builds_to_run[0]")
	v.SetDefault("build.names", []string{
		"xilinx_vcu118_firesim_smallboom_gcd_tl_singlecore_4GB_no_nic_50",
		"xilinx_vcu118_firesim_smallboom_gcd_tl_bridge_singlecore_4GB_no_nic_50",
	})

	v.SetDefault("run.config_path", "deploy/config_runtime.yaml")
	v.SetDefault("run.hw_config_field", "target_config.default_hw_config")
	v.SetDefault("run.workload_field", "workload.workload_name")
	v.SetDefault("run.hw_configs", []string{
		"xilinx_vcu118_firesim_smallboom_null_prefetcher_singlecore_4GB_no_nic_10",
		"xilinx_vcu118_firesim_smallboom_null_prefetcher_singlecore_4GB_no_nic_50",
		"xilinx_vcu118_firesim_smallboom_null_prefetcher_singlecore_4GB_no_nic_100",
	})
	v.SetDefault("run.workloads", []string{"coremark.json"})
	v.SetDefault("run.iterations", 3)
	v.SetDefault("run.output_dir", "~/FIRESIM_RUNS_DIR/sim_slot_0")
	v.SetDefault("run.log_name", "uartlog")
	v.SetDefault("run.csv_output", "simulation_results.csv")

	v.SetDefault("scrape.tail_lines", 10)
	v.SetDefault("scrape.match_mode", "exact")

	v.SetDefault("hwdb.enabled", true)
	v.SetDefault("hwdb.entries_dir", "deploy/built-hwdb-entries")
	v.SetDefault("hwdb.mode", "upsert")

	v.SetDefault("results.enabled", false)
	v.SetDefault("results.driver", "sqlite")
	v.SetDefault("results.path", "firesweep.db")
	v.SetDefault("results.host", "localhost")
	v.SetDefault("results.port", 3306)
	v.SetDefault("results.user", "root")
	v.SetDefault("results.password", "")
	v.SetDefault("results.database", "firesweep")
	v.SetDefault("results.max_open_conns", 10)
	v.SetDefault("results.max_idle_conns", 2)

	v.SetDefault("archive.enabled", false)
	v.SetDefault("archive.type", "local")
	v.SetDefault("archive.base_dir", "./uartlogs")
	v.SetDefault("archive.s3_bucket", "")
	v.SetDefault("archive.s3_region", "us-east-1")
	v.SetDefault("archive.s3_prefix", "firesweep")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found; using defaults
	}

	var config Config

	config.Log.Level = v.GetString("log.level")
	config.Log.File = expandHome(v.GetString("log.file"))

	config.FireSim.Binary = v.GetString("firesim.binary")
	config.FireSim.HWDB = expandHome(v.GetString("firesim.hwdb"))
	config.FireSim.BuildRecipes = expandHome(v.GetString("firesim.build_recipes"))

	config.Build.ConfigPath = expandHome(v.GetString("build.config_path"))
	config.Build.Field = v.GetString("build.field")
	config.Build.Names = v.GetStringSlice("build.names")

	config.Run.ConfigPath = expandHome(v.GetString("run.config_path"))
	config.Run.HWConfigField = v.GetString("run.hw_config_field")
	config.Run.WorkloadField = v.GetString("run.workload_field")
	config.Run.HWConfigs = v.GetStringSlice("run.hw_configs")
	config.Run.Workloads = v.GetStringSlice("run.workloads")
	config.Run.Iterations = v.GetInt("run.iterations")
	config.Run.OutputDir = expandHome(v.GetString("run.output_dir"))
	config.Run.LogName = v.GetString("run.log_name")
	config.Run.CSVOutput = expandHome(v.GetString("run.csv_output"))

	config.Scrape.TailLines = v.GetInt("scrape.tail_lines")
	config.Scrape.MatchMode = v.GetString("scrape.match_mode")

	config.HWDB.Enabled = v.GetBool("hwdb.enabled")
	config.HWDB.EntriesDir = expandHome(v.GetString("hwdb.entries_dir"))
	config.HWDB.Mode = v.GetString("hwdb.mode")

	config.Results.Enabled = v.GetBool("results.enabled")
	config.Results.Driver = v.GetString("results.driver")
	config.Results.Path = expandHome(v.GetString("results.path"))
	config.Results.Host = v.GetString("results.host")
	config.Results.Port = v.GetInt("results.port")
	config.Results.User = v.GetString("results.user")
	config.Results.Password = v.GetString("results.password")
	config.Results.Database = v.GetString("results.database")
	config.Results.MaxOpenConns = v.GetInt("results.max_open_conns")
	config.Results.MaxIdleConns = v.GetInt("results.max_idle_conns")

	config.Archive.Enabled = v.GetBool("archive.enabled")
	config.Archive.Type = v.GetString("archive.type")
	config.Archive.BaseDir = expandHome(v.GetString("archive.base_dir"))
	config.Archive.S3Bucket = v.GetString("archive.s3_bucket")
	config.Archive.S3Region = v.GetString("archive.s3_region")
	config.Archive.S3Prefix = v.GetString("archive.s3_prefix")

	config.Server.Host = v.GetString("server.host")
	config.Server.Port = v.GetInt("server.port")
	config.Server.ReadTimeout = v.GetDuration("server.read_timeout")
	config.Server.WriteTimeout = v.GetDuration("server.write_timeout")

	return &config, nil
}

// expandHome replaces a leading "~" with the user's home directory.
func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
