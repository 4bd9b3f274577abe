// Copyright (c) 2025 The bchspv developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jessevdk/go-flags"

	"github.com/shellreserve/bchspv/chaincfg"
)

const (
	defaultConfigFilename = "bchspvd.conf"
	defaultDataDirname     = "data"
	defaultLogLevel        = "info"
	defaultLogFilename     = "bchspvd.log"
	defaultMaxPeers        = 16
)

var (
	defaultHomeDir   = appDataDir("bchspvd")
	defaultConfigFile = filepath.Join(defaultHomeDir, defaultConfigFilename)
	defaultDataDir    = filepath.Join(defaultHomeDir, defaultDataDirname)
	defaultLogDir     = filepath.Join(defaultHomeDir, "logs")
)

// config defines the configuration options for bchspvd, parsed from both
// a config file and the command line via go-flags, matching the layered
// config-file-then-flags convention used throughout the btcsuite daemons.
type config struct {
	ConfigFile string `short:"C" long:"configfile" description:"Path to configuration file"`
	DataDir    string `short:"b" long:"datadir" description:"Directory to store headers and address book"`
	LogDir     string `long:"logdir" description:"Directory to log output"`
	LogLevel   string `short:"d" long:"debuglevel" description:"Logging level for all subsystems"`

	TestNet3 bool `long:"testnet" description:"Use the test network"`
	TestNet4 bool `long:"testnet4" description:"Use the test4 network"`
	Regtest  bool `long:"regtest" description:"Use the regression test network"`
	Scalenet bool `long:"scalenet" description:"Use the scale test network"`
	Chipnet  bool `long:"chipnet" description:"Use the CHIP test network"`

	ConnectPeers []string `long:"connect" description:"Connect only to the specified peers at startup"`
	MaxPeers     int      `long:"maxpeers" description:"Max number of inbound peers"`
	Whitelists   []string `long:"whitelist" description:"Add an IP or user-agent substring exempt from the inbound peer limit"`

	AddPeers []string `short:"a" long:"addpeer" description:"Add a peer to connect with at startup"`

	params *chaincfg.Params
}

// defaultConfig returns a config populated with every default value,
// before the config file or command line are parsed over it.
func defaultConfig() config {
	return config{
		ConfigFile: defaultConfigFile,
		DataDir:    defaultDataDir,
		LogDir:     defaultLogDir,
		LogLevel:   defaultLogLevel,
		MaxPeers:   defaultMaxPeers,
	}
}

// loadConfig reads the config file (if any) and then the command line,
// command line flags taking precedence, and resolves which network's
// parameters apply.
func loadConfig() (*config, []string, error) {
	preCfg := defaultConfig()
	preParser := flags.NewParser(&preCfg, flags.Default)
	_, err := preParser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		return nil, nil, err
	}

	cfg := preCfg
	if _, err := os.Stat(preCfg.ConfigFile); err == nil {
		fileParser := flags.NewParser(&cfg, flags.Default)
		if err := flags.NewIniParser(fileParser).ParseFile(preCfg.ConfigFile); err != nil {
			return nil, nil, err
		}
	}

	parser := flags.NewParser(&cfg, flags.Default)
	remainingArgs, err := parser.Parse()
	if err != nil {
		return nil, nil, err
	}

	numNets := 0
	cfg.params = &chaincfg.MainNetParams
	if cfg.TestNet3 {
		numNets++
		cfg.params = &chaincfg.TestNet3Params
	}
	if cfg.TestNet4 {
		numNets++
		cfg.params = &chaincfg.TestNet4Params
	}
	if cfg.Regtest {
		numNets++
		cfg.params = &chaincfg.RegressionNetParams
	}
	if cfg.Scalenet {
		numNets++
		cfg.params = &chaincfg.ScalenetParams
	}
	if cfg.Chipnet {
		numNets++
		cfg.params = &chaincfg.ChipnetParams
	}
	if numNets > 1 {
		return nil, nil, fmt.Errorf("only one network may be selected at a time")
	}

	if !setLogLevel("P2PM", cfg.LogLevel) && cfg.LogLevel != "" {
		return nil, nil, fmt.Errorf("unrecognized log level %q", cfg.LogLevel)
	}
	setLogLevels(cfg.LogLevel)

	return &cfg, remainingArgs, nil
}

// appDataDir mirrors the standard btcsuite per-OS application data
// directory resolution: $HOME/.<appName> on Unix-like systems.
func appDataDir(appName string) string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "." + appName
	}
	return filepath.Join(home, "."+appName)
}
