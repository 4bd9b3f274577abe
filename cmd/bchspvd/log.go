// Copyright (c) 2025 The bchspv developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"os"
	"path/filepath"

	"github.com/btcsuite/btclog"
	"github.com/jrick/logrotate/rotator"

	"github.com/shellreserve/bchspv/addrmgr"
	"github.com/shellreserve/bchspv/bfmgr"
	"github.com/shellreserve/bchspv/blockchain"
	"github.com/shellreserve/bchspv/headerstore"
	"github.com/shellreserve/bchspv/invmgr"
	"github.com/shellreserve/bchspv/p2p"
	"github.com/shellreserve/bchspv/peermgr"
	"github.com/shellreserve/bchspv/pingmgr"
	"github.com/shellreserve/bchspv/syncmgr"
)

// logRotator is the initialized rotator, created by initLogRotator. Use
// logRotator.Close() to finish the last log and shut down.
var logRotator *rotator.Rotator

// logWriter implements io.Writer so logs can be written to both stdout and
// the rotator, which is configured to log to disk as well as provide the
// ability to roll the logs.
type logWriter struct{}

func (logWriter) Write(p []byte) (n int, err error) {
	os.Stdout.Write(p)
	logRotator.Write(p)
	return len(p), nil
}

// Loggers per subsystem, following the btclog subsystem convention: each
// package that wants structured logging gets its own named *btclog.Logger
// registered below, with an independent verbosity level settable from the
// config file or command line.
var (
	backendLog = btclog.NewBackend(logWriter{})

	logP2P   = backendLog.Logger("P2PM")
	logChain = backendLog.Logger("CHAN")
	logSync  = backendLog.Logger("SYNC")
	logAddr  = backendLog.Logger("ADDR")
	logPeer  = backendLog.Logger("PEER")
	logBloom = backendLog.Logger("BLOM")
	logInv   = backendLog.Logger("INVM")
)

// subsystemLoggers maps each subsystem identifier to its logger instance.
var subsystemLoggers = map[string]btclog.Logger{
	"P2PM": logP2P,
	"CHAN": logChain,
	"SYNC": logSync,
	"ADDR": logAddr,
	"PEER": logPeer,
	"BLOM": logBloom,
	"INVM": logInv,
}

// Each library package keeps its own logger disabled until the host
// process hands it one.
func init() {
	p2p.UseLogger(logP2P)
	blockchain.UseLogger(logChain)
	headerstore.UseLogger(logChain)
	syncmgr.UseLogger(logSync)
	addrmgr.UseLogger(logAddr)
	peermgr.UseLogger(logPeer)
	pingmgr.UseLogger(logPeer)
	bfmgr.UseLogger(logBloom)
	invmgr.UseLogger(logInv)
}

// initLogRotator initializes the logging rotator to write logs to logFile
// and create roll files in the same directory. It must be called before
// the package-level log rotator variables are used.
func initLogRotator(logFile string) error {
	logDir := filepath.Dir(logFile)
	if err := os.MkdirAll(logDir, 0700); err != nil {
		return err
	}
	r, err := rotator.New(logFile, 10*1024, false, 3)
	if err != nil {
		return err
	}
	logRotator = r
	return nil
}

// setLogLevel sets the logging level for a single subsystem, returning
// true if the subsystem was recognized.
func setLogLevel(subsystemID, levelStr string) bool {
	logger, ok := subsystemLoggers[subsystemID]
	if !ok {
		return false
	}
	level, ok := btclog.LevelFromString(levelStr)
	if !ok {
		return false
	}
	logger.SetLevel(level)
	return true
}

// setLogLevels sets the log level for every registered subsystem.
func setLogLevels(levelStr string) {
	for subsystemID := range subsystemLoggers {
		setLogLevel(subsystemID, levelStr)
	}
}
