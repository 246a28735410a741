/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package options parses the command line into one Options struct.
// Exactly one primary mode runs per invocation; the API server is the
// default when no mode flag is given.
package options

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
)

// Mode is the primary action selected on the command line.
type Mode string

const (
	ModeAPI      Mode = "api"
	ModeInstall  Mode = "install"
	ModeStart    Mode = "start"
	ModeStop     Mode = "stop"
	ModePurge    Mode = "purge"
	ModePurgeAll Mode = "purge-all"
)

type Options struct {
	Config      string
	LogfilePath string
	LogFileSize int

	BaseDir   string
	EngineDir string

	install  bool
	start    bool
	stop     bool
	purge    bool
	purgeAll bool
	api      bool

	Host     string
	Port     int
	VramMode string
	GPU      string
	APIHost  string
	APIPort  int
	Yes      bool

	mode Mode
}

// InitFlags registers and parses the command line flags and validates
// mode exclusivity.
func (opt *Options) InitFlags() error {
	if opt == nil {
		return fmt.Errorf("the options is not initialized")
	}
	defaultBase := filepath.Join(homeDir(), "comfyhost")

	flag.StringVar(&opt.Config, "config", "", "Path to the optional server config.yaml")
	flag.IntVar(&opt.LogFileSize, "log_file_size", 0,
		"Defines the maximum size of the log file. Unit is megabytes. "+
			"The default is 0, which means that the size is unlimited.")
	flag.StringVar(&opt.LogfilePath, "log_file_path", "", "Path to the log file")

	flag.StringVar(&opt.BaseDir, "dir", defaultBase, "Base directory for the engine installation")
	flag.StringVar(&opt.EngineDir, "comfyui-dir", "", "Engine directory override (defaults to <dir>/comfyui)")

	flag.BoolVar(&opt.install, "install", false, "Install the engine and exit")
	flag.BoolVar(&opt.start, "start", false, "Start one engine instance in the foreground")
	flag.BoolVar(&opt.stop, "stop", false, "Stop a running engine instance by port")
	flag.BoolVar(&opt.purge, "purge", false, "Remove the engine directory, keeping environment and models")
	flag.BoolVar(&opt.purgeAll, "purge-all", false, "Remove the entire base directory")
	flag.BoolVar(&opt.api, "api", false, "Run the API server (the default mode)")

	flag.StringVar(&opt.Host, "host", "", "Bind address for engine instances")
	flag.IntVar(&opt.Port, "port", 0, "Engine port for -start/-stop")
	flag.StringVar(&opt.VramMode, "vram", "normal", "VRAM mode for -start (normal, low, none, cpu)")
	flag.StringVar(&opt.GPU, "gpu", "", "GPU index or \"cpu\" for -start")
	flag.StringVar(&opt.APIHost, "api-host", "", "API server bind address")
	flag.IntVar(&opt.APIPort, "api-port", 0, "API server port")
	flag.BoolVar(&opt.Yes, "yes", false, "Skip confirmation prompts")
	flag.Parse()

	modes := 0
	for _, selected := range []struct {
		on   bool
		mode Mode
	}{
		{opt.install, ModeInstall},
		{opt.start, ModeStart},
		{opt.stop, ModeStop},
		{opt.purge, ModePurge},
		{opt.purgeAll, ModePurgeAll},
		{opt.api, ModeAPI},
	} {
		if selected.on {
			modes++
			opt.mode = selected.mode
		}
	}
	if modes > 1 {
		return fmt.Errorf("at most one of -install, -start, -stop, -purge, -purge-all, -api may be given")
	}
	if modes == 0 {
		opt.mode = ModeAPI
	}
	return nil
}

// Mode returns the selected primary mode.
func (opt *Options) Mode() Mode {
	return opt.mode
}

func homeDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return home
	}
	return "."
}
