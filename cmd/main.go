/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package main

import (
	"fmt"
	"os"

	"k8s.io/klog/v2"

	"github.com/AMD-AIG-AIMA/comfyhost/pkg/options"
	"github.com/AMD-AIG-AIMA/comfyhost/pkg/server"
)

func main() {
	opts := &options.Options{}
	if err := opts.InitFlags(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	if opts.Mode() != options.ModeAPI {
		os.Exit(server.RunCLI(opts))
	}

	s, err := server.NewServer(opts)
	if err != nil {
		klog.ErrorS(err, "failed to create server")
		os.Exit(1)
	}
	if err = s.Start(); err != nil {
		os.Exit(1)
	}
}
