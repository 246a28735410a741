/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package options

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitFlags(t *testing.T) {
	opts := &Options{}
	os.Args = []string{
		"test",
		"--dir=/data/comfyhost",
		"--install",
		"--log_file_size=10240",
		"--log_file_path=./log",
		"--yes",
	}
	require.NoError(t, opts.InitFlags())

	assert.Equal(t, "/data/comfyhost", opts.BaseDir)
	assert.Equal(t, ModeInstall, opts.Mode())
	assert.Equal(t, 10240, opts.LogFileSize)
	assert.Equal(t, "./log", opts.LogfilePath)
	assert.True(t, opts.Yes)
}
