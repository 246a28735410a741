/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package gpu probes the host's NVIDIA GPUs through nvidia-smi. A host
// without working drivers simply reports no GPUs; nothing here fails
// hard.
package gpu

import (
	"context"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"k8s.io/klog/v2"
)

const probeTimeout = 10 * time.Second

// Info describes one detected GPU.
type Info struct {
	Index       int    `json:"index"`
	Name        string `json:"name"`
	MemoryTotal int    `json:"memory_total_mb"`
	MemoryFree  int    `json:"memory_free_mb"`
	UUID        string `json:"uuid"`
}

// Probe lists the GPUs nvidia-smi reports. It returns an empty slice
// when nvidia-smi is missing, times out or emits garbage.
func Probe(ctx context.Context) []Info {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "nvidia-smi",
		"--query-gpu=index,name,memory.total,memory.free,uuid",
		"--format=csv,noheader,nounits")
	out, err := cmd.Output()
	if err != nil {
		klog.V(4).Infof("nvidia-smi probe failed: %v", err)
		return nil
	}
	return parseCSV(string(out))
}

func parseCSV(out string) []Info {
	var gpus []Info
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Split(line, ",")
		if len(fields) < 5 {
			continue
		}
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
		}
		index, err := strconv.Atoi(fields[0])
		if err != nil {
			continue
		}
		total, _ := strconv.Atoi(fields[2])
		free, _ := strconv.Atoi(fields[3])
		gpus = append(gpus, Info{
			Index:       index,
			Name:        fields[1],
			MemoryTotal: total,
			MemoryFree:  free,
			UUID:        fields[4],
		})
	}
	return gpus
}
