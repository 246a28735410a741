/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package instance_handlers

import (
	"github.com/AMD-AIG-AIMA/comfyhost/pkg/config"
	"github.com/AMD-AIG-AIMA/comfyhost/pkg/instance"
)

// ListResponse is the body of GET /instances.
type ListResponse struct {
	Instances  []instance.View             `json:"instances"`
	VramModes  []string                    `json:"vram_modes"`
	ExtraFlags map[string]config.ExtraFlag `json:"extra_flags"`
	NextPort   int                         `json:"next_port"`
	Max        int                         `json:"max_instances"`
}
