/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package status_handlers

import (
	"fmt"

	"github.com/AMD-AIG-AIMA/comfyhost/pkg/errors"
	"github.com/AMD-AIG-AIMA/comfyhost/pkg/installer"
)

// InstanceSummary is the instance part of the status response.
type InstanceSummary struct {
	Total   int `json:"total"`
	Running int `json:"running"`
	Max     int `json:"max"`
}

// StatusResponse is the body of GET /status.
type StatusResponse struct {
	Version   string           `json:"version"`
	Install   installer.Status `json:"install"`
	IsBuiltin bool             `json:"is_builtin"`
	Instances InstanceSummary  `json:"instances"`
	Jobs      int              `json:"jobs"`
}

func badBody(err error) error {
	return errors.NewBadRequest(fmt.Sprintf("Invalid request body: %v", err))
}
