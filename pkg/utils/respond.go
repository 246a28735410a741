/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RespondAccepted answers 202 with the id of the job tracking the
// operation.
func RespondAccepted(c *gin.Context, jobID string) {
	c.JSON(http.StatusAccepted, gin.H{"status": "pending", "job_id": jobID})
}
