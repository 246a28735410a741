/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package utils carries small helpers shared by the HTTP handlers.
package utils

import (
	"github.com/gin-gonic/gin"

	"github.com/AMD-AIG-AIMA/comfyhost/pkg/errors"
)

// AbortWithApiError converts err into the unified error envelope and
// aborts the request with the matching status code.
func AbortWithApiError(c *gin.Context, err error) {
	apiErr := errors.FromError(err)
	_ = c.Error(err)
	c.AbortWithStatusJSON(apiErr.HttpCode, apiErr)
}
