/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package utils

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AMD-AIG-AIMA/comfyhost/pkg/errors"
)

func TestAbortWithApiError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		httpCode int
		reason   string
	}{
		{
			"plain error becomes 500",
			fmt.Errorf("boom"),
			http.StatusInternalServerError,
			"Internal server error",
		},
		{
			"bad request passes through",
			errors.NewBadRequest("Invalid vram_mode \"turbo\""),
			http.StatusBadRequest,
			"Invalid vram_mode \"turbo\"",
		},
		{
			"not found passes through",
			errors.NewNotFound("Instance \"gpu0_9999\" not found"),
			http.StatusNotFound,
			"Instance \"gpu0_9999\" not found",
		},
	}
	gin.SetMode(gin.ReleaseMode)
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			rsp := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(rsp)
			AbortWithApiError(c, test.err)
			assert.Equal(t, test.httpCode, rsp.Code)

			var body map[string]string
			require.NoError(t, json.Unmarshal(rsp.Body.Bytes(), &body))
			assert.Equal(t, test.reason, body["error"])
		})
	}
}
