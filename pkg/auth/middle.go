/*
 * Copyright (C) 2025-2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package auth

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ai4os/ai4-papi/pkg/errors"
	"github.com/ai4os/ai4-papi/pkg/utils"
)

const userInfoKey = "papi/user-info"

// Authorize verifies the bearer token and stores the claim set in the
// request context.
func Authorize(_ ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		info, err := userFromRequest(c)
		if err != nil {
			utils.AbortWithApiError(c, err)
			return
		}
		c.Set(userInfoKey, info)
	}
}

func userFromRequest(c *gin.Context) (*UserInfo, error) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return nil, errors.NewUnauthorized("missing Authorization header")
	}
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found {
		return nil, errors.NewUnauthorized("Authorization header is not a bearer token")
	}
	v := Instance()
	if v == nil {
		return nil, errors.NewInternalError("token verifier not initialized")
	}
	return v.Verify(c.Request.Context(), token)
}

// GetUserInfo returns the claim set stored by Authorize.
func GetUserInfo(c *gin.Context) (*UserInfo, error) {
	val, ok := c.Get(userInfoKey)
	if !ok {
		return nil, errors.NewUnauthorized("request is not authenticated")
	}
	info, ok := val.(*UserInfo)
	if !ok {
		return nil, errors.NewInternalError("unexpected user info type in context")
	}
	return info, nil
}

// SetUserInfo is a test hook for handlers that run without the middleware.
func SetUserInfo(c *gin.Context, info *UserInfo) {
	c.Set(userInfoKey, info)
}

// RawToken returns the bearer token as sent, for clients that pass it
// through to upstream services (Function Platform, Secret Store).
func RawToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	token, _ := strings.CutPrefix(header, "Bearer ")
	return token
}
