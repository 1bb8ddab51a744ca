/*
 * Copyright (C) 2025-2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterVOs(t *testing.T) {
	allowed := []string{"vo.ai4eosc.eu", "vo.imagine-ai.eu"}
	tests := []struct {
		name         string
		entitlements []string
		want         []string
	}{
		{
			"member of one allowed VO",
			[]string{"urn:mace:egi.eu:group:vo.ai4eosc.eu:role=member#aai.egi.eu"},
			[]string{"vo.ai4eosc.eu"},
		},
		{
			"subgroups collapse to the VO",
			[]string{
				"urn:mace:egi.eu:group:vo.ai4eosc.eu:role=member#aai.egi.eu",
				"urn:mace:egi.eu:group:vo.ai4eosc.eu:admins:role=owner#aai.egi.eu",
			},
			[]string{"vo.ai4eosc.eu"},
		},
		{
			"unknown VOs are dropped",
			[]string{"urn:mace:egi.eu:group:vo.other.eu:role=member#aai.egi.eu"},
			[]string{},
		},
		{
			"malformed entitlements are ignored",
			[]string{"not-an-urn", ""},
			[]string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := filterVOs(tt.entitlements, allowed)
			assert.ElementsMatch(t, tt.want, got)
		})
	}
}

func TestCheckVOMembership(t *testing.T) {
	info := &UserInfo{Subject: "alice@x", VOs: []string{"vo.ai4eosc.eu"}}
	assert.NoError(t, CheckVOMembership("vo.ai4eosc.eu", info))
	assert.Error(t, CheckVOMembership("vo.imagine-ai.eu", info))
	assert.Error(t, CheckVOMembership("", info))
}

func TestGetUserInfoRoundTrip(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	_, err := GetUserInfo(c)
	assert.Error(t, err)

	want := &UserInfo{Subject: "alice@x", Email: "alice@example.org"}
	SetUserInfo(c, want)
	got, err := GetUserInfo(c)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestRawToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Request.Header.Set("Authorization", "Bearer abc123")
	assert.Equal(t, "abc123", RawToken(c))
}
