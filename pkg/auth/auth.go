/*
 * Copyright (C) 2025-2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package auth

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/samber/lo"
	"k8s.io/klog/v2"

	"github.com/ai4os/ai4-papi/pkg/config"
	"github.com/ai4os/ai4-papi/pkg/errors"
)

// UserInfo is the verified claim set handlers work with. VOs is already
// filtered down to the instance's allow-list.
type UserInfo struct {
	Subject string   `json:"subject"`
	Issuer  string   `json:"issuer"`
	Name    string   `json:"name"`
	Email   string   `json:"email"`
	VOs     []string `json:"vos"`
}

type claims struct {
	Subject      string   `json:"sub"`
	Issuer       string   `json:"iss"`
	Name         string   `json:"name"`
	Email        string   `json:"email"`
	Entitlements []string `json:"eduperson_entitlement"`
}

// entitlement form: urn:mace:egi.eu:group:<vo>[:subgroup...][:role=x]#<authority>
var entitlementRe = regexp.MustCompile(`^urn:mace:egi\.eu:group:([^:#]+)`)

var (
	initOnce sync.Once
	instance *Verifier
)

// Verifier validates bearer tokens against every configured OIDC issuer.
type Verifier struct {
	verifiers  map[string]*oidc.IDTokenVerifier
	allowedVOs []string
}

// NewVerifier builds the singleton verifier set from auth.OP. An issuer that
// cannot be reached at startup is logged and skipped in dev mode, fatal in
// production.
func NewVerifier(ctx context.Context) (*Verifier, error) {
	var initErr error
	initOnce.Do(func() {
		instance, initErr = initializeVerifier(ctx)
	})
	if initErr != nil {
		return nil, initErr
	}
	return instance, nil
}

func initializeVerifier(ctx context.Context) (*Verifier, error) {
	issuers := config.GetOIDCIssuers()
	if len(issuers) == 0 {
		return nil, fmt.Errorf("no OIDC issuers configured (auth.OP)")
	}
	v := &Verifier{
		verifiers:  make(map[string]*oidc.IDTokenVerifier, len(issuers)),
		allowedVOs: config.GetAllowedVOs(),
	}
	oidcConfig := &oidc.Config{SkipClientIDCheck: true}
	if audience := config.GetAudience(); audience != "" {
		oidcConfig = &oidc.Config{ClientID: audience}
	}
	for _, issuer := range issuers {
		provider, err := oidc.NewProvider(ctx, issuer)
		if err != nil {
			if config.IsProd() {
				return nil, fmt.Errorf("failed to reach OIDC provider %q: %v", issuer, err)
			}
			klog.Warningf("skipping unreachable OIDC provider %q: %v", issuer, err)
			continue
		}
		v.verifiers[issuer] = provider.Verifier(oidcConfig)
	}
	if len(v.verifiers) == 0 {
		return nil, fmt.Errorf("no reachable OIDC providers")
	}
	return v, nil
}

// Instance returns the verifier built by NewVerifier, or nil before init.
func Instance() *Verifier {
	return instance
}

// Verify validates a raw bearer token against the configured issuers and
// returns the claim set. Tokens whose entitlements intersect none of the
// allowed VOs still verify; VO membership is checked per request.
func (v *Verifier) Verify(ctx context.Context, rawToken string) (*UserInfo, error) {
	var lastErr error
	for issuer, verifier := range v.verifiers {
		idToken, err := verifier.Verify(ctx, rawToken)
		if err != nil {
			lastErr = err
			continue
		}
		var cl claims
		if err := idToken.Claims(&cl); err != nil {
			return nil, errors.NewUnauthorized(fmt.Sprintf("failed to parse claims: %v", err))
		}
		if cl.Subject == "" {
			return nil, errors.NewUnauthorized("token has no subject")
		}
		return &UserInfo{
			Subject: cl.Subject,
			Issuer:  issuer,
			Name:    cl.Name,
			Email:   cl.Email,
			VOs:     filterVOs(cl.Entitlements, v.allowedVOs),
		}, nil
	}
	return nil, errors.NewUnauthorized(fmt.Sprintf("invalid token: %v", lastErr))
}

// filterVOs extracts VO names from entitlement URNs and keeps those the
// instance serves.
func filterVOs(entitlements, allowed []string) []string {
	groups := lo.FilterMap(entitlements, func(e string, _ int) (string, bool) {
		m := entitlementRe.FindStringSubmatch(e)
		if m == nil {
			return "", false
		}
		return m[1], true
	})
	groups = lo.Uniq(groups)
	return lo.Filter(groups, func(vo string, _ int) bool {
		return lo.Contains(allowed, vo)
	})
}

// CheckVOMembership fails with forbidden when the user does not belong to vo.
func CheckVOMembership(vo string, info *UserInfo) error {
	if vo == "" {
		return errors.NewBadRequest("a VO parameter is required")
	}
	if !lo.Contains(info.VOs, vo) {
		return errors.NewForbidden(fmt.Sprintf(
			"user is not a member of VO %q (memberships: %s)",
			vo, strings.Join(info.VOs, ", ")))
	}
	return nil
}
