/*
 * Copyright (C) 2025-2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// OscarCluster is one Function Platform endpoint, keyed per VO in the
// oscar.clusters map.
type OscarCluster struct {
	Endpoint  string `json:"endpoint" yaml:"endpoint"`
	ClusterID string `json:"cluster_id" yaml:"cluster_id"`
}

// SetValue sets a configuration value for the specified key.
func SetValue(key string, value interface{}) {
	viper.Set(key, value)
}

// LoadConfig loads configuration from the specified file path.
func LoadConfig(path string) error {
	viper.SetConfigFile(path)
	viper.SetConfigType("yaml")
	return viper.ReadInConfig()
}

// Validate checks the keys the server cannot run without.
func Validate() error {
	var missing []string
	for _, key := range []string{selfDomain, authOP, authVO, nomadNamespaces, lbDomain} {
		if !viper.IsSet(key) {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required config keys: %s", strings.Join(missing, ", "))
	}
	return nil
}

// ValidateEnvironment checks the process environment. In production the
// Scheduler address and the secret-store token are mandatory.
func ValidateEnvironment() error {
	if !IsProd() {
		return nil
	}
	var missing []string
	for _, key := range []string{EnvNomadAddr, EnvVaultToken, EnvHarborRobotPass} {
		if os.Getenv(key) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	return nil
}

func getString(key, defaultValue string) string {
	if !viper.IsSet(key) {
		return defaultValue
	}
	return viper.GetString(key)
}

func getBool(key string, defaultValue bool) bool {
	if !viper.IsSet(key) {
		return defaultValue
	}
	return viper.GetBool(key)
}

func getInt(key string, defaultValue int) int {
	if !viper.IsSet(key) {
		return defaultValue
	}
	return viper.GetInt(key)
}

func getInt64(key string, defaultValue int64) int64 {
	if !viper.IsSet(key) {
		return defaultValue
	}
	return viper.GetInt64(key)
}

func getFloat(key string, defaultValue float64) float64 {
	if !viper.IsSet(key) {
		return defaultValue
	}
	return viper.GetFloat64(key)
}

func getStrings(key string) []string {
	return viper.GetStringSlice(key)
}

func getEnv(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultValue
}

// IsProd reports whether the process runs with production strictness. Dev
// mode tolerates missing secrets and skips some external probes.
func IsProd() bool {
	return strings.EqualFold(getEnv(EnvIsProd, "false"), "true")
}

func GetSelfDomain() string {
	return getString(selfDomain, "")
}

func GetServerPort() int {
	return getInt(serverPort, 8080)
}

func GetCORSOrigins() []string {
	return getStrings(authCORSOrigins)
}

// GetOIDCIssuers returns the trusted OIDC provider URLs.
func GetOIDCIssuers() []string {
	return getStrings(authOP)
}

// GetAllowedVOs returns the Virtual Organizations this instance serves.
func GetAllowedVOs() []string {
	return getStrings(authVO)
}

func GetAudience() string {
	return getString(authAudience, "")
}

// GetNamespace maps a VO to its Scheduler namespace.
func GetNamespace(vo string) string {
	return viper.GetStringMapString(nomadNamespaces)[strings.ToLower(vo)]
}

func GetNamespaces() map[string]string {
	return viper.GetStringMapString(nomadNamespaces)
}

// GetDeploymentDomain maps a VO to the base domain its deployments are
// exposed under.
func GetDeploymentDomain(vo string) string {
	return viper.GetStringMapString(lbDomain)[strings.ToLower(vo)]
}

func GetMLflowURI(vo string) string {
	return viper.GetStringMapString(strings.TrimSuffix(mlflowPrefix, "."))[strings.ToLower(vo)]
}

// GetOscarCluster maps a VO to its Function Platform cluster.
func GetOscarCluster(vo string) (OscarCluster, bool) {
	clusters := map[string]OscarCluster{}
	if err := viper.UnmarshalKey(strings.TrimSuffix(oscarClusters, "."), &clusters); err != nil {
		return OscarCluster{}, false
	}
	cluster, ok := clusters[strings.ToLower(vo)]
	return cluster, ok
}

func GetJobPrefix() string {
	return getString(nomadJobPrefix, "userjob")
}

// GetGPUPerUser is the global per-user GPU cap, applied on top of whatever
// the workload schema allows.
func GetGPUPerUser(vo string) int {
	return perVOInt(quotaGPUPerUser, vo, 2)
}

// perVOInt reads a quota key, honoring a per-VO override when present.
func perVOInt(key, vo string, def int) int {
	field := strings.TrimPrefix(key, quotaPrefix)
	override := quotaPrefix + "overrides." + vo + "." + field
	if viper.IsSet(override) {
		return viper.GetInt(override)
	}
	return getInt(key, def)
}

// Per-user caps; zero means unlimited.
func GetCPUPerUser(vo string) int {
	return perVOInt(quotaCPUPerUser, vo, 0)
}

func GetRAMPerUser(vo string) int {
	return perVOInt(quotaRAMPerUser, vo, 0)
}

func GetDiskPerUser(vo string) int {
	return perVOInt(quotaDiskPerUser, vo, 0)
}

func GetDeploymentsPerUser(vo string) int {
	return perVOInt(quotaDeployments, vo, 0)
}

// CountDeadJobs decides whether jobs already dead but not yet purged still
// count against the owner's quota.
func CountDeadJobs() bool {
	return getBool(quotaCountDeadJobs, false)
}

func GetModulesIndexURL() string {
	return getString(catalogModulesIndex, "")
}

func GetToolsIndexURL() string {
	return getString(catalogToolsIndex, "")
}

func GetCatalogBranch() string {
	return getString(catalogBranch, "master")
}

// GetImageAllowList returns the registry/org prefixes a catalog item's
// docker image may come from.
func GetImageAllowList() []string {
	return getStrings(catalogImageAllowList)
}

func GetCatalogRefreshSchedule() string {
	return getString(catalogRefreshSchedule, "@hourly")
}

func GetHarborEndpoint() string {
	return getString(harborEndpoint, "")
}

func GetHarborRobotUser() string {
	return getString(harborRobotUser, "robot$papi")
}

func GetHarborRobotPassword() string {
	return getEnv(EnvHarborRobotPass, "")
}

func GetSnapshotProject() string {
	return getString(harborProject, "user-snapshots")
}

// GetSnapshotUserQuota is the per-user total of snapshot bytes in the
// Registry.
func GetSnapshotUserQuota() int64 {
	return getInt64(harborUserQuota, 15*1024*1024*1024)
}

// GetSnapshotContainerLimit is the largest container filesystem a snapshot
// job will commit.
func GetSnapshotContainerLimit() int64 {
	return getInt64(harborContainerLimit, 10*1024*1024*1024)
}

func GetVaultAddr() string {
	return getString(vaultAddr, "")
}

func GetVaultToken() string {
	return getEnv(EnvVaultToken, "")
}

func GetSecretRoot() string {
	return getString(vaultSecretRoot, "/secrets")
}

func GetTryMeVO() string {
	return getString(trymeVO, "vo.ai4eosc.eu")
}

func GetTryMeNamespace() string {
	return getString(trymeNamespace, "tryme")
}

func GetTryMePerUser() int {
	return getInt(trymePerUser, 3)
}

func GetTryMePerVO() int {
	return getInt(trymePerVO, 100)
}

// GetTryMeUsageCeiling is the fraction of try-me pool CPU/RAM above which
// new try-me jobs are refused.
func GetTryMeUsageCeiling() float64 {
	return getFloat(trymeUsageCeiling, 0.85)
}

func GetTryMeWallTimeMinutes() int {
	return getInt(trymeWallTimeLimit, 10)
}

func GetLLMGateway() string {
	return getString(llmGateway, "")
}

func GetLLMAPIKey() string {
	return getEnv(EnvLLMAPIKey, "")
}

func GetStatsPollInterval() string {
	return getString(statsPollInterval, "@every 30s")
}

func GetAccountingPath() string {
	return getEnv(EnvAccountingPath, "")
}

func GetMailEndpoint() string {
	return getString(mailEndpoint, "")
}

func GetMailingToken() string {
	return getEnv(EnvMailingToken, "")
}

func GetGithubToken() string {
	return getEnv(EnvGithubToken, "")
}

func GetNomadAddr() string {
	return getEnv(EnvNomadAddr, "http://127.0.0.1:4646")
}

func GetNomadCACert() string {
	return getEnv(EnvNomadCACert, "")
}

func GetNomadClientCert() string {
	return getEnv(EnvNomadClientCert, "")
}

func GetNomadClientKey() string {
	return getEnv(EnvNomadClientKey, "")
}

func GetDashboardURL() string {
	return getEnv(EnvDashboardURL, "")
}
