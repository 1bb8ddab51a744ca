/*
 * Copyright (C) 2025-2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package config

const (
	// self
	selfPrefix = "self."
	selfDomain = selfPrefix + "domain"

	// server
	serverPrefix = "server."
	serverPort   = serverPrefix + "port"

	// auth
	authPrefix      = "auth."
	authCORSOrigins = authPrefix + "CORS_origins"
	authOP          = authPrefix + "OP"
	authVO          = authPrefix + "VO"
	authAudience    = authPrefix + "audience"

	// nomad
	nomadPrefix     = "nomad."
	nomadNamespaces = nomadPrefix + "namespaces"
	nomadJobPrefix  = nomadPrefix + "job_prefix"

	// lb
	lbPrefix = "lb."
	lbDomain = lbPrefix + "domain"

	// oscar
	oscarPrefix   = "oscar."
	oscarClusters = oscarPrefix + "clusters"

	// mlflow
	mlflowPrefix = "mlflow."

	// quotas
	quotaPrefix        = "quotas."
	quotaGPUPerUser    = quotaPrefix + "gpu_per_user"
	quotaCPUPerUser    = quotaPrefix + "cpu_per_user"
	quotaRAMPerUser    = quotaPrefix + "ram_per_user"
	quotaDiskPerUser   = quotaPrefix + "disk_per_user"
	quotaDeployments   = quotaPrefix + "deployments_per_user"
	quotaCountDeadJobs = quotaPrefix + "count_dead_jobs"

	// catalog
	catalogPrefix          = "catalog."
	catalogModulesIndex    = catalogPrefix + "modules_index"
	catalogToolsIndex      = catalogPrefix + "tools_index"
	catalogBranch          = catalogPrefix + "branch"
	catalogImageAllowList  = catalogPrefix + "image_allow_list"
	catalogRefreshSchedule = catalogPrefix + "refresh_schedule"

	// harbor
	harborPrefix         = "harbor."
	harborEndpoint       = harborPrefix + "endpoint"
	harborRobotUser      = harborPrefix + "robot_user"
	harborProject        = harborPrefix + "snapshot_project"
	harborUserQuota      = harborPrefix + "user_quota_bytes"
	harborContainerLimit = harborPrefix + "container_limit_bytes"

	// vault
	vaultPrefix     = "vault."
	vaultAddr       = vaultPrefix + "addr"
	vaultSecretRoot = vaultPrefix + "secret_root"

	// try-me
	trymePrefix        = "tryme."
	trymeVO            = trymePrefix + "vo"
	trymeNamespace     = trymePrefix + "namespace"
	trymePerUser       = trymePrefix + "per_user"
	trymePerVO         = trymePrefix + "per_vo"
	trymeUsageCeiling  = trymePrefix + "usage_ceiling"
	trymeWallTimeLimit = trymePrefix + "wall_time_minutes"

	// llm
	llmPrefix  = "llm."
	llmGateway = llmPrefix + "gateway"

	// stats
	statsPrefix       = "stats."
	statsPollInterval = statsPrefix + "poll_interval"

	// mail
	mailPrefix   = "mail."
	mailEndpoint = mailPrefix + "endpoint"
)

// environment variables, resolved at startup
const (
	EnvNomadAddr       = "NOMAD_ADDR"
	EnvNomadCACert     = "NOMAD_CACERT"
	EnvNomadClientCert = "NOMAD_CLIENT_CERT"
	EnvNomadClientKey  = "NOMAD_CLIENT_KEY"
	EnvAccountingPath  = "ACCOUNTING_PTH"
	EnvHarborRobotPass = "HARBOR_ROBOT_PASSWORD"
	EnvVaultToken      = "VAULT_TOKEN"
	EnvLLMAPIKey       = "LLM_API_KEY"
	EnvMailingToken    = "MAILING_TOKEN"
	EnvGithubToken     = "PAPI_GITHUB_TOKEN"
	EnvZenodoToken     = "ZENODO_TOKEN"
	EnvIsProd          = "IS_PROD"
	EnvDashboardURL    = "DASHBOARD_URL"
)
