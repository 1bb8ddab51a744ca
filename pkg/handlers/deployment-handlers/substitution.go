/*
 * Copyright (C) 2025-2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package deployment_handlers

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ai4os/ai4-papi/pkg/auth"
	"github.com/ai4os/ai4-papi/pkg/config"
	"github.com/ai4os/ai4-papi/pkg/errors"
	"github.com/ai4os/ai4-papi/pkg/template"
	"github.com/ai4os/ai4-papi/pkg/utils"
)

const (
	maxTitleLen       = 45
	maxDescriptionLen = 1000
	minIDEPasswordLen = 9

	defaultPriority = 50
)

// hclEscape makes a user value safe to splice into a quoted HCL string:
// backslashes and quotes are escaped, dollar signs are doubled so the
// Scheduler treats them as literals.
func hclEscape(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `"`, `\"`)
	return template.EscapeValue(v)
}

func confString(conf map[string]map[string]interface{}, section, field string) string {
	value, ok := conf[section][field]
	if !ok || value == nil {
		return ""
	}
	return fmt.Sprintf("%v", value)
}

func confInt(conf map[string]map[string]interface{}, section, field string) (int, error) {
	raw := confString(conf, section, field)
	if raw == "" {
		return 0, nil
	}
	// viper and JSON decode numbers as float64
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, errors.NewBadRequest(fmt.Sprintf("%s.%s: value %q is not a number", section, field, raw))
	}
	return int(f), nil
}

// buildSubstitutions assembles the placeholder map of a deployment job from
// the merged configuration. conf must already be validated against the
// kind's schema.
func buildSubstitutions(info *auth.UserInfo, vo, jobUUID string,
	conf map[string]map[string]interface{}) (map[string]string, error) {

	namespace := config.GetNamespace(vo)
	if namespace == "" {
		return nil, errors.NewBadRequest("VO has no namespace mapping: " + vo)
	}

	hostname := confString(conf, "general", "hostname")
	if hostname != "" && !utils.ValidHostname(hostname) {
		return nil, errors.NewBadRequest(fmt.Sprintf("hostname %q is not alphanumeric", hostname))
	}
	if hostname == "" {
		hostname = jobUUID
	}

	service := confString(conf, "general", "service")
	password := confString(conf, "general", "jupyter_password")
	if (service == "jupyter" || service == "vscode") && len(password) < minIDEPasswordLen {
		return nil, errors.NewBadRequest(
			fmt.Sprintf("the IDE password must have at least %d characters", minIDEPasswordLen))
	}

	cpu, err := confInt(conf, "hardware", "cpu_num")
	if err != nil {
		return nil, err
	}
	gpu, err := confInt(conf, "hardware", "gpu_num")
	if err != nil {
		return nil, err
	}
	ram, err := confInt(conf, "hardware", "ram")
	if err != nil {
		return nil, err
	}
	disk, err := confInt(conf, "hardware", "disk")
	if err != nil {
		return nil, err
	}

	vars := map[string]string{
		"JOB_UUID":    jobUUID,
		"NAMESPACE":   namespace,
		"PRIORITY":    strconv.Itoa(defaultPriority),
		"OWNER":       info.Subject,
		"OWNER_NAME":  hclEscape(info.Name),
		"OWNER_EMAIL": hclEscape(info.Email),
		"TITLE":       hclEscape(utils.Truncate(confString(conf, "general", "title"), maxTitleLen)),
		"DESCRIPTION": hclEscape(utils.Truncate(confString(conf, "general", "desc"), maxDescriptionLen)),
		"BASE_DOMAIN": config.GetDeploymentDomain(vo),
		"HOSTNAME":    hostname,

		"DOCKER_IMAGE": confString(conf, "general", "docker_image"),
		"DOCKER_TAG":   confString(conf, "general", "docker_tag"),
		"SERVICE":      service,

		"CPU_NUM": strconv.Itoa(cpu),
		"RAM":     strconv.Itoa(ram),
		"DISK":    strconv.Itoa(disk),
		// docker's shm_size is in bytes; give half the RAM
		"SHARED_MEMORY": strconv.FormatInt(int64(ram)*1_000_000/2, 10),

		"GPU_NUM":       strconv.Itoa(gpu),
		"GPU_MODELNAME": hclEscape(confString(conf, "hardware", "gpu_type")),

		"JUPYTER_PASSWORD": hclEscape(password),

		"RCLONE_CONF":     confString(conf, "storage", "rclone_conf"),
		"RCLONE_URL":      confString(conf, "storage", "rclone_url"),
		"RCLONE_VENDOR":   confString(conf, "storage", "rclone_vendor"),
		"RCLONE_USER":     hclEscape(confString(conf, "storage", "rclone_user")),
		"RCLONE_PASSWORD": "",

		// consumed by the mail task that notifies the owner on deploy
		"MAILING_TOKEN": config.GetMailingToken(),
		"PROJECT_NAME":  strings.ToUpper(namespace),
		"TODAY":         time.Now().UTC().Format("2006-01-02"),
	}

	// rclone credentials travel obscured, matching what the client expects
	if pass := confString(conf, "storage", "rclone_password"); pass != "" {
		obscured, err := utils.Obscure(pass)
		if err != nil {
			return nil, errors.NewInternalError(fmt.Sprintf("failed to obscure storage credentials: %v", err))
		}
		vars["RCLONE_PASSWORD"] = obscured
	}

	return vars, nil
}

// batchSubstitutions extends the common map with the batch-only fields.
func batchSubstitutions(info *auth.UserInfo, vo, jobUUID string,
	conf map[string]map[string]interface{}) (map[string]string, error) {

	vars, err := buildSubstitutions(info, vo, jobUUID, conf)
	if err != nil {
		return nil, err
	}
	vars["COMMAND"] = hclEscape(confString(conf, "general", "command"))
	vars["INPUT_PATH"] = hclEscape(confString(conf, "storage", "input_path"))
	vars["OUTPUT_PATH"] = hclEscape(confString(conf, "storage", "output_path"))
	return vars, nil
}

// quotaRequest extracts the resource footprint quota admission runs on.
func quotaRequest(conf map[string]map[string]interface{}) (cpu, gpu, ram, disk int, err error) {
	if cpu, err = confInt(conf, "hardware", "cpu_num"); err != nil {
		return
	}
	if gpu, err = confInt(conf, "hardware", "gpu_num"); err != nil {
		return
	}
	if ram, err = confInt(conf, "hardware", "ram"); err != nil {
		return
	}
	disk, err = confInt(conf, "hardware", "disk")
	return
}
