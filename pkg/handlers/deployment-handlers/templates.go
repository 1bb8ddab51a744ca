/*
 * Copyright (C) 2025-2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package deployment_handlers

import (
	"embed"
	"fmt"

	"github.com/ai4os/ai4-papi/pkg/catalog"
	"github.com/ai4os/ai4-papi/pkg/errors"
	"github.com/ai4os/ai4-papi/pkg/template"
)

//go:embed etc/*.hcl
var templateFS embed.FS

// KindBatch extends the catalog kinds with the batch deployment family,
// which deploys catalog modules under a batch job skeleton.
const KindBatch = catalog.Kind("batch")

var templateFiles = map[catalog.Kind]string{
	catalog.KindModule: "etc/module.hcl",
	catalog.KindTool:   "etc/tool.hcl",
	KindBatch:          "etc/batch.hcl",
}

// renderJob substitutes the user placeholders of a kind's job template and
// returns the resulting job description.
func renderJob(kind catalog.Kind, vars map[string]string) (string, error) {
	file, ok := templateFiles[kind]
	if !ok {
		return "", errors.NewBadRequest(fmt.Sprintf("unknown deployment kind %q", kind))
	}
	tpl, err := templateFS.ReadFile(file)
	if err != nil {
		return "", errors.NewInternalError(fmt.Sprintf("missing embedded template %s: %v", file, err))
	}
	rendered, err := template.Render(string(tpl), vars)
	if err != nil {
		return "", errors.NewInternalError(fmt.Sprintf("template %s: %v", file, err))
	}
	return rendered, nil
}
