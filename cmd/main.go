/*
 * Copyright (C) 2025-2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package main

import (
	"os"

	"k8s.io/klog/v2"

	"github.com/ai4os/ai4-papi/pkg/server"
)

func main() {
	s, err := server.NewServer()
	if err != nil {
		klog.ErrorS(err, "failed to create api-server")
		os.Exit(-1)
	}
	s.Start()
}
