/*
 * Copyright (C) 2025-2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package server

import (
	"flag"

	"k8s.io/klog/v2"
)

// Options are the command-line options of the API server.
type Options struct {
	Config string
	Port   int
}

// InitFlags binds and parses the command-line flags, including klog's.
func (o *Options) InitFlags() error {
	flag.StringVar(&o.Config, "config", "/etc/ai4-papi/config.yaml", "path to the YAML configuration file")
	flag.IntVar(&o.Port, "port", 0, "listen port, overrides server.port from the configuration")
	klog.InitFlags(nil)
	flag.Parse()
	return nil
}
