/*
Copyright 2025 Flant JSC

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/deckhouse/btrfs-provisioner/internal/consts"
)

const (
	DefaultHealthProbeBindAddress = ":4271"
	DefaultMetricsBindAddress     = ":4272"
	DefaultPodNamespace           = "btrfs-provisioner"

	namespaceFile = "/var/run/secrets/kubernetes.io/serviceaccount/namespace"
)

type EnvConfig struct {
	NodeName   string
	HostFSRoot string
	VolumesDir string

	ArchiveOnDelete            bool
	StorageClassPerNodeEnabled bool
	StorageClassNamePattern    string

	// PodNamespace is where this pod runs and where helper Jobs go.
	PodNamespace string

	// Image is the image helper Jobs run, normally this pod's own image.
	Image string

	HealthProbeBindAddress string
	MetricsBindAddress     string
}

func GetEnvConfig() (*EnvConfig, error) {
	cfg := &EnvConfig{}

	cfg.NodeName = os.Getenv(consts.NodeNameEnvVar)
	if cfg.NodeName == "" {
		if hostName, err := os.Hostname(); err != nil {
			return nil, fmt.Errorf("getting hostname: %w", err)
		} else {
			cfg.NodeName = hostName
		}
	}

	cfg.HostFSRoot = os.Getenv(consts.HostFSEnvVar)

	cfg.VolumesDir = os.Getenv(consts.VolumesDirEnvVar)
	if cfg.VolumesDir == "" {
		cfg.VolumesDir = consts.DefaultVolumesDir
	}

	var err error
	if cfg.ArchiveOnDelete, err = envBool(consts.ArchiveOnDeleteEnvVar); err != nil {
		return nil, err
	}
	if cfg.StorageClassPerNodeEnabled, err = envBool(consts.StorageClassPerNodeEnvVar); err != nil {
		return nil, err
	}

	cfg.StorageClassNamePattern = os.Getenv(consts.StorageClassNamePatternEnvVar)
	if cfg.StorageClassNamePattern == "" {
		cfg.StorageClassNamePattern = consts.DefaultStorageClassNamePattern
	}

	cfg.PodNamespace = os.Getenv(consts.PodNamespaceEnvVar)
	if cfg.PodNamespace == "" {
		cfg.PodNamespace = namespaceFromServiceAccount()
	}

	cfg.Image = os.Getenv(consts.ImageEnvVar)
	if cfg.Image == "" {
		cfg.Image = consts.DefaultImage
	}

	cfg.HealthProbeBindAddress = os.Getenv(consts.HealthProbeBindAddressEnvVar)
	if cfg.HealthProbeBindAddress == "" {
		cfg.HealthProbeBindAddress = DefaultHealthProbeBindAddress
	}

	cfg.MetricsBindAddress = os.Getenv(consts.MetricsBindAddressEnvVar)
	if cfg.MetricsBindAddress == "" {
		cfg.MetricsBindAddress = DefaultMetricsBindAddress
	}

	return cfg, nil
}

func envBool(name string) (bool, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return false, nil
	}

	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("parsing %s=%q: %w", name, raw, err)
	}
	return value, nil
}

func namespaceFromServiceAccount() string {
	data, err := os.ReadFile(namespaceFile)
	if err != nil {
		return DefaultPodNamespace
	}

	if ns := strings.TrimSpace(string(data)); ns != "" {
		return ns
	}
	return DefaultPodNamespace
}
