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

// Package consts holds the provisioner identity and the label, annotation
// and finalizer keys shared between the controller and the helper jobs.
package consts

const (
	// ProvisionerName identifies this provisioner. A StorageClass belongs to
	// us iff its provisioner field equals this string.
	ProvisionerName = "btrfs.storage.deckhouse.io"

	// FinalizerName blocks PersistentVolume deletion until the backing
	// subvolume has been destroyed or archived.
	FinalizerName = "btrfs.storage.deckhouse.io/provisioner"

	// ProvisionedByAnnotationKey is the well-known annotation marking which
	// provisioner created a PersistentVolume.
	ProvisionedByAnnotationKey = "pv.kubernetes.io/provisioned-by"

	// ControllingNodeLabelKey is set on StorageClasses to name the single
	// node serving the class, or "*" for dynamic assignment.
	ControllingNodeLabelKey = "btrfs.storage.deckhouse.io/node"

	// DynamicNodeLabelValue marks a StorageClass as served by any node.
	// Dispatching for such classes is not supported.
	DynamicNodeLabelValue = "*"

	// NodeHostnameLabelKey is the well-known node hostname label, used both
	// in volume node affinity and for looking nodes up by hostname.
	NodeHostnameLabelKey = "kubernetes.io/hostname"
)

// Helper job labeling. At most one live Job exists per (job-type, target-uid)
// pair; these labels are the sole deduplication mechanism.
const (
	JobTypeLabelKey      = "btrfs.storage.deckhouse.io/job-type"
	JobTargetUIDLabelKey = "btrfs.storage.deckhouse.io/target-uid"

	JobTypeProvisionValue      = "provision"
	JobTypeDeleteValue         = "delete"
	JobTypeInitializeNodeValue = "initialize-node"
)

// Environment variable names shared between the controller (which sets them
// on dispatched jobs) and the job processes (which read them at startup).
const (
	NodeNameEnvVar                 = "NODE_NAME"
	HostFSEnvVar                   = "HOST_FS"
	VolumesDirEnvVar               = "VOLUMES_DIR"
	ArchiveOnDeleteEnvVar          = "ARCHIVE_ON_DELETE"
	StorageClassPerNodeEnvVar      = "STORAGE_CLASS_PER_NODE_ENABLED"
	StorageClassNamePatternEnvVar  = "STORAGE_CLASS_PER_NODE_NAME_PATTERN"
	PodNamespaceEnvVar             = "POD_NAMESPACE"
	ImageEnvVar                    = "IMAGE"
	HealthProbeBindAddressEnvVar   = "HEALTH_PROBE_BIND_ADDRESS"
	MetricsBindAddressEnvVar       = "METRICS_BIND_ADDRESS"
)

const (
	DefaultVolumesDir              = "/volumes"
	DefaultStorageClassNamePattern = "btrfs-provisioner-{}"
	DefaultImage                   = "ghcr.io/deckhouse/btrfs-provisioner"

	// HostFSMountPath is where dispatched jobs mount the host root filesystem.
	HostFSMountPath = "/host"

	ServiceAccountName = "btrfs-provisioner-service-account"
)
