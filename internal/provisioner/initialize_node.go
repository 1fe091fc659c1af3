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

package provisioner

import (
	"context"
	"fmt"
	"os"
	"strings"

	storagev1 "k8s.io/api/storage/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/utils/ptr"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/deckhouse/btrfs-provisioner/internal/btrfs"
	"github.com/deckhouse/btrfs-provisioner/internal/consts"
)

// InitializeNode verifies the node's volumes directory and, when per-node
// StorageClasses are enabled, registers the class dedicated to this node.
// It fails if the node already has one.
func (p *Provisioner) InitializeNode(ctx context.Context) error {
	if _, err := os.Stat(btrfs.HostPath(p.cfg.HostFSRoot, p.cfg.VolumesDir)); err != nil {
		return fmt.Errorf(
			"the volumes directory %s does not exist on this node, create it manually: %w",
			p.cfg.VolumesDir, err,
		)
	}

	if !p.cfg.StorageClassPerNodeEnabled {
		return nil
	}

	p.log.Info("creating storage class", "node", p.cfg.NodeName)

	existing := &storagev1.StorageClassList{}
	err := p.cl.List(ctx, existing,
		client.MatchingLabels{consts.ControllingNodeLabelKey: p.cfg.NodeName},
		client.Limit(1),
	)
	if err != nil {
		return fmt.Errorf("listing storage classes of node %s: %w", p.cfg.NodeName, err)
	}

	if len(existing.Items) > 0 {
		return fmt.Errorf(
			"storage class for node %s already exists: %s",
			p.cfg.NodeName, existing.Items[0].Name,
		)
	}

	sc := &storagev1.StorageClass{
		ObjectMeta: metav1.ObjectMeta{
			Name:   strings.ReplaceAll(p.cfg.StorageClassNamePattern, "{}", p.cfg.NodeName),
			Labels: map[string]string{consts.ControllingNodeLabelKey: p.cfg.NodeName},
		},
		Provisioner:          consts.ProvisionerName,
		AllowVolumeExpansion: ptr.To(false),
	}

	if err := p.cl.Create(ctx, sc); err != nil {
		return fmt.Errorf("creating storage class %s: %w", sc.Name, err)
	}

	p.log.Info("created storage class", "storageClass", sc.Name)
	return nil
}
