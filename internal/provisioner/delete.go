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
	"path/filepath"
	"slices"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/deckhouse/btrfs-provisioner/internal/btrfs"
	"github.com/deckhouse/btrfs-provisioner/internal/consts"
	"github.com/deckhouse/btrfs-provisioner/internal/ctlerrors"
	"github.com/deckhouse/btrfs-provisioner/internal/storageclass"
)

// DeleteByName fetches the volume and deletes its subvolume.
func (p *Provisioner) DeleteByName(ctx context.Context, volumeName string) error {
	pv := &corev1.PersistentVolume{}
	if err := p.cl.Get(ctx, client.ObjectKey{Name: volumeName}, pv); err != nil {
		return fmt.Errorf("getting volume %s: %w", volumeName, err)
	}

	return p.Delete(ctx, pv)
}

// Delete destroys or archives the volume's subvolume, then removes our
// finalizer so Kubernetes can drop the object. Finalizer removal is
// strictly ordered after backend success: a failure anywhere leaves the
// finalizer in place and the volume held.
func (p *Provisioner) Delete(ctx context.Context, pv *corev1.PersistentVolume) error {
	if err := ctlerrors.ValidateArgNotNil(pv, "pv"); err != nil {
		return err
	}

	if pv.Spec.StorageClassName == "" {
		return ctlerrors.ErrValidationf("volume %s has no storage class", pv.Name)
	}

	controlling, err := storageclass.IsControllingByName(ctx, p.cl, pv.Spec.StorageClassName)
	if err != nil {
		return err
	}
	if !controlling {
		return ctlerrors.ErrValidationf(
			"storage class %s of volume %s is not managed by this provisioner",
			pv.Spec.StorageClassName, pv.Name,
		)
	}

	finalizerIndex := slices.Index(pv.Finalizers, consts.FinalizerName)
	if finalizerIndex < 0 {
		return ctlerrors.ErrValidationf("volume %s does not carry finalizer %s", pv.Name, consts.FinalizerName)
	}

	p.log.Info("deleting volume", "volume", pv.Name)

	meta := btrfs.NewVolumeMeta(p.cfg.VolumesDir, p.cfg.HostFSRoot, pv.Name)

	if _, err := os.Stat(meta.HostPath); err != nil {
		return ctlerrors.ErrNotFoundf("subvolume %s: %v", meta.Path, err)
	}

	// Qgroup destruction is best-effort: quotas may have never been enabled
	// on this filesystem.
	if qgroup, err := p.btrfs.GetQgroup(ctx, meta.Path); err != nil {
		p.log.Warn("could not detect a qgroup, skipping its destruction", "path", meta.Path, "err", err)
	} else {
		p.log.Info("destroying qgroup", "qgroup", qgroup)
		if err := p.btrfs.QgroupDestroy(ctx, qgroup, meta.Path); err != nil {
			return fmt.Errorf("destroying qgroup %s: %w", qgroup, err)
		}
	}

	if p.cfg.ArchiveOnDelete {
		archivePath := filepath.Join(
			filepath.Dir(meta.Path),
			fmt.Sprintf("_archive-%d-%s", p.now().Unix(), filepath.Base(meta.Path)),
		)

		p.log.Info("archiving subvolume", "from", meta.Path, "to", archivePath)
		if err := p.btrfs.Move(ctx, meta.Path, archivePath); err != nil {
			return fmt.Errorf("archiving subvolume %s: %w", meta.Path, err)
		}
	} else {
		p.log.Info("destroying subvolume", "path", meta.Path)
		if err := p.btrfs.SubvolumeDelete(ctx, meta.Path); err != nil {
			return fmt.Errorf("destroying subvolume %s: %w", meta.Path, err)
		}
	}

	p.log.Info("removing finalizer", "volume", pv.Name)

	// Remove exactly the finalizer position observed above. The indexed
	// JSON patch fails on a concurrent finalizer list change instead of
	// silently removing someone else's entry.
	patch := client.RawPatch(
		types.JSONPatchType,
		fmt.Appendf(nil, `[{"op":"remove","path":"/metadata/finalizers/%d"}]`, finalizerIndex),
	)
	if err := p.cl.Patch(ctx, pv, patch); err != nil {
		return fmt.Errorf("removing finalizer from volume %s: %w", pv.Name, err)
	}

	p.log.Info("deleted volume", "volume", pv.Name)
	return nil
}
