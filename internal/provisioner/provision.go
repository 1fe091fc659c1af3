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
	"errors"
	"fmt"
	"io/fs"
	"os"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/deckhouse/btrfs-provisioner/internal/btrfs"
	"github.com/deckhouse/btrfs-provisioner/internal/consts"
	"github.com/deckhouse/btrfs-provisioner/internal/ctlerrors"
	"github.com/deckhouse/btrfs-provisioner/internal/quantity"
)

// name generation gives up after this many occupied candidates
const maxNameAttempts = 10

// ProvisionByClaimName fetches the claim and provisions a volume for it.
func (p *Provisioner) ProvisionByClaimName(ctx context.Context, namespace, name string) error {
	pvc := &corev1.PersistentVolumeClaim{}
	if err := p.cl.Get(ctx, client.ObjectKey{Namespace: namespace, Name: name}, pvc); err != nil {
		return fmt.Errorf("getting claim %s/%s: %w", namespace, name, err)
	}

	return p.Provision(ctx, pvc)
}

// Provision creates a quota-limited btrfs subvolume for the claim and a
// PersistentVolume bound to it, pinned to this node.
//
// The subvolume is created first and never rolled back: any failure past
// that point returns an error wrapping [ctlerrors.ErrOrphanedSubvolume] and
// leaves the subvolume for the operator.
func (p *Provisioner) Provision(ctx context.Context, pvc *corev1.PersistentVolumeClaim) error {
	if err := ctlerrors.ValidateArgNotNil(pvc, "pvc"); err != nil {
		return err
	}

	if pvc.Spec.StorageClassName == nil || *pvc.Spec.StorageClassName == "" {
		return ctlerrors.ErrValidationf("claim %s/%s has no storage class", pvc.Namespace, pvc.Name)
	}

	request, ok := pvc.Spec.Resources.Requests[corev1.ResourceStorage]
	if !ok {
		return ctlerrors.ErrValidationf("claim %s/%s has no storage request", pvc.Namespace, pvc.Name)
	}

	requestBytes, err := quantity.ToBytes(request.String())
	if err != nil {
		return fmt.Errorf("parsing storage request %q: %w", request.String(), err)
	}

	p.log.Info("provisioning claim", "claim", pvc.Namespace+"/"+pvc.Name, "bytes", requestBytes)

	if _, err := os.Stat(btrfs.HostPath(p.cfg.HostFSRoot, p.cfg.VolumesDir)); err != nil {
		return fmt.Errorf(
			"the volumes directory %s is not usable on this node, create it or mount a btrfs filesystem there: %w",
			p.cfg.VolumesDir, err,
		)
	}

	volumeName, err := p.generateVolumeName(ctx, pvc)
	if err != nil {
		return err
	}

	meta := btrfs.NewVolumeMeta(p.cfg.VolumesDir, p.cfg.HostFSRoot, volumeName)

	if _, err := os.Stat(meta.HostPath); !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("cannot create subvolume %s, path is occupied", meta.Path)
	}

	p.log.Info("creating subvolume", "path", meta.Path)
	if err := p.btrfs.SubvolumeCreate(ctx, meta.Path); err != nil {
		return fmt.Errorf("creating subvolume %s: %w", meta.Path, err)
	}

	// From here on the subvolume exists and failures orphan it.

	if err := p.btrfs.QuotaEnable(ctx, meta.Path); err != nil {
		return ctlerrors.ErrOrphanedSubvolumef("enabling quota on %s: %w", meta.Path, err)
	}

	if err := p.btrfs.QgroupLimit(ctx, requestBytes, meta.Path); err != nil {
		return ctlerrors.ErrOrphanedSubvolumef("limiting qgroup of %s to %d bytes: %w", meta.Path, requestBytes, err)
	}

	if err := p.btrfs.QuotaRescanWait(ctx, meta.Path); err != nil {
		return ctlerrors.ErrOrphanedSubvolumef("rescanning quota of %s: %w", meta.Path, err)
	}

	p.log.Info("creating persistent volume", "volume", volumeName)

	pv := p.newPersistentVolume(volumeName, pvc, meta)
	if err := p.cl.Create(ctx, pv); err != nil {
		return ctlerrors.ErrOrphanedSubvolumef("creating persistent volume %s: %w", volumeName, err)
	}

	p.log.Info("provisioned volume", "volume", volumeName)
	return nil
}

func (p *Provisioner) newPersistentVolume(
	volumeName string,
	pvc *corev1.PersistentVolumeClaim,
	meta btrfs.VolumeMeta,
) *corev1.PersistentVolume {
	return &corev1.PersistentVolume{
		ObjectMeta: metav1.ObjectMeta{
			Name: volumeName,
			Annotations: map[string]string{
				consts.ProvisionedByAnnotationKey: consts.ProvisionerName,
			},
			Finalizers: []string{consts.FinalizerName},
		},
		Spec: corev1.PersistentVolumeSpec{
			Capacity: corev1.ResourceList{
				corev1.ResourceStorage: pvc.Spec.Resources.Requests[corev1.ResourceStorage],
			},
			PersistentVolumeSource: corev1.PersistentVolumeSource{
				Local: &corev1.LocalVolumeSource{Path: meta.Path},
			},
			AccessModes:      []corev1.PersistentVolumeAccessMode{corev1.ReadWriteOnce},
			StorageClassName: *pvc.Spec.StorageClassName,
			ClaimRef: &corev1.ObjectReference{
				APIVersion: "v1",
				Kind:       "PersistentVolumeClaim",
				Namespace:  pvc.Namespace,
				Name:       pvc.Name,
				UID:        pvc.UID,
			},
			NodeAffinity: &corev1.VolumeNodeAffinity{
				Required: &corev1.NodeSelector{
					NodeSelectorTerms: []corev1.NodeSelectorTerm{{
						MatchExpressions: []corev1.NodeSelectorRequirement{{
							Key:      consts.NodeHostnameLabelKey,
							Operator: corev1.NodeSelectorOpIn,
							Values:   []string{p.cfg.NodeName},
						}},
					}},
				},
			},
		},
	}
}

// generateVolumeName returns a volume name of the form
// <namespace>-<claim>-<suffix> not taken by any existing volume.
func (p *Provisioner) generateVolumeName(ctx context.Context, pvc *corev1.PersistentVolumeClaim) (string, error) {
	for range maxNameAttempts {
		candidate := fmt.Sprintf("%s-%s-%s", pvc.Namespace, pvc.Name, p.randSuffix())

		err := p.cl.Get(ctx, client.ObjectKey{Name: candidate}, &corev1.PersistentVolume{})
		if apierrors.IsNotFound(err) {
			return candidate, nil
		}
		if err != nil {
			return "", fmt.Errorf("checking volume name %s: %w", candidate, err)
		}
	}

	return "", fmt.Errorf("no free volume name found for claim %s/%s", pvc.Namespace, pvc.Name)
}
