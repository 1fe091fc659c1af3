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

package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/utils/ptr"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/deckhouse/btrfs-provisioner/internal/consts"
	"github.com/deckhouse/btrfs-provisioner/internal/ctlerrors"
)

// completed helper jobs are garbage-collected after this delay
const jobTTLSeconds = 600

// Config carries the settings a dispatched job needs, propagated to the job
// process through its environment.
type Config struct {
	// Namespace is where helper Jobs are created.
	Namespace string

	// Image is the provisioner image the Jobs run.
	Image string

	VolumesDir                 string
	ArchiveOnDelete            bool
	StorageClassPerNodeEnabled bool
	StorageClassNamePattern    string
}

// Dispatcher creates helper Jobs, at most one live Job per action.
type Dispatcher struct {
	cl  client.Client
	log *slog.Logger
	cfg Config
}

func NewDispatcher(cl client.Client, log *slog.Logger, cfg Config) (*Dispatcher, error) {
	if err := ctlerrors.ValidateArgNotNil(cl, "cl"); err != nil {
		return nil, err
	}
	if err := ctlerrors.ValidateArgNotNil(log, "log"); err != nil {
		return nil, err
	}

	return &Dispatcher{cl: cl, log: log, cfg: cfg}, nil
}

// Config returns the dispatch settings this Dispatcher was built with.
func (d *Dispatcher) Config() Config {
	return d.cfg
}

// EnsureJob dispatches a Job running this provisioner image with args on
// nodeName, unless a Job for the same action is already live. It returns
// false when an existing Job was found and nothing was created.
//
// The list-then-create sequence is best-effort, not transactional: it is
// safe because dispatch for any given target happens on a single control
// path.
func (d *Dispatcher) EnsureJob(
	ctx context.Context,
	action Action,
	name string,
	nodeName string,
	args []string,
) (bool, error) {
	existing := &batchv1.JobList{}
	err := d.cl.List(ctx, existing,
		client.InNamespace(d.cfg.Namespace),
		client.MatchingLabelsSelector{Selector: Selector(action)},
		client.Limit(1),
	)
	if err != nil {
		return false, fmt.Errorf("listing jobs: %w", err)
	}

	if len(existing.Items) > 0 {
		d.log.Debug(
			"job already exists, skipping dispatch",
			"job", existing.Items[0].Name, "action", action.Labels(),
		)
		return false, nil
	}

	job := d.newJob(action, name, nodeName, args)

	if err := d.cl.Create(ctx, job); err != nil {
		if apierrors.IsAlreadyExists(err) {
			return false, nil
		}
		return false, fmt.Errorf("creating job: %w", err)
	}

	return true, nil
}

func (d *Dispatcher) newJob(action Action, name string, nodeName string, args []string) *batchv1.Job {
	return &batchv1.Job{
		ObjectMeta: metav1.ObjectMeta{
			GenerateName: name + "-",
			Namespace:    d.cfg.Namespace,
			Labels:       action.Labels(),
		},
		Spec: batchv1.JobSpec{
			TTLSecondsAfterFinished: ptr.To(int32(jobTTLSeconds)),
			Template: corev1.PodTemplateSpec{
				Spec: corev1.PodSpec{
					RestartPolicy:      corev1.RestartPolicyOnFailure,
					NodeName:           nodeName,
					ServiceAccountName: consts.ServiceAccountName,
					Containers: []corev1.Container{{
						Name:            "provisioner",
						Image:           d.cfg.Image,
						ImagePullPolicy: corev1.PullIfNotPresent,
						Args:            args,
						Env: []corev1.EnvVar{
							{
								Name:  consts.HostFSEnvVar,
								Value: consts.HostFSMountPath,
							},
							{
								Name: consts.NodeNameEnvVar,
								ValueFrom: &corev1.EnvVarSource{
									FieldRef: &corev1.ObjectFieldSelector{
										FieldPath: "spec.nodeName",
									},
								},
							},
							{
								Name:  consts.VolumesDirEnvVar,
								Value: d.cfg.VolumesDir,
							},
							{
								Name:  consts.ArchiveOnDeleteEnvVar,
								Value: strconv.FormatBool(d.cfg.ArchiveOnDelete),
							},
							{
								Name:  consts.StorageClassPerNodeEnvVar,
								Value: strconv.FormatBool(d.cfg.StorageClassPerNodeEnabled),
							},
							{
								Name:  consts.StorageClassNamePatternEnvVar,
								Value: d.cfg.StorageClassNamePattern,
							},
						},
						SecurityContext: &corev1.SecurityContext{
							// btrfs needs direct access to the host filesystem
							Privileged: ptr.To(true),
						},
						VolumeMounts: []corev1.VolumeMount{{
							Name:      "host",
							MountPath: consts.HostFSMountPath,
						}},
					}},
					Volumes: []corev1.Volume{{
						Name: "host",
						VolumeSource: corev1.VolumeSource{
							HostPath: &corev1.HostPathVolumeSource{
								Path: "/",
							},
						},
					}},
				},
			},
		},
	}
}
