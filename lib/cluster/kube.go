// Copyright 2026 The Kubefs Authors
// SPDX-License-Identifier: Apache-2.0

package cluster

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/client-go/discovery"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/kubefs-project/kubefs/lib/document"
)

// DefaultRequestTimeout bounds every API server call. Exceeding it
// surfaces as ReasonUnavailable, never as a fatal condition.
const DefaultRequestTimeout = 10 * time.Second

// discoveryRefreshInterval is how long the resource index is trusted
// before the next unknown-resource lookup rebuilds it. Kind sets
// change when CRDs are installed, which is rare.
const discoveryRefreshInterval = time.Minute

var namespacesResource = schema.GroupVersionResource{Version: "v1", Resource: "namespaces"}

// Options configures the Kubernetes client.
type Options struct {
	// Kubeconfig is an explicit kubeconfig path. Empty uses the
	// standard loading rules (KUBECONFIG, ~/.kube/config, in-cluster).
	Kubeconfig string

	// Context overrides the kubeconfig's current context.
	Context string

	// RequestTimeout bounds each API call. Zero uses
	// DefaultRequestTimeout.
	RequestTimeout time.Duration

	// Logger receives diagnostic messages. If nil, a no-op logger is
	// used.
	Logger *slog.Logger
}

// KubeClient implements Client over client-go's dynamic and discovery
// clients. All object handling is unstructured, so custom resource
// kinds work without registration.
type KubeClient struct {
	dynamic   dynamic.Interface
	discovery discovery.DiscoveryInterface
	timeout   time.Duration
	logger    *slog.Logger

	mu        sync.Mutex
	index     map[string]resourceInfo
	indexedAt time.Time
}

type resourceInfo struct {
	gvr        schema.GroupVersionResource
	namespaced bool
}

// New builds a KubeClient from kubeconfig. It does not contact the
// cluster; the first filesystem operation (or an explicit Namespaces
// call) does.
func New(options Options) (*KubeClient, error) {
	loadingRules := clientcmd.NewDefaultClientConfigLoadingRules()
	if options.Kubeconfig != "" {
		loadingRules.ExplicitPath = options.Kubeconfig
	}
	overrides := &clientcmd.ConfigOverrides{CurrentContext: options.Context}
	restConfig, err := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(loadingRules, overrides).ClientConfig()
	if err != nil {
		return nil, fmt.Errorf("loading kubeconfig: %w", err)
	}
	return NewForConfig(restConfig, options)
}

// NewForConfig builds a KubeClient from an already-loaded REST config.
func NewForConfig(restConfig *rest.Config, options Options) (*KubeClient, error) {
	dynamicClient, err := dynamic.NewForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("building dynamic client: %w", err)
	}
	discoveryClient, err := discovery.NewDiscoveryClientForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("building discovery client: %w", err)
	}
	return newClient(dynamicClient, discoveryClient, options), nil
}

func newClient(dynamicClient dynamic.Interface, discoveryClient discovery.DiscoveryInterface, options Options) *KubeClient {
	timeout := options.RequestTimeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &KubeClient{
		dynamic:   dynamicClient,
		discovery: discoveryClient,
		timeout:   timeout,
		logger:    logger,
	}
}

var _ Client = (*KubeClient)(nil)

// Namespaces lists namespace names in API server order.
func (c *KubeClient) Namespaces(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	list, err := c.dynamic.Resource(namespacesResource).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, normalize("listing namespaces", err)
	}
	names := make([]string, 0, len(list.Items))
	for _, item := range list.Items {
		names = append(names, item.GetName())
	}
	return names, nil
}

// Resources lists plural resource names supporting list and get.
func (c *KubeClient) Resources(ctx context.Context, clusterScoped bool) ([]string, error) {
	index, err := c.resourceIndex(false)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(index))
	for name, info := range index {
		if info.namespaced != clusterScoped {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names, nil
}

// List returns object names of one resource in API server order.
func (c *KubeClient) List(ctx context.Context, namespace, resource string) ([]string, error) {
	op := fmt.Sprintf("listing %s in %q", resource, namespace)
	api, err := c.resourceAPI(namespace, resource, op)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	list, err := api.List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, normalize(op, err)
	}
	names := make([]string, 0, len(list.Items))
	for _, item := range list.Items {
		names = append(names, item.GetName())
	}
	return names, nil
}

// Get fetches one object's full document.
func (c *KubeClient) Get(ctx context.Context, namespace, resource, name string) (document.Document, error) {
	op := fmt.Sprintf("getting %s/%s in %q", resource, name, namespace)
	api, err := c.resourceAPI(namespace, resource, op)
	if err != nil {
		return document.Document{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	object, err := api.Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return document.Document{}, normalize(op, err)
	}
	return document.FromUnstructured(object), nil
}

// resourceAPI resolves the plural resource name to a dynamic resource
// interface, scoped to the namespace when the resource is namespaced.
// An unknown resource, or a scope mismatch, is a not-found: the path
// simply names nothing that exists.
func (c *KubeClient) resourceAPI(namespace, resource, op string) (dynamic.ResourceInterface, error) {
	info, err := c.lookupResource(resource)
	if err != nil {
		return nil, &Error{Reason: ReasonNotFound, Op: op, Err: err}
	}
	if info.namespaced != (namespace != "") {
		return nil, NotFoundError(op)
	}
	if info.namespaced {
		return c.dynamic.Resource(info.gvr).Namespace(namespace), nil
	}
	return c.dynamic.Resource(info.gvr), nil
}

func (c *KubeClient) lookupResource(resource string) (resourceInfo, error) {
	index, err := c.resourceIndex(false)
	if err != nil {
		return resourceInfo{}, err
	}
	if info, ok := index[resource]; ok {
		return info, nil
	}
	// The resource may have appeared since the last discovery pass
	// (a freshly installed CRD). Rebuild once before giving up.
	index, err = c.resourceIndex(true)
	if err != nil {
		return resourceInfo{}, err
	}
	if info, ok := index[resource]; ok {
		return info, nil
	}
	return resourceInfo{}, fmt.Errorf("no such resource %q", resource)
}

// resourceIndex returns the plural-name index, rebuilding it from
// discovery when forced or past the refresh interval.
func (c *KubeClient) resourceIndex(force bool) (map[string]resourceInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.index != nil && !force && time.Since(c.indexedAt) < discoveryRefreshInterval {
		return c.index, nil
	}

	_, resourceLists, err := c.discovery.ServerGroupsAndResources()
	if err != nil {
		// Partial discovery failures (one broken aggregated API) are
		// common; keep whatever groups did resolve.
		if len(resourceLists) == 0 {
			if c.index != nil {
				return c.index, nil
			}
			return nil, normalize("discovering resources", err)
		}
		c.logger.Warn("partial discovery failure", "error", err)
	}

	index := make(map[string]resourceInfo)
	for _, resourceList := range resourceLists {
		groupVersion, err := schema.ParseGroupVersion(resourceList.GroupVersion)
		if err != nil {
			c.logger.Warn("skipping unparsable group version",
				"groupVersion", resourceList.GroupVersion, "error", err)
			continue
		}
		for _, apiResource := range resourceList.APIResources {
			if strings.Contains(apiResource.Name, "/") {
				continue // subresource
			}
			if !slices.Contains(apiResource.Verbs, "list") || !slices.Contains(apiResource.Verbs, "get") {
				continue
			}
			// First group wins on plural-name collisions, with the
			// core group always preferred.
			if existing, ok := index[apiResource.Name]; ok {
				if existing.gvr.Group == "" || groupVersion.Group != "" {
					continue
				}
			}
			index[apiResource.Name] = resourceInfo{
				gvr:        groupVersion.WithResource(apiResource.Name),
				namespaced: apiResource.Namespaced,
			}
		}
	}

	c.index = index
	c.indexedAt = time.Now()
	return index, nil
}
