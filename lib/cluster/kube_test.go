// Copyright 2026 The Kubefs Authors
// SPDX-License-Identifier: Apache-2.0

package cluster

import (
	"context"
	"slices"
	"testing"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	discoveryfake "k8s.io/client-go/discovery/fake"
	dynamicfake "k8s.io/client-go/dynamic/fake"
	clienttesting "k8s.io/client-go/testing"
)

func testObject(apiVersion, kind, namespace, name string) *unstructured.Unstructured {
	object := &unstructured.Unstructured{}
	object.SetAPIVersion(apiVersion)
	object.SetKind(kind)
	object.SetNamespace(namespace)
	object.SetName(name)
	return object
}

func testClient(t *testing.T, objects ...runtime.Object) (*KubeClient, *dynamicfake.FakeDynamicClient) {
	t.Helper()

	scheme := runtime.NewScheme()
	listKinds := map[schema.GroupVersionResource]string{
		{Version: "v1", Resource: "namespaces"}:                 "NamespaceList",
		{Version: "v1", Resource: "pods"}:                       "PodList",
		{Version: "v1", Resource: "services"}:                   "ServiceList",
		{Version: "v1", Resource: "nodes"}:                      "NodeList",
		{Group: "apps", Version: "v1", Resource: "deployments"}: "DeploymentList",
	}
	dynamicClient := dynamicfake.NewSimpleDynamicClientWithCustomListKinds(scheme, listKinds, objects...)

	discoveryClient := &discoveryfake.FakeDiscovery{Fake: &clienttesting.Fake{}}
	discoveryClient.Resources = []*metav1.APIResourceList{
		{
			GroupVersion: "v1",
			APIResources: []metav1.APIResource{
				{Name: "pods", Namespaced: true, Kind: "Pod", Verbs: metav1.Verbs{"list", "get"}},
				{Name: "services", Namespaced: true, Kind: "Service", Verbs: metav1.Verbs{"list", "get"}},
				{Name: "nodes", Namespaced: false, Kind: "Node", Verbs: metav1.Verbs{"list", "get"}},
				{Name: "namespaces", Namespaced: false, Kind: "Namespace", Verbs: metav1.Verbs{"list", "get"}},
				{Name: "pods/log", Namespaced: true, Kind: "Pod", Verbs: metav1.Verbs{"get"}},
				{Name: "bindings", Namespaced: true, Kind: "Binding", Verbs: metav1.Verbs{"create"}},
			},
		},
		{
			GroupVersion: "apps/v1",
			APIResources: []metav1.APIResource{
				{Name: "deployments", Namespaced: true, Kind: "Deployment", Verbs: metav1.Verbs{"list", "get"}},
			},
		},
	}

	return newClient(dynamicClient, discoveryClient, Options{}), dynamicClient
}

func TestNamespaces(t *testing.T) {
	client, _ := testClient(t,
		testObject("v1", "Namespace", "", "default"),
		testObject("v1", "Namespace", "", "kube-system"),
	)

	names, err := client.Namespaces(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"default", "kube-system"} {
		if !slices.Contains(names, want) {
			t.Errorf("Namespaces() = %v, missing %q", names, want)
		}
	}
}

func TestResourcesFiltersByScopeAndVerbs(t *testing.T) {
	client, _ := testClient(t)

	namespaced, err := client.Resources(context.Background(), false)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"pods", "services", "deployments"} {
		if !slices.Contains(namespaced, want) {
			t.Errorf("namespaced resources = %v, missing %q", namespaced, want)
		}
	}
	if slices.Contains(namespaced, "nodes") {
		t.Errorf("namespaced resources include cluster-scoped nodes: %v", namespaced)
	}
	// No list verb, and subresources, are excluded entirely.
	if slices.Contains(namespaced, "bindings") || slices.Contains(namespaced, "pods/log") {
		t.Errorf("resources include non-listable entries: %v", namespaced)
	}

	clusterScoped, err := client.Resources(context.Background(), true)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Contains(clusterScoped, "nodes") {
		t.Errorf("cluster-scoped resources = %v, missing nodes", clusterScoped)
	}
	if slices.Contains(clusterScoped, "pods") {
		t.Errorf("cluster-scoped resources include pods: %v", clusterScoped)
	}
}

func TestListNamespaced(t *testing.T) {
	client, _ := testClient(t,
		testObject("v1", "Pod", "default", "my-pod"),
		testObject("v1", "Pod", "default", "other-pod"),
		testObject("v1", "Pod", "kube-system", "dns-pod"),
	)

	names, err := client.List(context.Background(), "default", "pods")
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 2 || !slices.Contains(names, "my-pod") || !slices.Contains(names, "other-pod") {
		t.Errorf("List(default, pods) = %v", names)
	}
}

func TestListClusterScoped(t *testing.T) {
	client, _ := testClient(t, testObject("v1", "Node", "", "worker-1"))

	names, err := client.List(context.Background(), "", "nodes")
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Contains(names, "worker-1") {
		t.Errorf("List(nodes) = %v", names)
	}
}

func TestListScopeMismatchIsNotFound(t *testing.T) {
	client, _ := testClient(t, testObject("v1", "Node", "", "worker-1"))

	// Cluster-scoped resource addressed through a namespace.
	if _, err := client.List(context.Background(), "default", "nodes"); !IsNotFound(err) {
		t.Errorf("List(default, nodes) = %v, want not-found", err)
	}
	// Namespaced resource addressed at cluster scope.
	if _, err := client.List(context.Background(), "", "pods"); !IsNotFound(err) {
		t.Errorf("List(\"\", pods) = %v, want not-found", err)
	}
}

func TestUnknownResourceIsNotFound(t *testing.T) {
	client, _ := testClient(t)

	if _, err := client.List(context.Background(), "default", "frobnicators"); !IsNotFound(err) {
		t.Errorf("List(frobnicators) = %v, want not-found", err)
	}
}

func TestGet(t *testing.T) {
	pod := testObject("v1", "Pod", "default", "my-pod")
	if err := unstructured.SetNestedField(pod.Object, "Running", "status", "phase"); err != nil {
		t.Fatal(err)
	}
	client, _ := testClient(t, pod)

	doc, err := client.Get(context.Background(), "default", "pods", "my-pod")
	if err != nil {
		t.Fatal(err)
	}
	value, ok := doc.Field([]string{"status", "phase"})
	if !ok {
		t.Fatal("status/phase missing from fetched document")
	}
	data, err := value.Render()
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "Running\n" {
		t.Errorf("status/phase = %q", data)
	}
}

func TestGetMissingObjectIsNotFound(t *testing.T) {
	client, _ := testClient(t)

	if _, err := client.Get(context.Background(), "default", "pods", "ghost"); !IsNotFound(err) {
		t.Errorf("Get(ghost) = %v, want not-found", err)
	}
}

func TestForbiddenIsPermissionDenied(t *testing.T) {
	client, dynamicClient := testClient(t)
	dynamicClient.PrependReactor("list", "pods", func(clienttesting.Action) (bool, runtime.Object, error) {
		return true, nil, apierrors.NewForbidden(
			schema.GroupResource{Resource: "pods"}, "", nil)
	})

	if _, err := client.List(context.Background(), "default", "pods"); !IsPermissionDenied(err) {
		t.Errorf("List under forbidden = %v, want permission-denied", err)
	}
}

func TestServerTimeoutIsUnavailable(t *testing.T) {
	client, dynamicClient := testClient(t)
	dynamicClient.PrependReactor("list", "pods", func(clienttesting.Action) (bool, runtime.Object, error) {
		return true, nil, apierrors.NewServerTimeout(
			schema.GroupResource{Resource: "pods"}, "list", 1)
	})

	if _, err := client.List(context.Background(), "default", "pods"); !IsUnavailable(err) {
		t.Errorf("List under server timeout = %v, want unavailable", err)
	}
}
