package middleware

import (
	"context"
	"fmt"
	"os"
	"strings"

	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

// unknownService is the default service name when detection fails
const unknownService = "unknown-service"

const serviceAccountNamespaceFile = "/var/run/secrets/kubernetes.io/serviceaccount/namespace"

// serviceInfo identifies this process to the tracing and profiling backends.
type serviceInfo struct {
	Name      string
	Namespace string
	Version   string
}

// detectServiceInfo resolves the service identity. The name comes from
// OTEL_SERVICE_NAME, then the Kubernetes pod name, then fallback.
// The namespace comes from OTEL_RESOURCE_ATTRIBUTES, the mounted service
// account, POD_NAMESPACE, and finally "default".
func detectServiceInfo(fallback, version string) serviceInfo {
	info := serviceInfo{Name: os.Getenv("OTEL_SERVICE_NAME"), Version: version}
	if info.Name == "" {
		info.Name = serviceFromPodName(podName())
	}
	if info.Name == "" {
		info.Name = fallback
	}
	if info.Name == "" {
		info.Name = unknownService
	}
	info.Namespace = detectNamespace()
	return info
}

func podName() string {
	if name := os.Getenv("POD_NAME"); name != "" {
		return name
	}
	host, _ := os.Hostname()
	return host
}

// serviceFromPodName strips the replicaset and pod hashes from a deployment
// pod name: "account-service-75c98b4b9c-kdv2n" -> "account-service".
// Names without both hashes are not pods and yield "".
func serviceFromPodName(name string) string {
	parts := strings.Split(name, "-")
	if len(parts) < 3 {
		return ""
	}
	return strings.Join(parts[:len(parts)-2], "-")
}

func detectNamespace() string {
	for _, attr := range strings.Split(os.Getenv("OTEL_RESOURCE_ATTRIBUTES"), ",") {
		if k, v, ok := strings.Cut(attr, "="); ok && k == "service.namespace" {
			return v
		}
	}
	if data, err := os.ReadFile(serviceAccountNamespaceFile); err == nil {
		return strings.TrimSpace(string(data))
	}
	if ns := os.Getenv("POD_NAMESPACE"); ns != "" {
		return ns
	}
	return "default"
}

// CreateResource builds the OpenTelemetry resource for info. On partial
// detection failure a minimal resource is returned together with the error.
func CreateResource(ctx context.Context, info serviceInfo) (*resource.Resource, error) {
	attrs := []resource.Option{
		resource.WithFromEnv(),
		resource.WithProcess(),
		resource.WithOS(),
		resource.WithContainer(),
		resource.WithHost(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(info.Name),
			semconv.ServiceNamespaceKey.String(info.Namespace),
			semconv.ServiceVersionKey.String(info.Version),
		),
	}

	res, err := resource.New(ctx, attrs...)
	if err != nil {
		return resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(info.Name),
			semconv.ServiceNamespaceKey.String(info.Namespace),
		), fmt.Errorf("resource detection partial failure (using fallback): %w", err)
	}
	return res, nil
}

// GetServiceName extracts service name from a resource
func GetServiceName(res *resource.Resource) string {
	if res == nil {
		return unknownService
	}
	if v, ok := res.Set().Value(semconv.ServiceNameKey); ok {
		return v.AsString()
	}
	return unknownService
}
