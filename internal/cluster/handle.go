// Package cluster resolves Kubernetes connection settings into a handle that
// carries the API server URL and a fully configured transport.
package cluster

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
)

// Handle pairs an API server URL with the http.Client client-go built for it.
type Handle struct {
	masterURL string
	client    *http.Client
}

func (h *Handle) MasterURL() string        { return h.masterURL }
func (h *Handle) HTTPClient() *http.Client { return h.client }

// LoadOptions selects and overrides the kubeconfig used by Load.
type LoadOptions struct {
	// Kubeconfig is a single path or an OS path list. Empty uses the default
	// loading rules, falling back to in-cluster config.
	Kubeconfig string
	Context    string
	MasterURL  string
	Timeout    time.Duration
}

// Load resolves a rest config from kubeconfig or in-cluster settings and
// builds a Handle from it.
func Load(opts LoadOptions) (*Handle, error) {
	rules := clientcmd.NewDefaultClientConfigLoadingRules()
	if path := strings.TrimSpace(opts.Kubeconfig); path != "" {
		if strings.ContainsRune(path, os.PathListSeparator) {
			rules.Precedence = filepath.SplitList(path)
		} else {
			rules.ExplicitPath = path
		}
	}

	overrides := &clientcmd.ConfigOverrides{}
	if opts.Context != "" {
		overrides.CurrentContext = opts.Context
	}
	if opts.MasterURL != "" {
		overrides.ClusterInfo.Server = opts.MasterURL
	}

	cfg, err := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(rules, overrides).ClientConfig()
	if err != nil {
		return nil, fmt.Errorf("load kubeconfig: %w", err)
	}
	if opts.Timeout > 0 {
		cfg.Timeout = opts.Timeout
	}

	return FromRESTConfig(cfg)
}

// FromRESTConfig builds a Handle whose transport applies the config's TLS,
// authentication and timeout settings.
func FromRESTConfig(cfg *rest.Config) (*Handle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("rest config must not be nil")
	}
	if strings.TrimSpace(cfg.Host) == "" {
		return nil, fmt.Errorf("rest config has no host")
	}

	client, err := rest.HTTPClientFor(cfg)
	if err != nil {
		return nil, fmt.Errorf("build cluster transport: %w", err)
	}

	return &Handle{
		masterURL: cfg.Host,
		client:    client,
	}, nil
}
