package app

import (
	"context"
	"fmt"

	"github.com/samvad-hq/kubehttp/internal/logger"
	"github.com/samvad-hq/kubehttp/internal/storage"
	"github.com/samvad-hq/kubehttp/pkg/apiversion"
)

// VersionGetter is the client surface the resolver needs.
type VersionGetter interface {
	apiversion.Getter
	MasterURL() string
}

// Resolver returns the API group version for one cluster, consulting the
// version cache before asking the API server.
type Resolver struct {
	client VersionGetter
	store  storage.Store
	log    logger.Logger
}

// NewResolver wires a resolver. A nil store disables caching.
func NewResolver(client VersionGetter, store storage.Store, log logger.Logger) *Resolver {
	if log == nil {
		log = logger.NopLogger{}
	}
	if store == nil {
		store, _ = storage.NewStore("none", "", storage.Options{})
	}
	return &Resolver{client: client, store: store, log: log}
}

// APIVersion returns the cached version when present, otherwise negotiates it
// from the cluster and caches the result. Cache failures never fail the call.
func (r *Resolver) APIVersion(ctx context.Context) (string, error) {
	if r == nil || r.client == nil {
		return "", fmt.Errorf("resolver is not initialized")
	}
	masterURL := r.client.MasterURL()

	version, found, err := r.store.APIVersion(masterURL)
	if err != nil {
		r.log.WarnObj("version cache read failed", "error", err)
	} else if found {
		r.log.DebugObj("api version cache hit", "version_meta", map[string]any{
			"master_url":  masterURL,
			"api_version": version,
		})
		return version, nil
	}

	version, err = apiversion.FetchAPIVersion(ctx, r.client)
	if err != nil {
		return "", err
	}
	r.log.InfoObj("api version negotiated", "version_meta", map[string]any{
		"master_url":  masterURL,
		"api_version": version,
	})

	if err := r.store.SaveAPIVersion(masterURL, version); err != nil {
		r.log.WarnObj("version cache write failed", "error", err)
	}
	return version, nil
}
