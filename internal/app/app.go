package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/samvad-hq/kubehttp/internal/cluster"
	"github.com/samvad-hq/kubehttp/internal/config"
	"github.com/samvad-hq/kubehttp/internal/logger"
	"github.com/samvad-hq/kubehttp/internal/storage"
	"github.com/samvad-hq/kubehttp/pkg/apiversion"
	"github.com/samvad-hq/kubehttp/pkg/httpclient"
)

var (
	// ErrUsage is returned for unknown commands or missing arguments.
	ErrUsage = errors.New("usage")
	// ErrUnexpectedStatus is returned when a command's request gets a non-2xx
	// response. The response has still been written to the output.
	ErrUnexpectedStatus = errors.New("unexpected status")
)

const Usage = `usage: kubehttp [flags] <command> [args]

commands:
  version                          print the negotiated API group version
  get <endpoint> [id]              GET an endpoint and stream the body
  post <endpoint> <json|@file>     POST a JSON document
  delete <endpoint> [id]           DELETE an endpoint
  endpoint <resource> [namespace]  print the apps group path for resource
`

// App runs raw REST commands against one cluster.
type App struct {
	client   *httpclient.Client
	resolver *Resolver
	store    storage.Store
	output   string
	log      logger.Logger
}

type versionResult struct {
	MasterURL  string `json:"masterUrl" yaml:"masterUrl"`
	APIVersion string `json:"apiVersion" yaml:"apiVersion"`
}

type statusResult struct {
	Status     string `json:"status" yaml:"status"`
	StatusCode int    `json:"statusCode" yaml:"statusCode"`
}

type endpointResult struct {
	APIVersion string `json:"apiVersion" yaml:"apiVersion"`
	Endpoint   string `json:"endpoint" yaml:"endpoint"`
}

// NewApp resolves the cluster handle and version cache from config.
func NewApp(cfg *config.Config, log logger.Logger) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if log == nil {
		log = logger.NopLogger{}
	}

	handle, err := cluster.Load(cluster.LoadOptions{
		Kubeconfig: cfg.Kubeconfig,
		Context:    cfg.KubeContext,
		MasterURL:  cfg.MasterURL,
		Timeout:    cfg.RequestTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("resolve cluster: %w", err)
	}
	log.InfoObj("cluster resolved", "cluster_meta", map[string]any{
		"master_url": handle.MasterURL(),
		"context":    cfg.KubeContext,
	})

	store, err := storage.NewStore(cfg.StorageType, cfg.BBoltPath, storage.Options{
		EntryTTL:        cfg.StorageTTL,
		CleanupInterval: cfg.StorageCleanupInterval,
	})
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	log.DebugObj("storage initialized", "storage_config", map[string]any{
		"type":                     cfg.StorageType,
		"path":                     cfg.BBoltPath,
		"entry_ttl_seconds":        int(cfg.StorageTTL.Seconds()),
		"cleanup_interval_seconds": int(cfg.StorageCleanupInterval.Seconds()),
	})

	return newApp(httpclient.New(handle, log), store, cfg.Output, log), nil
}

func newApp(client *httpclient.Client, store storage.Store, output string, log logger.Logger) *App {
	if log == nil {
		log = logger.NopLogger{}
	}
	return &App{
		client:   client,
		resolver: NewResolver(client, store, log),
		store:    store,
		output:   output,
		log:      log,
	}
}

// Close releases the version cache.
func (a *App) Close() error {
	if a == nil || a.store == nil {
		return nil
	}
	return a.store.Close()
}

// Run executes one command and writes its result to out.
func (a *App) Run(ctx context.Context, args []string, out io.Writer) error {
	if a == nil || a.client == nil {
		return fmt.Errorf("app is not initialized")
	}
	if len(args) == 0 {
		return fmt.Errorf("%w: missing command", ErrUsage)
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "version":
		return a.version(ctx, out)
	case "get":
		if len(rest) < 1 {
			return fmt.Errorf("%w: get <endpoint> [id]", ErrUsage)
		}
		return a.get(ctx, rest[0], optionalArg(rest, 1), out)
	case "post":
		if len(rest) < 2 {
			return fmt.Errorf("%w: post <endpoint> <json|@file>", ErrUsage)
		}
		return a.post(ctx, rest[0], rest[1], out)
	case "delete":
		if len(rest) < 1 {
			return fmt.Errorf("%w: delete <endpoint> [id]", ErrUsage)
		}
		return a.delete(ctx, rest[0], optionalArg(rest, 1), out)
	case "endpoint":
		if len(rest) < 1 {
			return fmt.Errorf("%w: endpoint <resource> [namespace]", ErrUsage)
		}
		return a.endpoint(ctx, rest[0], optionalArg(rest, 1), out)
	default:
		return fmt.Errorf("%w: unknown command %q", ErrUsage, cmd)
	}
}

func (a *App) version(ctx context.Context, out io.Writer) error {
	version, err := a.resolver.APIVersion(ctx)
	if err != nil {
		return fmt.Errorf("resolve api version: %w", err)
	}
	return a.write(out, versionResult{MasterURL: a.client.MasterURL(), APIVersion: version})
}

func (a *App) get(ctx context.Context, endpoint, id string, out io.Writer) error {
	resp, err := a.client.Get(ctx, endpoint, id)
	if err != nil {
		return err
	}
	defer resp.Close()

	if _, err := io.Copy(out, resp.Body()); err != nil {
		return fmt.Errorf("read response body: %w", err)
	}
	a.log.InfoObj("get completed", "response", statusResult{Status: resp.Status(), StatusCode: resp.StatusCode()})

	if !resp.IsSuccess() {
		return fmt.Errorf("%w: GET %s: %s", ErrUnexpectedStatus, a.client.BuildURL(endpoint, id), resp.Status())
	}
	return nil
}

func (a *App) post(ctx context.Context, endpoint, body string, out io.Writer) error {
	payload, err := readPayload(body)
	if err != nil {
		return err
	}

	resp, err := a.client.Post(ctx, endpoint, payload)
	if err != nil {
		return err
	}
	return a.writeStatus(out, "POST", a.client.BuildURL(endpoint, ""), resp)
}

func (a *App) delete(ctx context.Context, endpoint, id string, out io.Writer) error {
	resp, err := a.client.Delete(ctx, endpoint, id)
	if err != nil {
		return err
	}
	return a.writeStatus(out, "DELETE", a.client.BuildURL(endpoint, id), resp)
}

func (a *App) endpoint(ctx context.Context, resource, namespace string, out io.Writer) error {
	version, err := a.resolver.APIVersion(ctx)
	if err != nil {
		return fmt.Errorf("resolve api version: %w", err)
	}
	return a.write(out, endpointResult{
		APIVersion: version,
		Endpoint:   apiversion.AppsResourceEndpoint(version, namespace, resource),
	})
}

func (a *App) writeStatus(out io.Writer, method, url string, resp *httpclient.Response) error {
	if err := a.write(out, statusResult{Status: resp.Status(), StatusCode: resp.StatusCode()}); err != nil {
		return err
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("%w: %s %s: %s", ErrUnexpectedStatus, method, url, resp.Status())
	}
	return nil
}

func (a *App) write(out io.Writer, v any) error {
	if a.output == config.OutputYAML {
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

// readPayload returns body verbatim, or the file contents when body is "@path".
func readPayload(body string) (string, error) {
	path, ok := strings.CutPrefix(body, "@")
	if !ok {
		return body, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read payload file: %w", err)
	}
	return string(raw), nil
}

func optionalArg(args []string, i int) string {
	if len(args) > i {
		return args[i]
	}
	return ""
}
