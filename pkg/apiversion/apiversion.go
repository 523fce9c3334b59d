// Package apiversion picks the API group version to use for controller
// resources based on the git version a cluster reports.
package apiversion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/blang/semver/v4"

	"github.com/samvad-hq/kubehttp/pkg/httpclient"
)

const (
	V1      = "v1"
	V1Beta1 = "v1beta1"

	versionEndpoint = "version"
	gitVersionKey   = "gitVersion"
)

// ErrInvalidArgument is matched by every LookupError.
var ErrInvalidArgument = errors.New("invalid argument")

// Only a single patch digit is matched: "v1.10.30" resolves as 1.10.3.
var versionPattern = regexp.MustCompile(`\d+\.\d+\.\d`)

var minV1 = semver.MustParse("1.10.0")

// Getter is the subset of httpclient.Client used for version lookups.
type Getter interface {
	Get(ctx context.Context, endpoint, id string) (*httpclient.StreamResponse, error)
}

// LookupError reports a failure to read or decode the cluster's /version
// response.
type LookupError struct {
	Err error
}

func (e *LookupError) Error() string {
	return "Exception retrieving cluster version info. " + e.Err.Error()
}

func (e *LookupError) Unwrap() []error { return []error{ErrInvalidArgument, e.Err} }

// FetchAPIVersion reads the cluster's gitVersion from /version and returns the
// negotiated API group version.
func FetchAPIVersion(ctx context.Context, client Getter) (string, error) {
	resp, err := client.Get(ctx, versionEndpoint, "")
	if err != nil {
		return "", &LookupError{Err: err}
	}
	defer resp.Close()

	var info map[string]string
	if err := json.NewDecoder(resp.Body()).Decode(&info); err != nil {
		return "", &LookupError{Err: err}
	}
	gitVersion, ok := info[gitVersionKey]
	if !ok {
		return "", &LookupError{Err: fmt.Errorf("%s missing from version response", gitVersionKey)}
	}

	return Negotiate(gitVersion)
}

// Negotiate returns V1 when the last major.minor.patch found in gitVersion is
// at least 1.10.0 and V1Beta1 otherwise. Input without a match is parsed as a
// semantic version as-is.
func Negotiate(gitVersion string) (string, error) {
	last := gitVersion
	if matches := versionPattern.FindAllString(gitVersion, -1); len(matches) > 0 {
		last = matches[len(matches)-1]
	}

	v, err := semver.Parse(last)
	if err != nil {
		return "", fmt.Errorf("parse version %q: %w", last, err)
	}
	if v.GTE(minV1) {
		return V1, nil
	}
	return V1Beta1, nil
}

// AppsResourceEndpoint builds the apps group path for resource, scoped to
// namespace unless it is blank.
func AppsResourceEndpoint(apiVersion, namespace, resource string) string {
	if strings.TrimSpace(namespace) == "" {
		return fmt.Sprintf("apis/apps/%s/%s", apiVersion, resource)
	}
	return fmt.Sprintf("apis/apps/%s/namespaces/%s/%s", apiVersion, namespace, resource)
}
