package check

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/oshokin/scala-steward-action/internal/domain/steward"
	"github.com/oshokin/scala-steward-action/internal/logger"
)

// MavenCentralURL is probed before anything else is done.
const MavenCentralURL = "https://repo1.maven.org/maven2/"

var errBadHTTPStatus = errors.New("unexpected http status")

// MavenCentral performs a single GET against target and fails with a
// ConnectivityError when the registry does not answer successfully.
func MavenCentral(ctx context.Context, client *http.Client, target string) error {
	if client == nil {
		client = http.DefaultClient
	}

	host := target
	if parsed, err := url.Parse(target); err == nil && parsed.Host != "" {
		host = parsed.Host
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
	if err != nil {
		return &steward.ConnectivityError{Host: host, Err: err}
	}

	response, err := client.Do(req)
	if err != nil {
		return &steward.ConnectivityError{Host: host, Err: err}
	}

	defer func() {
		_ = response.Body.Close()
	}()

	if response.StatusCode >= http.StatusBadRequest {
		return &steward.ConnectivityError{
			Host: host,
			Err:  fmt.Errorf("%s: %w", response.Status, errBadHTTPStatus),
		}
	}

	logger.InfoKV(ctx, "Maven Central is reachable", "host", host)

	return nil
}
