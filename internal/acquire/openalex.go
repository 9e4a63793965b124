// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/pdiddy/gioia-engine/internal/httputil"
)

// openAlexAPIBase is the OpenAlex works endpoint. Declared as a var so tests
// can substitute an httptest server.
var openAlexAPIBase = "https://api.openalex.org/works/"

// openAlexResponse captures the fields we need from an OpenAlex work record.
type openAlexResponse struct {
	BestOALocation *openAlexLocation `json:"best_oa_location"`
}

// openAlexLocation represents an open-access location in the OpenAlex response.
type openAlexLocation struct {
	PDFURL     string `json:"pdf_url"`
	LandingURL string `json:"landing_page_url"`
}

// resolveOpenAlex queries the OpenAlex API for a DOI and returns the
// open-access PDF URL if one exists. It returns an empty string when the
// paper is not available or has no open-access PDF.
func (f *Fetcher) resolveOpenAlex(ctx context.Context, doi string) (string, error) {
	apiURL := openAlexAPIBase + doiPrefix + doi
	if f.Email != "" {
		apiURL += "?" + url.Values{"mailto": {f.Email}}.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return "", fmt.Errorf("creating OpenAlex request: %w", err)
	}
	req.Header.Set("User-Agent", f.Config.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, f.Client, req, 0)
	if err != nil {
		return "", fmt.Errorf("OpenAlex API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("OpenAlex API returned HTTP %d", resp.StatusCode)
	}

	var oa openAlexResponse
	if err := json.NewDecoder(resp.Body).Decode(&oa); err != nil {
		return "", fmt.Errorf("parsing OpenAlex response: %w", err)
	}

	if oa.BestOALocation == nil {
		return "", nil
	}
	return oa.BestOALocation.PDFURL, nil
}
