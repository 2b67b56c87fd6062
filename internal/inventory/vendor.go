package inventory

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// VendorProduct is the subset of the vendor part lookup we use.
type VendorProduct struct {
	Description  string   `json:"description"`
	ImageURL     string   `json:"imageUrl"`
	Datasheet    string   `json:"datasheetUrl"`
	Manufacturer string   `json:"manufacturer"`
	Category     string   `json:"category"`
	Tags         []string `json:"tags"`
}

// VendorClient looks parts up at GET {BaseURL}/parts/{id}.
type VendorClient struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	HTTP    *http.Client
}

var ErrVendorNotFound = errors.New("part not found at vendor")

func (c *VendorClient) Lookup(ctx context.Context, partID string) (*VendorProduct, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/parts/"+url.PathEscape(partID), nil)
	if err != nil {
		return nil, errors.Wrap(err, "build vendor request")
	}
	req.Header.Set("Accept", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	hc := c.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "vendor lookup %s", partID)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrVendorNotFound
	case resp.StatusCode >= 300:
		return nil, errors.Errorf("vendor lookup %s: status %d", partID, resp.StatusCode)
	}
	var p VendorProduct
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, errors.Wrapf(err, "decode vendor part %s", partID)
	}
	return &p, nil
}

// Enrich fills blank metadata of items from the vendor, at most concurrency
// lookups at a time. Lookup failures are logged; the item keeps its CSV data.
// Stock, price, id and name are never touched.
func (c *VendorClient) Enrich(ctx context.Context, items []Item, concurrency int) []Item {
	if concurrency <= 0 {
		concurrency = 1
	}
	out := make([]Item, len(items))
	copy(out, items)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i := range out {
		g.Go(func() error {
			p, err := c.Lookup(gctx, out[i].ID)
			if err != nil {
				zlog.Warn().Err(err).Str("item_id", out[i].ID).Msg("vendor enrichment skipped")
				return nil
			}
			out[i] = fill(out[i], p)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func fill(it Item, p *VendorProduct) Item {
	if it.Description == "" {
		it.Description = p.Description
	}
	if it.ImageURL == "" {
		it.ImageURL = p.ImageURL
	}
	if it.Datasheet == "" {
		it.Datasheet = p.Datasheet
	}
	if it.Manufacturer == "" {
		it.Manufacturer = p.Manufacturer
	}
	if it.Category == "" {
		it.Category = p.Category
	}
	if len(it.Tags) == 0 && len(p.Tags) > 0 {
		it.Tags = append([]string(nil), p.Tags...)
	}
	return it
}
