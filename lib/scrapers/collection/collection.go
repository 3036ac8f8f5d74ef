// Package collection scrapes storefronts that expose a numbered
// "all products" listing, walking ?page=1,2,3,... and fetching every
// discovered product page.
package collection

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"inventory-tracker/lib/extract"
	"inventory-tracker/lib/scrape"
	"inventory-tracker/lib/stockstore"
	"inventory-tracker/lib/telemetry"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("scrapers/collection")

const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

type Options struct {
	// source identifier stamped on every snapshot
	Site string
	// storefront origin, e.g. "https://www.cpapoutlet.ca"
	BaseUrl string
	// listing endpoint path, defaults to "/collections/all"
	CollectionPath string
	// politeness delay between consecutive requests to this origin
	RequestDelay time.Duration
}

type Client struct {
	site           string
	base           *url.URL
	collectionPath string
	delay          time.Duration
	http           *resty.Client
}

var _ scrape.Adapter = (*Client)(nil)

func NewClient(opts Options) (*Client, error) {
	base, err := url.Parse(opts.BaseUrl)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if opts.CollectionPath == "" {
		opts.CollectionPath = "/collections/all"
	}
	if opts.RequestDelay == 0 {
		opts.RequestDelay = time.Millisecond * 500
	}

	client := resty.New()
	client.SetBaseURL(opts.BaseUrl)
	client.SetHeader("user-agent", browserUserAgent)
	client.SetTimeout(time.Second * 30)
	telemetry.InstrumentResty(client, "scrapers/collection/http")

	return &Client{
		site:           opts.Site,
		base:           base,
		collectionPath: opts.CollectionPath,
		delay:          opts.RequestDelay,
		http:           client,
	}, nil
}

func (c *Client) Site() string {
	return c.site
}

// canonical form: configured origin + path, query and fragment stripped.
// listing pages decorate product links with variant/tracking params that
// would otherwise split one item's history across several keys.
func (c *Client) canonicalURL(href string) (string, error) {
	link, err := url.Parse(href)
	if err != nil {
		return "", err
	}
	canonical := url.URL{
		Scheme: c.base.Scheme,
		Host:   c.base.Host,
		Path:   link.Path,
	}
	return canonical.String(), nil
}

// DiscoverProducts walks the numbered listing until a page contributes
// zero new product links. pages may re-list items seen earlier, so
// novelty against the running set is the termination signal, not an
// empty page. a failed or non-success listing request also ends the
// walk; whatever was discovered so far is still scanned.
func (c *Client) DiscoverProducts(ctx context.Context) []string {
	ctx, span := tracer.Start(ctx, "DiscoverProducts")
	defer span.End()

	seen := map[string]bool{}
	var urls []string

	for page := 1; ; page++ {
		if page > 1 {
			time.Sleep(c.delay)
		}

		res, err := c.http.R().
			SetContext(ctx).
			SetQueryParam("page", strconv.Itoa(page)).
			Get(c.collectionPath)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "listing page request failed")
			slog.WarnContext(ctx, "listing page request failed", "site", c.site, "page", page, "err", err)
			break
		}
		if res.StatusCode() != http.StatusOK {
			break
		}

		doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "listing page parse failed")
			slog.WarnContext(ctx, "listing page parse failed", "site", c.site, "page", page, "err", err)
			break
		}

		novel := 0
		doc.Find("a[href*='/products/']").Each(func(_ int, sel *goquery.Selection) {
			canonical, err := c.canonicalURL(sel.AttrOr("href", ""))
			if err != nil || seen[canonical] {
				return
			}
			seen[canonical] = true
			urls = append(urls, canonical)
			novel++
		})
		if novel == 0 {
			break
		}

		slog.DebugContext(ctx, "discovered products", "site", c.site, "page", page, "new_links", novel)
	}

	span.SetAttributes(attribute.Int("total_products", len(urls)))
	return urls
}

func (c *Client) Scan(ctx context.Context) (scrape.Result, error) {
	ctx, span := tracer.Start(ctx, "Scan")
	defer span.End()

	urls := c.DiscoverProducts(ctx)

	result := scrape.Result{Discovered: len(urls)}
	for _, productURL := range urls {
		time.Sleep(c.delay)

		snapshot, ok := c.scrapeProduct(ctx, productURL)
		if !ok {
			result.Skipped++
			continue
		}
		result.Snapshots = append(result.Snapshots, snapshot)
	}

	span.SetAttributes(
		attribute.Int("discovered", result.Discovered),
		attribute.Int("skipped", result.Skipped),
	)
	return result, nil
}

func (c *Client) scrapeProduct(ctx context.Context, productURL string) (stockstore.Snapshot, bool) {
	res, err := c.http.R().
		SetContext(ctx).
		Get(productURL)
	if err != nil {
		slog.WarnContext(ctx, "product fetch failed", "site", c.site, "url", productURL, "err", err)
		return stockstore.Snapshot{}, false
	}
	if res.StatusCode() != http.StatusOK {
		slog.WarnContext(ctx, "product fetch non-200", "site", c.site, "url", productURL, "status", res.StatusCode())
		return stockstore.Snapshot{}, false
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		slog.WarnContext(ctx, "product page parse failed", "site", c.site, "url", productURL, "err", err)
		return stockstore.Snapshot{}, false
	}

	stock, ok := extract.StockCount(doc)
	if !ok {
		// unknown stock is not zero stock. recording nothing beats
		// fabricating a depletion event.
		slog.DebugContext(ctx, "no stock indicator", "site", c.site, "url", productURL)
		return stockstore.Snapshot{}, false
	}

	return stockstore.Snapshot{
		Site:       c.site,
		Name:       extract.ProductName(doc),
		SKU:        extract.SKU(doc),
		URL:        productURL,
		VariantID:  stock.VariantID,
		StockCount: stock.Count,
	}, true
}
