// Package shopify scrapes storefronts through the admin GraphQL API,
// paging over products with nested variants via cursor pagination
// instead of crawling HTML.
package shopify

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"inventory-tracker/lib/extract"
	"inventory-tracker/lib/scrape"
	"inventory-tracker/lib/stockstore"
	"inventory-tracker/lib/telemetry"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("scrapers/shopify")

const graphqlPath = "/admin/api/2024-01/graphql.json"

const productsPageQuery = `
query ProductsPage($cursor: String) {
  products(first: 250, after: $cursor) {
    pageInfo {
      hasNextPage
      endCursor
    }
    edges {
      node {
        title
        handle
        variants(first: 100) {
          edges {
            node {
              id
              title
              sku
              inventoryQuantity
            }
          }
        }
      }
    }
  }
}`

type pageInfo struct {
	HasNextPage bool   `json:"hasNextPage"`
	EndCursor   string `json:"endCursor"`
}

type productVariant struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	SKU   string `json:"sku"`
	// null when the variant does not track inventory
	InventoryQuantity *int64 `json:"inventoryQuantity"`
}

type product struct {
	Title    string `json:"title"`
	Handle   string `json:"handle"`
	Variants struct {
		Edges []struct {
			Node productVariant `json:"node"`
		} `json:"edges"`
	} `json:"variants"`
}

type productsPage struct {
	Products struct {
		PageInfo pageInfo `json:"pageInfo"`
		Edges    []struct {
			Node product `json:"node"`
		} `json:"edges"`
	} `json:"products"`
}

type Options struct {
	// source identifier stamped on every snapshot
	Site string
	// store origin, e.g. "https://demo.myshopify.com"
	BaseUrl string
	// admin API access token sent on every query
	AccessToken string
	// politeness delay between consecutive queries
	RequestDelay time.Duration
}

type Client struct {
	site  string
	base  *url.URL
	delay time.Duration
	http  *resty.Client
}

var _ scrape.Adapter = (*Client)(nil)

func NewClient(opts Options) (*Client, error) {
	base, err := url.Parse(opts.BaseUrl)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if opts.RequestDelay == 0 {
		opts.RequestDelay = time.Millisecond * 500
	}

	client := resty.New()
	client.SetBaseURL(opts.BaseUrl)
	client.SetHeader("X-Shopify-Access-Token", opts.AccessToken)
	client.SetTimeout(time.Second * 30)
	telemetry.InstrumentResty(client, "scrapers/shopify/http")

	return &Client{
		site:  opts.Site,
		base:  base,
		delay: opts.RequestDelay,
		http:  client,
	}, nil
}

func (c *Client) Site() string {
	return c.site
}

// Scan pages through the product catalog. the loop advances the cursor
// to each page's endCursor while hasNextPage holds, and additionally
// stops on an empty page in case the server claims more pages than it
// will ever serve.
func (c *Client) Scan(ctx context.Context) (scrape.Result, error) {
	ctx, span := tracer.Start(ctx, "Scan")
	defer span.End()

	var result scrape.Result
	cursor := ""

	for page := 1; ; page++ {
		if page > 1 {
			time.Sleep(c.delay)
		}

		variables := map[string]any{"cursor": nil}
		if cursor != "" {
			variables["cursor"] = cursor
		}

		var data productsPage
		err := graphqlQuery(ctx, c.http, graphqlPath, "ProductsPage", productsPageQuery, variables, &data)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "products query failed")
			return result, fmt.Errorf("products page %d: %w", page, err)
		}

		if len(data.Products.Edges) == 0 {
			break
		}
		for _, edge := range data.Products.Edges {
			c.flatten(edge.Node, &result)
		}

		if !data.Products.PageInfo.HasNextPage {
			break
		}
		cursor = data.Products.PageInfo.EndCursor
	}

	span.SetAttributes(
		attribute.Int("discovered", result.Discovered),
		attribute.Int("skipped", result.Skipped),
	)
	return result, nil
}

// one snapshot per variant. variants that do not track inventory have
// no quantity and are dropped rather than logged as zero.
func (c *Client) flatten(p product, result *scrape.Result) {
	productURL := url.URL{
		Scheme: c.base.Scheme,
		Host:   c.base.Host,
		Path:   "/products/" + p.Handle,
	}

	for _, edge := range p.Variants.Edges {
		result.Discovered++

		variant := edge.Node
		if variant.InventoryQuantity == nil {
			result.Skipped++
			continue
		}

		sku := variant.SKU
		if sku == "" {
			sku = extract.NoSKU
		}
		count := *variant.InventoryQuantity
		if count < 0 {
			// oversold variants report negative quantities, the log
			// floors them at zero
			count = 0
		}

		result.Snapshots = append(result.Snapshots, stockstore.Snapshot{
			Site:       c.site,
			Name:       extract.VariantName(p.Title, variant.Title),
			SKU:        sku,
			URL:        productURL.String(),
			VariantID:  extract.VariantID(variant.ID),
			StockCount: count,
		})
	}
}
