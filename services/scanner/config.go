package scanner

import (
	"fmt"
	"time"

	"inventory-tracker/lib/scrape"
	"inventory-tracker/lib/scrapers/collection"
	"inventory-tracker/lib/scrapers/shopify"
)

type CollectionSiteConfig struct {
	Site           string `json:"site"`
	BaseUrl        string `json:"base_url"`
	CollectionPath string `json:"collection_path"`
	RequestDelayMs int    `json:"request_delay_ms"`
}

type ShopifySiteConfig struct {
	Site           string `json:"site"`
	BaseUrl        string `json:"base_url"`
	AccessToken    string `json:"access_token"`
	RequestDelayMs int    `json:"request_delay_ms"`
}

type Config struct {
	Database            string                 `json:"database"`
	ScanIntervalMinutes int                    `json:"scan_interval_minutes"`
	TickSeconds         int                    `json:"tick_seconds"`
	CollectionSites     []CollectionSiteConfig `json:"collection_sites"`
	ShopifySites        []ShopifySiteConfig    `json:"shopify_sites"`
}

func (c Config) ScanInterval() time.Duration {
	if c.ScanIntervalMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(c.ScanIntervalMinutes) * time.Minute
}

func (c Config) SchedulerTick() time.Duration {
	if c.TickSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(c.TickSeconds) * time.Second
}

// BuildAdapters constructs every configured storefront adapter. the
// slice order is the fixed scan order of each cycle.
func BuildAdapters(cfg Config) ([]scrape.Adapter, error) {
	var adapters []scrape.Adapter

	for _, site := range cfg.CollectionSites {
		client, err := collection.NewClient(collection.Options{
			Site:           site.Site,
			BaseUrl:        site.BaseUrl,
			CollectionPath: site.CollectionPath,
			RequestDelay:   time.Duration(site.RequestDelayMs) * time.Millisecond,
		})
		if err != nil {
			return nil, fmt.Errorf("collection site %s: %w", site.Site, err)
		}
		adapters = append(adapters, client)
	}

	for _, site := range cfg.ShopifySites {
		client, err := shopify.NewClient(shopify.Options{
			Site:         site.Site,
			BaseUrl:      site.BaseUrl,
			AccessToken:  site.AccessToken,
			RequestDelay: time.Duration(site.RequestDelayMs) * time.Millisecond,
		})
		if err != nil {
			return nil, fmt.Errorf("shopify site %s: %w", site.Site, err)
		}
		adapters = append(adapters, client)
	}

	return adapters, nil
}
