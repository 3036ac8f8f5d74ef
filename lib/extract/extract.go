// Package extract maps one raw fetched record, an HTML product page or
// a structured API node, onto normalized snapshot fields. every storefront
// formats these differently, so each field is resolved by an ordered chain
// of fallback strategies. strategies are pure and never fail on malformed
// input, they just decline to produce a value.
package extract

import (
	"regexp"
	"strconv"
	"strings"

	"inventory-tracker/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

const (
	// name used when no heading can be found on a product page
	UnknownName = "Unknown Product"
	// sku sentinel for sources that never expose one
	NoSKU = "N/A"
	// variant id for sources with no concept of variants
	DefaultVariant = "default"
)

func ProductName(doc *goquery.Document) string {
	name := strings.TrimSpace(doc.Find("h1").First().Text())
	if name == "" {
		return UnknownName
	}
	return name
}

var skuClassPattern = regexp.MustCompile(`(?i)sku`)
var skuTextPattern = regexp.MustCompile(`(?i)SKU:`)

type skuStrategy func(*goquery.Document) string

// ordered by precedence. the first strategy yielding non-empty text is
// final, later ones are never consulted even if the value looks off.
var skuStrategies = []skuStrategy{
	skuFromClassToken,
	skuFromTextNode,
}

func SKU(doc *goquery.Document) string {
	for _, strategy := range skuStrategies {
		if sku := strategy(doc); sku != "" {
			return sku
		}
	}
	return NoSKU
}

func stripSKUPrefix(text string) string {
	return strings.TrimSpace(skuTextPattern.ReplaceAllString(text, ""))
}

// first element whose class attribute carries a "sku" token,
// e.g. class="sku" or class="product-sku"
func skuFromClassToken(doc *goquery.Document) string {
	sku := ""
	doc.Find("[class]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if !skuClassPattern.MatchString(sel.AttrOr("class", "")) {
			return true
		}
		sku = stripSKUPrefix(sel.Text())
		return false
	})
	return sku
}

// first text node anywhere in the document reading "SKU: XXXXX"
func skuFromTextNode(doc *goquery.Document) string {
	sku := ""
	for _, root := range doc.Nodes {
		htmlutil.VisitTextNodes(root, func(text string) bool {
			if !skuTextPattern.MatchString(text) {
				return true
			}
			sku = stripSKUPrefix(text)
			return false
		})
		if sku != "" {
			break
		}
	}
	return sku
}

type Stock struct {
	Count     int64
	VariantID string
}

var digitRun = regexp.MustCompile(`\d+`)
var inStockPattern = regexp.MustCompile(`(?i)\d+\s+in\s+stock`)

type stockStrategy func(*goquery.Document) (Stock, bool)

var stockStrategies = []stockStrategy{
	stockFromInventoryElement,
	stockFromAnyText,
}

// StockCount resolves the available quantity for the page. ok is false
// when no strategy matched, in which case the caller must drop the
// record rather than fabricate a zero.
func StockCount(doc *goquery.Document) (Stock, bool) {
	for _, strategy := range stockStrategies {
		if stock, ok := strategy(doc); ok {
			return stock, true
		}
	}
	return Stock{}, false
}

// dedicated <variant-inventory> indicator, seen on ResMed-style themes.
// joins every digit run in the span, matching how these themes render
// counts like "5 in stock".
func stockFromInventoryElement(doc *goquery.Document) (Stock, bool) {
	span := doc.Find("variant-inventory span").First()
	if span.Length() == 0 {
		return Stock{}, false
	}
	text := span.Text()
	if !strings.Contains(strings.ToLower(text), "in stock") {
		return Stock{}, false
	}

	digits := strings.Join(digitRun.FindAllString(text, -1), "")
	count, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return Stock{}, false
	}
	return Stock{
		Count:     count,
		VariantID: span.AttrOr("data-variant-id", DefaultVariant),
	}, true
}

// universal fallback: any text node saying "X in stock"
func stockFromAnyText(doc *goquery.Document) (Stock, bool) {
	var stock Stock
	found := false
	for _, root := range doc.Nodes {
		htmlutil.VisitTextNodes(root, func(text string) bool {
			if !inStockPattern.MatchString(text) {
				return true
			}
			count, err := strconv.ParseInt(digitRun.FindString(text), 10, 64)
			if err != nil {
				return true
			}
			stock = Stock{Count: count, VariantID: DefaultVariant}
			found = true
			return false
		})
		if found {
			break
		}
	}
	return stock, found
}

// VariantID normalizes an opaque variant identifier like
// "gid://shopify/ProductVariant/1234567" to its trailing path segment.
func VariantID(id string) string {
	if id == "" {
		return DefaultVariant
	}
	segments := strings.Split(id, "/")
	return segments[len(segments)-1]
}

// VariantName renders a display name for a product variant. sources
// mark variant-less products with a "Default Title" placeholder, which
// should not leak into the log.
func VariantName(title, variantTitle string) string {
	if variantTitle == "" || variantTitle == "Default Title" {
		return title
	}
	return title + " (" + variantTitle + ")"
}
