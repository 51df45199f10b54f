package scraper

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

type jsonLDNode map[string]interface{}

// jsonLDNodes flattens every ld+json block on the page, including @graph
// members and top-level arrays.
func jsonLDNodes(doc *goquery.Document) []jsonLDNode {
	var nodes []jsonLDNode
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		var payload interface{}
		if err := json.Unmarshal([]byte(strings.TrimSpace(s.Text())), &payload); err != nil {
			return
		}
		nodes = append(nodes, collectNodes(payload)...)
	})
	return nodes
}

func collectNodes(v interface{}) []jsonLDNode {
	var out []jsonLDNode
	switch t := v.(type) {
	case []interface{}:
		for _, item := range t {
			out = append(out, collectNodes(item)...)
		}
	case map[string]interface{}:
		out = append(out, jsonLDNode(t))
		if graph, ok := t["@graph"]; ok {
			out = append(out, collectNodes(graph)...)
		}
	}
	return out
}

func (n jsonLDNode) isType(name string) bool {
	switch t := n["@type"].(type) {
	case string:
		return strings.EqualFold(t, name)
	case []interface{}:
		for _, item := range t {
			if s, ok := item.(string); ok && strings.EqualFold(s, name) {
				return true
			}
		}
	}
	return false
}

func (n jsonLDNode) str(key string) string {
	return scalarString(n[key])
}

func (n jsonLDNode) child(key string) jsonLDNode {
	if m, ok := n[key].(map[string]interface{}); ok {
		return jsonLDNode(m)
	}
	if list, ok := n[key].([]interface{}); ok && len(list) > 0 {
		if m, ok := list[0].(map[string]interface{}); ok {
			return jsonLDNode(m)
		}
	}
	return nil
}

// children returns key as a list of nodes whether it holds one object or many.
func (n jsonLDNode) children(key string) []jsonLDNode {
	var out []jsonLDNode
	switch t := n[key].(type) {
	case map[string]interface{}:
		out = append(out, jsonLDNode(t))
	case []interface{}:
		for _, item := range t {
			if m, ok := item.(map[string]interface{}); ok {
				out = append(out, jsonLDNode(m))
			}
		}
	}
	return out
}

// stringList returns key as a list of strings, accepting a single value.
func (n jsonLDNode) stringList(key string) []string {
	var out []string
	switch t := n[key].(type) {
	case string:
		out = append(out, t)
	case []interface{}:
		for _, item := range t {
			switch v := item.(type) {
			case string:
				out = append(out, v)
			case map[string]interface{}:
				if u := scalarString(v["url"]); u != "" {
					out = append(out, u)
				}
			}
		}
	case map[string]interface{}:
		if u := scalarString(t["url"]); u != "" {
			out = append(out, u)
		}
	}
	return out
}

func scalarString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	case map[string]interface{}:
		if name, ok := t["name"].(string); ok {
			return strings.TrimSpace(name)
		}
	}
	return ""
}

func findNodes(nodes []jsonLDNode, typ string) []jsonLDNode {
	var out []jsonLDNode
	for _, n := range nodes {
		if n.isType(typ) {
			out = append(out, n)
		}
	}
	return out
}

// jsonLDPrice reads offers.price (or lowPrice) with its currency.
func jsonLDPrice(product jsonLDNode) string {
	for _, offer := range product.children("offers") {
		price := offer.str("price")
		if price == "" {
			price = offer.str("lowPrice")
		}
		if price == "" {
			continue
		}
		if currency := offer.str("priceCurrency"); currency != "" {
			return fmt.Sprintf("%s %s", price, currency)
		}
		return price
	}
	return ""
}

// jsonLDBreadcrumbCategory returns the second-to-last breadcrumb entry; the
// last one is the product itself.
func jsonLDBreadcrumbCategory(nodes []jsonLDNode) string {
	for _, list := range findNodes(nodes, "BreadcrumbList") {
		items := list.children("itemListElement")
		sort.SliceStable(items, func(i, j int) bool {
			pi, _ := strconv.Atoi(items[i].str("position"))
			pj, _ := strconv.Atoi(items[j].str("position"))
			return pi < pj
		})
		if len(items) < 2 {
			continue
		}
		item := items[len(items)-2]
		name := item.str("name")
		if name == "" {
			if inner := item.child("item"); inner != nil {
				name = inner.str("name")
			}
		}
		if name != "" {
			return name
		}
	}
	return ""
}

// jsonLDReviews reads Product.review entries and standalone Review nodes.
func jsonLDReviews(nodes []jsonLDNode) []ReviewCandidate {
	var reviewNodes []jsonLDNode
	for _, product := range findNodes(nodes, "Product") {
		reviewNodes = append(reviewNodes, product.children("review")...)
	}
	reviewNodes = append(reviewNodes, findNodes(nodes, "Review")...)

	seen := make(map[string]struct{})
	var reviews []ReviewCandidate
	for _, n := range reviewNodes {
		rating := 0
		if rr := n.child("reviewRating"); rr != nil {
			rating = parseRating(rr.str("ratingValue"), rr.str("bestRating"))
		}
		if rating == 0 {
			continue
		}

		text := n.str("reviewBody")
		if text == "" {
			text = n.str("description")
		}
		author := n.str("author")
		if a := n.child("author"); a != nil {
			author = a.str("name")
		}

		key := fmt.Sprintf("%s|%d|%s", author, rating, text)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		reviews = append(reviews, ReviewCandidate{
			Text:       text,
			Rating:     rating,
			AuthorName: author,
			Date:       n.str("datePublished"),
			Images:     n.stringList("image"),
			Language:   primaryLanguage(n.str("inLanguage")),
		})
	}
	return reviews
}

// parseRating converts a rating value to a 1-5 star count, rescaling when
// bestRating is not 5.
func parseRating(value, best string) int {
	v, err := strconv.ParseFloat(strings.Replace(strings.TrimSpace(value), ",", ".", 1), 64)
	if err != nil || v <= 0 {
		return 0
	}
	if b, err := strconv.ParseFloat(best, 64); err == nil && b > 0 && b != 5 {
		v = v / b * 5
	}
	return clampRating(int(math.Round(v)))
}

func clampRating(r int) int {
	if r < 1 {
		return 1
	}
	if r > 5 {
		return 5
	}
	return r
}

func primaryLanguage(tag string) string {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if i := strings.IndexAny(tag, "-_"); i > 0 {
		tag = tag[:i]
	}
	return tag
}
