package download

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Entry is one extract listed on a Geofabrik region page.
type Entry struct {
	Name string // e.g. "germany"
	URL  string
}

// ListRegion returns the .osm.pbf extracts linked from the Geofabrik page of
// region, in page order. Index pages are cached by the Fetcher.
func (d *Downloader) ListRegion(ctx context.Context, region string) ([]Entry, error) {
	region = strings.Trim(strings.ToLower(strings.TrimSpace(region)), "/")
	if region == "" {
		return nil, fmt.Errorf("download: empty region")
	}
	pageURL := d.geofabrikURL + region + ".html"
	body, err := d.client.Get(ctx, pageURL, "geofabrik:index:"+region)
	if err != nil {
		return nil, fmt.Errorf("download: failed to fetch index %s: %w", pageURL, err)
	}
	return parseIndex(body, pageURL)
}

func parseIndex(body []byte, pageURL string) ([]Entry, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("download: invalid index url: %w", err)
	}
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("download: failed to parse index: %w", err)
	}

	var entries []Entry
	seen := make(map[string]bool)
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.A {
			for _, a := range n.Attr {
				if a.Key != "href" || !strings.HasSuffix(a.Val, "-latest.osm.pbf") {
					continue
				}
				ref, err := url.Parse(a.Val)
				if err != nil {
					continue
				}
				abs := base.ResolveReference(ref).String()
				if seen[abs] {
					continue
				}
				seen[abs] = true
				entries = append(entries, Entry{
					Name: strings.TrimSuffix(path.Base(ref.Path), "-latest.osm.pbf"),
					URL:  abs,
				})
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return entries, nil
}
