package fetcher

import (
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/net/html"
)

// ExcelLinks returns the absolute URLs of every .xlsx or .xls link in an
// HTML page, in document order and without duplicates.
func ExcelLinks(base *url.URL, r io.Reader) ([]string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, eris.Wrap(err, "links: parse html")
	}

	var (
		links []string
		seen  = make(map[string]bool)
	)
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			for _, attr := range n.Attr {
				if attr.Key != "href" {
					continue
				}
				ref, err := url.Parse(strings.TrimSpace(attr.Val))
				if err != nil || !isExcel(ref.Path) {
					continue
				}
				abs := base.ResolveReference(ref).String()
				if !seen[abs] {
					seen[abs] = true
					links = append(links, abs)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return links, nil
}

func isExcel(p string) bool {
	switch strings.ToLower(path.Ext(p)) {
	case ".xlsx", ".xls":
		return true
	}
	return false
}
