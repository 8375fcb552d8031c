package provider

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/net/html"

	"github.com/statlinehq/statline/internal/stats/domain"
)

// HTMLTable is a reference adapter for providers that only publish stats as
// rendered HTML tables. It fetches the page and extracts the first <table>,
// mapping header cells to snake_case column names and body cells to string
// values. Finer typing is left to the mask applier's tolerant comparisons.
type HTMLTable struct {
	providerID string
	pageURL    string
	client     *http.Client
}

// NewHTMLTable constructs the adapter.
func NewHTMLTable(providerID, pageURL string, client *http.Client) *HTMLTable {
	if client == nil {
		client = &http.Client{}
	}
	return &HTMLTable{providerID: providerID, pageURL: pageURL, client: client}
}

// Fetch implements domain.Provider. Compiled parameters are appended as
// query parameters, which covers the scraped sites that filter via URL.
func (a *HTMLTable) Fetch(ctx context.Context, params map[string]any) (domain.Outcome, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.pageURL, nil)
	if err != nil {
		return domain.Outcome{}, domain.Permanent(a.providerID, err)
	}
	q := req.URL.Query()
	for k, v := range params {
		q.Set(k, fmt.Sprintf("%v", v))
	}
	req.URL.RawQuery = q.Encode()

	resp, err := a.client.Do(req)
	if err != nil {
		return domain.Outcome{}, domain.Transient(a.providerID, err)
	}
	defer resp.Body.Close()

	if cerr := ClassifyStatus(a.providerID, resp.StatusCode); cerr != nil {
		return domain.Outcome{}, cerr
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return domain.Outcome{}, domain.Permanent(a.providerID, fmt.Errorf("unparseable page: %w", err))
	}

	table := findFirstTable(doc)
	if table == nil {
		return domain.Empty(), nil
	}
	cols, rows := extractTable(table)
	if len(rows) == 0 {
		return domain.Empty(cols...), nil
	}
	out := domain.NewTable(cols...)
	out.Rows = rows
	return domain.OK(out), nil
}

func findFirstTable(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "table" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := findFirstTable(c); t != nil {
			return t
		}
	}
	return nil
}

// extractTable walks <tr> elements: the first row with <th> cells defines
// the columns, every later row becomes a record.
func extractTable(table *html.Node) ([]string, []domain.Row) {
	var cols []string
	var rows []domain.Row

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "tr" {
			header, cells := rowCells(n)
			if header && cols == nil {
				for _, c := range cells {
					cols = append(cols, columnName(c))
				}
				return
			}
			if len(cells) == 0 {
				return
			}
			row := make(domain.Row, len(cells))
			for i, c := range cells {
				name := fmt.Sprintf("col_%d", i)
				if i < len(cols) {
					name = cols[i]
				}
				row[name] = c
			}
			rows = append(rows, row)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(table)
	return cols, rows
}

// rowCells returns the text of a row's cells and whether they were headers.
func rowCells(tr *html.Node) (bool, []string) {
	var cells []string
	header := false
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		switch c.Data {
		case "th":
			header = true
			cells = append(cells, nodeText(c))
		case "td":
			cells = append(cells, nodeText(c))
		}
	}
	return header, cells
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.TrimSpace(b.String())
}

// columnName normalizes a header cell to a snake_case identifier.
func columnName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.Join(strings.Fields(s), "_")
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			return r
		}
		return -1
	}, s)
}

var _ domain.Provider = (*HTMLTable)(nil)
