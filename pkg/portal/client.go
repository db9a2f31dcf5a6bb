// Package portal is a thin client for the government vehicle-status portal.
package portal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
)

var (
	// ErrAccessDenied signals the portal refused the session or request.
	ErrAccessDenied = errors.New("portal access denied")
	// ErrNoRecords signals the portal answered but holds nothing for the keys.
	ErrNoRecords = errors.New("portal returned no records")
	// ErrNotConfigured is returned when no base URL was provided.
	ErrNotConfigured = errors.New("portal base url not configured")
)

const maxBody = 2 << 20

// Client fetches vehicle-status pages and extracts label/value pairs.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a client with its own cookie jar so the portal session survives between calls.
func NewClient(baseURL string, timeout time.Duration) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout, Jar: jar},
	}, nil
}

// Lookup queries the portal by registration number and chassis suffix.
func (c *Client) Lookup(ctx context.Context, registration, chassis string) (map[string]string, error) {
	if c.baseURL == "" {
		return nil, ErrNotConfigured
	}
	if err := c.warmSession(ctx); err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("regn_no", strings.ToUpper(strings.TrimSpace(registration)))
	q.Set("chasi_no", strings.ToUpper(strings.TrimSpace(chassis)))
	body, err := c.get(ctx, c.baseURL+"/vehicle-status?"+q.Encode())
	if err != nil {
		return nil, err
	}
	if strings.Contains(strings.ToLower(body), "no record") {
		return nil, ErrNoRecords
	}
	record, err := ParseRecord(strings.NewReader(body))
	if err != nil {
		return nil, err
	}
	if len(record) == 0 {
		return nil, ErrNoRecords
	}
	return record, nil
}

func (c *Client) warmSession(ctx context.Context) error {
	base, err := url.Parse(c.baseURL)
	if err != nil {
		return fmt.Errorf("parse portal url: %w", err)
	}
	if len(c.http.Jar.Cookies(base)) > 0 {
		return nil
	}
	_, err = c.get(ctx, c.baseURL+"/")
	return err
}

func (c *Client) get(ctx context.Context, target string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", fmt.Errorf("build portal request: %w", err)
	}
	req.Header.Set("User-Agent", "drive-admin-api/1.0")
	req.Header.Set("Accept", "text/html")
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("portal request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", ErrAccessDenied
	case resp.StatusCode == http.StatusNotFound:
		return "", ErrNoRecords
	case resp.StatusCode >= 300:
		return "", fmt.Errorf("portal responded with status %d", resp.StatusCode)
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return "", fmt.Errorf("read portal response: %w", err)
	}
	return string(raw), nil
}

// ParseRecord walks every table row holding exactly two cells and treats them as label/value.
func ParseRecord(r io.Reader) (map[string]string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse portal html: %w", err)
	}
	record := make(map[string]string)
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "tr" {
			var cells []string
			for child := n.FirstChild; child != nil; child = child.NextSibling {
				if child.Type == html.ElementNode && (child.Data == "td" || child.Data == "th") {
					cells = append(cells, text(child))
				}
			}
			if len(cells) == 2 {
				label := strings.TrimRight(cells[0], ": ")
				if label != "" {
					record[label] = cells[1]
				}
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)
	return record, nil
}

func text(n *html.Node) string {
	var b strings.Builder
	var collect func(*html.Node)
	collect = func(node *html.Node) {
		if node.Type == html.TextNode {
			b.WriteString(node.Data)
			b.WriteByte(' ')
		}
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			collect(child)
		}
	}
	collect(n)
	return strings.Join(strings.Fields(b.String()), " ")
}
