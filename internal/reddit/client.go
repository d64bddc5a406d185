package reddit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"redditfrost/internal/dedup"
	"redditfrost/internal/model"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"
)

// ErrNotAuthenticated is returned by write operations when no access token is configured.
var ErrNotAuthenticated = errors.New("reddit: not authenticated")

// Config holds immutable client settings; credentials are fixed at construction.
type Config struct {
	BaseURL           string
	OAuthBaseURL      string
	AccessToken       string
	UserAgent         string
	RequestsPerMinute int
	Timeout           time.Duration
}

// Client is a minimal Reddit JSON API client.
type Client struct {
	base      string
	oauthBase string
	token     string
	userAgent string
	client    *http.Client
	limiter   *rate.Limiter
}

// NewClient creates a client. Reads go to BaseURL anonymously, or to OAuthBaseURL
// when an access token is configured.
func NewClient(cfg Config) *Client {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = "https://www.reddit.com"
	}
	if strings.TrimSpace(cfg.OAuthBaseURL) == "" {
		cfg.OAuthBaseURL = "https://oauth.reddit.com"
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "redditfrost/1.0"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	lim := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerMinute > 0 {
		lim = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1)
	}
	return &Client{
		base:      strings.TrimRight(cfg.BaseURL, "/"),
		oauthBase: strings.TrimRight(cfg.OAuthBaseURL, "/"),
		token:     cfg.AccessToken,
		userAgent: cfg.UserAgent,
		client:    &http.Client{Timeout: cfg.Timeout},
		limiter:   lim,
	}
}

// Authenticated reports whether write operations are possible.
func (c *Client) Authenticated() bool { return c.token != "" }

// Page is one slice of a listing plus the cursor for the next one. An empty
// After means the listing has no more pages.
type Page struct {
	Candidates []model.Candidate
	After      string
}

type listing struct {
	Kind string `json:"kind"`
	Data struct {
		After    string `json:"after"`
		Children []struct {
			Kind string `json:"kind"`
			Data post   `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type post struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Subreddit    string  `json:"subreddit"`
	Title        string  `json:"title"`
	Selftext     string  `json:"selftext"`
	SelftextHTML string  `json:"selftext_html"`
	URL          string  `json:"url"`
	Permalink    string  `json:"permalink"`
	Author       string  `json:"author"`
	CreatedUTC   float64 `json:"created_utc"`
	NumComments  int     `json:"num_comments"`
	Score        int     `json:"score"`
	Stickied     bool    `json:"stickied"`
}

// Listing fetches a subreddit listing sorted by sort (new, hot, rising, top).
func (c *Client) Listing(ctx context.Context, subreddit, sort, after string, limit int) (Page, error) {
	sub := strings.TrimPrefix(strings.TrimSpace(subreddit), "r/")
	if sub == "" {
		return Page{}, fmt.Errorf("reddit: empty subreddit")
	}
	if sort == "" {
		sort = "new"
	}
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("raw_json", "1")
	if after != "" {
		q.Set("after", after)
	}
	path := fmt.Sprintf("/r/%s/%s.json", url.PathEscape(sub), url.PathEscape(sort))
	return c.fetchListing(ctx, path, q)
}

// Search runs a site-wide link search, newest first unless sort says otherwise.
func (c *Client) Search(ctx context.Context, query, sort, after string, limit int) (Page, error) {
	if sort == "" {
		sort = "new"
	}
	q := url.Values{}
	q.Set("q", query)
	q.Set("sort", sort)
	q.Set("type", "link")
	q.Set("limit", strconv.Itoa(limit))
	q.Set("raw_json", "1")
	if after != "" {
		q.Set("after", after)
	}
	return c.fetchListing(ctx, "/search.json", q)
}

func (c *Client) readBase() string {
	if c.token != "" {
		return c.oauthBase
	}
	return c.base
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	return c.client.Do(req)
}

func (c *Client) fetchListing(ctx context.Context, path string, q url.Values) (Page, error) {
	endpoint := c.readBase() + path + "?" + q.Encode()
	req, err := c.newRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Page{}, err
	}
	resp, err := c.do(req)
	if err != nil {
		return Page{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Page{}, fmt.Errorf("reddit: %s status %d", path, resp.StatusCode)
	}
	var l listing
	if err := json.NewDecoder(resp.Body).Decode(&l); err != nil {
		return Page{}, fmt.Errorf("reddit: decode %s: %w", path, err)
	}
	page := Page{After: l.Data.After}
	for _, ch := range l.Data.Children {
		if ch.Kind != "t3" || ch.Data.ID == "" || ch.Data.Stickied {
			continue
		}
		page.Candidates = append(page.Candidates, c.convertPost(ch.Data))
	}
	slog.Debug("reddit: listing fetched", "path", path, "count", len(page.Candidates), "after", page.After)
	return page, nil
}

func (c *Client) convertPost(p post) model.Candidate {
	body := p.Selftext
	if strings.TrimSpace(body) == "" && p.SelftextHTML != "" {
		body = htmlToText(p.SelftextHTML)
	}
	link := p.URL
	if p.Permalink != "" {
		link = "https://www.reddit.com" + p.Permalink
	}
	var created time.Time
	if p.CreatedUTC > 0 {
		created = time.Unix(int64(p.CreatedUTC), 0).UTC()
	}
	return model.Candidate{
		SourceID:        model.NormalizeSourceID(p.ID),
		Community:       p.Subreddit,
		Title:           p.Title,
		Body:            strings.TrimSpace(body),
		URL:             link,
		Author:          p.Author,
		CreatedAt:       created,
		ReplyCount:      p.NumComments,
		PopularityScore: p.Score,
		Fingerprint:     dedup.Fingerprint(p.ID),
	}
}

// htmlToText flattens rendered post HTML, which may arrive entity-escaped.
func htmlToText(s string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html.UnescapeString(s)))
	if err != nil {
		return ""
	}
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find("p, li").Each(func(_ int, sel *goquery.Selection) {
		sel.AppendHtml("\n")
	})
	return strings.TrimSpace(doc.Text())
}

type commentResponse struct {
	JSON struct {
		Errors [][]any `json:"errors"`
		Data   struct {
			Things []struct {
				Data struct {
					ID   string `json:"id"`
					Name string `json:"name"`
				} `json:"data"`
			} `json:"things"`
		} `json:"data"`
	} `json:"json"`
}

// SubmitComment posts text as a top-level reply to the post and returns the new comment's fullname.
func (c *Client) SubmitComment(ctx context.Context, sourceID, text string) (string, error) {
	if c.token == "" {
		return "", ErrNotAuthenticated
	}
	thing := sourceID
	if !strings.HasPrefix(thing, "t3_") {
		thing = "t3_" + thing
	}
	form := url.Values{}
	form.Set("thing_id", thing)
	form.Set("text", text)
	form.Set("api_type", "json")
	req, err := c.newRequest(ctx, http.MethodPost, c.oauthBase+"/api/comment", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := c.do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return "", fmt.Errorf("%w: status %d", ErrNotAuthenticated, resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("reddit: comment status %d", resp.StatusCode)
	}
	var cr commentResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return "", fmt.Errorf("reddit: decode comment response: %w", err)
	}
	if len(cr.JSON.Errors) > 0 {
		return "", fmt.Errorf("reddit: comment rejected: %v", cr.JSON.Errors[0])
	}
	if len(cr.JSON.Data.Things) == 0 {
		return "", fmt.Errorf("reddit: comment response without id")
	}
	d := cr.JSON.Data.Things[0].Data
	if d.Name != "" {
		return d.Name, nil
	}
	return d.ID, nil
}
