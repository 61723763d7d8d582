// Package httpc implements store.Connection over the store's HTTP interface.
//
// Objects live under <path>/<container>/<key> where path comes from the
// endpoint. Secondary index, search and ping resources are served from the
// root of the endpoint.
package httpc

import (
	"bytes"
	"context"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/ajitpratap0/kvsplit/pkg/codec"
	"github.com/ajitpratap0/kvsplit/pkg/endpoint"
	"github.com/ajitpratap0/kvsplit/pkg/errors"
	"github.com/ajitpratap0/kvsplit/pkg/logger"
	"github.com/ajitpratap0/kvsplit/pkg/models"
	"github.com/ajitpratap0/kvsplit/pkg/store"
)

const (
	acceptSiblings = "multipart/mixed, */*;q=0.5"
	headerVClock   = "X-Riak-Vclock"
	headerMeta     = "X-Riak-Meta-"
	headerDeleted  = "X-Riak-Deleted"

	searchPageSize = 1000
	maxErrorBody   = 512
)

// Search document fields naming the container and key of a hit.
const (
	fieldContainer = "_yz_rb"
	fieldKey       = "_yz_rk"
	fieldLegacyKey = "id"
)

// Client talks to one HTTP endpoint.
type Client struct {
	base       *url.URL
	objectPath string
	httpClient *http.Client
	transport  *http.Transport
	logger     *zap.Logger
}

var _ store.Connection = (*Client)(nil)

// New returns a client for ep, which must use an HTTP protocol.
func New(ep endpoint.Endpoint, opts Options) (*Client, error) {
	if !ep.Protocol().IsHTTP() {
		return nil, errors.Newf(errors.ErrorTypeArgument, "endpoint %s is not an http endpoint", ep)
	}
	log := opts.Logger
	if log == nil {
		log = logger.Get()
	}
	log = log.With(zap.String("component", "httpc"), zap.String("endpoint", ep.String()))

	transport := newTransport(opts, log)
	return &Client{
		base: &url.URL{
			Scheme: string(ep.Protocol()),
			Host:   ep.Address(),
		},
		objectPath: strings.TrimSuffix(ep.Path(), "/"),
		httpClient: &http.Client{Transport: transport, Timeout: opts.RequestTimeout},
		transport:  transport,
		logger:     log,
	}, nil
}

func (c *Client) url(path string, query url.Values) string {
	u := *c.base
	u.Path = path
	if query != nil {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

func (c *Client) objectURL(container, key string) string {
	u := *c.base
	u.Path = c.objectPath + "/" + container + "/" + key
	u.RawPath = c.objectPath + "/" + url.PathEscape(container) + "/" + url.PathEscape(key)
	return u.String()
}

func (c *Client) do(ctx context.Context, method, target string, body io.Reader, header http.Header) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeArgument, "build request")
	}
	for k, v := range header {
		req.Header[k] = v
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeStore, method+" "+target)
	}
	return resp, nil
}

// statusError drains a failed response into a store error.
func statusError(resp *http.Response, op string) error {
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return errors.Newf(errors.ErrorTypeStore, "%s: %s: %s", op, resp.Status, strings.TrimSpace(string(msg))).
		WithDetail("status", resp.StatusCode)
}

// Fetch implements store.Connection. Sibling values arrive as a
// multipart/mixed body with status 300.
func (c *Client) Fetch(ctx context.Context, container, key string) (*models.Record, error) {
	resp, err := c.do(ctx, http.MethodGet, c.objectURL(container, key), nil,
		http.Header{"Accept": {acceptSiblings}})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	rec := &models.Record{ID: models.NewRecordID(container, key)}
	if v := resp.Header.Get(headerVClock); v != "" {
		rec.VClock = []byte(v)
	}

	switch resp.StatusCode {
	case http.StatusNotFound:
		return rec, nil
	case http.StatusOK:
		value, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeStore, "read object body")
		}
		sib := siblingFromHeader(resp.Header)
		sib.Value = value
		rec.Siblings = []models.Sibling{sib}
		return rec, nil
	case http.StatusMultipleChoices:
		sibs, err := readSiblings(resp)
		if err != nil {
			return nil, err
		}
		rec.Siblings = sibs
		return rec, nil
	default:
		return nil, statusError(resp, "fetch "+container+"/"+key)
	}
}

func readSiblings(resp *http.Response) ([]models.Sibling, error) {
	mediaType, params, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") {
		return nil, errors.Newf(errors.ErrorTypeStore, "sibling response is not multipart: %q",
			resp.Header.Get("Content-Type"))
	}

	var sibs []models.Sibling
	mr := multipart.NewReader(resp.Body, params["boundary"])
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			return sibs, nil
		}
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeStore, "read sibling part")
		}
		value, err := io.ReadAll(part)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeStore, "read sibling part")
		}
		sib := siblingFromHeader(http.Header(part.Header))
		sib.Value = value
		sibs = append(sibs, sib)
	}
}

func siblingFromHeader(h http.Header) models.Sibling {
	sib := models.Sibling{
		ContentEncoding: h.Get("Content-Encoding"),
		VTag:            strings.Trim(h.Get("Etag"), `"`),
		Deleted:         strings.EqualFold(h.Get(headerDeleted), "true"),
	}
	if mediaType, params, err := mime.ParseMediaType(h.Get("Content-Type")); err == nil {
		sib.ContentType = mediaType
		sib.Charset = params["charset"]
	}
	if lm := h.Get("Last-Modified"); lm != "" {
		if t, err := http.ParseTime(lm); err == nil {
			sib.LastModified = t.UTC()
		}
	}
	for name, values := range h {
		canonical := http.CanonicalHeaderKey(name)
		if strings.HasPrefix(canonical, headerMeta) && len(values) > 0 {
			if sib.UserMeta == nil {
				sib.UserMeta = make(map[string]string)
			}
			sib.UserMeta[strings.ToLower(strings.TrimPrefix(canonical, headerMeta))] = values[0]
		}
	}
	return sib
}

type keysResponse struct {
	Keys []string `json:"keys"`
}

func (c *Client) getKeys(ctx context.Context, target, op string) ([]string, error) {
	resp, err := c.do(ctx, http.MethodGet, target, nil, http.Header{"Accept": {"application/json"}})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp, op)
	}
	var body keysResponse
	if err := codec.Decode(resp.Body, &body); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeStore, "decode "+op+" response")
	}
	return body.Keys, nil
}

// ListKeys implements store.Connection.
func (c *Client) ListKeys(ctx context.Context, container string) ([]string, error) {
	u := *c.base
	u.Path = c.objectPath + "/" + container
	u.RawPath = c.objectPath + "/" + url.PathEscape(container)
	u.RawQuery = url.Values{"keys": {"true"}, "props": {"false"}}.Encode()

	keys, err := c.getKeys(ctx, u.String(), "list keys")
	if err != nil {
		return nil, err
	}
	c.logger.Debug("listed keys", zap.String("container", container), zap.Int("keys", len(keys)))
	return keys, nil
}

// IndexQuery implements store.Connection.
func (c *Client) IndexQuery(ctx context.Context, q store.IndexQuery) ([]models.RecordID, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	segments := []string{"buckets", q.Container, "index", q.Index}
	if q.IsRange() {
		segments = append(segments, q.Start, q.End)
	} else {
		segments = append(segments, q.Value)
	}

	u := *c.base
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	u.Path = "/" + strings.Join(segments, "/")
	u.RawPath = "/" + strings.Join(escaped, "/")

	keys, err := c.getKeys(ctx, u.String(), "index query")
	if err != nil {
		return nil, err
	}
	ids := make([]models.RecordID, 0, len(keys))
	for _, k := range keys {
		ids = append(ids, models.NewRecordID(q.Container, k))
	}
	return ids, nil
}

type searchResponse struct {
	Response struct {
		NumFound int64                    `json:"numFound"`
		Docs     []map[string]interface{} `json:"docs"`
	} `json:"response"`
}

// Search implements store.Connection. Results are paged until every match has
// been read.
func (c *Client) Search(ctx context.Context, container, query string) ([]models.RecordID, error) {
	var ids []models.RecordID
	for start := 0; ; start += searchPageSize {
		params := url.Values{
			"wt":    {"json"},
			"q":     {query},
			"fl":    {strings.Join([]string{fieldContainer, fieldKey, fieldLegacyKey}, ",")},
			"start": {strconv.Itoa(start)},
			"rows":  {strconv.Itoa(searchPageSize)},
		}
		u := *c.base
		u.Path = "/search/query/" + container
		u.RawPath = "/search/query/" + url.PathEscape(container)
		u.RawQuery = params.Encode()

		resp, err := c.do(ctx, http.MethodGet, u.String(), nil, http.Header{"Accept": {"application/json"}})
		if err != nil {
			return nil, err
		}
		var body searchResponse
		err = func() error {
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				return statusError(resp, "search")
			}
			if err := codec.Decode(resp.Body, &body); err != nil {
				return errors.Wrap(err, errors.ErrorTypeStore, "decode search response")
			}
			return nil
		}()
		if err != nil {
			return nil, err
		}

		for _, doc := range body.Response.Docs {
			if id, ok := searchHit(container, doc); ok {
				ids = append(ids, id)
			}
		}
		if len(body.Response.Docs) == 0 || int64(start+searchPageSize) >= body.Response.NumFound {
			return ids, nil
		}
	}
}

func searchHit(container string, doc map[string]interface{}) (models.RecordID, bool) {
	str := func(name string) string {
		switch v := doc[name].(type) {
		case string:
			return v
		case []interface{}:
			if len(v) > 0 {
				if s, ok := v[0].(string); ok {
					return s
				}
			}
		}
		return ""
	}
	c := str(fieldContainer)
	if c == "" {
		c = container
	}
	k := str(fieldKey)
	if k == "" {
		k = str(fieldLegacyKey)
	}
	if k == "" {
		return models.RecordID{}, false
	}
	return models.NewRecordID(c, k), true
}

// Store implements store.Connection.
func (c *Client) Store(ctx context.Context, container, key string, value []byte, contentType string) error {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	resp, err := c.do(ctx, http.MethodPut, c.objectURL(container, key), bytes.NewReader(value),
		http.Header{"Content-Type": {contentType}})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent, http.StatusCreated:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	default:
		return statusError(resp, "store "+container+"/"+key)
	}
}

// Ping implements store.Connection.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, c.url("/ping", nil), nil, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return statusError(resp, "ping")
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// Close implements store.Connection.
func (c *Client) Close() error {
	c.transport.CloseIdleConnections()
	return nil
}
