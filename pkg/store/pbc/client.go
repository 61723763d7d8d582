// Package pbc implements store.Connection over the store's binary protocol:
// length-prefixed frames carrying protobuf encoded messages over TCP.
//
// Each frame is a 4-byte big-endian length covering the message code and
// payload, a 1-byte message code, then the payload.
package pbc

import (
	"bufio"
	"context"
	"encoding/binary"
	"io"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ajitpratap0/kvsplit/pkg/errors"
	"github.com/ajitpratap0/kvsplit/pkg/logger"
	"github.com/ajitpratap0/kvsplit/pkg/models"
	"github.com/ajitpratap0/kvsplit/pkg/store"
)

// maxFrameSize bounds a single response frame.
const maxFrameSize = 64 << 20

// Options configures a Client.
type Options struct {
	DialTimeout    time.Duration
	RequestTimeout time.Duration
	Logger         *zap.Logger
}

// DefaultOptions returns the default client options.
func DefaultOptions() Options {
	return Options{
		DialTimeout:    10 * time.Second,
		RequestTimeout: 60 * time.Second,
	}
}

// Client is a single binary protocol connection. Requests are serialized; the
// protocol does not multiplex.
type Client struct {
	addr    string
	conn    net.Conn
	reader  *bufio.Reader
	timeout time.Duration
	logger  *zap.Logger

	mu     sync.Mutex
	closed bool
}

var _ store.Connection = (*Client)(nil)

// Dial connects to addr ("host:port").
func Dial(ctx context.Context, addr string, opts Options) (*Client, error) {
	dialer := &net.Dialer{Timeout: opts.DialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeStore, "dial "+addr)
	}
	return newClient(addr, conn, opts), nil
}

func newClient(addr string, conn net.Conn, opts Options) *Client {
	log := opts.Logger
	if log == nil {
		log = logger.Get()
	}
	return &Client{
		addr:    addr,
		conn:    conn,
		reader:  bufio.NewReaderSize(conn, 64*1024),
		timeout: opts.RequestTimeout,
		logger:  log.With(zap.String("component", "pbc"), zap.String("endpoint", addr)),
	}
}

// Fetch implements store.Connection.
func (c *Client) Fetch(ctx context.Context, container, key string) (*models.Record, error) {
	payload, err := c.roundTrip(ctx, codeGetReq, encodeGetReq(container, key), codeGetResp)
	if err != nil {
		return nil, err
	}
	return decodeGetResp(models.NewRecordID(container, key), payload)
}

// ListKeys implements store.Connection. The server streams keys over several
// response frames ending with one marked done.
func (c *Client) ListKeys(ctx context.Context, container string) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.begin(ctx); err != nil {
		return nil, err
	}
	if err := c.writeFrame(codeListKeysReq, encodeListKeysReq(container)); err != nil {
		return nil, err
	}

	var keys []string
	for {
		payload, err := c.readExpected(codeListKeysResp)
		if err != nil {
			return nil, err
		}
		chunk, done, err := decodeListKeysResp(payload)
		if err != nil {
			return nil, err
		}
		keys = append(keys, chunk...)
		if done {
			break
		}
	}
	c.logger.Debug("listed keys", zap.String("container", container), zap.Int("keys", len(keys)))
	return keys, nil
}

// IndexQuery implements store.Connection.
func (c *Client) IndexQuery(ctx context.Context, q store.IndexQuery) ([]models.RecordID, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	req := encodeIndexReq(q.Container, q.Index, q.IsRange(), q.Value, q.Start, q.End)
	payload, err := c.roundTrip(ctx, codeIndexReq, req, codeIndexResp)
	if err != nil {
		return nil, err
	}
	keys, err := decodeIndexResp(payload)
	if err != nil {
		return nil, err
	}
	ids := make([]models.RecordID, 0, len(keys))
	for _, k := range keys {
		ids = append(ids, models.NewRecordID(q.Container, k))
	}
	return ids, nil
}

// Search implements store.Connection. Results are paged until every match has
// been read.
func (c *Client) Search(ctx context.Context, container, query string) ([]models.RecordID, error) {
	var ids []models.RecordID
	for start := int64(0); ; start += searchPageSize {
		req := encodeSearchQueryReq(container, query, start, searchPageSize)
		payload, err := c.roundTrip(ctx, codeSearchQueryReq, req, codeSearchQueryResp)
		if err != nil {
			return nil, err
		}
		page, total, err := decodeSearchQueryResp(container, payload)
		if err != nil {
			return nil, err
		}
		ids = append(ids, page...)
		if len(page) == 0 || start+searchPageSize >= total {
			return ids, nil
		}
	}
}

// Store implements store.Connection.
func (c *Client) Store(ctx context.Context, container, key string, value []byte, contentType string) error {
	_, err := c.roundTrip(ctx, codePutReq, encodePutReq(container, key, value, contentType), codePutResp)
	return err
}

// Ping implements store.Connection.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.roundTrip(ctx, codePingReq, nil, codePingResp)
	return err
}

// Close implements store.Connection. It is safe to call more than once.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.conn.Close()
}

func (c *Client) roundTrip(ctx context.Context, code byte, payload []byte, want byte) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.begin(ctx); err != nil {
		return nil, err
	}
	if err := c.writeFrame(code, payload); err != nil {
		return nil, err
	}
	return c.readExpected(want)
}

// begin checks the connection state and applies the request deadline.
func (c *Client) begin(ctx context.Context) error {
	if c.closed {
		return errors.New(errors.ErrorTypeIllegalState, "connection is closed")
	}
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeStore, "request cancelled")
	}

	var deadline time.Time
	if c.timeout > 0 {
		deadline = time.Now().Add(c.timeout)
	}
	if d, ok := ctx.Deadline(); ok && (deadline.IsZero() || d.Before(deadline)) {
		deadline = d
	}
	if err := c.conn.SetDeadline(deadline); err != nil {
		return errors.Wrap(err, errors.ErrorTypeStore, "set deadline")
	}
	return nil
}

func (c *Client) writeFrame(code byte, payload []byte) error {
	frame := make([]byte, 5+len(payload))
	binary.BigEndian.PutUint32(frame, uint32(len(payload)+1))
	frame[4] = code
	copy(frame[5:], payload)
	if _, err := c.conn.Write(frame); err != nil {
		return errors.Wrap(err, errors.ErrorTypeStore, "write request to "+c.addr)
	}
	return nil
}

// readExpected reads one frame and checks its code. Error responses become
// store errors.
func (c *Client) readExpected(want byte) ([]byte, error) {
	code, payload, err := c.readFrame()
	if err != nil {
		return nil, err
	}
	switch code {
	case want:
		return payload, nil
	case codeErrorResp:
		return nil, decodeErrorResp(payload)
	default:
		return nil, errors.Newf(errors.ErrorTypeStore, "unexpected response code %d, want %d", code, want)
	}
}

func (c *Client) readFrame() (byte, []byte, error) {
	var header [4]byte
	if _, err := io.ReadFull(c.reader, header[:]); err != nil {
		return 0, nil, errors.Wrap(err, errors.ErrorTypeStore, "read response from "+c.addr)
	}
	size := binary.BigEndian.Uint32(header[:])
	if size == 0 || size > maxFrameSize {
		return 0, nil, errors.Newf(errors.ErrorTypeStore, "invalid frame size %d", size)
	}
	body := make([]byte, size)
	if _, err := io.ReadFull(c.reader, body); err != nil {
		return 0, nil, errors.Wrap(err, errors.ErrorTypeStore, "read response from "+c.addr)
	}
	return body[0], body[1:], nil
}
