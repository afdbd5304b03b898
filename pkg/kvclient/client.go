// Package kvclient implements the blocking client (spec.md section 4.8:
// C8): one persistent TCP connection, request/response framed per
// pkg/protocol. Grounded on CommandClient/KvClient in
// _examples/original_source/src/client.rs.
package kvclient

import (
	"bufio"
	"fmt"
	"net"

	"kvs/internal/kverrors"
	"kvs/pkg/protocol"
)

// Client is a single reusable connection to a kvs server.
type Client struct {
	conn   net.Conn
	reader *bufio.Reader
	writer *bufio.Writer
}

// Connect dials addr and returns a ready-to-use Client.
func Connect(addr string) (*Client, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, kverrors.IO("connect to server", err).WithKey(addr)
	}
	return &Client{
		conn:   conn,
		reader: bufio.NewReader(conn),
		writer: bufio.NewWriter(conn),
	}, nil
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Get fetches the value for key. ok is false and err is nil when the key is
// absent (spec.md section 4.6: Get of a missing key is Ok, not Error).
func (c *Client) Get(key string) (value string, ok bool, err error) {
	resp, err := c.roundTrip(protocol.GetRequest(key))
	if err != nil {
		return "", false, err
	}
	if resp.Outcome == protocol.Err {
		return "", false, kverrors.IO(resp.Message, nil)
	}
	if resp.Message == fmt.Sprintf("Key: %s not found", key) {
		return "", false, nil
	}
	return resp.Message, true, nil
}

// Set inserts or overwrites key with value.
func (c *Client) Set(key, value string) error {
	resp, err := c.roundTrip(protocol.SetRequest(key, value))
	if err != nil {
		return err
	}
	return asError(resp, key)
}

// Remove deletes key, returning a KeyNotFound error if it is absent.
func (c *Client) Remove(key string) error {
	resp, err := c.roundTrip(protocol.RmRequest(key))
	if err != nil {
		return err
	}
	return asError(resp, key)
}

// asError converts a non-Ok response into an error. key is used only to
// recognize the one structured case (KeyNotFound) this client re-tags; any
// other server-side failure is surfaced as a plain IO error carrying the
// server's message.
func asError(resp protocol.Response, key string) error {
	if resp.Outcome != protocol.Err {
		return nil
	}
	if resp.Message == kverrors.KeyNotFound(key).Error() {
		return kverrors.KeyNotFound(key)
	}
	return kverrors.IO(resp.Message, nil)
}

func (c *Client) roundTrip(req protocol.Request) (protocol.Response, error) {
	line, err := protocol.EncodeRequest(req)
	if err != nil {
		return protocol.Response{}, kverrors.Protocol("encode request", err)
	}
	if _, err := c.writer.Write(line); err != nil {
		return protocol.Response{}, kverrors.IO("write request", err)
	}
	if err := c.writer.Flush(); err != nil {
		return protocol.Response{}, kverrors.IO("flush request", err)
	}

	respLine, err := protocol.ReadLine(c.reader)
	if err != nil {
		return protocol.Response{}, kverrors.IO("read response", err)
	}
	resp, err := protocol.DecodeResponse(respLine)
	if err != nil {
		return protocol.Response{}, kverrors.Protocol("decode response", err)
	}
	return resp, nil
}
