// Package chain is the two-method EVM JSON-RPC adapter. The engine reads
// storage slots and runtime bytecode through it and nothing else: no
// nonces, gas, signatures, or write calls exist anywhere in this package.
package chain

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/VectorBits/upgradeguard/internal/logger"
	"github.com/VectorBits/upgradeguard/internal/model"
)

// Adapter is the chain boundary the proxy classifier uses.
type Adapter interface {
	ReadStorageSlot(ctx context.Context, address model.Address, slot model.SlotKey) (model.SlotKey, error)
	ReadCode(ctx context.Context, address model.Address) ([]byte, error)
}

// Client serves the engine's slot and code reads from an ordered list of
// RPC endpoints. One analysis performs at most a handful of reads in a
// single burst, so endpoints are dialed lazily on first use and failover
// is driven by a read actually failing, not by separate health probes: a
// read that errors on one endpoint is retried on the next, and whichever
// endpoint last served a read is tried first on the following one.
type Client struct {
	endpoints []string
	timeout   time.Duration
	proxyURL  string

	mu        sync.Mutex
	conns     []*ethclient.Client
	preferred int
}

// Dial validates the endpoint list and the optional proxy URL. No
// connection is opened until the first read.
func Dial(endpoints []string, timeout time.Duration, proxyURL string) (*Client, error) {
	if len(endpoints) == 0 {
		return nil, fmt.Errorf("at least one RPC endpoint is required")
	}
	for _, e := range endpoints {
		if strings.TrimSpace(e) == "" {
			return nil, fmt.Errorf("empty RPC endpoint in list")
		}
	}
	if err := validateProxyURL(proxyURL); err != nil {
		return nil, err
	}
	return &Client{
		endpoints: endpoints,
		timeout:   timeout,
		proxyURL:  proxyURL,
		conns:     make([]*ethclient.Client, len(endpoints)),
	}, nil
}

func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, conn := range c.conns {
		if conn != nil {
			conn.Close()
		}
	}
}

// ReadStorageSlot reads the 32-byte value of one storage slot at the
// chain head.
func (c *Client) ReadStorageSlot(ctx context.Context, address model.Address, slot model.SlotKey) (model.SlotKey, error) {
	var out model.SlotKey
	err := c.read(ctx, "eth_getStorageAt", func(ctx context.Context, conn *ethclient.Client) error {
		value, err := conn.StorageAt(ctx, address, slot, nil)
		if err != nil {
			return err
		}
		copy(out[:], value)
		return nil
	})
	return out, err
}

// ReadCode reads the runtime bytecode at address, empty if none.
func (c *Client) ReadCode(ctx context.Context, address model.Address) ([]byte, error) {
	var out []byte
	err := c.read(ctx, "eth_getCode", func(ctx context.Context, conn *ethclient.Client) error {
		code, err := conn.CodeAt(ctx, address, nil)
		if err != nil {
			return err
		}
		out = code
		return nil
	})
	return out, err
}

// read runs one RPC call against the preferred endpoint, walking the rest
// of the list when it fails. The last error is returned once every
// endpoint has been tried.
func (c *Client) read(ctx context.Context, method string, call func(context.Context, *ethclient.Client) error) error {
	c.mu.Lock()
	start := c.preferred
	c.mu.Unlock()

	var lastErr error
	for i := 0; i < len(c.endpoints); i++ {
		idx := (start + i) % len(c.endpoints)
		conn, err := c.conn(idx)
		if err != nil {
			lastErr = err
			continue
		}
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		err = call(callCtx, conn)
		cancel()
		if err == nil {
			if idx != start {
				logger.Info("switched to RPC endpoint: %s", c.endpoints[idx])
				c.mu.Lock()
				c.preferred = idx
				c.mu.Unlock()
			}
			return nil
		}
		logger.Warn("%s failed on %s: %v", method, c.endpoints[idx], err)
		lastErr = err
	}
	return fmt.Errorf("%s failed on all %d RPC endpoint(s): %w", method, len(c.endpoints), lastErr)
}

// conn returns the cached connection for one endpoint, dialing it on
// first use. HTTP(S) endpoints go through the optional proxy; other
// schemes (ws, ipc) dial directly.
func (c *Client) conn(i int) (*ethclient.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conns[i] != nil {
		return c.conns[i], nil
	}
	endpoint := strings.TrimSpace(c.endpoints[i])
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid RPC endpoint %q: %w", endpoint, err)
	}
	var conn *ethclient.Client
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		rpcClient, err := rpc.DialHTTPWithClient(endpoint, c.httpClient())
		if err != nil {
			return nil, err
		}
		conn = ethclient.NewClient(rpcClient)
	default:
		conn, err = ethclient.Dial(endpoint)
		if err != nil {
			return nil, err
		}
	}
	c.conns[i] = conn
	return conn, nil
}

// httpClient builds the transport HTTP(S) endpoints are dialed through,
// routed via the configured proxy when one is set.
func (c *Client) httpClient() *http.Client {
	client := &http.Client{Timeout: c.timeout}
	if c.proxyURL != "" {
		proxyURL, _ := url.Parse(c.proxyURL)
		client.Transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
	}
	return client
}

func validateProxyURL(proxyURL string) error {
	if strings.TrimSpace(proxyURL) == "" {
		return nil
	}
	u, err := url.Parse(proxyURL)
	if err != nil {
		return fmt.Errorf("invalid proxy URL: %w", err)
	}
	switch u.Scheme {
	case "http", "https", "socks5":
	default:
		return fmt.Errorf("unsupported proxy scheme %q (supported: http, https, socks5)", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("proxy host cannot be empty")
	}
	return nil
}

var _ Adapter = (*Client)(nil)
