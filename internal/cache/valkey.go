package cache

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"
)

// ValkeyConfig holds connection parameters for a Valkey/Redis-compatible
// server.
type ValkeyConfig struct {
	Addr         string
	Username     string
	Password     string
	DB           int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	TLS          bool
}

// ValkeyProvider implements Provider against a Valkey server. Connections are
// dialed per operation; the cached payloads here are small and infrequent
// enough that pooling is not worth the complexity.
type ValkeyProvider struct {
	cfg ValkeyConfig
}

// NewValkeyProvider creates a Provider using the supplied configuration. It
// pings the target once so misconfiguration fails at startup rather than on
// the first query.
func NewValkeyProvider(cfg ValkeyConfig) (*ValkeyProvider, error) {
	if cfg.Addr == "" {
		return nil, errors.New("valkey addr is required")
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 2 * time.Second
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 500 * time.Millisecond
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 500 * time.Millisecond
	}

	provider := &ValkeyProvider{cfg: cfg}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()
	if _, err := provider.roundTrip(ctx, "PING"); err != nil {
		return nil, fmt.Errorf("valkey ping: %w", err)
	}
	return provider, nil
}

// Get fetches bytes by key, returning ErrCacheMiss when the key is absent.
func (p *ValkeyProvider) Get(ctx context.Context, key string) ([]byte, error) {
	reply, err := p.roundTrip(ctx, "GET", key)
	if err != nil {
		return nil, err
	}
	if reply.nil_ {
		return nil, ErrCacheMiss
	}
	return reply.data, nil
}

// Set stores bytes with the provided TTL.
func (p *ValkeyProvider) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	args := []string{"SET", key, string(value)}
	if ttl > 0 {
		args = append(args, "PX", strconv.FormatInt(ttl.Milliseconds(), 10))
	}
	reply, err := p.roundTrip(ctx, args...)
	if err != nil {
		return err
	}
	if string(reply.data) != "OK" {
		return fmt.Errorf("unexpected SET reply: %s", reply.data)
	}
	return nil
}

// Del removes a key from the cache.
func (p *ValkeyProvider) Del(ctx context.Context, key string) error {
	_, err := p.roundTrip(ctx, "DEL", key)
	return err
}

// Close closes the provider (connections are per-operation, so nothing is
// held open).
func (p *ValkeyProvider) Close() error { return nil }

type valkeyReply struct {
	data []byte
	nil_ bool
}

// roundTrip dials, authenticates, issues a single command, and reads its
// reply.
func (p *ValkeyProvider) roundTrip(ctx context.Context, args ...string) (valkeyReply, error) {
	conn, err := p.dial(ctx)
	if err != nil {
		return valkeyReply{}, err
	}
	defer conn.Close()

	reader := bufio.NewReader(conn)

	if p.cfg.Password != "" {
		auth := []string{"AUTH", p.cfg.Password}
		if p.cfg.Username != "" {
			auth = []string{"AUTH", p.cfg.Username, p.cfg.Password}
		}
		if err := p.exec(conn, reader, auth, "OK"); err != nil {
			return valkeyReply{}, fmt.Errorf("valkey auth: %w", err)
		}
	}
	if p.cfg.DB > 0 {
		if err := p.exec(conn, reader, []string{"SELECT", strconv.Itoa(p.cfg.DB)}, "OK"); err != nil {
			return valkeyReply{}, fmt.Errorf("valkey select: %w", err)
		}
	}

	if err := p.write(conn, args); err != nil {
		return valkeyReply{}, err
	}
	return p.read(conn, reader)
}

func (p *ValkeyProvider) dial(ctx context.Context) (net.Conn, error) {
	dialer := net.Dialer{Timeout: p.cfg.DialTimeout}
	if !p.cfg.TLS {
		return dialer.DialContext(ctx, "tcp", p.cfg.Addr)
	}
	host := p.cfg.Addr
	if h, _, err := net.SplitHostPort(p.cfg.Addr); err == nil {
		host = h
	}
	return tls.DialWithDialer(&dialer, "tcp", p.cfg.Addr, &tls.Config{
		MinVersion: tls.VersionTLS12,
		ServerName: host,
	})
}

func (p *ValkeyProvider) exec(conn net.Conn, reader *bufio.Reader, args []string, want string) error {
	if err := p.write(conn, args); err != nil {
		return err
	}
	reply, err := p.read(conn, reader)
	if err != nil {
		return err
	}
	if !strings.EqualFold(string(reply.data), want) {
		return fmt.Errorf("unexpected reply: %s", reply.data)
	}
	return nil
}

// write serialises one command as a RESP array of bulk strings.
func (p *ValkeyProvider) write(conn net.Conn, args []string) error {
	if err := conn.SetWriteDeadline(time.Now().Add(p.cfg.WriteTimeout)); err != nil {
		return err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "*%d\r\n", len(args))
	for _, arg := range args {
		fmt.Fprintf(&b, "$%d\r\n%s\r\n", len(arg), arg)
	}
	_, err := conn.Write([]byte(b.String()))
	return err
}

// read parses the subset of RESP replies the provider issues commands for:
// simple strings, errors, integers, bulk strings, and RESP3 nulls.
func (p *ValkeyProvider) read(conn net.Conn, reader *bufio.Reader) (valkeyReply, error) {
	if err := conn.SetReadDeadline(time.Now().Add(p.cfg.ReadTimeout)); err != nil {
		return valkeyReply{}, err
	}
	line, err := reader.ReadString('\n')
	if err != nil {
		return valkeyReply{}, err
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return valkeyReply{}, errors.New("empty valkey reply")
	}

	switch line[0] {
	case '+', ':':
		return valkeyReply{data: []byte(line[1:])}, nil
	case '-':
		return valkeyReply{}, fmt.Errorf("valkey error: %s", line[1:])
	case '_':
		return valkeyReply{nil_: true}, nil
	case '$':
		size, err := strconv.Atoi(line[1:])
		if err != nil {
			return valkeyReply{}, fmt.Errorf("bad bulk length %q", line)
		}
		if size < 0 {
			return valkeyReply{nil_: true}, nil
		}
		buf := make([]byte, size+2)
		if _, err := io.ReadFull(reader, buf); err != nil {
			return valkeyReply{}, err
		}
		return valkeyReply{data: buf[:size]}, nil
	default:
		return valkeyReply{}, fmt.Errorf("unsupported valkey reply %q", line)
	}
}
