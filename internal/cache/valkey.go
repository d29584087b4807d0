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

// ValkeyConfig holds connection parameters for a Valkey or Redis-compatible
// server.
type ValkeyConfig struct {
	Addr         string
	Username     string
	Password     string
	DB           int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	MaxRetries   int
	TLS          bool
}

func (cfg *ValkeyConfig) applyDefaults() {
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 2 * time.Second
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 500 * time.Millisecond
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 500 * time.Millisecond
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 1
	}
}

// ValkeyProvider implements Provider backed by a Valkey server. It caches
// enrichment lookups so repeated incidents in the same category do not hammer
// the context providers. Connections are dialed per operation; the enrichment
// call rate is far below where pooling would matter.
type ValkeyProvider struct {
	cfg ValkeyConfig
}

// NewValkeyProvider validates connectivity with a ping so misconfiguration
// surfaces at boot instead of on the first incident.
func NewValkeyProvider(cfg ValkeyConfig) (*ValkeyProvider, error) {
	if cfg.Addr == "" {
		return nil, errors.New("valkey addr is required")
	}
	cfg.applyDefaults()
	p := &ValkeyProvider{cfg: cfg}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()
	if err := p.ping(ctx); err != nil {
		return nil, err
	}
	return p, nil
}

// Get fetches bytes by key, returning ErrCacheMiss when the key is absent.
func (p *ValkeyProvider) Get(ctx context.Context, key string) ([]byte, error) {
	var payload []byte
	err := p.do(ctx, func(c *respConn) error {
		reply, err := c.roundTrip([]byte("GET"), []byte(key))
		if err != nil {
			return err
		}
		switch reply.kind {
		case respNil:
			return ErrCacheMiss
		case respBulk:
			payload = reply.data
			return nil
		}
		return fmt.Errorf("unexpected reply %c to GET", reply.kind)
	})
	return payload, err
}

// Set stores bytes under key. A positive ttl expires the entry.
func (p *ValkeyProvider) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return p.do(ctx, func(c *respConn) error {
		args := [][]byte{[]byte("SET"), []byte(key), value}
		if ttl > 0 {
			args = append(args, []byte("PX"), []byte(strconv.FormatInt(ttl.Milliseconds(), 10)))
		}
		reply, err := c.roundTrip(args...)
		if err != nil {
			return err
		}
		return reply.expectOK("SET")
	})
}

// Close implements Provider; connections are per-operation so there is
// nothing to release.
func (p *ValkeyProvider) Close() error { return nil }

func (p *ValkeyProvider) ping(ctx context.Context) error {
	return p.do(ctx, func(c *respConn) error {
		reply, err := c.roundTrip([]byte("PING"))
		if err != nil {
			return err
		}
		if reply.kind != respStatus || string(reply.data) != "PONG" {
			return fmt.Errorf("unexpected PING response: %s", reply.data)
		}
		return nil
	})
}

// do dials, authenticates and runs fn, retrying transient network errors with
// exponential backoff up to MaxRetries attempts.
func (p *ValkeyProvider) do(ctx context.Context, fn func(*respConn) error) error {
	var lastErr error
	for attempt := 0; attempt < p.cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if attempt > 0 {
			time.Sleep(time.Duration(1<<(attempt-1)) * 25 * time.Millisecond)
		}

		err := p.attempt(ctx, fn)
		if err == nil {
			return nil
		}
		lastErr = err
		if !isTransient(err) {
			return err
		}
	}
	return lastErr
}

func (p *ValkeyProvider) attempt(ctx context.Context, fn func(*respConn) error) error {
	c, err := p.dial(ctx)
	if err != nil {
		return err
	}
	defer c.conn.Close()

	if err := p.handshake(c); err != nil {
		return err
	}
	return fn(c)
}

func (p *ValkeyProvider) dial(ctx context.Context) (*respConn, error) {
	dialer := net.Dialer{Timeout: dialBudget(ctx, p.cfg.DialTimeout)}

	var conn net.Conn
	var err error
	if p.cfg.TLS {
		host := p.cfg.Addr
		if h, _, splitErr := net.SplitHostPort(p.cfg.Addr); splitErr == nil {
			host = h
		}
		conn, err = tls.DialWithDialer(&dialer, "tcp", p.cfg.Addr,
			&tls.Config{MinVersion: tls.VersionTLS12, ServerName: host})
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", p.cfg.Addr)
	}
	if err != nil {
		return nil, err
	}
	return &respConn{
		conn:         conn,
		reader:       bufio.NewReader(conn),
		readTimeout:  p.cfg.ReadTimeout,
		writeTimeout: p.cfg.WriteTimeout,
	}, nil
}

func (p *ValkeyProvider) handshake(c *respConn) error {
	if p.cfg.Password != "" {
		args := [][]byte{[]byte("AUTH")}
		if p.cfg.Username != "" {
			args = append(args, []byte(p.cfg.Username))
		}
		args = append(args, []byte(p.cfg.Password))

		reply, err := c.roundTrip(args...)
		if err != nil {
			return err
		}
		if err := reply.expectOK("AUTH"); err != nil {
			return err
		}
	}
	if p.cfg.DB > 0 {
		reply, err := c.roundTrip([]byte("SELECT"), []byte(strconv.Itoa(p.cfg.DB)))
		if err != nil {
			return err
		}
		if err := reply.expectOK("SELECT"); err != nil {
			return err
		}
	}
	return nil
}

// RESP reply kinds, tagged by their wire prefix. Nil bulk strings get their
// own kind since they have no prefix of their own in RESP2.
const (
	respStatus  = '+'
	respBulk    = '$'
	respInteger = ':'
	respNil     = '_'
)

type respReply struct {
	kind byte
	data []byte
}

func (r respReply) expectOK(command string) error {
	if r.kind == respStatus && strings.EqualFold(string(r.data), "OK") {
		return nil
	}
	return fmt.Errorf("unexpected %s response: %s", command, r.data)
}

// respConn speaks enough RESP2 for the provider's command set.
type respConn struct {
	conn         net.Conn
	reader       *bufio.Reader
	readTimeout  time.Duration
	writeTimeout time.Duration
}

// roundTrip sends one command as a RESP array of bulk strings and reads the
// single reply.
func (c *respConn) roundTrip(args ...[]byte) (respReply, error) {
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
		return respReply{}, err
	}

	var buf []byte
	buf = append(buf, '*')
	buf = strconv.AppendInt(buf, int64(len(args)), 10)
	buf = append(buf, '\r', '\n')
	for _, arg := range args {
		buf = append(buf, '$')
		buf = strconv.AppendInt(buf, int64(len(arg)), 10)
		buf = append(buf, '\r', '\n')
		buf = append(buf, arg...)
		buf = append(buf, '\r', '\n')
	}
	if _, err := c.conn.Write(buf); err != nil {
		return respReply{}, err
	}

	return c.readReply()
}

func (c *respConn) readReply() (respReply, error) {
	if err := c.conn.SetReadDeadline(time.Now().Add(c.readTimeout)); err != nil {
		return respReply{}, err
	}

	prefix, err := c.reader.ReadByte()
	if err != nil {
		return respReply{}, err
	}
	line, err := c.readLine()
	if err != nil {
		return respReply{}, err
	}

	switch prefix {
	case '+':
		return respReply{kind: respStatus, data: line}, nil
	case ':':
		return respReply{kind: respInteger, data: line}, nil
	case '-':
		return respReply{}, errors.New(string(line))
	case '$':
		size, err := strconv.Atoi(string(line))
		if err != nil {
			return respReply{}, err
		}
		if size < 0 {
			return respReply{kind: respNil}, nil
		}
		// Payload plus trailing CRLF.
		body := make([]byte, size+2)
		if _, err := io.ReadFull(c.reader, body); err != nil {
			return respReply{}, err
		}
		if body[size] != '\r' || body[size+1] != '\n' {
			return respReply{}, errors.New("malformed bulk string terminator")
		}
		return respReply{kind: respBulk, data: body[:size]}, nil
	}
	return respReply{}, fmt.Errorf("unexpected RESP prefix %q", prefix)
}

func (c *respConn) readLine() ([]byte, error) {
	line, err := c.reader.ReadBytes('\n')
	if err != nil {
		return nil, err
	}
	n := len(line) - 1
	if n > 0 && line[n-1] == '\r' {
		n--
	}
	return line[:n], nil
}

// dialBudget trims the dial timeout to the context deadline when that is
// sooner.
func dialBudget(ctx context.Context, d time.Duration) time.Duration {
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining > 0 && (d <= 0 || remaining < d) {
			return remaining
		}
	}
	if d <= 0 {
		return time.Millisecond
	}
	return d
}

func isTransient(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
