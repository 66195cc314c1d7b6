// Package resolver asks a recursive DNS server for TXT records over UDP,
// retrying over TCP when the answer is truncated.
package resolver

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/poyrazK/siteverify/internal/core/domain"
	"github.com/poyrazK/siteverify/internal/dns/packet"
)

const DefaultUpstream = "1.1.1.1:53"

// Resolver implements ports.TXTResolver against a single upstream.
type Resolver struct {
	upstream string
	timeout  time.Duration
	logger   *slog.Logger
}

func New(upstream string, timeout time.Duration, logger *slog.Logger) *Resolver {
	if upstream == "" {
		upstream = DefaultUpstream
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{upstream: upstream, timeout: timeout, logger: logger}
}

// LookupTXT returns the TXT values at name, each with its character-strings
// concatenated. A missing name or an answer without TXT records yields
// domain.ErrTXTNotFound; everything else that goes wrong is domain.ErrTransient.
func (r *Resolver) LookupTXT(ctx context.Context, name string) ([]string, error) {
	name = strings.TrimSuffix(strings.ToLower(name), ".")

	resp, err := r.exchange(ctx, "udp", name)
	if err == nil && resp.Header.TruncatedMessage {
		r.logger.Debug("truncated TXT answer, retrying over tcp", "name", name)
		resp, err = r.exchange(ctx, "tcp", name)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: lookup TXT %s: %w", domain.ErrTransient, name, err)
	}

	switch resp.Header.ResCode {
	case packet.RcodeNoError:
	case packet.RcodeNXDomain:
		return nil, fmt.Errorf("lookup TXT %s: %w", name, domain.ErrTXTNotFound)
	default:
		return nil, fmt.Errorf("%w: lookup TXT %s: upstream rcode %d", domain.ErrTransient, name, resp.Header.ResCode)
	}

	var values []string
	for i := range resp.Answers {
		if resp.Answers[i].Type == packet.TXT {
			values = append(values, resp.Answers[i].TxtValue())
		}
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("lookup TXT %s: %w", name, domain.ErrTXTNotFound)
	}
	return values, nil
}

func (r *Resolver) exchange(ctx context.Context, network, name string) (*packet.DnsPacket, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, network, r.upstream)
	if err != nil {
		return nil, err
	}
	defer func() { _ = conn.Close() }()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	req := packet.NewDnsPacket()
	req.Header.ID = generateTransactionID()
	req.Header.RecursionDesired = true
	req.Questions = append(req.Questions, *packet.NewDnsQuestion(name, packet.TXT))

	buffer := packet.NewBytePacketBuffer()
	if err := req.Write(buffer); err != nil {
		return nil, err
	}

	var raw []byte
	if network == "tcp" {
		raw, err = roundTripTCP(conn, buffer.Bytes())
	} else {
		raw, err = roundTripUDP(conn, buffer.Bytes())
	}
	if err != nil {
		return nil, err
	}

	resBuffer := packet.NewBytePacketBuffer()
	resBuffer.Load(raw)
	resp := packet.NewDnsPacket()
	if err := resp.FromBuffer(resBuffer); err != nil {
		// A truncated UDP answer may be cut mid-record; the header is enough.
		if !resp.Header.TruncatedMessage {
			return nil, err
		}
	}

	if resp.Header.ID != req.Header.ID {
		return nil, fmt.Errorf("transaction ID mismatch: expected %d, got %d", req.Header.ID, resp.Header.ID)
	}
	if !resp.Header.Response {
		return nil, errors.New("upstream sent a query, not a response")
	}
	return resp, nil
}

func roundTripUDP(conn net.Conn, msg []byte) ([]byte, error) {
	if _, err := conn.Write(msg); err != nil {
		return nil, err
	}
	tmp := make([]byte, packet.MaxPacketSize)
	n, err := conn.Read(tmp)
	if err != nil {
		return nil, err
	}
	return tmp[:n], nil
}

// roundTripTCP frames msg with the two-byte length prefix used by DNS over TCP.
func roundTripTCP(conn net.Conn, msg []byte) ([]byte, error) {
	framed := make([]byte, 2+len(msg))
	binary.BigEndian.PutUint16(framed, uint16(len(msg)))
	copy(framed[2:], msg)
	if _, err := conn.Write(framed); err != nil {
		return nil, err
	}
	var lenBuf [2]byte
	if _, err := io.ReadFull(conn, lenBuf[:]); err != nil {
		return nil, err
	}
	out := make([]byte, binary.BigEndian.Uint16(lenBuf[:]))
	if _, err := io.ReadFull(conn, out); err != nil {
		return nil, err
	}
	return out, nil
}

func generateTransactionID() uint16 {
	var id uint16
	_ = binary.Read(rand.Reader, binary.BigEndian, &id)
	return id
}
