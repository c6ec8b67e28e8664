// Package transport is the seam between the reliable datagram transport and
// the session layer. The transport's delivery mechanics (acks, retransmits,
// pacing) and the binary wire codec live in a separate process; what crosses
// this boundary is one decoded envelope per packet.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net"

	"gridverse/internal/messaging"
	"gridverse/internal/models"
)

const maxDatagramSize = 64 * 1024

// UDPIngest reads decoded datagram envelopes off a UDP socket and feeds them
// to the dispatcher. Anything that fails to decode is dropped; the datagram
// channel never answers bad input.
type UDPIngest struct {
	conn       *net.UDPConn
	dispatcher *messaging.Dispatcher
}

// NewUDPIngest binds the ingest socket.
func NewUDPIngest(addr string, dispatcher *messaging.Dispatcher) (*UDPIngest, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, err
	}
	return &UDPIngest{conn: conn, dispatcher: dispatcher}, nil
}

// Start consumes packets until the context is cancelled or the socket closes.
func (u *UDPIngest) Start(ctx context.Context) {
	go func() {
		<-ctx.Done()
		u.conn.Close()
	}()

	go func() {
		buf := make([]byte, maxDatagramSize)
		for {
			n, remote, err := u.conn.ReadFromUDP(buf)
			if err != nil {
				if errors.Is(err, net.ErrClosed) {
					return
				}
				log.Printf("⚠️ [TRANSPORT] Read error: %v", err)
				continue
			}

			var msg models.Datagram
			if err := json.Unmarshal(buf[:n], &msg); err != nil {
				continue
			}
			u.dispatcher.Dispatch(ctx, &msg, remote.IP.String())
		}
	}()

	log.Printf("📡 [TRANSPORT] Datagram ingest listening on %s", u.conn.LocalAddr())
}

// Close shuts the socket down.
func (u *UDPIngest) Close() error {
	return u.conn.Close()
}
