// internal/transport/s7/client.go
package s7

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Config represents S7 endpoint configuration
type Config struct {
	Host           string        `json:"host"`
	Port           int           `json:"port"` // ISO-on-TCP, 102 by convention
	Rack           int           `json:"rack"`
	Slot           int           `json:"slot"`
	ConnectTimeout time.Duration `json:"connect_timeout"`
	ReadTimeout    time.Duration `json:"read_timeout"`
	WriteTimeout   time.Duration `json:"write_timeout"`
}

// Client implements the connection's Transport over ISO-on-TCP
// (RFC 1006) with the S7 data block read/write services. One client
// drives one PLC session.
type Client struct {
	config *Config
	conn   net.Conn
	logger *zap.Logger
	mutex  sync.Mutex
	isOpen bool

	// negotiated during session setup; requests must fit one PDU
	pduLength int
	pduRef    uint16
}

// NewClient creates a new S7 transport client
func NewClient(config *Config, logger *zap.Logger) *Client {
	if config.Port == 0 {
		config.Port = 102
	}
	return &Client{
		config: config,
		logger: logger.With(
			zap.String("transport", "s7"),
			zap.String("host", config.Host),
			zap.Int("port", config.Port),
			zap.Int("rack", config.Rack),
			zap.Int("slot", config.Slot),
		),
	}
}

// Connect dials the PLC and performs the ISO connection request plus
// the S7 communication setup handshake.
func (c *Client) Connect(ctx context.Context) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.isOpen {
		return nil
	}

	dialer := &net.Dialer{
		Timeout:   c.config.ConnectTimeout,
		KeepAlive: 30 * time.Second,
	}

	address := fmt.Sprintf("%s:%d", c.config.Host, c.config.Port)
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		c.logger.Error("Failed to dial PLC", zap.Error(err))
		return fmt.Errorf("failed to connect to %s: %w", address, err)
	}

	c.conn = conn
	if err := c.isoConnect(); err != nil {
		conn.Close()
		c.conn = nil
		return fmt.Errorf("ISO connection setup failed: %w", err)
	}
	if err := c.setupCommunication(); err != nil {
		conn.Close()
		c.conn = nil
		return fmt.Errorf("S7 communication setup failed: %w", err)
	}

	c.isOpen = true
	c.logger.Info("S7 session established", zap.Int("pdu_length", c.pduLength))
	return nil
}

// Close tears down the session
func (c *Client) Close() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if !c.isOpen || c.conn == nil {
		return nil
	}

	err := c.conn.Close()
	c.conn = nil
	c.isOpen = false
	if err != nil {
		return fmt.Errorf("failed to close S7 session: %w", err)
	}
	c.logger.Info("S7 session closed")
	return nil
}

// ReadArea reads length bytes from a data block starting at the byte
// offset. The request must fit the negotiated PDU.
func (c *Client) ReadArea(ctx context.Context, dbNumber, start, length int) ([]byte, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if !c.isOpen || c.conn == nil {
		return nil, fmt.Errorf("s7: session not open")
	}
	if max := c.pduLength - 18; length > max {
		return nil, fmt.Errorf("s7: read of %d bytes exceeds PDU payload capacity %d", length, max)
	}

	req := c.buildHeader(14, 0)
	req = append(req, c.buildItem(jobRead, dbNumber, start, length)...)

	resp, err := c.exchange(ctx, req)
	if err != nil {
		return nil, err
	}
	return parseReadResponse(resp, length)
}

// WriteArea writes the bytes into a data block starting at the byte
// offset
func (c *Client) WriteArea(ctx context.Context, dbNumber, start int, data []byte) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if !c.isOpen || c.conn == nil {
		return fmt.Errorf("s7: session not open")
	}
	if max := c.pduLength - 28; len(data) > max {
		return fmt.Errorf("s7: write of %d bytes exceeds PDU payload capacity %d", len(data), max)
	}

	req := c.buildHeader(14, 4+len(data))
	req = append(req, c.buildItem(jobWrite, dbNumber, start, len(data))...)
	// data item: reserved, transport size BYTE, length in bits
	req = append(req, 0x00, transportSizeByte, byte(len(data)*8>>8), byte(len(data)*8))
	req = append(req, data...)

	resp, err := c.exchange(ctx, req)
	if err != nil {
		return err
	}
	return parseWriteResponse(resp)
}

// S7 protocol constants
const (
	tpktVersion       = 0x03
	cotpData          = 0xF0
	pduTypeJob        = 0x01
	pduTypeAckData    = 0x03
	jobRead           = 0x04
	jobWrite          = 0x05
	areaDB            = 0x84
	transportSizeByte = 0x02
	returnCodeOK      = 0xFF
	requestedPDU      = 960
)

// isoConnect sends the COTP connection request. The remote TSAP
// encodes rack and slot the way PG connections address a CPU.
func (c *Client) isoConnect() error {
	remoteTSAP := byte(c.config.Rack*0x20 + c.config.Slot)
	cr := []byte{
		tpktVersion, 0x00, 0x00, 0x16, // TPKT, 22 bytes total
		0x11, 0xE0, // COTP length 17, connection request
		0x00, 0x00, 0x00, 0x01, 0x00, // dst ref, src ref, class 0
		0xC0, 0x01, 0x0A, // TPDU size 1024
		0xC1, 0x02, 0x01, 0x00, // src TSAP
		0xC2, 0x02, 0x01, remoteTSAP, // dst TSAP
	}

	if err := c.send(cr); err != nil {
		return err
	}
	resp, err := c.receive()
	if err != nil {
		return err
	}
	if len(resp) < 2 {
		return fmt.Errorf("truncated COTP response")
	}
	if resp[1] != 0xD0 {
		return fmt.Errorf("unexpected COTP response type %#02x", resp[1])
	}
	return nil
}

// buildSetupRequest builds the S7 setup communication job asking the
// device for the preferred PDU length
func (c *Client) buildSetupRequest() []byte {
	c.pduRef++
	return []byte{
		0x32, pduTypeJob, 0x00, 0x00,
		byte(c.pduRef >> 8), byte(c.pduRef),
		0x00, 0x08, 0x00, 0x00, // parameter length 8, data length 0
		0xF0, 0x00, // setup communication
		0x00, 0x01, 0x00, 0x01, // max AMQ caller / callee
		byte(requestedPDU >> 8), byte(requestedPDU & 0xFF),
	}
}

// setupCommunication negotiates the PDU length for the session
func (c *Client) setupCommunication() error {
	req := c.buildSetupRequest()

	if err := c.send(wrapCOTP(req)); err != nil {
		return err
	}
	resp, err := c.receive()
	if err != nil {
		return err
	}
	pdu, err := stripCOTP(resp)
	if err != nil {
		return err
	}
	if len(pdu) < 20 || pdu[1] != pduTypeAckData {
		return fmt.Errorf("malformed setup response")
	}
	if pdu[10] != 0x00 || pdu[11] != 0x00 {
		return fmt.Errorf("setup rejected: error class %#02x code %#02x", pdu[10], pdu[11])
	}
	c.pduLength = int(binary.BigEndian.Uint16(pdu[18:20]))
	if c.pduLength <= 0 {
		return fmt.Errorf("device negotiated zero PDU length")
	}
	return nil
}

// buildHeader builds the S7 job header
func (c *Client) buildHeader(paramLen, dataLen int) []byte {
	c.pduRef++
	return []byte{
		0x32, pduTypeJob, 0x00, 0x00,
		byte(c.pduRef >> 8), byte(c.pduRef),
		byte(paramLen >> 8), byte(paramLen),
		byte(dataLen >> 8), byte(dataLen),
	}
}

// buildItem builds the single read/write parameter item addressing a
// span of a data block. Addresses count bits, hence the *8.
func (c *Client) buildItem(function byte, dbNumber, start, length int) []byte {
	bitAddr := start * 8
	return []byte{
		function,
		0x01,       // item count
		0x12, 0x0A, // variable specification, length 10
		0x10, transportSizeByte,
		byte(length >> 8), byte(length),
		byte(dbNumber >> 8), byte(dbNumber),
		areaDB,
		byte(bitAddr >> 16), byte(bitAddr >> 8), byte(bitAddr),
	}
}

// exchange sends one job PDU and returns the stripped S7 response
func (c *Client) exchange(ctx context.Context, pdu []byte) ([]byte, error) {
	if deadline, ok := ctx.Deadline(); ok {
		c.conn.SetDeadline(deadline)
		defer c.conn.SetDeadline(time.Time{})
	}
	if err := c.send(wrapCOTP(pdu)); err != nil {
		return nil, err
	}
	resp, err := c.receive()
	if err != nil {
		return nil, err
	}
	return stripCOTP(resp)
}

// send writes one TPKT-framed packet
func (c *Client) send(packet []byte) error {
	if c.config.WriteTimeout > 0 {
		c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	}
	n, err := c.conn.Write(packet)
	if err != nil {
		return fmt.Errorf("failed to write to PLC: %w", err)
	}
	if n != len(packet) {
		return fmt.Errorf("incomplete write: wrote %d of %d bytes", n, len(packet))
	}
	return nil
}

// receive reads one TPKT-framed packet and returns its payload
// starting at the COTP header
func (c *Client) receive() ([]byte, error) {
	if c.config.ReadTimeout > 0 {
		c.conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
	}

	header := make([]byte, 4)
	if _, err := io.ReadFull(c.conn, header); err != nil {
		return nil, fmt.Errorf("failed to read TPKT header: %w", err)
	}
	if header[0] != tpktVersion {
		return nil, fmt.Errorf("unexpected TPKT version %#02x", header[0])
	}
	total := int(binary.BigEndian.Uint16(header[2:4]))
	if total < 4 {
		return nil, fmt.Errorf("invalid TPKT length %d", total)
	}

	payload := make([]byte, total-4)
	if _, err := io.ReadFull(c.conn, payload); err != nil {
		return nil, fmt.Errorf("failed to read TPKT payload: %w", err)
	}
	return payload, nil
}

// wrapCOTP frames an S7 PDU with TPKT and a COTP data header
func wrapCOTP(pdu []byte) []byte {
	total := 4 + 3 + len(pdu)
	out := make([]byte, 0, total)
	out = append(out, tpktVersion, 0x00, byte(total>>8), byte(total))
	out = append(out, 0x02, cotpData, 0x80)
	return append(out, pdu...)
}

// stripCOTP removes the COTP data header, returning the S7 PDU
func stripCOTP(payload []byte) ([]byte, error) {
	if len(payload) < 3 || payload[1] != cotpData {
		return nil, fmt.Errorf("unexpected COTP payload")
	}
	hlen := int(payload[0]) + 1
	if len(payload) < hlen {
		return nil, fmt.Errorf("truncated COTP payload")
	}
	return payload[hlen:], nil
}

// parseReadResponse validates an ack-data PDU and extracts the item
// bytes
func parseReadResponse(pdu []byte, length int) ([]byte, error) {
	if len(pdu) < 12 || pdu[1] != pduTypeAckData {
		return nil, fmt.Errorf("malformed read response")
	}
	if pdu[10] != 0x00 || pdu[11] != 0x00 {
		return nil, fmt.Errorf("read rejected: error class %#02x code %#02x", pdu[10], pdu[11])
	}
	// header(12) + param(2) + item header(4)
	if len(pdu) < 18 {
		return nil, fmt.Errorf("truncated read response")
	}
	if pdu[14] != returnCodeOK {
		return nil, fmt.Errorf("read item failed: return code %#02x", pdu[14])
	}
	data := pdu[18:]
	if len(data) < length {
		return nil, fmt.Errorf("short read: got %d bytes, want %d", len(data), length)
	}
	return data[:length], nil
}

// parseWriteResponse validates an ack-data PDU for a write job
func parseWriteResponse(pdu []byte) error {
	if len(pdu) < 12 || pdu[1] != pduTypeAckData {
		return fmt.Errorf("malformed write response")
	}
	if pdu[10] != 0x00 || pdu[11] != 0x00 {
		return fmt.Errorf("write rejected: error class %#02x code %#02x", pdu[10], pdu[11])
	}
	if len(pdu) < 15 {
		return fmt.Errorf("truncated write response")
	}
	if pdu[14] != returnCodeOK {
		return fmt.Errorf("write item failed: return code %#02x", pdu[14])
	}
	return nil
}
