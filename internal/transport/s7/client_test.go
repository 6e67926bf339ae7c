// internal/transport/s7/client_test.go
package s7

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestWrapStripCOTPRoundTrip(t *testing.T) {
	pdu := []byte{0x32, 0x01, 0x00, 0x00, 0x00, 0x01}
	framed := wrapCOTP(pdu)

	// TPKT header carries the total frame length
	assert.Equal(t, byte(tpktVersion), framed[0])
	assert.Equal(t, len(framed), int(framed[2])<<8|int(framed[3]))

	got, err := stripCOTP(framed[4:])
	require.NoError(t, err)
	assert.Equal(t, pdu, got)
}

func TestStripCOTPRejectsGarbage(t *testing.T) {
	_, err := stripCOTP([]byte{0x02, 0x0D})
	assert.Error(t, err)

	_, err = stripCOTP([]byte{0xFF, cotpData, 0x80})
	assert.Error(t, err)
}

func TestBuildItemAddressing(t *testing.T) {
	c := &Client{config: &Config{}}
	item := c.buildItem(jobRead, 1, 6, 2)

	require.Len(t, item, 14)
	assert.Equal(t, byte(jobRead), item[0])
	assert.Equal(t, byte(0x01), item[1], "one item per request")
	assert.Equal(t, byte(transportSizeByte), item[5])
	assert.Equal(t, 2, int(item[6])<<8|int(item[7]), "byte count")
	assert.Equal(t, 1, int(item[8])<<8|int(item[9]), "db number")
	assert.Equal(t, byte(areaDB), item[10])
	// start addresses count bits
	assert.Equal(t, 6*8, int(item[11])<<16|int(item[12])<<8|int(item[13]))
}

func TestParseReadResponse(t *testing.T) {
	pdu := []byte{
		0x32, pduTypeAckData, 0x00, 0x00, 0x00, 0x01,
		0x00, 0x02, 0x00, 0x06, // param len 2, data len 6
		0x00, 0x00, // no error
		jobRead, 0x01,
		returnCodeOK, 0x04, 0x00, 0x10, // item: ok, transport, 16 bits
		0xBE, 0xEF,
	}

	data, err := parseReadResponse(pdu, 2)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xBE, 0xEF}, data)
}

func TestParseReadResponseErrors(t *testing.T) {
	rejected := []byte{
		0x32, pduTypeAckData, 0x00, 0x00, 0x00, 0x01,
		0x00, 0x00, 0x00, 0x00,
		0x85, 0x00, // error class set
	}
	_, err := parseReadResponse(rejected, 2)
	assert.Error(t, err)

	itemFailed := []byte{
		0x32, pduTypeAckData, 0x00, 0x00, 0x00, 0x01,
		0x00, 0x02, 0x00, 0x04,
		0x00, 0x00,
		jobRead, 0x01,
		0x0A, 0x00, 0x00, 0x00, // item not available
	}
	_, err = parseReadResponse(itemFailed, 2)
	assert.Error(t, err)

	_, err = parseReadResponse([]byte{0x32, pduTypeJob}, 2)
	assert.Error(t, err)
}

func TestParseWriteResponse(t *testing.T) {
	ok := []byte{
		0x32, pduTypeAckData, 0x00, 0x00, 0x00, 0x01,
		0x00, 0x02, 0x00, 0x01,
		0x00, 0x00,
		jobWrite, 0x01,
		returnCodeOK,
	}
	assert.NoError(t, parseWriteResponse(ok))

	failed := []byte{
		0x32, pduTypeAckData, 0x00, 0x00, 0x00, 0x01,
		0x00, 0x02, 0x00, 0x01,
		0x00, 0x00,
		jobWrite, 0x01,
		0x0A,
	}
	assert.Error(t, parseWriteResponse(failed))
}

func TestBuildSetupRequestEncodesPDULength(t *testing.T) {
	c := &Client{config: &Config{}}
	req := c.buildSetupRequest()

	require.Len(t, req, 18)
	assert.Equal(t, byte(pduTypeJob), req[1])
	assert.Equal(t, 8, int(req[6])<<8|int(req[7]), "parameter length")
	assert.Equal(t, byte(0xF0), req[10], "setup communication function")
	// requested PDU length spans two bytes; 960 must not lose its high byte
	assert.Equal(t, requestedPDU, int(req[16])<<8|int(req[17]))
}

func TestNewClientDefaultsPort(t *testing.T) {
	c := NewClient(&Config{Host: "10.0.0.5"}, zap.NewNop())
	assert.Equal(t, 102, c.config.Port)
}
