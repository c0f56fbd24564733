package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeDispatch(t *testing.T) {
	messages := []any{
		&ClientHello{MsgType: MsgClientHello, Random: make([]byte, RandomSize), Suites: []uint16{0x0101}, KeyShare: []byte{4, 1, 2}},
		&ServerHello{MsgType: MsgServerHello, Random: make([]byte, RandomSize), Suite: 0x0101, KeyShare: []byte{4, 3, 4}},
		&CertificateRequest{MsgType: MsgCertificateRequest, Required: true},
		&Certificate{MsgType: MsgCertificate, Chain: [][]byte{{0x30, 0x82}}},
		&CertificateVerify{MsgType: MsgCertificateVerify, Signature: []byte{0x30, 0x44}},
		&Finished{MsgType: MsgFinished, VerifyData: make([]byte, 32)},
	}

	for _, msg := range messages {
		t.Run(MessageName(MessageType(msg)), func(t *testing.T) {
			data, err := Encode(msg)
			require.NoError(t, err)

			got, err := Decode(data)
			require.NoError(t, err)
			assert.Equal(t, msg, got)
		})
	}
}

func TestEncodeRejectsUnsetMsgType(t *testing.T) {
	_, err := Encode(&ClientHello{})
	assert.ErrorIs(t, err, ErrInvalidMessage)
}

func TestDecodeUnknownType(t *testing.T) {
	data, err := Marshal(map[int]any{1: 99})
	require.NoError(t, err)

	_, err = Decode(data)
	assert.ErrorIs(t, err, ErrInvalidMessage)
}

func TestDecodeGarbage(t *testing.T) {
	_, err := Decode([]byte{0xff, 0x00, 0x01})
	assert.ErrorIs(t, err, ErrInvalidMessage)
}

func TestRecordHeaderRoundTrip(t *testing.T) {
	var hdr [RecordHeaderLen]byte
	PutRecordHeader(hdr[:], RecordHandshake, 1234)

	typ, n, err := ParseRecordHeader(hdr[:])
	require.NoError(t, err)
	assert.Equal(t, RecordHandshake, typ)
	assert.Equal(t, 1234, n)
}

func TestParseRecordHeaderRejects(t *testing.T) {
	var hdr [RecordHeaderLen]byte

	PutRecordHeader(hdr[:], RecordType(7), 1)
	_, _, err := ParseRecordHeader(hdr[:])
	assert.ErrorIs(t, err, ErrBadRecordType)

	PutRecordHeader(hdr[:], RecordAlert, MaxRecordPayload+1)
	_, _, err = ParseRecordHeader(hdr[:])
	assert.ErrorIs(t, err, ErrRecordTooLarge)
}

func TestAlertError(t *testing.T) {
	local := &AlertError{Code: AlertCertificateRequired}
	assert.Equal(t, "wire: local alert: certificate_required", local.Error())

	remote := &AlertError{Code: AlertBadCertificate, Remote: true}
	assert.Equal(t, "wire: remote alert: bad_certificate", remote.Error())

	assert.Equal(t, "alert(200)", AlertCode(200).String())
}
