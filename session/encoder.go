package session

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"
)

// CurrentSchemaVersion is the binary layout written by Encode.
const CurrentSchemaVersion uint8 = 1

const (
	maxUserIDLen    = 255
	maxIPLen        = 255
	maxLabelLen     = 255
	maxUserAgentLen = 1<<16 - 1
	maxPayloadLen   = 1 << 20
)

var errInvalidRecord = errors.New("invalid session record")

// Encode serializes r (without its ID, which is carried by the storage key).
func Encode(r *Record) ([]byte, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: nil record", errInvalidRecord)
	}
	if r.UserID == "" {
		return nil, fmt.Errorf("%w: empty userID", errInvalidRecord)
	}
	if len(r.UserID) > maxUserIDLen {
		return nil, errors.New("userID too long")
	}
	if len(r.IPAddress) > maxIPLen {
		return nil, errors.New("ip address too long")
	}
	if len(r.DeviceLabel) > maxLabelLen {
		return nil, errors.New("device label too long")
	}
	if len(r.UserAgent) > maxUserAgentLen {
		return nil, errors.New("user agent too long")
	}
	if len(r.Payload) > maxPayloadLen {
		return nil, errors.New("payload too large")
	}

	var buf bytes.Buffer
	buf.Grow(1 + 1 + len(r.UserID) + 4 + len(r.Payload) + 2 + len(r.UserAgent) + 2 + len(r.IPAddress) + len(r.DeviceLabel) + 24)

	buf.WriteByte(CurrentSchemaVersion)

	buf.WriteByte(byte(len(r.UserID)))
	buf.WriteString(r.UserID)

	if err := binary.Write(&buf, binary.BigEndian, uint32(len(r.Payload))); err != nil {
		return nil, err
	}
	buf.Write(r.Payload)

	if err := binary.Write(&buf, binary.BigEndian, uint16(len(r.UserAgent))); err != nil {
		return nil, err
	}
	buf.WriteString(r.UserAgent)

	buf.WriteByte(byte(len(r.IPAddress)))
	buf.WriteString(r.IPAddress)

	buf.WriteByte(byte(len(r.DeviceLabel)))
	buf.WriteString(r.DeviceLabel)

	for _, ts := range []time.Time{r.CreatedAt, r.LastActivityAt, r.ExpiresAt} {
		if err := binary.Write(&buf, binary.BigEndian, ts.UnixNano()); err != nil {
			return nil, err
		}
	}

	return buf.Bytes(), nil
}

// Decode parses a blob produced by Encode. The returned record has no ID.
func Decode(data []byte) (*Record, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != CurrentSchemaVersion {
		return nil, fmt.Errorf("unsupported session schema version %d", version)
	}

	r := &Record{SchemaVersion: version}

	if r.UserID, err = readString8(reader); err != nil {
		return nil, err
	}
	if r.UserID == "" {
		return nil, fmt.Errorf("%w: empty userID", errInvalidRecord)
	}

	var payloadLen uint32
	if err := binary.Read(reader, binary.BigEndian, &payloadLen); err != nil {
		return nil, err
	}
	if payloadLen > maxPayloadLen || int(payloadLen) > reader.Len() {
		return nil, fmt.Errorf("%w: payload length %d", errInvalidRecord, payloadLen)
	}
	r.Payload = make([]byte, payloadLen)
	if _, err := io.ReadFull(reader, r.Payload); err != nil {
		return nil, err
	}

	var uaLen uint16
	if err := binary.Read(reader, binary.BigEndian, &uaLen); err != nil {
		return nil, err
	}
	ua := make([]byte, uaLen)
	if _, err := io.ReadFull(reader, ua); err != nil {
		return nil, err
	}
	r.UserAgent = string(ua)

	if r.IPAddress, err = readString8(reader); err != nil {
		return nil, err
	}
	if r.DeviceLabel, err = readString8(reader); err != nil {
		return nil, err
	}

	var stamps [3]int64
	for i := range stamps {
		if err := binary.Read(reader, binary.BigEndian, &stamps[i]); err != nil {
			return nil, err
		}
	}
	r.CreatedAt = time.Unix(0, stamps[0]).UTC()
	r.LastActivityAt = time.Unix(0, stamps[1]).UTC()
	r.ExpiresAt = time.Unix(0, stamps[2]).UTC()

	if reader.Len() != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", errInvalidRecord, reader.Len())
	}

	return r, nil
}

func readString8(reader *bytes.Reader) (string, error) {
	n, err := reader.ReadByte()
	if err != nil {
		return "", err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(reader, b); err != nil {
		return "", err
	}
	return string(b), nil
}
