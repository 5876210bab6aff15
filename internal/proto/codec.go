package proto

import "github.com/vmihailenco/msgpack/v5"

// MarshalRequest and MarshalResponse serialize an envelope to the compact
// binary object encoding (MessagePack) used on the wire. UnmarshalRequest
// and UnmarshalResponse are the inverses; internal/server and
// internal/session call them on the frame bodies their transports carry.
func MarshalRequest(r Request) ([]byte, error) {
	return msgpack.Marshal(r)
}

func UnmarshalRequest(b []byte) (Request, error) {
	var r Request
	err := msgpack.Unmarshal(b, &r)
	return r, err
}

func MarshalResponse(r Response) ([]byte, error) {
	return msgpack.Marshal(r)
}

func UnmarshalResponse(b []byte) (Response, error) {
	var r Response
	err := msgpack.Unmarshal(b, &r)
	return r, err
}
