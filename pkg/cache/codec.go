package cache

import (
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Codec serializes entries for byte-oriented stores (Redis).
type Codec interface {
	Name() string
	Marshal(entry *Entry) ([]byte, error)
	Unmarshal(data []byte, entry *Entry) error
}

// JSONCodec encodes entries as JSON. The zero value is ready to use.
type JSONCodec struct{}

func (JSONCodec) Name() string { return "json" }

func (JSONCodec) Marshal(entry *Entry) ([]byte, error) {
	return json.Marshal(entry)
}

func (JSONCodec) Unmarshal(data []byte, entry *Entry) error {
	return json.Unmarshal(data, entry)
}

// MsgpackCodec encodes entries with vmihailenco/msgpack. It stores the raw
// payload as a binary blob instead of a base64 JSON string.
type MsgpackCodec struct{}

func (MsgpackCodec) Name() string { return "msgpack" }

func (MsgpackCodec) Marshal(entry *Entry) ([]byte, error) {
	return msgpack.Marshal(entry)
}

func (MsgpackCodec) Unmarshal(data []byte, entry *Entry) error {
	return msgpack.Unmarshal(data, entry)
}

// CodecByName resolves a codec from its configuration name.
func CodecByName(name string) (Codec, error) {
	switch name {
	case "", "json":
		return JSONCodec{}, nil
	case "msgpack":
		return MsgpackCodec{}, nil
	default:
		return nil, fmt.Errorf("unknown cache codec %q", name)
	}
}
