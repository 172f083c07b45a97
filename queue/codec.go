package queue

import "encoding/json"

// Codec defines the serialization contract for queue snapshots.
type Codec interface {
	// Encode serializes the record list to bytes.
	Encode(records []*Record) ([]byte, error)

	// Decode deserializes bytes into a record list.
	Decode(data []byte) ([]*Record, error)

	// Name returns the codec identifier (e.g., "json", "msgpack").
	Name() string
}

// CodecName constants.
const (
	CodecNameJSON    = "json"
	CodecNameMsgpack = "msgpack"
)

// GetCodec returns a codec by name. Defaults to JSON, the interchange
// layout for persisted queue state.
func GetCodec(name string) Codec {
	switch name {
	case CodecNameMsgpack:
		return &MsgpackCodec{}
	default:
		return &JSONCodec{}
	}
}

// JSONCodec encodes snapshots as a JSON array of records.
type JSONCodec struct{}

// Encode serializes records as a JSON array.
func (c *JSONCodec) Encode(records []*Record) ([]byte, error) {
	if records == nil {
		records = []*Record{}
	}
	return json.Marshal(records)
}

// Decode parses a JSON array of records. Empty input is an empty queue.
func (c *JSONCodec) Decode(data []byte) ([]*Record, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var records []*Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// Name returns "json".
func (c *JSONCodec) Name() string { return CodecNameJSON }
