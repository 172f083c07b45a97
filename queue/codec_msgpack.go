package queue

import "github.com/vmihailenco/msgpack/v5"

// MsgpackCodec encodes snapshots as MessagePack, a denser alternative
// to JSON for large queues. Opt-in: both ends of the store must agree
// on the codec.
type MsgpackCodec struct{}

// Encode serializes records as MessagePack.
func (c *MsgpackCodec) Encode(records []*Record) ([]byte, error) {
	if records == nil {
		records = []*Record{}
	}
	return msgpack.Marshal(records)
}

// Decode parses a MessagePack record list. Empty input is an empty queue.
func (c *MsgpackCodec) Decode(data []byte) ([]*Record, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var records []*Record
	if err := msgpack.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// Name returns "msgpack".
func (c *MsgpackCodec) Name() string { return CodecNameMsgpack }
