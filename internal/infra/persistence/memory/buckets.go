package memory

import (
	"encoding/json"
	"fmt"
)

// Buckets lists the keys under which durable stores persist a snapshot.
var Buckets = []string{"cities", "commerces", "sequences"}

// EncodeBuckets serializes each part of the snapshot as a JSON payload keyed
// by bucket name.
func (s Snapshot) EncodeBuckets() (map[string][]byte, error) {
	out := make(map[string][]byte, len(Buckets))
	for _, bucket := range Buckets {
		var (
			data []byte
			err  error
		)
		switch bucket {
		case "cities":
			data, err = json.Marshal(s.Cities)
		case "commerces":
			data, err = json.Marshal(s.Commerces)
		case "sequences":
			data, err = json.Marshal(s.Sequences)
		}
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", bucket, err)
		}
		out[bucket] = data
	}
	return out, nil
}

// DecodeBucket applies one persisted bucket payload to the snapshot. Unknown
// buckets and empty payloads are ignored.
func (s *Snapshot) DecodeBucket(bucket string, payload []byte) error {
	if len(payload) == 0 {
		return nil
	}
	var target any
	switch bucket {
	case "cities":
		target = &s.Cities
	case "commerces":
		target = &s.Commerces
	case "sequences":
		target = &s.Sequences
	default:
		return nil
	}
	if err := json.Unmarshal(payload, target); err != nil {
		return fmt.Errorf("decode %s: %w", bucket, err)
	}
	return nil
}
