package state

import (
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// Version is the current state format version. It is written into every
// envelope and checked on read so a format change can be migrated rather than
// silently misread.
const Version = 1

// an envelope wraps a record and is used when marshalling to json.
type envelope struct {
	Version    int      `json:"v"`
	Name       string   `json:"name"`
	Kind       string   `json:"kind"`
	ID         string   `json:"id"`
	Input      ctyValue `json:"input,omitempty"`
	Output     ctyValue `json:"output,omitempty"`
	Deps       []string `json:"deps,omitempty"`
	Status     Status   `json:"status"`
	LaunchHash string   `json:"launch_hash,omitempty"`
}

// ctyValue carries a cty value together with its type, as the type cannot be
// recovered from the json encoding of the value alone.
type ctyValue struct {
	Type  json.RawMessage `json:"t,omitempty"`
	Value json.RawMessage `json:"v,omitempty"`
}

func encodeValue(v cty.Value) (ctyValue, error) {
	if v == cty.NilVal {
		return ctyValue{}, nil
	}
	t, err := ctyjson.MarshalType(v.Type())
	if err != nil {
		return ctyValue{}, errors.Wrap(err, "marshal type")
	}
	val, err := ctyjson.Marshal(v, v.Type())
	if err != nil {
		return ctyValue{}, errors.Wrap(err, "marshal value")
	}
	return ctyValue{Type: t, Value: val}, nil
}

func (cv ctyValue) decode() (cty.Value, error) {
	if len(cv.Type) == 0 {
		return cty.NilVal, nil
	}
	t, err := ctyjson.UnmarshalType(cv.Type)
	if err != nil {
		return cty.NilVal, errors.Wrap(err, "unmarshal type")
	}
	v, err := ctyjson.Unmarshal(cv.Value, t)
	if err != nil {
		return cty.NilVal, errors.Wrap(err, "unmarshal value")
	}
	return v, nil
}

func marshalRecord(r *Record) ([]byte, error) {
	in, err := encodeValue(r.Input)
	if err != nil {
		return nil, errors.Wrap(err, "encode input")
	}
	out, err := encodeValue(r.Output)
	if err != nil {
		return nil, errors.Wrap(err, "encode output")
	}
	env := envelope{
		Version:    Version,
		Name:       r.Name,
		Kind:       r.Kind,
		ID:         r.ID,
		Input:      in,
		Output:     out,
		Deps:       r.Deps,
		Status:     r.Status,
		LaunchHash: r.LaunchHash,
	}
	return json.Marshal(env)
}

func unmarshalRecord(key string, data []byte) (*Record, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, errors.Wrap(err, "unmarshal envelope")
	}
	if env.Version != Version {
		return nil, &VersionError{Key: key, Got: env.Version}
	}
	in, err := env.Input.decode()
	if err != nil {
		return nil, errors.Wrap(err, "decode input")
	}
	out, err := env.Output.decode()
	if err != nil {
		return nil, errors.Wrap(err, "decode output")
	}
	return &Record{
		Name:       env.Name,
		Kind:       env.Kind,
		ID:         env.ID,
		Input:      in,
		Output:     out,
		Deps:       env.Deps,
		Status:     env.Status,
		LaunchHash: env.LaunchHash,
	}, nil
}
