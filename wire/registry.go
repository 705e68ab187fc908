package wire

import "fmt"

// A Registry maps message type tags to payload factories so that an encoded
// message can be decoded without an external schema lookup.
type Registry struct {
	factories map[MsgType]func() Payload
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[MsgType]func() Payload),
	}
}

// Register adds a payload factory. The tag is taken from a probe instance
// produced by the factory.
func (r *Registry) Register(factory func() Payload) error {
	msgType := factory().MsgType()

	if _, found := r.factories[msgType]; found {
		return fmt.Errorf("%w: tag %d", ErrDuplicateMsgType, msgType)
	}

	r.factories[msgType] = factory

	return nil
}

// Registered tells if a factory exists for the given tag.
func (r *Registry) Registered(msgType MsgType) bool {
	_, found := r.factories[msgType]
	return found
}

// New creates an empty payload for the given tag.
func (r *Registry) New(msgType MsgType) (Payload, error) {
	factory, found := r.factories[msgType]
	if !found {
		return nil, fmt.Errorf("%w: tag %d", ErrUnknownMsgType, msgType)
	}

	return factory(), nil
}

// Decode deserializes a tag-prefixed payload produced by Encode.
func (r *Registry) Decode(data []byte) (Payload, error) {
	if len(data) == 0 {
		return nil, ErrTruncatedPayload
	}

	payload, err := r.New(MsgType(data[0]))
	if err != nil {
		return nil, err
	}

	d := NewDecoder(data[1:])
	if err := payload.DecodePayload(d); err != nil {
		return nil, err
	}

	return payload, nil
}
