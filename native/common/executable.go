package common

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"

	coreerrors "github.com/zibert/ACDM/core/errors"
)

// SelectorLength is the size of the method selector prefix of a call payload.
const SelectorLength = 4

var (
	ErrPayloadTooShort  = coreerrors.New(coreerrors.ErrInvalidArgument, "call", "payload shorter than selector")
	ErrUnknownSelector  = coreerrors.New(coreerrors.ErrInvalidArgument, "call", "unknown selector")
	ErrUnknownRecipient = coreerrors.New(coreerrors.ErrNotFound, "call", "unknown recipient")
)

// Executable is implemented by modules that accept governed calls. The
// payload is an opaque selector followed by ABI-encoded arguments.
type Executable interface {
	Apply(caller [20]byte, payload []byte) error
}

// Codec encodes and decodes payloads for the governed surface of a module.
type Codec struct {
	abi abi.ABI
}

// NewCodec parses the ABI describing the governed surface of a module.
func NewCodec(abiJSON string) (*Codec, error) {
	parsed, err := abi.JSON(strings.NewReader(abiJSON))
	if err != nil {
		return nil, fmt.Errorf("call: parse abi: %w", err)
	}
	return &Codec{abi: parsed}, nil
}

// MustCodec is NewCodec for ABI constants compiled into the binary.
func MustCodec(abiJSON string) *Codec {
	c, err := NewCodec(abiJSON)
	if err != nil {
		panic(err)
	}
	return c
}

// Pack encodes a call to the named method.
func (c *Codec) Pack(name string, args ...interface{}) ([]byte, error) {
	return c.abi.Pack(name, args...)
}

// Decode resolves the method a payload targets and unpacks its arguments.
func (c *Codec) Decode(payload []byte) (string, []interface{}, error) {
	if len(payload) < SelectorLength {
		return "", nil, ErrPayloadTooShort
	}
	method, err := c.abi.MethodById(payload[:SelectorLength])
	if err != nil {
		return "", nil, ErrUnknownSelector
	}
	args, err := method.Inputs.Unpack(payload[SelectorLength:])
	if err != nil {
		return "", nil, fmt.Errorf("%s: %w", method.Name, coreerrors.New(coreerrors.ErrInvalidArgument, "call", err.Error()))
	}
	return method.Name, args, nil
}

// Selector returns the signature of the method a payload targets.
func (c *Codec) Selector(payload []byte) (string, error) {
	if len(payload) < SelectorLength {
		return "", ErrPayloadTooShort
	}
	method, err := c.abi.MethodById(payload[:SelectorLength])
	if err != nil {
		return "", ErrUnknownSelector
	}
	return method.Sig, nil
}

// Registry maps recipient identities to their executables for one transition.
type Registry struct {
	handlers map[[20]byte]Executable
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[[20]byte]Executable)}
}

// Register binds an executable to a recipient address.
func (r *Registry) Register(addr [20]byte, exec Executable) {
	r.handlers[addr] = exec
}

// Call forwards payload verbatim to the executable registered for recipient.
func (r *Registry) Call(recipient, caller [20]byte, payload []byte) error {
	exec, ok := r.handlers[recipient]
	if !ok || exec == nil {
		return ErrUnknownRecipient
	}
	return exec.Apply(caller, payload)
}
