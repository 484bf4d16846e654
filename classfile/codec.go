package classfile

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

var (
	// ErrBadMagic is returned when decoded bytes are not a class file.
	ErrBadMagic = errors.New("classfile: bad magic")

	// ErrUnsupportedVersion is returned for artifacts of a newer format.
	ErrUnsupportedVersion = errors.New("classfile: unsupported version")
)

// cborEncMode uses canonical options so identical classes encode to identical
// bytes, which keeps digests stable.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("classfile: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Marshal serializes a ClassFile to CBOR bytes.
func Marshal(cf *ClassFile) ([]byte, error) {
	if cf.Magic == 0 {
		cf.Magic = Magic
	}
	if cf.Version == 0 {
		cf.Version = Version
	}
	data, err := cborEncMode.Marshal(cf)
	if err != nil {
		return nil, fmt.Errorf("classfile: marshal %s: %w", cf.BinaryName(), err)
	}
	return data, nil
}

// Unmarshal deserializes and validates a ClassFile.
func Unmarshal(data []byte) (*ClassFile, error) {
	var cf ClassFile
	if err := cbor.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("classfile: unmarshal: %w", err)
	}
	if cf.Magic != Magic {
		return nil, fmt.Errorf("%w: %#x", ErrBadMagic, cf.Magic)
	}
	if cf.Version > Version {
		return nil, fmt.Errorf("%w: %d (max %d)", ErrUnsupportedVersion, cf.Version, Version)
	}
	if cf.Name == "" {
		return nil, errors.New("classfile: missing class name")
	}
	return &cf, nil
}

// Digest returns the content hash of encoded artifact bytes.
func Digest(data []byte) [32]byte {
	return sha256.Sum256(data)
}
