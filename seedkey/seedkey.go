// Package seedkey derives security-access keys from ECU seed challenges.
// The transform is vehicle specific and licensed by the manufacturer, so it
// sits behind the Strategy interface.
package seedkey

import (
	"encoding/binary"
	"fmt"
)

// Level identifies the security-access level being unlocked.
type Level uint8

const (
	// LevelCoding gates parameter coding.
	LevelCoding Level = 3
	// LevelFlash gates flash programming.
	LevelFlash Level = 4
)

// Strategy answers a 4-byte seed challenge with a 4-byte key.
type Strategy interface {
	DeriveKey(seed [4]byte, level Level) ([4]byte, error)
}

// B48 carries the transforms observed on B48-engined G-series cars. The
// constants are reconstructed from traces and unverified; substitute a
// licensed implementation for production coding.
type B48 struct{}

func (B48) DeriveKey(seed [4]byte, level Level) ([4]byte, error) {
	s := binary.BigEndian.Uint32(seed[:])
	var k uint32
	switch level {
	case LevelCoding:
		k = s ^ 0x94C1
		k = k*0x8765 + 0x4321
		k = k<<16 | k>>16
	case LevelFlash:
		k = s ^ 0x4F2A
		k = k*0xABCD + 0x5678
		k ^= 0xFF00FF00
	default:
		return [4]byte{}, fmt.Errorf("seedkey: no transform for level %d", level)
	}
	var key [4]byte
	binary.BigEndian.PutUint32(key[:], k)
	return key, nil
}
