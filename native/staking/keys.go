package staking

import (
	"encoding/binary"
)

var (
	paramsKey         = []byte("staking/params")
	ownerKey          = []byte("staking/owner")
	governorKey       = []byte("staking/governor")
	nextPositionIDKey = []byte("staking/position/next")
	positionPrefix    = []byte("staking/position/")
	weightPrefix      = []byte("staking/weight/")
	holderIndexPrefix = []byte("staking/holder/")
)

func positionKey(id uint64) []byte {
	buf := make([]byte, len(positionPrefix)+8)
	copy(buf, positionPrefix)
	binary.BigEndian.PutUint64(buf[len(positionPrefix):], id)
	return buf
}

func weightKey(addr [20]byte) []byte {
	buf := make([]byte, len(weightPrefix)+len(addr))
	copy(buf, weightPrefix)
	copy(buf[len(weightPrefix):], addr[:])
	return buf
}

func holderIndexKey(addr [20]byte) []byte {
	buf := make([]byte, len(holderIndexPrefix)+len(addr))
	copy(buf, holderIndexPrefix)
	copy(buf[len(holderIndexPrefix):], addr[:])
	return buf
}
