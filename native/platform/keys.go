package platform

import (
	"encoding/binary"
)

var (
	paramsKey      = []byte("platform/params")
	ownerKey       = []byte("platform/owner")
	governorKey    = []byte("platform/governor")
	roundKey       = []byte("platform/round")
	awardsKey      = []byte("platform/awards")
	nextOrderIDKey = []byte("platform/order/next")
	openOrdersKey  = []byte("platform/order/open")
	orderPrefix    = []byte("platform/order/")
	referrerPrefix = []byte("platform/referrer/")
)

func orderKey(id uint64) []byte {
	buf := make([]byte, len(orderPrefix)+8)
	copy(buf, orderPrefix)
	binary.BigEndian.PutUint64(buf[len(orderPrefix):], id)
	return buf
}

func referrerKey(addr [20]byte) []byte {
	buf := make([]byte, len(referrerPrefix)+len(addr))
	copy(buf, referrerPrefix)
	copy(buf[len(referrerPrefix):], addr[:])
	return buf
}
