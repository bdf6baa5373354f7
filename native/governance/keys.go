package governance

import (
	"encoding/binary"
)

var (
	configKey          = []byte("governance/config")
	nextProposalIDKey  = []byte("governance/proposal/next")
	proposalPrefix     = []byte("governance/proposal/")
	ballotPrefix       = []byte("governance/ballot/")
	incomingPrefix     = []byte("governance/incoming/")
	participantsPrefix = []byte("governance/participants/")
	openCountPrefix    = []byte("governance/open/")
)

func proposalKey(id uint64) []byte {
	buf := make([]byte, len(proposalPrefix)+8)
	copy(buf, proposalPrefix)
	binary.BigEndian.PutUint64(buf[len(proposalPrefix):], id)
	return buf
}

func scopedKey(prefix []byte, id uint64, addr [20]byte) []byte {
	buf := make([]byte, len(prefix)+8+len(addr))
	copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[len(prefix):], id)
	copy(buf[len(prefix)+8:], addr[:])
	return buf
}

func ballotKey(id uint64, addr [20]byte) []byte {
	return scopedKey(ballotPrefix, id, addr)
}

// incomingKey indexes the delegators that pointed at delegate on a proposal.
func incomingKey(id uint64, delegate [20]byte) []byte {
	return scopedKey(incomingPrefix, id, delegate)
}

func participantsKey(id uint64) []byte {
	buf := make([]byte, len(participantsPrefix)+8)
	copy(buf, participantsPrefix)
	binary.BigEndian.PutUint64(buf[len(participantsPrefix):], id)
	return buf
}

func openCountKey(addr [20]byte) []byte {
	buf := make([]byte, len(openCountPrefix)+len(addr))
	copy(buf, openCountPrefix)
	copy(buf[len(openCountPrefix):], addr[:])
	return buf
}
