package badgergraph

import (
	"encoding/binary"

	"github.com/specialistvlad/rulegraph/internal/graph"
)

// Key layout. Ids are 8 bytes big-endian so that prefix scans return them in
// ascending order.
//
//	n/<id>                   node record
//	l/<label>\x00<id>        label index
//	o/<from><type>\x00<to>   outgoing adjacency
//	i/<to><type>\x00<from>   incoming adjacency
//	seq/node                 id sequence
const (
	nodePrefix  = "n/"
	labelPrefix = "l/"
	outPrefix   = "o/"
	inPrefix    = "i/"
	sep         = 0x00
)

var seqKey = []byte("seq/node")

func appendID(b []byte, id graph.NodeID) []byte {
	return binary.BigEndian.AppendUint64(b, uint64(id))
}

// trailingID decodes the id stored in the last 8 bytes of a key.
func trailingID(key []byte) graph.NodeID {
	return graph.NodeID(binary.BigEndian.Uint64(key[len(key)-8:]))
}

func nodeKey(id graph.NodeID) []byte {
	return appendID([]byte(nodePrefix), id)
}

func labelScanPrefix(label string) []byte {
	b := append([]byte(labelPrefix), label...)
	return append(b, sep)
}

func labelKey(label string, id graph.NodeID) []byte {
	return appendID(labelScanPrefix(label), id)
}

func adjacencyPrefix(dir graph.Direction, id graph.NodeID) []byte {
	p := outPrefix
	if dir == graph.Incoming {
		p = inPrefix
	}
	return appendID([]byte(p), id)
}

// adjacencyScanPrefix narrows the scan to one relationship type when typ is
// not empty.
func adjacencyScanPrefix(dir graph.Direction, id graph.NodeID, typ string) []byte {
	b := adjacencyPrefix(dir, id)
	if typ == "" {
		return b
	}
	b = append(b, typ...)
	return append(b, sep)
}

func adjacencyKey(dir graph.Direction, id graph.NodeID, typ string, peer graph.NodeID) []byte {
	return appendID(adjacencyScanPrefix(dir, id, typ), peer)
}
