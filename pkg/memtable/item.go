package memtable

const seqNSize = 8

type Item struct {
	Key   []byte
	Value []byte
	SeqN  uint64
}

func (it *Item) size() uint64 {
	return uint64(len(it.Key)) + uint64(len(it.Value)) + seqNSize
}
