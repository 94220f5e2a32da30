package respio

import "sync"

// respPacketPool is a sync.Pool for RespPacket structs.
var respPacketPool = sync.Pool{
	New: func() interface{} {
		return &RespPacket{
			Array: make([]*RespPacket, 0, 5),
		}
	},
}

// AcquireRespPacket gets a 'clean' RespPacket from the pool.
// The caller is responsible for setting the Type, Data, and populating Array as needed.
func AcquireRespPacket() *RespPacket {
	return respPacketPool.Get().(*RespPacket)
}

// ReleaseRespPacket resets a RespPacket and returns it (and its children) to
// the pool. The caller must ensure the packet is no longer referenced.
func ReleaseRespPacket(p *RespPacket) {
	if p == nil {
		return
	}
	p.Type = 0
	p.Data = nil
	for i, item := range p.Array {
		if item != nil {
			ReleaseRespPacket(item)
			p.Array[i] = nil
		}
	}
	// Keep the backing array so the capacity is reused on the next acquire.
	p.Array = p.Array[:0]
	respPacketPool.Put(p)
}
