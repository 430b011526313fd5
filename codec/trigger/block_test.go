package trigger

import "encoding/binary"

func sentinelBlock(count uint32) []byte {
	buf := make([]byte, BlockSize)
	for i := 0; i < CountBits; i++ {
		var v int16 = -1
		if count&(1<<uint(i)) != 0 {
			v = 1
		}
		binary.LittleEndian.PutUint16(buf[i*2:i*2+2], uint16(v))
	}
	return buf
}
