package split

import "encoding/binary"

// buildWAV assembles a minimal mono 16-bit PCM WAV file with an ICMT chunk
// padded to icmtCapacity bytes, carrying data as its payload.
func buildWAV(comment string, icmtCapacity int, sampleRate uint32, data []byte) []byte {
	return buildWAVWithGuano(comment, icmtCapacity, sampleRate, data, "")
}

// buildWAVWithGuano is buildWAV with an optional trailing guan chunk.
func buildWAVWithGuano(comment string, icmtCapacity int, sampleRate uint32, data []byte, guanoText string) []byte {
	fmtBody := make([]byte, 16)
	binary.LittleEndian.PutUint16(fmtBody[0:2], 1)
	binary.LittleEndian.PutUint16(fmtBody[2:4], 1)
	binary.LittleEndian.PutUint32(fmtBody[4:8], sampleRate)
	binary.LittleEndian.PutUint32(fmtBody[8:12], sampleRate*2)
	binary.LittleEndian.PutUint16(fmtBody[12:14], 2)
	binary.LittleEndian.PutUint16(fmtBody[14:16], 16)

	icmtBody := make([]byte, icmtCapacity)
	copy(icmtBody, comment)
	info := append([]byte("INFO"), chunk("ICMT", icmtBody)...)
	list := chunk("LIST", info)

	var body []byte
	body = append(body, chunk("fmt ", fmtBody)...)
	body = append(body, list...)
	body = append(body, chunk("data", data)...)

	var b []byte
	b = append(b, []byte("RIFF")...)
	b = append(b, u32(uint32(4+len(body)+guanoChunkLen(guanoText)))...)
	b = append(b, []byte("WAVE")...)
	b = append(b, body...)
	if guanoText != "" {
		b = append(b, chunk("guan", []byte(guanoText))...)
	}
	return b
}

func guanoChunkLen(text string) int {
	if text == "" {
		return 0
	}
	n := 8 + len(text)
	if len(text)%2 == 1 {
		n++
	}
	return n
}

func chunk(id string, body []byte) []byte {
	var c []byte
	c = append(c, []byte(id)...)
	c = append(c, u32(uint32(len(body)))...)
	c = append(c, body...)
	if len(body)%2 == 1 {
		c = append(c, 0)
	}
	return c
}

func u32(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}
