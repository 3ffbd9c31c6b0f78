// Package wav wraps raw PCM samples in a minimal RIFF/WAVE container so
// downstream players need no out-of-band format knowledge.
package wav

import "encoding/binary"

// Fixed output format: what the upstream synthesizer emits.
const (
	SampleRate    = 24000
	NumChannels   = 1
	BitsPerSample = 16

	// HeaderSize is the byte length of the canonical PCM WAVE header.
	HeaderSize = 44

	byteRate   = SampleRate * NumChannels * BitsPerSample / 8
	blockAlign = NumChannels * BitsPerSample / 8
)

// Encode wraps pcm (16-bit LE mono samples at 24 kHz) in a WAVE container.
// The result is always HeaderSize + len(pcm) bytes. Field offsets are fixed
// by the RIFF format; getting any of them wrong corrupts every file produced,
// so they are pinned byte-for-byte in the tests.
func Encode(pcm []byte) []byte {
	out := make([]byte, HeaderSize+len(pcm))

	copy(out[0:4], "RIFF")
	binary.LittleEndian.PutUint32(out[4:8], uint32(36+len(pcm)))
	copy(out[8:12], "WAVE")

	copy(out[12:16], "fmt ")
	binary.LittleEndian.PutUint32(out[16:20], 16) // fmt chunk size
	binary.LittleEndian.PutUint16(out[20:22], 1)  // PCM
	binary.LittleEndian.PutUint16(out[22:24], NumChannels)
	binary.LittleEndian.PutUint32(out[24:28], SampleRate)
	binary.LittleEndian.PutUint32(out[28:32], byteRate)
	binary.LittleEndian.PutUint16(out[32:34], blockAlign)
	binary.LittleEndian.PutUint16(out[34:36], BitsPerSample)

	copy(out[36:40], "data")
	binary.LittleEndian.PutUint32(out[40:44], uint32(len(pcm)))
	copy(out[HeaderSize:], pcm)

	return out
}
