// Package crc8 implements the CRC-8/DVB-S2 checksum shared by the STM32 link
// and CRSF framing (polynomial 0xD5, init 0x00, no reflection, no xorout).
package crc8

const Polynomial byte = 0xD5

var table = makeTable(Polynomial)

func makeTable(poly byte) [256]byte {
	var t [256]byte
	for i := 0; i < 256; i++ {
		crc := byte(i)
		for bit := 0; bit < 8; bit++ {
			if crc&0x80 != 0 {
				crc = (crc << 1) ^ poly
			} else {
				crc <<= 1
			}
		}
		t[i] = crc
	}
	return t
}

// Checksum returns the DVB-S2 CRC of data.
func Checksum(data []byte) byte {
	return Update(0, data)
}

// Update continues a running checksum over data.
func Update(crc byte, data []byte) byte {
	for _, b := range data {
		crc = table[crc^b]
	}
	return crc
}
