package tag

import "crypto/aes"

const cmacBlockSize = 16

// cipherBlock is the single method this package needs from *aes.Cipher.
type cipherBlock interface {
	Encrypt(dst, src []byte)
}

// aesCMAC computes CMAC-AES (NIST SP 800-38B) over msg under key, returning
// the full 16-byte MAC; callers truncate it to the tag's configured length
// with truncateMAC. key must be 16 or 32 bytes. The subkey doubling and
// final-block tweak follow the teacher codebase's DESFire session-MAC
// routine (pkg/ntag424), restructured around this package's own
// fixed-16-byte-block state rather than the teacher's separate
// last-block/xor/shift helpers.
func aesCMAC(key, msg []byte) ([]byte, error) {
	cipher, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	k1, k2 := cmacSubkeys(cipher)

	blocks := (len(msg) + cmacBlockSize - 1) / cmacBlockSize
	if blocks == 0 {
		blocks = 1
	}
	aligned := len(msg) != 0 && len(msg)%cmacBlockSize == 0

	final := make([]byte, cmacBlockSize)
	tweak := k2
	if aligned {
		tweak = k1
		copy(final, msg[(blocks-1)*cmacBlockSize:])
	} else {
		n := copy(final, msg[(blocks-1)*cmacBlockSize:])
		final[n] = 0x80
	}
	cmacXOR(final, final, tweak)

	state := make([]byte, cmacBlockSize)
	for i := 0; i < blocks-1; i++ {
		chunk := msg[i*cmacBlockSize : (i+1)*cmacBlockSize]
		cmacXOR(state, state, chunk)
		cipher.Encrypt(state, state)
	}
	cmacXOR(state, state, final)
	cipher.Encrypt(state, state)
	return state, nil
}

// cmacSubkeys derives K1 and K2 from the cipher's encryption of an
// all-zero block, each a GF(2^128) doubling of the one before.
func cmacSubkeys(cipher cipherBlock) (k1, k2 []byte) {
	l := make([]byte, cmacBlockSize)
	cipher.Encrypt(l, l)
	k1 = cmacDouble(l)
	k2 = cmacDouble(k1)
	return k1, k2
}

// cmacDouble left-shifts in by one bit and conditionally XORs in the
// irreducible-polynomial constant when the shifted-out bit was set.
func cmacDouble(in []byte) []byte {
	const rb = 0x87
	out := make([]byte, len(in))
	msb := in[0]&0x80 != 0
	var carry byte
	for i := len(in) - 1; i >= 0; i-- {
		out[i] = (in[i] << 1) | carry
		carry = (in[i] >> 7) & 1
	}
	if msb {
		out[len(out)-1] ^= rb
	}
	return out
}

func cmacXOR(dst, a, b []byte) {
	for i := range dst {
		dst[i] = a[i] ^ b[i]
	}
}
