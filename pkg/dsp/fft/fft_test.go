package fft

import (
	"math/cmplx"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestRoundTrip is the §8 property: ‖IFFT(FFT(x)) - x‖∞ < 1e-10 for random
// complex x of length Nfft in {64,128,256,512,1024}.
func TestRoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for _, n := range []int{64, 128, 256, 512, 1024} {
		x := make([]complex128, n)
		for i := range x {
			x[i] = complex(r.Float64()*2-1, r.Float64()*2-1)
		}
		y := Forward(x)
		z := Inverse(y)

		var maxErr float64
		for i := range x {
			e := cmplx.Abs(z[i] - x[i])
			if e > maxErr {
				maxErr = e
			}
		}
		assert.Lessf(t, maxErr, 1e-10, "n=%d round-trip max error %g", n, maxErr)
	}
}

func TestKnownImpulse(t *testing.T) {
	x := make([]complex128, 8)
	x[0] = 1
	y := Forward(x)
	for _, v := range y {
		assert.InDelta(t, 1.0, real(v), 1e-9)
		assert.InDelta(t, 0.0, imag(v), 1e-9)
	}
}

func TestNextPow2(t *testing.T) {
	cases := map[int]int{0: 1, 1: 1, 2: 2, 3: 4, 513: 1024, 1024: 1024}
	for in, want := range cases {
		assert.Equal(t, want, NextPow2(in))
	}
}
