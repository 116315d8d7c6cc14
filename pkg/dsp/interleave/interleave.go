// Package interleave implements the block-wise bit and IQ-symbol
// permutations applied between LDPC coding and constellation mapping
// (bit interleave) and between mapping and OFDM framing (IQ interleave),
// per §4.3 steps 3-4. A row-column block interleaver is the standard,
// dependency-free construction for this and needs no external library;
// grounded on the teacher's framing discipline of walking fixed-size
// blocks (kiss_frame.go, il2p_codec.go) even though those operate on
// bytes rather than bits/symbols.
package interleave

// Interleaver permutes elements within fixed-size blocks by writing them
// into a rows x cols matrix in row-major order and reading them back out
// in column-major order (the classic block interleaver), spreading burst
// errors across many LDPC variable nodes / OFDM subcarriers.
type Interleaver struct {
	rows, cols int
}

// New builds a block interleaver for blocks of exactly rows*cols
// elements. blockSize is rounded up to the nearest rows multiple so that
// a ragged final block still permutes deterministically.
func New(blockSize int) *Interleaver {
	if blockSize <= 0 {
		blockSize = 1
	}
	rows := isqrt(blockSize)
	if rows < 1 {
		rows = 1
	}
	cols := (blockSize + rows - 1) / rows
	return &Interleaver{rows: rows, cols: cols}
}

func isqrt(n int) int {
	if n <= 0 {
		return 0
	}
	r := 1
	for r*r <= n {
		r++
	}
	return r - 1
}

func (iv *Interleaver) blockLen() int {
	return iv.rows * iv.cols
}

// Permute interleaves src block-by-block (the last, possibly short,
// block is interleaved in place over its own shorter length).
func (iv *Interleaver) Permute(src []int) []int {
	return iv.apply(src, false)
}

// Deinterleave reverses Permute.
func (iv *Interleaver) Deinterleave(src []int) []int {
	return iv.apply(src, true)
}

func (iv *Interleaver) apply(src []int, inverse bool) []int {
	out := make([]int, len(src))
	block := iv.blockLen()
	for start := 0; start < len(src); start += block {
		end := start + block
		if end > len(src) {
			end = len(src)
		}
		permuteBlock(src[start:end], out[start:end], iv.rows, iv.cols, inverse)
	}
	return out
}

func permuteBlock(src, dst []int, rows, cols int, inverse bool) {
	n := len(src)
	if n == 0 {
		return
	}
	// Recompute an actual rows/cols pair that fits this (possibly
	// shorter, final) block so the permutation stays well-defined.
	r := isqrt(n)
	if r < 1 {
		r = 1
	}
	c := (n + r - 1) / r
	_ = rows
	_ = cols

	order := make([]int, 0, n)
	if !inverse {
		// write row-major, read column-major
		grid := make([][]int, r)
		idx := 0
		for i := 0; i < r; i++ {
			grid[i] = make([]int, c)
			for j := 0; j < c; j++ {
				if idx < n {
					grid[i][j] = idx
					idx++
				} else {
					grid[i][j] = -1
				}
			}
		}
		for j := 0; j < c; j++ {
			for i := 0; i < r; i++ {
				if grid[i][j] >= 0 {
					order = append(order, grid[i][j])
				}
			}
		}
	} else {
		grid := make([][]int, r)
		for i := range grid {
			grid[i] = make([]int, c)
		}
		idx := 0
		for j := 0; j < c; j++ {
			for i := 0; i < r; i++ {
				if i*c+j < n {
					grid[i][j] = idx
					idx++
				}
			}
		}
		for i := 0; i < r; i++ {
			for j := 0; j < c; j++ {
				if i*c+j < n {
					order = append(order, grid[i][j])
				}
			}
		}
	}
	for pos, from := range order {
		dst[pos] = src[from]
	}
}

// PermuteComplex/DeinterleaveComplex apply the same block permutation to
// IQ symbols (the "IQ-interleave" step of §4.3).
func (iv *Interleaver) PermuteComplex(src []complex128) []complex128 {
	idx := make([]int, len(src))
	for i := range idx {
		idx[i] = i
	}
	order := iv.Permute(idx)
	out := make([]complex128, len(src))
	for i, from := range order {
		out[i] = src[from]
	}
	return out
}

func (iv *Interleaver) DeinterleaveComplex(src []complex128) []complex128 {
	idx := make([]int, len(src))
	for i := range idx {
		idx[i] = i
	}
	order := iv.Deinterleave(idx)
	out := make([]complex128, len(src))
	for i, from := range order {
		out[i] = src[from]
	}
	return out
}

// PermuteBytes/DeinterleaveBytes apply the same block permutation to bit
// arrays (§4.3 step 3, the bit interleave between LDPC coding and
// constellation mapping).
func (iv *Interleaver) PermuteBytes(src []byte) []byte {
	return iv.applyBytes(src, false)
}

func (iv *Interleaver) DeinterleaveBytes(src []byte) []byte {
	return iv.applyBytes(src, true)
}

func (iv *Interleaver) applyBytes(src []byte, inverse bool) []byte {
	idx := make([]int, len(src))
	for i := range idx {
		idx[i] = i
	}
	order := iv.apply(idx, inverse)
	out := make([]byte, len(src))
	for i, from := range order {
		out[i] = src[from]
	}
	return out
}

// PermuteFloats/DeinterleaveFloats apply the same block permutation to
// per-bit LLRs, so a soft value can be carried through the interleaver
// exactly like the hard bit it was derived from.
func (iv *Interleaver) PermuteFloats(src []float64) []float64 {
	return iv.applyFloats(src, false)
}

func (iv *Interleaver) DeinterleaveFloats(src []float64) []float64 {
	return iv.applyFloats(src, true)
}

func (iv *Interleaver) applyFloats(src []float64, inverse bool) []float64 {
	idx := make([]int, len(src))
	for i := range idx {
		idx[i] = i
	}
	order := iv.apply(idx, inverse)
	out := make([]float64, len(src))
	for i, from := range order {
		out[i] = src[from]
	}
	return out
}
