// Package ldpc implements the quasi-cyclic LDPC forward error correction
// used to protect every OFDM frame's payload: a systematic encoder and
// two soft-decision decoders (gradient bit-flipping and sum-product).
//
// The code is stored, per §3's data model, as two sparse projections of
// the same parity-check matrix: Cmatrix (check -> variable adjacency)
// and Vmatrix (variable -> check adjacency), with per-row/column degree
// accessors Cwidth/Vwidth. No LDPC library appears anywhere in the
// retrieval pack, so the matrix bookkeeping and both decoders are
// implemented directly against the standard library, per §4.2.
package ldpc

import (
	"errors"

	"github.com/Rhizomatica/mercury-sub000/internal/prng"
)

// N is the fixed codeword length for every mode, per §3.
const N = 1600

// blockSize is the quasi-cyclic circulant size; N is always exactly 16
// blocks of blockSize bits, matching the original implementation's
// mercury_normal_{1,3,4}_16 naming convention (rate expressed in 16ths).
const blockSize = N / 16

// connectionsPerBlock is the number of circulant permutation matrices
// XORed together to build each parity/data block of the generator,
// giving each parity check roughly 3 data-bit connections per block
// column — a (3,*)-ish irregular construction, deterministic from the
// mode's seed so both stations build byte-identical matrices.
const connectionsPerBlock = 3

// Code is a fully built quasi-cyclic LDPC code for one physical-layer
// mode: K payload bits, P parity bits, N = K+P = 1600.
type Code struct {
	K, P int

	// generator is the P x K bit matrix A such that parity = A . data
	// (mod 2); stored row-major, one byte (0/1) per bit for simplicity.
	generator [][]byte

	// Cmatrix[c] lists the variable (column) indices connected to check c.
	Cmatrix [][]int
	// Vmatrix[v] lists the check (row) indices connected to variable v.
	Vmatrix [][]int
}

// NewCode builds the quasi-cyclic code for a given payload size K
// (parity P = N-K) and a deterministic seed shared by both stations.
func NewCode(k int, seed uint32) (*Code, error) {
	if k <= 0 || k >= N || k%blockSize != 0 {
		return nil, errors.New("ldpc: K must be a positive multiple of blockSize smaller than N")
	}
	p := N - k
	numDataBlocks := k / blockSize
	numParityBlocks := p / blockSize

	gen := make([][]byte, p)
	for i := range gen {
		gen[i] = make([]byte, k)
	}

	rnd := prng.NewGlibcRandom(seed)

	for row := 0; row < numParityBlocks; row++ {
		for col := 0; col < numDataBlocks; col++ {
			for conn := 0; conn < connectionsPerBlock; conn++ {
				shift := int(rnd.Next() % uint32(blockSize))
				addCirculantPermutation(gen, row*blockSize, col*blockSize, shift)
			}
		}
	}

	c := &Code{K: k, P: p, generator: gen}
	c.buildAdjacency()
	return c, nil
}

// addCirculantPermutation XORs a single circulant permutation matrix
// (one 1 per row, shifted by `shift`) into gen starting at (rowOff, colOff).
func addCirculantPermutation(gen [][]byte, rowOff, colOff, shift int) {
	for i := 0; i < blockSize; i++ {
		j := (i + shift) % blockSize
		gen[rowOff+i][colOff+j] ^= 1
	}
}

func (c *Code) buildAdjacency() {
	c.Cmatrix = make([][]int, c.P)
	c.Vmatrix = make([][]int, c.K+c.P)
	for row := 0; row < c.P; row++ {
		// Data-bit connections from the generator.
		for col := 0; col < c.K; col++ {
			if c.generator[row][col] == 1 {
				c.Cmatrix[row] = append(c.Cmatrix[row], col)
				c.Vmatrix[col] = append(c.Vmatrix[col], row)
			}
		}
		// The parity identity block: check `row` also connects to its
		// own parity bit, variable index K+row.
		parityVar := c.K + row
		c.Cmatrix[row] = append(c.Cmatrix[row], parityVar)
		c.Vmatrix[parityVar] = append(c.Vmatrix[parityVar], row)
	}
}

// Cwidth returns the degree (number of connected variables) of check row c.
func (c *Code) Cwidth(check int) int { return len(c.Cmatrix[check]) }

// Vwidth returns the degree (number of connected checks) of variable v.
func (c *Code) Vwidth(v int) int { return len(c.Vmatrix[v]) }

// Encode produces the full N-bit codeword (systematic data bits followed
// by parity bits) for exactly K input bits, per §4.2: "emit (systematic,
// parity) concatenated in that order."
func (c *Code) Encode(data []byte) ([]byte, error) {
	if len(data) != c.K {
		return nil, errors.New("ldpc: Encode requires exactly K data bits")
	}
	codeword := make([]byte, N)
	copy(codeword, data)
	for row := 0; row < c.P; row++ {
		var bit byte
		for _, col := range c.Cmatrix[row] {
			if col < c.K {
				bit ^= data[col]
			}
		}
		codeword[c.K+row] = bit
	}
	return codeword, nil
}

// Syndrome returns true if the given hard-decision codeword satisfies
// every parity check.
func (c *Code) Syndrome(codeword []byte) bool {
	for row := 0; row < c.P; row++ {
		var bit byte
		for _, v := range c.Cmatrix[row] {
			bit ^= codeword[v]
		}
		if bit != 0 {
			return false
		}
	}
	return true
}
