package ldpc

import "math"

// sign returns +1 for v >= 0 and -1 for v < 0, used by DecodeGBF to
// interpret the LLR convention: a bit's hard decision is 1
// when its LLR is negative, 0 when non-negative (see modem.DemapLLR).
func sign(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}

func hardDecision(soft []float64) []byte {
	bits := make([]byte, len(soft))
	for i, v := range soft {
		if v < 0 {
			bits[i] = 1
		}
	}
	return bits
}

// DecodeGBF runs gradient bit-flipping decoding, per §4.2: soft
// reliabilities start at the channel LLRs; each iteration, every
// unsatisfied check casts a vote on its connected variables, and a
// variable's reliability is nudged by eta*delta only when the vote
// opposes its current hard decision. Returns the decoded K systematic
// bits, the iteration count actually used, and whether all checks were
// satisfied (false if it ran the full nIterationMax, per §4.2's "Return
// value" convention: equal to the cap means undecoded).
func (c *Code) DecodeGBF(llr []float64, nIterationMax int, eta float64) (data []byte, iterations int, ok bool) {
	if len(llr) != N {
		panic("ldpc: DecodeGBF requires exactly N LLRs")
	}
	soft := append([]float64(nil), llr...)
	hard := hardDecision(soft)

	for iter := 1; iter <= nIterationMax; iter++ {
		unsatisfied := c.unsatisfiedChecks(hard)
		if len(unsatisfied) == 0 {
			return hard[:c.K], iter, true
		}

		delta := make([]float64, N)
		for _, chk := range unsatisfied {
			for _, v := range c.Cmatrix[chk] {
				if hard[v] == 1 {
					delta[v] += 1
				} else {
					delta[v] -= 1
				}
			}
		}

		for v := range soft {
			if delta[v] == 0 {
				continue
			}
			// Only adjust when the check votes disagree with the
			// variable's current sign, i.e. the gradient opposes the
			// standing decision.
			if delta[v]*sign(soft[v]) < 0 {
				soft[v] -= eta * delta[v]
			}
		}
		hard = hardDecision(soft)
	}

	return hard[:c.K], nIterationMax, false
}

func (c *Code) unsatisfiedChecks(hard []byte) []int {
	var bad []int
	for row := 0; row < c.P; row++ {
		var bit byte
		for _, v := range c.Cmatrix[row] {
			bit ^= hard[v]
		}
		if bit != 0 {
			bad = append(bad, row)
		}
	}
	return bad
}

// tannerGraph is the edge-indexed view of the Tanner graph used by the
// sum-product decoder: each edge id has exactly one check and one
// variable endpoint, and both endpoints list their incident edge ids in
// an order matching Cmatrix/Vmatrix so Q/R messages line up positionally.
type tannerGraph struct {
	checkEdges [][]int
	varEdges   [][]int
	edgeVar    []int
	edgeCheck  []int
}

func (c *Code) buildTannerGraph() *tannerGraph {
	g := &tannerGraph{
		checkEdges: make([][]int, c.P),
		varEdges:   make([][]int, c.K+c.P),
	}
	edgeID := 0
	for chk := 0; chk < c.P; chk++ {
		for _, v := range c.Cmatrix[chk] {
			g.checkEdges[chk] = append(g.checkEdges[chk], edgeID)
			g.varEdges[v] = append(g.varEdges[v], edgeID)
			g.edgeVar = append(g.edgeVar, v)
			g.edgeCheck = append(g.edgeCheck, chk)
			edgeID++
		}
	}
	return g
}

const tanhClamp = 0.9999999

// DecodeSPA runs sum-product (belief propagation) decoding over the
// factor graph, per §4.2: R (check->variable) updates via
// 2*atanh(prod tanh(Q/2)), Q (variable->check) updates via
// LLR_in + sum(R) - R_self, with tanh arguments saturated to ±tanhClamp
// to avoid atanh overflow, and early termination on syndrome zero.
func (c *Code) DecodeSPA(llr []float64, nIterationMax int) (data []byte, iterations int, ok bool) {
	if len(llr) != N {
		panic("ldpc: DecodeSPA requires exactly N LLRs")
	}
	g := c.buildTannerGraph()
	numEdges := len(g.edgeVar)
	Q := make([]float64, numEdges)
	R := make([]float64, numEdges)

	for _, edges := range g.varEdges {
		for _, e := range edges {
			Q[e] = llr[g.edgeVar[e]]
		}
	}

	hard := make([]byte, N)

	for iter := 1; iter <= nIterationMax; iter++ {
		// Check -> variable update.
		for chk := 0; chk < c.P; chk++ {
			edges := g.checkEdges[chk]
			tanhs := make([]float64, len(edges))
			for i, e := range edges {
				th := math.Tanh(Q[e] / 2)
				if th > tanhClamp {
					th = tanhClamp
				} else if th < -tanhClamp {
					th = -tanhClamp
				}
				tanhs[i] = th
			}
			for i, e := range edges {
				prod := 1.0
				for j, th := range tanhs {
					if j == i {
						continue
					}
					prod *= th
				}
				if prod > tanhClamp {
					prod = tanhClamp
				} else if prod < -tanhClamp {
					prod = -tanhClamp
				}
				R[e] = 2 * math.Atanh(prod)
			}
		}

		// Variable -> check update, and posterior/hard decision.
		posterior := make([]float64, N)
		copy(posterior, llr)
		for v := 0; v < N; v++ {
			for _, e := range g.varEdges[v] {
				posterior[v] += R[e]
			}
		}
		for v := 0; v < N; v++ {
			if posterior[v] < 0 {
				hard[v] = 1
			} else {
				hard[v] = 0
			}
			for _, e := range g.varEdges[v] {
				Q[e] = posterior[v] - R[e]
			}
		}

		if c.Syndrome(hard) {
			return hard[:c.K], iter, true
		}
	}

	return hard[:c.K], nIterationMax, false
}
