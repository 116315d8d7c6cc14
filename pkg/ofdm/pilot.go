package ofdm

import "github.com/Rhizomatica/mercury-sub000/internal/prng"

// PilotSequence derives the known BPSK pilot values for every carrier
// position, deterministically from the mode's seed so both ends agree
// without signalling. Scaled by PilotBoost per §4.1's equalizer note
// that pilots are transmitted above the data power level to improve
// channel-estimate SNR.
func PilotSequence(p Params) []complex128 {
	rnd := prng.NewGlibcRandom(p.Seed ^ 0x50494c4f) // "PILO" tweak, keeps pilots independent of the preamble sequence
	boost := p.PilotBoost
	if boost <= 0 {
		boost = 1
	}
	seq := make([]complex128, p.Nc)
	for i := range seq {
		if rnd.Bit() == 1 {
			seq[i] = complex(boost, 0)
		} else {
			seq[i] = complex(-boost, 0)
		}
	}
	return seq
}
