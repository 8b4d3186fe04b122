package pipeline

import (
	"fmt"

	"github.com/sarchlab/lizard/insts"
)

// PredictorConfig sizes the branch predictor.
type PredictorConfig struct {
	// BHTSize is the number of 2-bit counters. Must be a power of 2.
	BHTSize uint32 `json:"bht_size"`
	// BTBSize is the number of indirect target entries. Must be a power of 2.
	BTBSize uint32 `json:"btb_size"`
}

// DefaultPredictorConfig returns a 1024-counter, 256-target predictor.
func DefaultPredictorConfig() PredictorConfig {
	return PredictorConfig{
		BHTSize: 1024,
		BTBSize: 256,
	}
}

// Validate checks that both tables are powers of two.
func (c PredictorConfig) Validate() error {
	if c.BHTSize == 0 || c.BHTSize&(c.BHTSize-1) != 0 {
		return fmt.Errorf("bht_size must be a power of two")
	}
	if c.BTBSize == 0 || c.BTBSize&(c.BTBSize-1) != 0 {
		return fmt.Errorf("btb_size must be a power of two")
	}
	return nil
}

// PredictorStats holds statistics for the branch predictor.
type PredictorStats struct {
	// Predictions counts fetched control flow ops, wrong path included.
	Predictions uint64
	// Updates counts retired control flow ops and Correct those that
	// followed the predicted path.
	Updates uint64
	Correct uint64
	// BTBHits and BTBMisses count indirect jump lookups.
	BTBHits   uint64
	BTBMisses uint64
}

// Accuracy returns the fraction of retired control flow ops that were
// predicted correctly, as a percentage.
func (s PredictorStats) Accuracy() float64 {
	if s.Updates == 0 {
		return 0
	}
	return float64(s.Correct) / float64(s.Updates) * 100
}

// Predictor guesses the next fetch PC after a control flow op.
//
// Conditional branches use a table of 2-bit saturating counters (bimodal).
// Direct jumps always go to their target. Indirect jumps look their target
// up in a branch target buffer and fall through on a miss.
type Predictor struct {
	// 0=strongly not taken, 1=weakly not taken, 2=weakly taken,
	// 3=strongly taken
	bht []uint8

	btb      []btbEntry
	btbValid []bool

	stats PredictorStats
}

type btbEntry struct {
	pc     uint64
	target uint64
}

// NewPredictor creates a predictor with every counter weakly taken.
func NewPredictor(config PredictorConfig) *Predictor {
	p := &Predictor{
		bht:      make([]uint8, config.BHTSize),
		btb:      make([]btbEntry, config.BTBSize),
		btbValid: make([]bool, config.BTBSize),
	}

	for i := range p.bht {
		p.bht[i] = 2
	}

	return p
}

func (p *Predictor) bhtIndex(pc uint64) int {
	return int((pc / insts.InstSize) & uint64(len(p.bht)-1))
}

func (p *Predictor) btbIndex(pc uint64) int {
	return int((pc / insts.InstSize) & uint64(len(p.btb)-1))
}

// Predict returns the predicted next PC after op.
func (p *Predictor) Predict(op *insts.MicroOp) uint64 {
	if !op.IsControlFlow() {
		return op.FallThrough()
	}
	p.stats.Predictions++

	switch op.Func {
	case insts.FuncJAL:
		return uint64(int64(op.PC) + op.Imm)
	case insts.FuncJALR:
		i := p.btbIndex(op.PC)
		if p.btbValid[i] && p.btb[i].pc == op.PC {
			p.stats.BTBHits++
			return p.btb[i].target
		}
		p.stats.BTBMisses++
		return op.FallThrough()
	}

	if p.bht[p.bhtIndex(op.PC)] >= 2 {
		return uint64(int64(op.PC) + op.Imm)
	}
	return op.FallThrough()
}

// Update trains the predictor with the resolved outcome of a retired op.
// mispredicted reports whether the fetched path after op was wrong.
func (p *Predictor) Update(
	op *insts.MicroOp,
	taken bool,
	target uint64,
	mispredicted bool,
) {
	if !op.IsControlFlow() {
		return
	}

	p.stats.Updates++
	if !mispredicted {
		p.stats.Correct++
	}

	if op.IsConditional() {
		i := p.bhtIndex(op.PC)
		counter := p.bht[i]
		switch {
		case taken && counter < 3:
			p.bht[i] = counter + 1
		case !taken && counter > 0:
			p.bht[i] = counter - 1
		}
		return
	}

	if op.Func == insts.FuncJALR {
		i := p.btbIndex(op.PC)
		p.btb[i] = btbEntry{pc: op.PC, target: target}
		p.btbValid[i] = true
	}
}

// Stats returns the predictor statistics.
func (p *Predictor) Stats() PredictorStats {
	return p.stats
}
