package pipeline_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/lizard/insts"
	"github.com/sarchlab/lizard/timing/pipeline"
)

var _ = Describe("Predictor", func() {
	var p *pipeline.Predictor

	BeforeEach(func() {
		p = pipeline.NewPredictor(pipeline.DefaultPredictorConfig())
	})

	It("should fall through after ordinary ops", func() {
		op := &insts.MicroOp{Func: insts.FuncADD, PC: 0x100}
		Expect(p.Predict(op)).To(Equal(uint64(0x104)))
		Expect(p.Stats().Predictions).To(BeZero())
	})

	It("should always follow direct jumps", func() {
		op := &insts.MicroOp{Func: insts.FuncJAL, Rd: 1, Imm: 0x40, PC: 0x100}
		Expect(p.Predict(op)).To(Equal(uint64(0x140)))
	})

	It("should start weakly taken and learn not taken", func() {
		op := &insts.MicroOp{Func: insts.FuncBNE, Rs1: 5, Imm: -8, PC: 0x100}
		Expect(p.Predict(op)).To(Equal(uint64(0xF8)))

		p.Update(op, false, 0x104, true)
		Expect(p.Predict(op)).To(Equal(uint64(0x104)))

		p.Update(op, true, 0xF8, true)
		p.Update(op, true, 0xF8, false)
		Expect(p.Predict(op)).To(Equal(uint64(0xF8)))
	})

	It("should saturate the counters", func() {
		op := &insts.MicroOp{Func: insts.FuncBEQ, Imm: 16, PC: 0x200}
		for i := 0; i < 5; i++ {
			p.Update(op, true, 0x210, false)
		}
		p.Update(op, false, 0x204, true)
		Expect(p.Predict(op)).To(Equal(uint64(0x210)))
	})

	It("should learn indirect targets in the BTB", func() {
		op := &insts.MicroOp{Func: insts.FuncJALR, Rs1: 1, UseImm: true, PC: 0x300}
		Expect(p.Predict(op)).To(Equal(uint64(0x304)))
		Expect(p.Stats().BTBMisses).To(Equal(uint64(1)))

		p.Update(op, true, 0x1234, true)
		Expect(p.Predict(op)).To(Equal(uint64(0x1234)))
		Expect(p.Stats().BTBHits).To(Equal(uint64(1)))
	})

	It("should report accuracy over retired control flow", func() {
		op := &insts.MicroOp{Func: insts.FuncBEQ, Imm: 16, PC: 0x200}
		p.Update(op, true, 0x210, false)
		p.Update(op, true, 0x210, false)
		p.Update(op, false, 0x204, true)
		p.Update(op, true, 0x210, false)

		Expect(p.Stats().Updates).To(Equal(uint64(4)))
		Expect(p.Stats().Accuracy()).To(BeNumerically("~", 75.0))
	})
})
