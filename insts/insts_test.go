package insts_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/lizard/insts"
)

var _ = Describe("MicroOp", func() {
	It("should classify functions by unit", func() {
		Expect(insts.FuncADD.Class()).To(Equal(insts.ClassALU))
		Expect(insts.FuncREMU.Class()).To(Equal(insts.ClassMulDiv))
		Expect(insts.FuncSD.Class()).To(Equal(insts.ClassMemory))
		Expect(insts.FuncJALR.Class()).To(Equal(insts.ClassBranch))
		Expect(insts.FuncECALL.Class()).To(Equal(insts.ClassSystem))
	})

	It("should report operand usage for register ops", func() {
		op := insts.MicroOp{Func: insts.FuncSUB, Rd: 3, Rs1: 1, Rs2: 2}
		Expect(op.HasRd()).To(BeTrue())
		Expect(op.ReadsRs1()).To(BeTrue())
		Expect(op.ReadsRs2()).To(BeTrue())
	})

	It("should not read rs2 for immediate ops", func() {
		op := insts.MicroOp{Func: insts.FuncADD, Rd: 3, Rs1: 1, Imm: 4, UseImm: true}
		Expect(op.ReadsRs2()).To(BeFalse())
	})

	It("should treat writes to x0 as having no destination", func() {
		op := insts.MicroOp{Func: insts.FuncADD, Rd: 0, Rs1: 1, Rs2: 2}
		Expect(op.HasRd()).To(BeFalse())
	})

	It("should read both sources for stores and branches", func() {
		st := insts.MicroOp{Func: insts.FuncSD, Rs1: 1, Rs2: 2, UseImm: true}
		Expect(st.HasRd()).To(BeFalse())
		Expect(st.ReadsRs2()).To(BeTrue())

		br := insts.MicroOp{Func: insts.FuncBLT, Rs1: 1, Rs2: 2}
		Expect(br.IsControlFlow()).To(BeTrue())
		Expect(br.IsConditional()).To(BeTrue())
		Expect(br.HasRd()).To(BeFalse())
	})

	It("should treat jumps as unconditional control flow", func() {
		jal := insts.MicroOp{Func: insts.FuncJAL, Rd: 1}
		Expect(jal.IsControlFlow()).To(BeTrue())
		Expect(jal.IsConditional()).To(BeFalse())
		Expect(jal.ReadsRs1()).To(BeFalse())
		Expect(jal.HasRd()).To(BeTrue())
	})

	It("should render ops in assembly syntax", func() {
		Expect((&insts.MicroOp{Func: insts.FuncADD, Rd: 1, Rs1: 2, Imm: -3, UseImm: true}).String()).
			To(Equal("addi x1, x2, -3"))
		Expect((&insts.MicroOp{Func: insts.FuncLD, Rd: 5, Rs1: 2, Imm: 16, UseImm: true}).String()).
			To(Equal("ld x5, 16(x2)"))
		Expect((&insts.MicroOp{Func: insts.FuncECALL}).String()).To(Equal("ecall"))
	})
})

var _ = Describe("Program", func() {
	It("should list ops in PC order", func() {
		prog := insts.NewProgram(0x100)
		prog.Place(0x108, insts.MicroOp{Func: insts.FuncNOP})
		prog.Place(0x100, insts.MicroOp{Func: insts.FuncECALL})
		prog.Place(0x104, insts.MicroOp{Func: insts.FuncADD, Rd: 1, UseImm: true})

		listing := prog.Listing()
		Expect(listing).To(HaveLen(3))
		Expect(listing[0].PC).To(Equal(uint64(0x100)))
		Expect(listing[2].PC).To(Equal(uint64(0x108)))
		Expect(prog.At(0x10c)).To(BeNil())
	})
})
