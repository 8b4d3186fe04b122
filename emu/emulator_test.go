package emu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/lizard/emu"
	"github.com/sarchlab/lizard/insts"
)

var _ = Describe("Emulator", func() {
	It("should start at the program entry", func() {
		prog := insts.MustAssemble(0x1000, "nop")
		e := emu.NewEmulator(prog)
		Expect(e.RegFile().PC).To(Equal(uint64(0x1000)))
	})

	It("should halt when the PC runs off the program", func() {
		prog := insts.MustAssemble(0x1000, "li a0, 7")
		e := emu.NewEmulator(prog)

		Expect(e.Step().Halted).To(BeFalse())
		Expect(e.Step().Halted).To(BeTrue())
		Expect(e.ExitCode()).To(Equal(uint64(7)))
		Expect(e.InstructionCount()).To(Equal(uint64(1)))
	})

	It("should run a counting loop", func() {
		prog := insts.MustAssemble(0x1000,
			"li t0, 10",
			"li a0, 0",
			"loop: add a0, a0, t0",
			"addi t0, t0, -1",
			"bnez t0, loop",
		)
		e := emu.NewEmulator(prog)

		code, err := e.Run()
		Expect(err).ToNot(HaveOccurred())
		Expect(code).To(Equal(uint64(55)))
		Expect(e.InstructionCount()).To(Equal(uint64(2 + 3*10)))
	})

	It("should call and return from a function", func() {
		prog := insts.MustAssemble(0x1000,
			"li a0, 4",
			"jal square",
			"addi a0, a0, 1",
			"j done",
			"square: mul a0, a0, a0",
			"ret",
			"done: nop",
		)
		code, err := emu.NewEmulator(prog).Run()

		Expect(err).ToNot(HaveOccurred())
		Expect(code).To(Equal(uint64(17)))
	})

	It("should store and load through memory", func() {
		prog := insts.MustAssemble(0x1000,
			"li t0, 0x800",
			"ld t1, 0(t0)",
			"addi t1, t1, 5",
			"sd t1, 8(t0)",
			"ld a0, 8(t0)",
		)
		prog.Data[0x800] = 37
		e := emu.NewEmulator(prog)

		code, err := e.Run()
		Expect(err).ToNot(HaveOccurred())
		Expect(code).To(Equal(uint64(42)))
		Expect(e.Memory().Read(0x808)).To(Equal(uint64(42)))
		Expect(e.Memory().Addresses()).To(Equal([]uint64{0x800, 0x808}))
	})

	It("should never write register 0", func() {
		prog := insts.MustAssemble(0x1000, "addi zero, zero, 5", "mv a0, zero")
		e := emu.NewEmulator(prog)
		_, err := e.Run()

		Expect(err).ToNot(HaveOccurred())
		Expect(e.RegFile().X[0]).To(BeZero())
		Expect(e.ExitCode()).To(BeZero())
	})

	It("should continue at the trap vector after an exception", func() {
		prog := insts.MustAssemble(0x1000,
			"li a0, 1",
			"ecall",
			"li a0, 2",
		)
		prog.Place(0x2000, insts.MicroOp{Func: insts.FuncADD, Rd: 10, Rs1: 10, Imm: 40, UseImm: true})
		e := emu.NewEmulator(prog, emu.WithTrapVector(0x2000))

		Expect(e.Step().Cause).To(Equal(insts.CauseNone))
		res := e.Step()
		Expect(res.Cause).To(Equal(insts.CauseEnvironmentCall))
		Expect(e.RegFile().PC).To(Equal(uint64(0x2000)))

		code, err := e.Run()
		Expect(err).ToNot(HaveOccurred())
		Expect(code).To(Equal(uint64(41)))
		Expect(e.ExceptionCount()).To(Equal(uint64(1)))
	})

	It("should not write the destination of a faulting load", func() {
		prog := insts.MustAssemble(0x1000, "li a0, 3", "ld a0, 4(zero)")
		e := emu.NewEmulator(prog, emu.WithTrapVector(0x9000))

		code, err := e.Run()
		Expect(err).ToNot(HaveOccurred())
		Expect(code).To(Equal(uint64(3)))
	})

	It("should stop at the instruction limit", func() {
		prog := insts.MustAssemble(0x1000, "loop: j loop")
		e := emu.NewEmulator(prog, emu.WithMaxInstructions(100))

		_, err := e.Run()
		Expect(err).To(MatchError(ContainSubstring("max instructions")))
		Expect(e.InstructionCount()).To(Equal(uint64(100)))
	})
})
