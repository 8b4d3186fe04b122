package loader_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/lizard/insts"
	"github.com/sarchlab/lizard/loader"
)

const sumYAML = `
name: sum
base: 0x2000
text:
  - li t0, 3
  - "loop: add a0, a0, t0"
  - addi t0, t0, -1
  - bnez t0, loop
data:
  "0x8000": 42
  "16": 7
exit: 6
`

var _ = Describe("Loader", func() {
	var dir string

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
	})

	Describe("Parse", func() {
		It("should assemble the text at the base", func() {
			prog, err := loader.Parse([]byte(sumYAML))
			Expect(err).ToNot(HaveOccurred())

			Expect(prog.Name).To(Equal("sum"))
			Expect(prog.Entry).To(Equal(uint64(0x2000)))
			Expect(prog.Len()).To(Equal(4))
			Expect(prog.At(0x200C).Func).To(Equal(insts.FuncBNE))
			Expect(prog.At(0x200C).Imm).To(Equal(int64(-8)))
		})

		It("should load data words and the expected exit code", func() {
			prog, err := loader.Parse([]byte(sumYAML))
			Expect(err).ToNot(HaveOccurred())

			Expect(prog.Data).To(HaveKeyWithValue(uint64(0x8000), uint64(42)))
			Expect(prog.Data).To(HaveKeyWithValue(uint64(16), uint64(7)))
			Expect(prog.Exit).ToNot(BeNil())
			Expect(*prog.Exit).To(Equal(uint64(6)))
		})

		It("should accept JSON", func() {
			prog, err := loader.Parse([]byte(`{"text": ["li a0, 1", "ecall"]}`))
			Expect(err).ToNot(HaveOccurred())

			Expect(prog.Entry).To(Equal(uint64(loader.DefaultBase)))
			Expect(prog.Exit).To(BeNil())
		})

		It("should place the handler at the trap vector", func() {
			prog, err := loader.Parse([]byte(`
text: [ecall]
trap_vector: 0x4000
handler: ["li a0, 9"]
`))
			Expect(err).ToNot(HaveOccurred())
			Expect(prog.TrapVector).To(Equal(uint64(0x4000)))
			Expect(prog.At(0x4000).Func).To(Equal(insts.FuncADD))
		})

		It("should reject unknown fields", func() {
			_, err := loader.Parse([]byte("text: [nop]\nentry_point: 4\n"))
			Expect(err).To(HaveOccurred())
		})

		It("should reject empty programs", func() {
			_, err := loader.Parse([]byte("name: empty\n"))
			Expect(err).To(MatchError(ContainSubstring("no text")))
		})

		It("should reject bad assembly", func() {
			_, err := loader.Parse([]byte("text: [frob a0]\n"))
			Expect(err).To(MatchError(ContainSubstring("unknown mnemonic")))
		})

		It("should reject misaligned data", func() {
			_, err := loader.Parse([]byte("text: [nop]\ndata: {\"0x3\": 1}\n"))
			Expect(err).To(MatchError(ContainSubstring("word aligned")))
		})

		It("should reject a handler overlapping the text", func() {
			_, err := loader.Parse([]byte(`
base: 0x1000
text: [nop, nop]
trap_vector: 0x1004
handler: [nop]
`))
			Expect(err).To(MatchError(ContainSubstring("overlaps")))
		})
	})

	Describe("Load", func() {
		It("should read a file from disk", func() {
			path := filepath.Join(dir, "sum.yaml")
			Expect(os.WriteFile(path, []byte(sumYAML), 0644)).To(Succeed())

			prog, err := loader.Load(path)
			Expect(err).ToNot(HaveOccurred())
			Expect(prog.Len()).To(Equal(4))
		})

		It("should return an error for a missing file", func() {
			_, err := loader.Load(filepath.Join(dir, "missing.yaml"))
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Save and Disassemble", func() {
		It("should write a file that loads back to the same program", func() {
			prog, err := loader.Parse([]byte(sumYAML))
			Expect(err).ToNot(HaveOccurred())

			path := filepath.Join(dir, "out.yaml")
			Expect(loader.Save(loader.Disassemble(prog), path)).To(Succeed())

			again, err := loader.Load(path)
			Expect(err).ToNot(HaveOccurred())
			Expect(again.Entry).To(Equal(prog.Entry))
			Expect(again.Data).To(Equal(prog.Data))
			for pc, op := range prog.Ops {
				Expect(again.At(pc)).To(Equal(op))
			}
		})
	})
})
