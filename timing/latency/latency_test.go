package latency_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/lizard/insts"
	"github.com/sarchlab/lizard/timing/latency"
)

var _ = Describe("Latency", func() {
	var table *latency.Table

	op := func(f insts.Func) *insts.MicroOp {
		return &insts.MicroOp{Func: f, Rd: 1, Rs1: 2, Rs2: 3}
	}

	BeforeEach(func() {
		table = latency.NewTable()
	})

	Describe("Default Timing Values", func() {
		It("should have correct ALU latency", func() {
			Expect(table.Config().ALULatency).To(Equal(uint64(1)))
		})

		It("should have correct load latency", func() {
			Expect(table.Config().LoadLatency).To(Equal(uint64(3)))
		})
	})

	Describe("Per-class latencies", func() {
		It("should return ALU latency for logic and shifts", func() {
			Expect(table.GetLatency(op(insts.FuncXOR))).To(Equal(uint64(1)))
			Expect(table.GetLatency(op(insts.FuncSRA))).To(Equal(uint64(1)))
		})

		It("should return MultiplyLatency for mul", func() {
			Expect(table.GetLatency(op(insts.FuncMUL))).To(Equal(uint64(3)))
		})

		It("should return the divide range for div and rem", func() {
			Expect(table.GetLatency(op(insts.FuncREMU))).To(Equal(uint64(20)))
			Expect(table.GetMinLatency(op(insts.FuncDIV))).To(Equal(uint64(10)))
		})

		It("should return fixed latencies for memory ops", func() {
			Expect(table.GetLatency(op(insts.FuncLD))).To(Equal(uint64(3)))
			Expect(table.GetLatency(op(insts.FuncSD))).To(Equal(uint64(1)))
			Expect(table.GetMinLatency(op(insts.FuncLD))).To(Equal(uint64(3)))
		})

		It("should return branch latency for jumps", func() {
			Expect(table.GetLatency(op(insts.FuncJALR))).To(Equal(uint64(1)))
		})

		It("should return 1 for a nil op", func() {
			Expect(table.GetLatency(nil)).To(Equal(uint64(1)))
			Expect(table.GetMinLatency(nil)).To(Equal(uint64(1)))
		})
	})

	Describe("Custom Configuration", func() {
		It("should use custom config values", func() {
			config := latency.DefaultTimingConfig()
			config.BranchLatency = 2
			config.SystemLatency = 7
			table = latency.NewTableWithConfig(config)

			Expect(table.GetLatency(op(insts.FuncBEQ))).To(Equal(uint64(2)))
			Expect(table.GetLatency(op(insts.FuncECALL))).To(Equal(uint64(7)))
		})
	})
})

var _ = Describe("TimingConfig", func() {
	It("should create valid default config", func() {
		Expect(latency.DefaultTimingConfig().Validate()).To(Succeed())
	})

	Describe("Validation", func() {
		It("should reject zero ALU latency", func() {
			config := latency.DefaultTimingConfig()
			config.ALULatency = 0
			Expect(config.Validate()).To(MatchError(ContainSubstring("alu_latency")))
		})

		It("should reject zero load latency", func() {
			config := latency.DefaultTimingConfig()
			config.LoadLatency = 0
			Expect(config.Validate()).To(HaveOccurred())
		})

		It("should reject inverted divide latency range", func() {
			config := latency.DefaultTimingConfig()
			config.DivideLatencyMin = 30
			Expect(config.Validate()).To(HaveOccurred())
		})
	})

	Describe("Clone", func() {
		It("should create independent copy", func() {
			original := latency.DefaultTimingConfig()
			clone := original.Clone()
			clone.ALULatency = 100

			Expect(original.ALULatency).To(Equal(uint64(1)))
			Expect(clone.ALULatency).To(Equal(uint64(100)))
		})
	})

	Describe("File Operations", func() {
		var tempDir string

		BeforeEach(func() {
			var err error
			tempDir, err = os.MkdirTemp("", "latency-test")
			Expect(err).NotTo(HaveOccurred())
		})

		AfterEach(func() {
			_ = os.RemoveAll(tempDir)
		})

		It("should save and load config", func() {
			original := latency.DefaultTimingConfig()
			original.ALULatency = 5
			original.LoadLatency = 10

			path := filepath.Join(tempDir, "timing.yaml")
			Expect(original.SaveConfig(path)).To(Succeed())

			loaded, err := latency.LoadConfig(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded).To(Equal(original))
		})

		It("should load JSON and keep defaults for missing fields", func() {
			path := filepath.Join(tempDir, "timing.json")
			Expect(os.WriteFile(path, []byte(`{"multiply_latency": 4}`), 0644)).To(Succeed())

			loaded, err := latency.LoadConfig(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.MultiplyLatency).To(Equal(uint64(4)))
			Expect(loaded.ALULatency).To(Equal(uint64(1)))
		})

		It("should return error for non-existent file", func() {
			_, err := latency.LoadConfig("/nonexistent/path/timing.yaml")
			Expect(err).To(HaveOccurred())
		})

		It("should return error for malformed input", func() {
			path := filepath.Join(tempDir, "invalid.yaml")
			Expect(os.WriteFile(path, []byte("alu_latency: [1, 2"), 0644)).To(Succeed())

			_, err := latency.LoadConfig(path)
			Expect(err).To(HaveOccurred())
		})
	})
})
