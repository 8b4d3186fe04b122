package benchmarks

import "fmt"

// GetMicrobenchmarks returns the standard set of microbenchmarks. Each one
// targets a specific behavior of the out-of-order core.
func GetMicrobenchmarks() []Benchmark {
	return []Benchmark{
		independentALU(),
		dependencyChain(),
		branchLoop(),
		alternatingBranch(),
		mulDivMix(),
		storeLoad(),
		functionCalls(),
	}
}

// GetCoreBenchmarks returns a minimal set for quick validation.
func GetCoreBenchmarks() []Benchmark {
	return []Benchmark{
		dependencyChain(),
		branchLoop(),
		storeLoad(),
	}
}

// Independent ALU - adds to five registers, measures rename and issue width.
func independentALU() Benchmark {
	lines := make([]string, 0, 22)
	for i := 0; i < 4; i++ {
		lines = append(lines,
			"addi t0, t0, 1",
			"addi t1, t1, 1",
			"addi t2, t2, 1",
			"addi t3, t3, 1",
			"addi a0, a0, 1",
		)
	}

	return Benchmark{
		Name:         "independent_alu",
		Description:  "20 adds to five registers - measures dispatch and issue width",
		Program:      lines,
		ExpectedExit: 4,
	}
}

// Dependency Chain - every op reads the previous result.
func dependencyChain() Benchmark {
	return Benchmark{
		Name:         "dependency_chain",
		Description:  "20 dependent adds (a0 = a0 + 1) - measures wakeup latency",
		Program:      buildDependencyChain(20),
		ExpectedExit: 20,
	}
}

func buildDependencyChain(n int) []string {
	lines := make([]string, n)
	for i := range lines {
		lines[i] = "addi a0, a0, 1"
	}
	return lines
}

// Branch Loop - a counted loop the predictor learns after two iterations.
func branchLoop() Benchmark {
	return Benchmark{
		Name:        "branch_loop",
		Description: "64-iteration counted loop - measures predicted taken branches",
		Program: []string{
			"li t0, 64",
			"loop: addi a0, a0, 2",
			"addi t0, t0, -1",
			"bnez t0, loop",
		},
		ExpectedExit: 128,
	}
}

// Alternating Branch - a branch whose direction flips every iteration.
func alternatingBranch() Benchmark {
	return Benchmark{
		Name:        "alternating_branch",
		Description: "branch taken on odd iterations - measures misprediction recovery",
		Program: []string{
			"li t0, 32",
			"loop: andi t1, t0, 1",
			"beqz t1, skip",
			"addi a0, a0, 1",
			"skip: addi t0, t0, -1",
			"bnez t0, loop",
		},
		ExpectedExit: 16,
	}
}

// Mul/Div Mix - long latency ops with independent work between them.
func mulDivMix() Benchmark {
	return Benchmark{
		Name:        "muldiv_mix",
		Description: "multiply and divide with independent adds - measures latency hiding",
		Program: []string{
			"li t0, 7",
			"li t1, 6",
			"mul t2, t0, t1",
			"addi t3, t3, 1",
			"addi t4, t4, 1",
			"div t5, t2, t0",
			"addi t3, t3, 1",
			"addi t4, t4, 1",
			"rem t6, t2, t3",
			"add a0, t2, t5",
			"add a0, a0, t6",
		},
		ExpectedExit: 48,
	}
}

// Store/Load - stores followed by loads of the same words.
func storeLoad() Benchmark {
	return Benchmark{
		Name:        "store_load",
		Description: "8 stores then 8 loads - measures load ordering behind stores",
		Program:     buildStoreLoad(8),
		Data: map[uint64]uint64{
			0x8000: 100,
		},
		ExpectedExit: 136,
	}
}

func buildStoreLoad(n int) []string {
	lines := []string{
		"li sp, 0x8000",
		"ld a0, 0(sp)",
	}
	for i := 1; i <= n; i++ {
		lines = append(lines,
			fmt.Sprintf("li t0, %d", i),
			fmt.Sprintf("sd t0, %d(sp)", 8*i),
		)
	}
	for i := 1; i <= n; i++ {
		lines = append(lines,
			fmt.Sprintf("ld t1, %d(sp)", 8*i),
			"add a0, a0, t1",
		)
	}
	return lines
}

// Function Calls - jal/jalr pairs, returns predicted by the BTB.
func functionCalls() Benchmark {
	return Benchmark{
		Name:        "function_calls",
		Description: "16 calls to a leaf function - measures jump target prediction",
		Program: []string{
			"li s0, 16",
			"loop: jal ra, inc",
			"addi s0, s0, -1",
			"bnez s0, loop",
			"j done",
			"inc: addi a0, a0, 3",
			"ret",
			"done: addi a0, a0, 0",
		},
		ExpectedExit: 48,
	}
}
