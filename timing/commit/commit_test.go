package commit_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/lizard/insts"
	"github.com/sarchlab/lizard/timing/commit"
	"github.com/sarchlab/lizard/timing/control"
	"github.com/sarchlab/lizard/timing/rename"
)

func seqs(wbs []commit.Writeback) []control.Seq {
	out := make([]control.Seq, len(wbs))
	for i, wb := range wbs {
		out[i] = wb.Seq
	}
	return out
}

var _ = Describe("Unit", func() {
	var (
		config commit.Config
		unit   *commit.Unit
	)

	BeforeEach(func() {
		config = commit.Config{
			SeqIdxBits: 3,
			ROBSize:    8,
			Width:      2,
			AddPorts:   2,
		}
		unit = commit.NewUnit(config)
	})

	It("should not retire a result in the tick it arrives", func() {
		out := unit.Tick(commit.Inputs{
			Head:      0,
			Count:     1,
			Writeback: []commit.Writeback{{Seq: 0}},
		})
		Expect(out.Retired).To(BeEmpty())

		out = unit.Tick(commit.Inputs{Head: 0, Count: 1})
		Expect(seqs(out.Retired)).To(Equal([]control.Seq{0}))
		Expect(out.Commit).To(Equal(1))
	})

	It("should wait for the head even when younger results are present", func() {
		unit.Tick(commit.Inputs{
			Head:      0,
			Count:     3,
			Writeback: []commit.Writeback{{Seq: 1}, {Seq: 2}},
		})

		out := unit.Tick(commit.Inputs{Head: 0, Count: 3})
		Expect(out.Retired).To(BeEmpty())

		unit.Tick(commit.Inputs{
			Head:      0,
			Count:     3,
			Writeback: []commit.Writeback{{Seq: 0}},
		})
		out = unit.Tick(commit.Inputs{Head: 0, Count: 3})
		Expect(seqs(out.Retired)).To(Equal([]control.Seq{0, 1}))

		out = unit.Tick(commit.Inputs{Head: 2, Count: 1})
		Expect(seqs(out.Retired)).To(Equal([]control.Seq{2}))
	})

	It("should commit destination tags of valid results only", func() {
		unit.Tick(commit.Inputs{
			Head:  0,
			Count: 2,
			Writeback: []commit.Writeback{
				{Seq: 0, RdValid: true, Rd: 5},
				{Seq: 1, Status: commit.StatusException, RdValid: true, Rd: 6},
			},
		})

		out := unit.Tick(commit.Inputs{Head: 0, Count: 2})

		Expect(out.Commit).To(Equal(2))
		Expect(out.CommitTags).To(Equal([]rename.Preg{5}))
	})

	It("should end a retire group at an exception", func() {
		unit.Tick(commit.Inputs{
			Head:  0,
			Count: 2,
			Writeback: []commit.Writeback{
				{Seq: 0, Status: commit.StatusException, Cause: insts.CauseEnvironmentCall},
				{Seq: 1},
			},
		})

		out := unit.Tick(commit.Inputs{Head: 0, Count: 2})
		Expect(seqs(out.Retired)).To(Equal([]control.Seq{0}))
		Expect(out.Retired[0].Cause.String()).To(Equal("environment call"))
	})

	It("should end a retire group at a mispredict when asked to", func() {
		config.StopAfterMispredict = true
		unit = commit.NewUnit(config)
		unit.Tick(commit.Inputs{
			Head:      0,
			Count:     2,
			Writeback: []commit.Writeback{{Seq: 0, Mispredicted: true}, {Seq: 1}},
		})

		Expect(seqs(unit.Retire(0, 2).Retired)).To(Equal([]control.Seq{0}))
	})

	It("should drop results younger than a squash point", func() {
		unit.Tick(commit.Inputs{
			Head:      6,
			Count:     5,
			Writeback: []commit.Writeback{{Seq: 7}, {Seq: 1}},
		})

		unit.Tick(commit.Inputs{
			Head:   6,
			Count:  5,
			Squash: control.SquashRequest{Call: true, Seq: 0},
		})

		rob := unit.State().ROB
		Expect(rob.CheckDone(7)).To(BeTrue())
		Expect(rob.CheckDone(1)).To(BeFalse())
	})

	It("should drop every result on flush", func() {
		unit.Tick(commit.Inputs{
			Head:      0,
			Count:     2,
			Writeback: []commit.Writeback{{Seq: 1}},
		})
		unit.Tick(commit.Inputs{Head: 0, Count: 2, Flush: true})

		Expect(unit.State().ROB.Occupancy()).To(BeZero())
	})

	It("should report ahead of the tick exactly what the tick retires", func() {
		unit.Tick(commit.Inputs{
			Head:  0,
			Count: 3,
			Writeback: []commit.Writeback{
				{Seq: 0, RdValid: true, Rd: 3},
				{Seq: 1},
			},
		})

		before := unit.Retire(0, 3)
		Expect(before.Commit).To(Equal(2))
		Expect(before.CommitTags).To(Equal([]rename.Preg{3}))

		out := unit.Tick(commit.Inputs{Head: 0, Count: 3})
		Expect(out).To(Equal(before))
		Expect(unit.Retire(2, 1).Retired).To(BeEmpty())
	})

	It("should reject a buffer that is not a power of two", func() {
		config.ROBSize = 6
		Expect(config.Validate()).To(HaveOccurred())
	})

	Describe("wired to the renaming and control flow managers", func() {
		var (
			dfm *rename.DataFlowManager
			cfm *control.ControlFlowManager
		)

		BeforeEach(func() {
			dfm = rename.NewDataFlowManager(rename.DataFlowConfig{
				NumAregs: 4, NumPregs: 10, NumSnapshots: 2,
				SrcPorts: 2, DstPorts: 1, WritePorts: 2, CommitPorts: 2, ReadPorts: 2,
				FreeSnapshotPorts: 1,
			})
			cfm = control.NewControlFlowManager(control.Config{
				SeqIdxBits: 3, RegisterPorts: 1, CommitPorts: 2,
			})
		})

		It("should retire out-of-order results in program order", func() {
			type inflight struct {
				seq control.Seq
				tag rename.Preg
			}
			var ops []inflight
			for _, areg := range []rename.Areg{1, 2, 1} {
				reg := cfm.Tick(control.Inputs{
					Register: []control.RegisterRequest{{PC: uint64(len(ops) * 4)}},
				})
				dst := dfm.Tick(rename.DataFlowInputs{GetDst: []rename.Areg{areg}})
				ops = append(ops, inflight{reg.Register[0].Seq, dst.GetDst[0].Tag})
			}

			var retired []control.Seq
			tick := func(wbs ...commit.Writeback) {
				head, _ := cfm.GetHead()
				out := unit.Tick(commit.Inputs{
					Head:      head,
					Count:     cfm.Count(),
					Writeback: wbs,
				})
				cfm.Tick(control.Inputs{Commit: out.Commit})
				dfm.Tick(rename.DataFlowInputs{CommitTag: out.CommitTags})
				retired = append(retired, seqs(out.Retired)...)
			}

			wb := func(i int) commit.Writeback {
				return commit.Writeback{Seq: ops[i].seq, RdValid: true, Rd: ops[i].tag}
			}

			tick(wb(2))
			tick(wb(1))
			Expect(retired).To(BeEmpty())

			tick(wb(0))
			tick()
			tick()

			Expect(retired).To(Equal([]control.Seq{0, 1, 2}))
			Expect(cfm.Count()).To(BeZero())
			Expect(dfm.ArchPreg(1)).To(Equal(ops[2].tag))
			Expect(dfm.ArchPreg(2)).To(Equal(ops[1].tag))
			Expect(dfm.FreeCount()).To(Equal(10 - 1 - 3))
		})
	})
})
