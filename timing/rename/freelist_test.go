package rename_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/lizard/timing/rename"
)

var _ = Describe("FreeList", func() {
	var (
		config rename.FreeListConfig
		fl     *rename.FreeList
	)

	BeforeEach(func() {
		config = rename.FreeListConfig{
			Size:         4,
			AllocPorts:   2,
			FreePorts:    2,
			NumSnapshots: 2,
			UsedInitial:  1,
		}
		fl = rename.NewFreeList(config)
	})

	It("should start with the initial indices in use", func() {
		Expect(fl.State().Free).To(Equal([]bool{false, true, true, true}))
	})

	It("should allocate the lowest free indices first", func() {
		out := fl.Tick(rename.FreeListInputs{Alloc: 2})

		Expect(out.Alloc).To(Equal([]rename.AllocResult{
			{Success: true, Index: 1},
			{Success: true, Index: 2},
		}))
		Expect(fl.State().FreeCount()).To(Equal(1))
	})

	It("should fail cleanly when the pool is exhausted", func() {
		fl.Tick(rename.FreeListInputs{Alloc: 2})
		before := fl.State()

		out := fl.Tick(rename.FreeListInputs{Alloc: 2})

		Expect(out.Alloc[0]).To(Equal(rename.AllocResult{Success: true, Index: 3}))
		Expect(out.Alloc[1].Success).To(BeFalse())
		Expect(fl.State().FreeCount()).To(Equal(before.FreeCount() - 1))

		out = fl.Tick(rename.FreeListInputs{Alloc: 1})
		Expect(out.Alloc[0].Success).To(BeFalse())
		Expect(fl.CanAlloc(1)).To(BeFalse())
	})

	It("should not reallocate an index freed in the same tick", func() {
		fl.Tick(rename.FreeListInputs{Alloc: 2})
		fl.Tick(rename.FreeListInputs{Alloc: 1})

		out := fl.Tick(rename.FreeListInputs{Alloc: 1, Free: []int{0}})

		Expect(out.Alloc[0].Success).To(BeFalse())
		Expect(fl.State().Free[0]).To(BeTrue())

		out = fl.Tick(rename.FreeListInputs{Alloc: 1})
		Expect(out.Alloc[0]).To(Equal(rename.AllocResult{Success: true, Index: 0}))
	})

	It("should panic on a double free", func() {
		Expect(func() {
			fl.Tick(rename.FreeListInputs{Free: []int{2}})
		}).To(Panic())
	})

	It("should panic when more ports are used than configured", func() {
		Expect(func() {
			fl.Tick(rename.FreeListInputs{Alloc: 3})
		}).To(Panic())
	})

	It("should return allocations made after a snapshot on restore", func() {
		fl.Tick(rename.FreeListInputs{Alloc: 1})
		fl.Tick(rename.FreeListInputs{
			Snapshot: rename.SnapshotCall{Call: true, ID: 1},
		})
		atSnapshot := fl.State().Free

		fl.Tick(rename.FreeListInputs{Alloc: 2})
		Expect(fl.State().FreeCount()).To(Equal(0))

		fl.Tick(rename.FreeListInputs{
			Restore: rename.SnapshotCall{Call: true, ID: 1},
		})
		Expect(fl.State().Free).To(Equal(atSnapshot))
	})

	It("should count same-tick allocations as before the snapshot", func() {
		fl.Tick(rename.FreeListInputs{
			Alloc:    1,
			Snapshot: rename.SnapshotCall{Call: true, ID: 0},
		})
		fl.Tick(rename.FreeListInputs{
			Restore: rename.SnapshotCall{Call: true, ID: 0},
		})

		Expect(fl.State().Free).To(Equal([]bool{false, false, true, true}))
	})

	It("should keep frees of older allocations across a restore", func() {
		fl.Tick(rename.FreeListInputs{
			Snapshot: rename.SnapshotCall{Call: true, ID: 0},
		})
		fl.Tick(rename.FreeListInputs{Alloc: 1, Free: []int{0}})
		fl.Tick(rename.FreeListInputs{
			Restore: rename.SnapshotCall{Call: true, ID: 0},
		})

		Expect(fl.State().Free).To(Equal([]bool{true, true, true, true}))
	})

	It("should replace the bitmap and forget tracking on set", func() {
		fl.Tick(rename.FreeListInputs{
			Snapshot: rename.SnapshotCall{Call: true, ID: 0},
		})
		fl.Tick(rename.FreeListInputs{Alloc: 2})
		fl.Tick(rename.FreeListInputs{Set: []bool{true, false, true, false}})

		Expect(fl.State().Free).To(Equal([]bool{true, false, true, false}))

		fl.Tick(rename.FreeListInputs{
			Restore: rename.SnapshotCall{Call: true, ID: 0},
		})
		Expect(fl.State().Free).To(Equal([]bool{true, false, true, false}))
	})

	It("should reset to the initial state", func() {
		fl.Tick(rename.FreeListInputs{Alloc: 2})
		fl.Reset()
		Expect(fl.State()).To(Equal(config.NewFreeListState()))
	})

	It("should not alias the state returned by Next", func() {
		s := config.NewFreeListState()
		next, _ := config.Next(s, rename.FreeListInputs{Alloc: 1})

		Expect(s.Free[1]).To(BeTrue())
		Expect(next.Free[1]).To(BeFalse())
	})
})
