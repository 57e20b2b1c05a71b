package sand_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/sandglass/internal/matrix"
	"github.com/san-kum/sandglass/internal/sand"
)

func cell(r, c int) matrix.Cell { return matrix.Cell{Row: r, Col: c} }

// stepUntil steps s until an event of kind k is reported and returns it.
func stepUntil(s *sand.Session, k sand.EventKind) sand.Event {
	for i := 0; i < 1000; i++ {
		if ev := s.Step(); ev.Kind == k {
			return ev
		}
	}
	Fail("event " + k.String() + " never reported")
	return sand.Event{}
}

func isDownSet(b matrix.Bitmap) bool {
	for r := 0; r < matrix.Size; r++ {
		for c := 0; c < matrix.Size; c++ {
			if !b.Get(cell(r, c)) {
				continue
			}
			if r > 0 && !b.Get(cell(r-1, c)) {
				return false
			}
			if c > 0 && !b.Get(cell(r, c-1)) {
				return false
			}
		}
	}
	return true
}

var _ = Describe("Session", func() {
	var s *sand.Session

	BeforeEach(func() {
		s = sand.NewSession()
	})

	Describe("reset", func() {
		It("starts with a full source and an empty target", func() {
			Expect(s.Source().Count()).To(Equal(64))
			Expect(s.Target().Count()).To(Equal(0))
			Expect(s.Grain().Active).To(BeFalse())
			Expect(s.Hole().Active).To(BeFalse())
			Expect(s.State()).To(Equal(sand.Dormant))
			Expect(s.Settled()).To(Equal(0))
		})

		It("discards every piece of in-flight state", func() {
			for i := 0; i < 40; i++ {
				s.Step()
			}
			Expect(s.Settled()).To(BeNumerically(">", 0))

			s.Reset()
			Expect(s.Source()).To(Equal(matrix.Full()))
			Expect(s.Static().Empty()).To(BeTrue())
			Expect(s.Grain().Active).To(BeFalse())
			Expect(s.Hole().Active).To(BeFalse())
			Expect(s.PrefersLeft()).To(BeFalse())
			Expect(s.Settled()).To(Equal(0))
			Expect(s.Order()).To(Equal(sand.NewDrainOrder()))
		})
	})

	Describe("the first grain", func() {
		It("spawns at the neck and drains the first order cell", func() {
			ev := s.Step()
			Expect(ev.Kind).To(Equal(sand.Spawned))
			Expect(ev.Cell).To(Equal(sand.Neck))
			Expect(s.Source().Get(cell(0, 0))).To(BeFalse())
			Expect(s.Source().Count()).To(Equal(63))
			Expect(s.Hole().Active).To(BeTrue())
			Expect(s.Hole().Cell).To(Equal(sand.Neck))
			Expect(s.State()).To(Equal(sand.Descending))
		})

		It("makes its first move by primary fall to (6,6)", func() {
			s.Step()
			ev := s.Step()
			Expect(ev.Kind).To(Equal(sand.Fell))
			Expect(ev.Cell).To(Equal(cell(6, 6)))
		})

		It("falls all the way down the diagonal and settles at the corner", func() {
			s.Step()
			for i := 6; i >= 0; i-- {
				ev := s.Step()
				Expect(ev.Kind).To(Equal(sand.Fell))
				Expect(ev.Cell).To(Equal(cell(i, i)))
			}
			ev := s.Step()
			Expect(ev.Kind).To(Equal(sand.Settled))
			Expect(ev.Cell).To(Equal(cell(0, 0)))
			Expect(ev.Index).To(Equal(1))
			Expect(s.Static().Get(cell(0, 0))).To(BeTrue())
			Expect(s.Grain().Active).To(BeFalse())
			Expect(s.State()).To(Equal(sand.Dormant))
		})
	})

	Describe("lateral spread", func() {
		BeforeEach(func() {
			stepUntil(s, sand.Settled)
		})

		It("alternates between down-right and left on symmetric ties", func() {
			stepUntil(s, sand.Spawned)
			ev := stepUntil(s, sand.Spread)
			Expect(ev.Cell).To(Equal(cell(0, 1)))
			Expect(s.PrefersLeft()).To(BeTrue())
			ev = stepUntil(s, sand.Settled)
			Expect(ev.Cell).To(Equal(cell(0, 1)))

			stepUntil(s, sand.Spawned)
			ev = stepUntil(s, sand.Spread)
			Expect(ev.Cell).To(Equal(cell(1, 0)))
			ev = stepUntil(s, sand.Settled)
			Expect(ev.Cell).To(Equal(cell(1, 0)))
		})

		It("does not toggle the flag when only one side is open", func() {
			stepUntil(s, sand.Settled)
			Expect(s.PrefersLeft()).To(BeTrue())
			stepUntil(s, sand.Settled)
			Expect(s.PrefersLeft()).To(BeTrue())
		})
	})

	Describe("hole marker", func() {
		It("climbs independently of the grain and vanishes after seven steps", func() {
			s.Step()
			for i := 1; i <= 6; i++ {
				s.Step()
				Expect(s.Hole().Active).To(BeTrue())
				Expect(s.Hole().Cell).To(Equal(cell(7-i, 7-i)))
			}
			s.Step()
			Expect(s.Hole().Active).To(BeFalse())
		})

		It("masks its cell in the source snapshot only", func() {
			for i := 0; i < 10; i++ {
				s.Step()
			}
			stepUntil(s, sand.Spawned)
			s.Step()
			snap := s.Snapshot()
			Expect(snap.Hole.Active).To(BeTrue())
			Expect(snap.Hole.Cell).To(Equal(cell(6, 6)))
			Expect(snap.Hole.Mask(snap.Source).Get(cell(6, 6))).To(BeFalse())
			Expect(snap.Source.Get(cell(6, 6))).To(BeTrue())
		})
	})

	Describe("a full cycle", func() {
		It("conserves mass and keeps the settled field a down-set at every step", func() {
			prevStatic := s.Static()
			for !s.Finished() {
				s.Step()
				Expect(s.Mass()).To(Equal(64))
				Expect(isDownSet(s.Static())).To(BeTrue())
				g := s.Grain()
				if g.Active {
					Expect(s.Static().Get(g.Cell)).To(BeFalse())
				}
				Expect(s.Static().Union(prevStatic)).To(Equal(s.Static()))
				prevStatic = s.Static()
			}
		})

		It("finishes after exactly 64 settlements with an empty source", func() {
			settled := 0
			var last sand.Event
			for !s.Finished() {
				last = s.Step()
				if last.Kind == sand.Settled || last.Kind == sand.Drained {
					settled++
				}
			}
			Expect(last.Kind).To(Equal(sand.Drained))
			Expect(last.Cell).To(Equal(sand.Neck))
			Expect(settled).To(Equal(64))
			Expect(s.Settled()).To(Equal(64))
			Expect(s.Source().Empty()).To(BeTrue())
			Expect(s.Static()).To(Equal(matrix.Full()))
			Expect(s.State()).To(Equal(sand.Finished))
		})

		It("freezes both fields once finished", func() {
			for !s.Finished() {
				s.Step()
			}
			src, tgt := s.Source(), s.Target()
			for i := 0; i < 20; i++ {
				Expect(s.Step().Kind).To(Equal(sand.Idle))
			}
			Expect(s.Source()).To(Equal(src))
			Expect(s.Target()).To(Equal(tgt))
		})

		It("is reproducible", func() {
			other := sand.NewSession()
			for !s.Finished() {
				Expect(s.Step()).To(Equal(other.Step()))
			}
		})
	})
})
