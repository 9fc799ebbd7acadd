// Package la is the sparse linear algebra backend. Ranks run in-process as
// goroutines (SPMD) and exchange data only through the collectives of Comm.
package la

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/notargets/femesh/utils"
)

// ErrAborted is raised inside a collective when another rank has failed.
var ErrAborted = errors.New("world aborted")

// Packet is the unit of point to point exchange.
type Packet struct {
	From   int
	Ints   []int
	Floats []float64
}

type barrier struct {
	mu      sync.Mutex
	cond    *sync.Cond
	size    int
	waiting int
	gen     uint64
	aborted bool
}

func newBarrier(size int) *barrier {
	b := &barrier{size: size}
	b.cond = sync.NewCond(&b.mu)
	return b
}

func (b *barrier) wait() (ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.aborted {
		return false
	}
	gen := b.gen
	b.waiting++
	if b.waiting == b.size {
		b.waiting = 0
		b.gen++
		b.cond.Broadcast()
		return true
	}
	for gen == b.gen && !b.aborted {
		b.cond.Wait()
	}
	return gen != b.gen
}

func (b *barrier) abort() {
	b.mu.Lock()
	b.aborted = true
	b.cond.Broadcast()
	b.mu.Unlock()
}

// World is the shared state of one SPMD run.
type World struct {
	size  int
	bar   *barrier
	mb    *utils.MailBox[Packet]
	slots []any
	mu    sync.Mutex
	cause error
}

func NewWorld(size int) *World {
	if size < 1 {
		panic(fmt.Errorf("world size must be positive, have %d", size))
	}
	return &World{
		size:  size,
		bar:   newBarrier(size),
		mb:    utils.NewMailBox[Packet](size),
		slots: make([]any, size),
	}
}

func (w *World) Size() int { return w.size }

// Comm returns the communicator for one rank.
func (w *World) Comm(rank int) *Comm {
	if rank < 0 || rank >= w.size {
		panic(fmt.Errorf("rank %d out of range [0,%d)", rank, w.size))
	}
	return &Comm{w: w, rank: rank}
}

func (w *World) abort(err error) {
	w.mu.Lock()
	if w.cause == nil && !errors.Is(err, ErrAborted) {
		w.cause = err
	}
	w.mu.Unlock()
	w.bar.abort()
}

func (w *World) Cause() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cause
}

// Run executes fn once per rank and waits for all of them. A panic or error
// on any rank aborts the world and Run returns the originating error.
func Run(size int, fn func(c *Comm) error) error {
	var (
		w = NewWorld(size)
		g errgroup.Group
	)
	for rank := 0; rank < size; rank++ {
		c := w.Comm(rank)
		g.Go(func() (err error) {
			defer func() {
				if rec := recover(); rec != nil {
					if e, ok := rec.(error); ok {
						err = fmt.Errorf("rank %d: %w", rank, e)
					} else {
						err = fmt.Errorf("rank %d: %v", rank, rec)
					}
				}
				if err != nil {
					w.abort(err)
				}
			}()
			return fn(c)
		})
	}
	err := g.Wait()
	if cause := w.Cause(); cause != nil {
		return cause
	}
	return err
}

// Comm is one rank's handle on the world.
type Comm struct {
	w    *World
	rank int
}

func (c *Comm) Rank() int { return c.rank }
func (c *Comm) Size() int { return c.w.size }

func (c *Comm) Barrier() {
	if !c.w.bar.wait() {
		panic(ErrAborted)
	}
}

func (c *Comm) allGather(v any) (out []any) {
	c.w.slots[c.rank] = v
	c.Barrier()
	out = make([]any, c.w.size)
	copy(out, c.w.slots)
	c.Barrier()
	return
}

func (c *Comm) AllGatherInt(v int) (out []int) {
	all := c.allGather(v)
	out = make([]int, len(all))
	for i, a := range all {
		out[i] = a.(int)
	}
	return
}

// AllGatherInts returns every rank's slice, indexed by rank. The returned
// slices are shared and must not be modified.
func (c *Comm) AllGatherInts(v []int) (out [][]int) {
	all := c.allGather(v)
	out = make([][]int, len(all))
	for i, a := range all {
		out[i] = a.([]int)
	}
	return
}

func (c *Comm) AllGatherFloats(v []float64) (out [][]float64) {
	all := c.allGather(v)
	out = make([][]float64, len(all))
	for i, a := range all {
		out[i] = a.([]float64)
	}
	return
}

func (c *Comm) AllReduceSumInt(v int) (sum int) {
	for _, a := range c.AllGatherInt(v) {
		sum += a
	}
	return
}

func (c *Comm) AllReduceMaxInt(v int) (max int) {
	for i, a := range c.AllGatherInt(v) {
		if i == 0 || a > max {
			max = a
		}
	}
	return
}

func (c *Comm) AllReduceSumFloat(v float64) (sum float64) {
	// Summation in rank order keeps the result identical on every rank
	for _, a := range c.AllGatherFloats([]float64{v}) {
		sum += a[0]
	}
	return
}

// AllReduceSumInts is an elementwise sum, every rank must pass the same length.
func (c *Comm) AllReduceSumInts(v []int) (sum []int) {
	sum = make([]int, len(v))
	for rank, a := range c.AllGatherInts(v) {
		if len(a) != len(v) {
			panic(fmt.Errorf("rank %d contributed %d values, expected %d", rank, len(a), len(v)))
		}
		for i := range a {
			sum[i] += a[i]
		}
	}
	return
}

// BcastInts returns root's slice on every rank.
func (c *Comm) BcastInts(root int, v []int) (out []int) {
	var all [][]int
	if c.rank == root {
		all = c.AllGatherInts(v)
	} else {
		all = c.AllGatherInts(nil)
	}
	out = make([]int, len(all[root]))
	copy(out, all[root])
	return
}

// Exchange sends one packet to each destination in out and returns every
// packet addressed to this rank, sorted by sender.
func (c *Comm) Exchange(out map[int]Packet) (in []Packet) {
	var (
		mb    = c.w.mb
		dests = make([]int, 0, len(out))
	)
	for dest := range out {
		dests = append(dests, dest)
	}
	sort.Ints(dests)
	for _, dest := range dests {
		pk := out[dest]
		pk.From = c.rank
		mb.PostMessage(c.rank, dest, pk)
	}
	mb.DeliverMyMessages(c.rank)
	c.Barrier()
	mb.ReceiveMyMessages(c.rank)
	in = append(in, mb.ReceiveMsgQs[c.rank].Cells()...)
	mb.ClearMyMessages(c.rank)
	c.Barrier()
	sort.SliceStable(in, func(i, j int) bool { return in[i].From < in[j].From })
	return
}
