package la

import (
	"fmt"
	"math"
	"sort"
)

type Mode uint8

const (
	Serial Mode = iota
	Parallel
	Ghosted
)

func (m Mode) String() string {
	switch m {
	case Serial:
		return "SERIAL"
	case Parallel:
		return "PARALLEL"
	case Ghosted:
		return "GHOSTED"
	}
	return fmt.Sprintf("Mode(%d)", uint8(m))
}

const (
	kindSet = iota
	kindAdd
)

// Vector is a distributed vector with one contiguous owned range per rank.
// Off-process contributions are buffered until Close.
type Vector struct {
	comm    *Comm
	mode    Mode
	size    int
	offsets []int
	first   int
	data    []float64

	ghosts     []int
	ghostIndex map[int]int
	ghostData  []float64
	// ghostSend[rank] lists the owned indices that rank holds as ghosts
	ghostSend map[int][]int

	pendingSet map[int]float64
	pendingAdd map[int]float64
}

// NewVector is collective. In Serial mode every rank holds the whole vector
// and local is ignored.
func NewVector(c *Comm, size, local int, ghosts []int, mode Mode) (v *Vector) {
	v = &Vector{
		comm:       c,
		mode:       mode,
		size:       size,
		pendingSet: make(map[int]float64),
		pendingAdd: make(map[int]float64),
	}
	if mode == Serial {
		v.offsets = []int{0, size}
		v.data = make([]float64, size)
		return
	}
	v.offsets = make([]int, c.Size()+1)
	for rank, n := range c.AllGatherInt(local) {
		v.offsets[rank+1] = v.offsets[rank] + n
	}
	if v.offsets[c.Size()] != size {
		panic(fmt.Errorf("local sizes sum to %d, global size is %d", v.offsets[c.Size()], size))
	}
	v.first = v.offsets[c.Rank()]
	v.data = make([]float64, local)
	if mode == Ghosted {
		v.setupGhosts(ghosts)
	}
	return
}

func (v *Vector) setupGhosts(ghosts []int) {
	v.ghosts = append([]int{}, ghosts...)
	sort.Ints(v.ghosts)
	v.ghostIndex = make(map[int]int, len(v.ghosts))
	v.ghostData = make([]float64, len(v.ghosts))
	requests := make(map[int]Packet)
	for i, g := range v.ghosts {
		if v.owns(g) {
			panic(fmt.Errorf("ghost index %d is owned by rank %d", g, v.comm.Rank()))
		}
		v.ghostIndex[g] = i
		owner := v.Owner(g)
		pk := requests[owner]
		pk.Ints = append(pk.Ints, g)
		requests[owner] = pk
	}
	v.ghostSend = make(map[int][]int)
	for _, pk := range v.comm.Exchange(requests) {
		v.ghostSend[pk.From] = pk.Ints
	}
}

func (v *Vector) Size() int                  { return v.size }
func (v *Vector) LocalSize() int             { return len(v.data) }
func (v *Vector) Mode() Mode                 { return v.mode }
func (v *Vector) Comm() *Comm                { return v.comm }
func (v *Vector) Ghosts() []int              { return v.ghosts }
func (v *Vector) OwnershipRange() (int, int) { return v.first, v.first + len(v.data) }

// Offsets is the monotone ownership table, one entry per rank plus one.
func (v *Vector) Offsets() []int { return v.offsets }

func (v *Vector) owns(i int) bool { return i >= v.first && i < v.first+len(v.data) }

// Owner returns the rank owning global index i.
func (v *Vector) Owner(i int) int {
	if v.mode == Serial {
		return v.comm.Rank()
	}
	if i < 0 || i >= v.size {
		panic(fmt.Errorf("index %d out of range [0,%d)", i, v.size))
	}
	return sort.Search(len(v.offsets)-1, func(p int) bool { return v.offsets[p+1] > i })
}

func (v *Vector) Set(i int, val float64) {
	if v.owns(i) {
		v.data[i-v.first] = val
		return
	}
	delete(v.pendingAdd, i)
	v.pendingSet[i] = val
}

func (v *Vector) Add(i int, val float64) {
	if v.owns(i) {
		v.data[i-v.first] += val
		return
	}
	v.pendingAdd[i] += val
}

// At reads an owned or ghost entry.
func (v *Vector) At(i int) float64 {
	if v.owns(i) {
		return v.data[i-v.first]
	}
	if k, ok := v.ghostIndex[i]; ok {
		return v.ghostData[k]
	}
	panic(fmt.Errorf("index %d is neither owned nor ghosted on rank %d", i, v.comm.Rank()))
}

func (v *Vector) Zero() {
	for i := range v.data {
		v.data[i] = 0
	}
	for i := range v.ghostData {
		v.ghostData[i] = 0
	}
	clear(v.pendingSet)
	clear(v.pendingAdd)
}

// Close routes buffered off-process entries to their owners and refreshes
// ghost values. Every rank must call it.
func (v *Vector) Close() {
	if v.mode == Serial {
		return
	}
	out := make(map[int]Packet)
	post := func(pending map[int]float64, kind int) {
		keys := make([]int, 0, len(pending))
		for i := range pending {
			keys = append(keys, i)
		}
		sort.Ints(keys)
		for _, i := range keys {
			owner := v.Owner(i)
			pk := out[owner]
			pk.Ints = append(pk.Ints, i, kind)
			pk.Floats = append(pk.Floats, pending[i])
			out[owner] = pk
		}
	}
	post(v.pendingSet, kindSet)
	post(v.pendingAdd, kindAdd)
	clear(v.pendingSet)
	clear(v.pendingAdd)
	in := v.comm.Exchange(out)
	for _, kind := range []int{kindSet, kindAdd} {
		for _, pk := range in {
			for k := 0; k < len(pk.Floats); k++ {
				i := pk.Ints[2*k]
				if pk.Ints[2*k+1] != kind {
					continue
				}
				if kind == kindSet {
					v.data[i-v.first] = pk.Floats[k]
				} else {
					v.data[i-v.first] += pk.Floats[k]
				}
			}
		}
	}
	if v.mode == Ghosted {
		v.updateGhosts()
	}
}

func (v *Vector) updateGhosts() {
	out := make(map[int]Packet, len(v.ghostSend))
	for rank, idx := range v.ghostSend {
		vals := make([]float64, len(idx))
		for k, i := range idx {
			vals[k] = v.data[i-v.first]
		}
		out[rank] = Packet{Ints: idx, Floats: vals}
	}
	for _, pk := range v.comm.Exchange(out) {
		for k, i := range pk.Ints {
			v.ghostData[v.ghostIndex[i]] = pk.Floats[k]
		}
	}
}

func (v *Vector) L1Norm() (norm float64) {
	for _, x := range v.data {
		norm += math.Abs(x)
	}
	if v.mode == Serial {
		return
	}
	return v.comm.AllReduceSumFloat(norm)
}

// LocalizeToAll returns the full vector on every rank. Collective unless
// the vector is Serial.
func (v *Vector) LocalizeToAll() (all []float64) {
	if v.mode == Serial {
		return append([]float64{}, v.data...)
	}
	all = make([]float64, 0, v.size)
	for _, part := range v.comm.AllGatherFloats(v.data) {
		all = append(all, part...)
	}
	return
}

// Duplicate returns a zeroed vector with the same layout. Collective.
func (v *Vector) Duplicate() *Vector {
	return NewVector(v.comm, v.size, len(v.data), v.ghosts, v.mode)
}

// MatMult sets v = P x. P's row layout must match v's ownership. Collective.
func (v *Vector) MatMult(P *Matrix, x *Vector) {
	if P.m != v.size || P.n != x.size {
		panic(fmt.Errorf("dimension mismatch: P is %dx%d, v is %d, x is %d", P.m, P.n, v.size, x.size))
	}
	if P.rowFirst != v.first || P.rowLast-P.rowFirst != len(v.data) {
		panic(fmt.Errorf("row layout of P [%d,%d) differs from vector layout [%d,%d)",
			P.rowFirst, P.rowLast, v.first, v.first+len(v.data)))
	}
	xs := x.LocalizeToAll()
	for r := range v.data {
		v.data[r] = P.mulLocalRow(r, xs)
	}
	v.Close()
}
