package la

import (
	"fmt"
	"log"
	"sort"

	"github.com/notargets/femesh/utils"
)

type entryKey [2]int

// Matrix is a row distributed sparse matrix. Each rank assembles its rows in
// a DOK and compresses them to CSR on Close. Entries for rows owned by other
// ranks are buffered and routed during Close.
type Matrix struct {
	comm       *Comm
	name       string
	m, n       int
	rowOffsets []int
	colOffsets []int
	rowFirst   int
	rowLast    int
	nnzDiag    []int
	nnzOff     []int
	dok        *utils.DOK
	csr        *utils.CSR
	pendingSet map[entryKey]float64
	pendingAdd map[entryKey]float64
	closed     bool
	extra      int
}

// NewMatrix is collective. nnzDiag and nnzOff hold, per local row, the
// expected number of entries whose column is owned by this rank and by other
// ranks. Either may be nil.
func NewMatrix(c *Comm, m, n, mLocal, nLocal int, nnzDiag, nnzOff []int) (A *Matrix) {
	A = &Matrix{
		comm:       c,
		name:       "unnamed",
		m:          m,
		n:          n,
		pendingSet: make(map[entryKey]float64),
		pendingAdd: make(map[entryKey]float64),
	}
	A.rowOffsets = prefixTable(c.AllGatherInt(mLocal))
	A.colOffsets = prefixTable(c.AllGatherInt(nLocal))
	if A.rowOffsets[c.Size()] != m || A.colOffsets[c.Size()] != n {
		panic(fmt.Errorf("local sizes sum to %dx%d, global size is %dx%d",
			A.rowOffsets[c.Size()], A.colOffsets[c.Size()], m, n))
	}
	A.rowFirst, A.rowLast = A.rowOffsets[c.Rank()], A.rowOffsets[c.Rank()+1]
	if nnzDiag != nil && len(nnzDiag) != mLocal || nnzOff != nil && len(nnzOff) != mLocal {
		panic(fmt.Errorf("preallocation lengths %d,%d do not match %d local rows",
			len(nnzDiag), len(nnzOff), mLocal))
	}
	A.nnzDiag, A.nnzOff = nnzDiag, nnzOff
	if mLocal > 0 && n > 0 {
		dok := utils.NewDOK(mLocal, n)
		A.dok = &dok
	}
	return
}

func prefixTable(counts []int) (offsets []int) {
	offsets = make([]int, len(counts)+1)
	for i, n := range counts {
		offsets[i+1] = offsets[i] + n
	}
	return
}

func (A *Matrix) SetName(name string)        { A.name = name }
func (A *Matrix) Name() string               { return A.name }
func (A *Matrix) Dims() (m, n int)           { return A.m, A.n }
func (A *Matrix) Closed() bool               { return A.closed }
func (A *Matrix) OwnershipRange() (int, int) { return A.rowFirst, A.rowLast }

// ExtraAllocations is the number of rows, over all ranks, whose assembled
// entries exceeded the preallocated counts. Valid after Close.
func (A *Matrix) ExtraAllocations() int { return A.extra }

func (A *Matrix) ownsRow(i int) bool { return i >= A.rowFirst && i < A.rowLast }

// ColumnOwner returns the rank whose column block contains j.
func (A *Matrix) ColumnOwner(j int) int {
	return sort.Search(len(A.colOffsets)-1, func(p int) bool { return A.colOffsets[p+1] > j })
}

func (A *Matrix) checkOpen(i, j int) {
	if A.closed {
		panic(fmt.Errorf("matrix %q is closed", A.name))
	}
	if i < 0 || i >= A.m || j < 0 || j >= A.n {
		panic(fmt.Errorf("entry (%d,%d) outside %dx%d matrix %q", i, j, A.m, A.n, A.name))
	}
}

// Set inserts a value, replacing any previous value at (i,j).
func (A *Matrix) Set(i, j int, val float64) {
	A.checkOpen(i, j)
	if A.ownsRow(i) {
		A.dok.Set(i-A.rowFirst, j, val)
		return
	}
	key := entryKey{i, j}
	delete(A.pendingAdd, key)
	A.pendingSet[key] = val
}

func (A *Matrix) Add(i, j int, val float64) {
	A.checkOpen(i, j)
	if A.ownsRow(i) {
		A.dok.Add(i-A.rowFirst, j, val)
		return
	}
	A.pendingAdd[entryKey{i, j}] += val
}

// Close routes off-process entries and compresses the local rows. Every
// rank must call it, including ranks that set no entries.
func (A *Matrix) Close() {
	if A.closed {
		return
	}
	out := make(map[int]Packet)
	post := func(pending map[entryKey]float64, kind int) {
		keys := make([]entryKey, 0, len(pending))
		for key := range pending {
			keys = append(keys, key)
		}
		sort.Slice(keys, func(a, b int) bool {
			if keys[a][0] != keys[b][0] {
				return keys[a][0] < keys[b][0]
			}
			return keys[a][1] < keys[b][1]
		})
		for _, key := range keys {
			owner := sort.Search(len(A.rowOffsets)-1, func(p int) bool { return A.rowOffsets[p+1] > key[0] })
			pk := out[owner]
			pk.Ints = append(pk.Ints, key[0], key[1], kind)
			pk.Floats = append(pk.Floats, pending[key])
			out[owner] = pk
		}
	}
	post(A.pendingSet, kindSet)
	post(A.pendingAdd, kindAdd)
	A.pendingSet, A.pendingAdd = nil, nil
	in := A.comm.Exchange(out)
	for _, kind := range []int{kindSet, kindAdd} {
		for _, pk := range in {
			for k := range pk.Floats {
				i, j := pk.Ints[3*k], pk.Ints[3*k+1]
				if pk.Ints[3*k+2] != kind {
					continue
				}
				if kind == kindSet {
					A.dok.Set(i-A.rowFirst, j, pk.Floats[k])
				} else {
					A.dok.Add(i-A.rowFirst, j, pk.Floats[k])
				}
			}
		}
	}
	var extra int
	if A.dok != nil {
		extra = A.countOverflow()
		A.dok.SetReadOnly(A.name)
		csr := A.dok.ToCSR()
		A.csr = &csr
	}
	A.extra = A.comm.AllReduceSumInt(extra)
	if A.extra != 0 && A.comm.Rank() == 0 {
		log.Printf("matrix %s: %d rows exceeded their preallocation\n", A.name, A.extra)
	}
	A.closed = true
}

func (A *Matrix) countOverflow() (extra int) {
	if A.nnzDiag == nil && A.nnzOff == nil {
		return
	}
	var (
		mLocal = A.rowLast - A.rowFirst
		diag   = make([]int, mLocal)
		off    = make([]int, mLocal)
		me     = A.comm.Rank()
	)
	A.dok.DoNonZero(func(i, j int, v float64) {
		if A.ColumnOwner(j) == me {
			diag[i]++
		} else {
			off[i]++
		}
	})
	for r := 0; r < mLocal; r++ {
		overD := A.nnzDiag != nil && diag[r] > A.nnzDiag[r]
		overO := A.nnzOff != nil && off[r] > A.nnzOff[r]
		if overD || overO {
			extra++
		}
	}
	return
}

// At reads an entry from a locally owned row.
func (A *Matrix) At(i, j int) float64 {
	if !A.ownsRow(i) {
		panic(fmt.Errorf("row %d is not owned by rank %d", i, A.comm.Rank()))
	}
	if A.csr != nil {
		return A.csr.At(i-A.rowFirst, j)
	}
	return A.dok.At(i-A.rowFirst, j)
}

// RowNNZ returns the number of stored entries of a locally owned row.
func (A *Matrix) RowNNZ(i int) (nnz int) {
	if !A.ownsRow(i) {
		panic(fmt.Errorf("row %d is not owned by rank %d", i, A.comm.Rank()))
	}
	if !A.closed {
		panic(fmt.Errorf("matrix %q is not closed", A.name))
	}
	return A.csr.RowNNZ(i - A.rowFirst)
}

// DoRowNonZero visits the stored entries of a locally owned row of a closed
// matrix, with global indices.
func (A *Matrix) DoRowNonZero(i int, fn func(i, j int, v float64)) {
	if !A.closed || !A.ownsRow(i) {
		panic(fmt.Errorf("row %d of matrix %q is not readable on rank %d", i, A.name, A.comm.Rank()))
	}
	A.csr.DoRowNonZero(i-A.rowFirst, func(_, j int, v float64) { fn(i, j, v) })
}

func (A *Matrix) mulLocalRow(r int, x []float64) float64 {
	if A.csr == nil {
		return 0
	}
	return A.csr.MulRow(r, x)
}

// localizeRows gathers the whole matrix on every rank as per-row entry lists.
func (A *Matrix) localizeRows() (cols [][]int, vals [][]float64) {
	var (
		ints   []int
		floats []float64
	)
	for i := A.rowFirst; i < A.rowLast; i++ {
		A.DoRowNonZero(i, func(i, j int, v float64) {
			ints = append(ints, i, j)
			floats = append(floats, v)
		})
	}
	cols, vals = make([][]int, A.m), make([][]float64, A.m)
	allInts, allFloats := A.comm.AllGatherInts(ints), A.comm.AllGatherFloats(floats)
	for rank := range allInts {
		for k, v := range allFloats[rank] {
			i, j := allInts[rank][2*k], allInts[rank][2*k+1]
			cols[i] = append(cols[i], j)
			vals[i] = append(vals[i], v)
		}
	}
	return
}

// MatMatMult returns C = A B with A's row layout and B's column layout.
// Both matrices must be closed. Collective.
func MatMatMult(A, B *Matrix) (C *Matrix) {
	if A.n != B.m {
		panic(fmt.Errorf("dimension mismatch: %dx%d times %dx%d", A.m, A.n, B.m, B.n))
	}
	var (
		bCols, bVals = B.localizeRows()
		mLocal       = A.rowLast - A.rowFirst
		me           = A.comm.Rank()
		rows         = make([]map[int]float64, mLocal)
		nnzD         = make([]int, mLocal)
		nnzO         = make([]int, mLocal)
	)
	for r := 0; r < mLocal; r++ {
		row := make(map[int]float64)
		A.DoRowNonZero(A.rowFirst+r, func(_, k int, a float64) {
			for q, j := range bCols[k] {
				row[j] += a * bVals[k][q]
			}
		})
		for j := range row {
			if B.ColumnOwner(j) == me {
				nnzD[r]++
			} else {
				nnzO[r]++
			}
		}
		rows[r] = row
	}
	nLocal := B.colOffsets[me+1] - B.colOffsets[me]
	C = NewMatrix(A.comm, A.m, B.n, mLocal, nLocal, nnzD, nnzO)
	C.SetName(A.name + "*" + B.name)
	for r, row := range rows {
		for j, v := range row {
			C.Set(A.rowFirst+r, j, v)
		}
	}
	C.Close()
	return
}
