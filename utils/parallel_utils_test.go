package utils

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPartitionMap(t *testing.T) {
	{ // Bucket sizes
		getHisto := func(K, Np int) (histo map[int]int) {
			pm := NewPartitionMap(Np, K)
			histo = make(map[int]int)
			for np := 0; np < pm.ParallelDegree; np++ {
				maxK := pm.GetBucketDimension(np)
				histo[maxK]++
			}
			return
		}
		getTotal := func(histo map[int]int) (total int) {
			for key, count := range histo {
				total += key * count
			}
			return
		}
		assert.Equal(t, map[int]int{0: 30, 1: 2}, getHisto(2, 32))
		assert.Equal(t, map[int]int{1: 32}, getHisto(32, 32))
		assert.Equal(t, map[int]int{8: 1, 9: 31}, getHisto(287, 32))
		for n := 64; n < 2000; n++ {
			var (
				keys   [2]float64
				keyNum int
			)
			histo := getHisto(n, 32)
			for key := range histo {
				keys[keyNum] = float64(key)
				keyNum++
			}
			if keyNum == 2 {
				assert.Equal(t, 1., math.Abs(keys[0]-keys[1])) // Maximum imbalance of 1
			}
			assert.Equal(t, n, getTotal(histo))
		}
	}
	{ // Inverted bucket lookup
		for maxIndex := 10; maxIndex < 500; maxIndex++ {
			pm := NewPartitionMap(5, maxIndex)
			for k := 0; k < maxIndex; k++ {
				tryCount, bn, min, max := pm.getBucketWithTryCount(k)
				mmin, mmax := pm.GetBucketRange(bn)
				assert.True(t, k >= min && k < max && min == mmin && max == mmax && tryCount <= 1)
			}
			bn, _, _ := pm.GetBucket(maxIndex)
			assert.Equal(t, -1, bn)
		}
	}
	{ // Offsets
		pm := NewPartitionMap(3, 10)
		assert.Equal(t, []int{0, 4, 7, 10}, pm.Offsets())
	}
}

func TestMailBox(t *testing.T) {
	var (
		NP = 4
		mb = NewMailBox[int](NP)
		wg sync.WaitGroup
	)
	received := make([][]int, NP)
	for round := 0; round < 2; round++ {
		wg.Add(NP)
		for n := 0; n < NP; n++ {
			go func(me int) {
				defer wg.Done()
				mb.PostMessageToAll(me, 100*round+me)
				mb.DeliverMyMessages(me)
			}(n)
		}
		wg.Wait()
		for n := 0; n < NP; n++ {
			mb.ReceiveMyMessages(n)
			received[n] = append([]int{}, mb.ReceiveMsgQs[n].Cells()...)
			mb.ClearMyMessages(n)
		}
		for n := 0; n < NP; n++ {
			require.Len(t, received[n], NP-1)
			for _, msg := range received[n] {
				assert.NotEqual(t, 100*round+n, msg)
				assert.Equal(t, round, msg/100)
			}
		}
	}
}
