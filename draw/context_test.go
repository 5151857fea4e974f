package draw

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContext_Rect(t *testing.T) {
	dc := NewContext()
	dc.Rect(1.5, -2)

	cmds := dc.Pending()
	require.Len(t, cmds, 1)
	assert.Equal(t, Command{
		Kind:  KindRect,
		X:     1.5,
		Y:     -2,
		W:     RectSize,
		H:     RectSize,
		Color: Plum,
	}, cmds[0])
}

func TestContext_FlushClears(t *testing.T) {
	dc := NewContext()
	dc.Rect(0, 0)
	dc.Rect(1, 1)

	first := dc.Flush()
	assert.Len(t, first, 2)
	assert.Equal(t, 0, dc.Len())
	assert.Empty(t, dc.Flush())
}

func TestContext_PendingIsCopy(t *testing.T) {
	dc := NewContext()
	dc.Rect(0, 0)

	cmds := dc.Pending()
	cmds[0].X = 99

	assert.Equal(t, float32(0), dc.Pending()[0].X)
}

func TestContext_Reset(t *testing.T) {
	dc := NewContext()
	dc.Rect(0, 0)
	dc.Reset()
	assert.Equal(t, 0, dc.Len())
}

func TestContext_ConcurrentAppend(t *testing.T) {
	dc := NewContext()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				dc.Rect(float32(j), 0)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 800, dc.Len())
}
