package credential

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewPool_Empty(t *testing.T) {
	_, err := NewPool(nil, zap.NewNop())
	require.Error(t, err)
}

func TestCurrent_IdempotentWithoutRotation(t *testing.T) {
	p, err := NewPool([]string{"a", "b", "c"}, zap.NewNop())
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		assert.Equal(t, "a", p.Current())
	}
	assert.Equal(t, 0, p.ActiveIndex())
}

func TestRotate_WrapsModuloSize(t *testing.T) {
	p, err := NewPool([]string{"a", "b", "c"}, zap.NewNop())
	require.NoError(t, err)

	p.Rotate()
	assert.Equal(t, "b", p.Current())
	p.Rotate()
	assert.Equal(t, "c", p.Current())
	p.Rotate()
	assert.Equal(t, "a", p.Current(), "cursor must wrap to 0 past the end")
	assert.Equal(t, 0, p.ActiveIndex())
}

func TestRotate_SingleKeyPool(t *testing.T) {
	p, err := NewPool([]string{"only"}, zap.NewNop())
	require.NoError(t, err)

	p.Rotate()
	assert.Equal(t, "only", p.Current())
}

func TestRotate_ConcurrentCursorStaysInRange(t *testing.T) {
	p, err := NewPool([]string{"a", "b", "c"}, zap.NewNop())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.Rotate()
			_ = p.Current()
		}()
	}
	wg.Wait()

	idx := p.ActiveIndex()
	assert.GreaterOrEqual(t, idx, 0)
	assert.Less(t, idx, p.Size())
	assert.Equal(t, 0, idx, "30 rotations over 3 keys must land back at 0")
}
