package runner

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memRecorder struct {
	mu   sync.Mutex
	cmds []string
	fail bool
}

func (m *memRecorder) Record(inv Invocation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cmds = append(m.cmds, inv.Command)
	if m.fail {
		return errors.New("disk full")
	}
	return nil
}

func TestAsyncLogPreservesOrder(t *testing.T) {
	rec := &memRecorder{}
	a := NewAsyncLog(zerolog.Nop(), 4, rec)

	var want []string
	for i := 0; i < 100; i++ {
		cmd := fmt.Sprintf("spt dsf=/dev/sg%d inquiry", i)
		want = append(want, cmd)
		a.Log(Invocation{Command: cmd})
	}
	a.Close()

	require.Len(t, rec.cmds, 100)
	assert.Equal(t, want, rec.cmds)
}

func TestAsyncLogCloseIsIdempotent(t *testing.T) {
	rec := &memRecorder{fail: true}
	a := NewAsyncLog(zerolog.Nop(), 0, rec)
	a.Log(Invocation{Command: "a"})
	a.Close()
	a.Close()
	a.Log(Invocation{Command: "late"})

	assert.Equal(t, []string{"a"}, rec.cmds)
}
