package ringlog

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lines(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = string(e.Line)
	}
	return out
}

func TestNew_DefaultCapacity(t *testing.T) {
	assert.Equal(t, DefaultCapacity, New(0).capacity())
	assert.Equal(t, DefaultCapacity, New(-5).capacity())
	assert.Equal(t, 3, New(3).capacity())
}

func TestBuffer_Write(t *testing.T) {
	b := New(3)

	n, err := b.Write([]byte("first\n"))
	require.NoError(t, err)
	assert.Equal(t, 6, n)

	n, err = b.Write([]byte("\n"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	entries := b.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "first", string(entries[0].Line))
	assert.NoError(t, uuid.Validate(entries[0].ID))
	assert.False(t, entries[0].Time.IsZero())
}

func TestBuffer_WriteCopiesInput(t *testing.T) {
	b := New(2)
	buf := []byte("hello")

	_, _ = b.Write(buf)
	buf[0] = 'j'

	assert.Equal(t, []string{"hello"}, lines(b.Entries()))
}

func TestBuffer_Overwrite(t *testing.T) {
	b := New(3)

	for i := 1; i <= 5; i++ {
		_, _ = fmt.Fprintf(b, "line %d\n", i)
	}

	assert.Equal(t, 3, b.size())
	assert.Equal(t, []string{"line 3", "line 4", "line 5"}, lines(b.Entries()))
}

func TestBuffer_ExactlyFull(t *testing.T) {
	b := New(2)

	_, _ = b.Write([]byte("a"))
	_, _ = b.Write([]byte("b"))

	assert.Equal(t, 2, b.size())
	assert.Equal(t, []string{"a", "b"}, lines(b.Entries()))
}

func TestBuffer_Concurrent(t *testing.T) {
	b := New(50)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				_, _ = b.Write([]byte("msg"))
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, b.size())
	assert.Len(t, b.Entries(), 50)
}

func TestEntry_MarshalJSON(t *testing.T) {
	ts := time.Date(2025, 5, 10, 8, 0, 0, 0, time.UTC)

	t.Run("json line", func(t *testing.T) {
		e := Entry{ID: "id-1", Time: ts, Line: []byte(`{"level":"INFO","msg":"Response: 200 OK"}`)}

		data, err := json.Marshal(e)
		require.NoError(t, err)
		assert.JSONEq(t,
			`{"id":"id-1","timestamp":"2025-05-10T08:00:00Z","record":{"level":"INFO","msg":"Response: 200 OK"}}`,
			string(data),
		)
	})

	t.Run("text line", func(t *testing.T) {
		e := Entry{ID: "id-2", Time: ts, Line: []byte(`INFO Response: 200 OK`)}

		data, err := json.Marshal(e)
		require.NoError(t, err)
		assert.JSONEq(t,
			`{"id":"id-2","timestamp":"2025-05-10T08:00:00Z","message":"INFO Response: 200 OK"}`,
			string(data),
		)
	})
}
