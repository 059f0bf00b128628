package repository

import (
	"errors"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okian/topboard/internal/domain/ranking"
	"github.com/okian/topboard/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init(logger.WithWriter(io.Discard)); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func TestNormalizeReply_Shapes(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []string
	}{
		{"bare array", `["a","1","b","2"]`, []string{"a", "1", "b", "2"}},
		{"result envelope", `{"result":["a","1"]}`, []string{"a", "1"}},
		{"numbers inside array", `{"result":["a",80]}`, []string{"a", "80"}},
		{"nested pairs", `{"result":[["a","1"],["b","2"]]}`, []string{"a", "1", "b", "2"}},
		{"degraded object", `{"meta":{"x":1},"data":{"rows":["m","5"]}}`, []string{"m", "5"}},
		{"null result", `{"result":null}`, []string{}},
		{"bare null", `null`, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := normalizeReply(200, []byte(tt.body))
			require.NoError(t, err)
			got, err := r.List()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeReply_Scalars(t *testing.T) {
	r, err := normalizeReply(200, []byte(`{"result":"OK"}`))
	require.NoError(t, err)
	v, found, err := r.Text()
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "OK", v)

	r, err = normalizeReply(200, []byte(`3`))
	require.NoError(t, err)
	n, err := r.Int()
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	r, err = normalizeReply(200, []byte(`{"result":"42"}`))
	require.NoError(t, err)
	n, err = r.Int()
	require.NoError(t, err)
	assert.Equal(t, int64(42), n)

	r, err = normalizeReply(200, []byte(`{"result":"80.5"}`))
	require.NoError(t, err)
	f, found, err := r.Float()
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 80.5, f)

	r, err = normalizeReply(200, []byte(`{"result":null}`))
	require.NoError(t, err)
	assert.True(t, r.IsNil())
	_, found, err = r.Text()
	require.NoError(t, err)
	assert.False(t, found)

	// A degraded object with no array is taken as the value itself.
	r, err = normalizeReply(200, []byte(`{"status":"fine"}`))
	require.NoError(t, err)
	_, err = r.Int()
	assert.Error(t, err)
	_, err = r.List()
	assert.Error(t, err)
}

func TestNormalizeReply_Errors(t *testing.T) {
	t.Run("non-2xx is unavailable", func(t *testing.T) {
		_, err := normalizeReply(401, []byte(`{"error":"bad token"}`))
		require.Error(t, err)
		assert.True(t, errors.Is(err, ranking.ErrStoreUnavailable))

		var ce *CommandError
		require.True(t, errors.As(err, &ce))
		assert.Equal(t, 401, ce.Status)
		assert.Equal(t, `{"error":"bad token"}`, ce.Body)
	})

	t.Run("unparsable body is a protocol error", func(t *testing.T) {
		_, err := normalizeReply(200, []byte(`<html>`))
		assert.True(t, errors.Is(err, ranking.ErrStoreProtocol))
	})

	t.Run("error envelope is a protocol error", func(t *testing.T) {
		_, err := normalizeReply(200, []byte(`{"error":"WRONGTYPE"}`))
		assert.True(t, errors.Is(err, ranking.ErrStoreProtocol))
		assert.Contains(t, err.Error(), "WRONGTYPE")
	})
}
