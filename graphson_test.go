package gremlink

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestGraphSONWriter_Adapt(t *testing.T) {
	w := graphSONWriter{}

	require.Equal(t, "g.V()", w.Adapt("g.V()"))
	require.Equal(t, true, w.Adapt(true))
	require.Nil(t, w.Adapt(nil))

	require.Equal(t,
		map[string]interface{}{"@type": "g:Int32", "@value": int32(7)},
		w.Adapt(int32(7)))
	require.Equal(t,
		map[string]interface{}{"@type": "g:Int64", "@value": int64(7)},
		w.Adapt(7))
	require.Equal(t,
		map[string]interface{}{"@type": "g:Double", "@value": 1.5},
		w.Adapt(1.5))

	id := uuid.New()
	require.Equal(t,
		map[string]interface{}{"@type": "g:UUID", "@value": id.String()},
		w.Adapt(id))

	adapted := w.Adapt(map[string]interface{}{
		"depth": 3,
		"tags":  []interface{}{"a", 2},
	}).(map[string]interface{})
	require.Equal(t,
		map[string]interface{}{"@type": "g:Int64", "@value": int64(3)},
		adapted["depth"])
	require.Equal(t,
		[]interface{}{"a", map[string]interface{}{"@type": "g:Int64", "@value": int64(2)}},
		adapted["tags"])
}

func TestGraphSONReader_Read(t *testing.T) {
	r := graphSONReader{}
	id := uuid.New()

	t.Run("typed correlation id and typed data", func(t *testing.T) {
		env, err := r.Read([]byte(`{
			"requestId": {"@type": "g:UUID", "@value": "` + id.String() + `"},
			"status": {"code": 200, "message": "", "attributes": {"host": "srv1"}},
			"result": {"data": {"@type": "g:List", "@value": [{"@type": "g:Int64", "@value": 2}, "b"]}}
		}`))
		require.NoError(t, err)
		require.Equal(t, id, env.RequestID)
		require.Equal(t, StatusSuccess, env.Status.Code)
		require.Equal(t, "srv1", env.Status.Attributes["host"])
		require.Equal(t, []interface{}{float64(2), "b"}, env.Data)
	})

	t.Run("plain string correlation id", func(t *testing.T) {
		env, err := r.Read([]byte(`{"requestId": "` + id.String() + `", "status": {"code": 204}}`))
		require.NoError(t, err)
		require.Equal(t, id, env.RequestID)
		require.Empty(t, env.Data)
	})

	t.Run("absent correlation id", func(t *testing.T) {
		env, err := r.Read([]byte(`{"status": {"code": 500, "message": "boom"}}`))
		require.NoError(t, err)
		require.Equal(t, uuid.Nil, env.RequestID)
		require.Equal(t, "boom", env.Status.Message)
	})

	t.Run("unparseable correlation id", func(t *testing.T) {
		env, err := r.Read([]byte(`{"requestId": "not-a-uuid", "status": {"code": 200}}`))
		require.NoError(t, err)
		require.Equal(t, uuid.Nil, env.RequestID)
	})

	t.Run("malformed payload", func(t *testing.T) {
		_, err := r.Read([]byte(`{"requestId`))
		require.Error(t, err)
	})
}

func TestCodecForMime(t *testing.T) {
	for _, mime := range []string{MimeGraphSON3, MimeGraphSON2} {
		r, w, err := codecForMime(mime)
		require.NoError(t, err)
		require.NotNil(t, r)
		require.NotNil(t, w)
	}

	_, _, err := codecForMime("application/vnd.acme+cbor")
	require.ErrorIs(t, err, ErrUnknownMimeType)
}
