package gremlink

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func newFrameConnection(t *testing.T, opts ...Option) *Connection {
	t.Helper()
	opts = append([]Option{WithDeferredConnect()}, opts...)
	return newTestConnection(t, &fakeTransport{}, opts...)
}

func TestBuildFrame_Layout(t *testing.T) {
	c := newFrameConnection(t)
	id := uuid.New()

	frame, err := c.buildFrame(Request{ID: id, Gremlin: "g.V().count()"})
	require.NoError(t, err)

	mime, req := decodeFrame(t, frame)
	require.Equal(t, int(frame[0]), len(MimeGraphSON3))
	require.Equal(t, MimeGraphSON3, mime)

	require.Equal(t, "g:UUID", req.RequestID.Type)
	require.Equal(t, id.String(), req.RequestID.Value)
	require.Equal(t, OpBytecode, req.Op)
	require.Equal(t, ProcessorTraversal, req.Processor)
	require.Equal(t, "g.V().count()", req.Args["gremlin"])
	require.Equal(t, map[string]interface{}{"g": "g"}, req.Args["aliases"])
}

func TestBuildFrame_ProcessorDefaulting(t *testing.T) {
	c := newFrameConnection(t)

	t.Run("eval without explicit processor leaves it unset", func(t *testing.T) {
		frame, err := c.buildFrame(Request{ID: uuid.New(), Op: OpEval, Gremlin: "g.V()"})
		require.NoError(t, err)

		n := int(frame[0])
		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(frame[1+n:], &body))
		require.NotContains(t, body, "processor")
	})

	t.Run("eval keeps an explicit processor", func(t *testing.T) {
		frame, err := c.buildFrame(Request{ID: uuid.New(), Op: OpEval, Processor: "session", Gremlin: "g.V()"})
		require.NoError(t, err)
		_, req := decodeFrame(t, frame)
		require.Equal(t, "session", req.Processor)
	})

	t.Run("other operations default to traversal", func(t *testing.T) {
		frame, err := c.buildFrame(Request{ID: uuid.New(), Op: OpAuthentication, Args: map[string]interface{}{}})
		require.NoError(t, err)
		_, req := decodeFrame(t, frame)
		require.Equal(t, ProcessorTraversal, req.Processor)
	})
}

func TestBuildFrame_Bindings(t *testing.T) {
	c := newFrameConnection(t)

	frame, err := c.buildFrame(Request{
		ID:       uuid.New(),
		Op:       OpEval,
		Gremlin:  "g.V(x)",
		Bindings: map[string]interface{}{"x": 42},
	})
	require.NoError(t, err)

	_, req := decodeFrame(t, frame)
	bindings, ok := req.Args["bindings"].(map[string]interface{})
	require.True(t, ok, "binding map must stay a plain object")
	require.Equal(t,
		map[string]interface{}{"@type": "g:Int64", "@value": float64(42)},
		bindings["x"],
		"binding values are adapted individually")
	require.NotContains(t, bindings, "@type")
}

func TestBuildFrame_ExplicitArgs(t *testing.T) {
	c := newFrameConnection(t)

	frame, err := c.buildFrame(Request{
		ID: uuid.New(),
		Op: OpEval,
		Args: map[string]interface{}{
			"gremlin":  "g.V(y)",
			"bindings": map[string]interface{}{"y": int32(7)},
			"language": "gremlin-groovy",
		},
	})
	require.NoError(t, err)

	_, req := decodeFrame(t, frame)
	require.Equal(t, "g.V(y)", req.Args["gremlin"])
	require.Equal(t, "gremlin-groovy", req.Args["language"])
	require.NotContains(t, req.Args, "aliases",
		"explicit arguments replace the defaults entirely")

	bindings := req.Args["bindings"].(map[string]interface{})
	require.Equal(t,
		map[string]interface{}{"@type": "g:Int32", "@value": float64(7)},
		bindings["y"])
}

func TestBuildFrame_TraversalSourceAlias(t *testing.T) {
	c := newFrameConnection(t, WithTraversalSource("social"))

	frame, err := c.buildFrame(Request{ID: uuid.New(), Gremlin: "g.V()"})
	require.NoError(t, err)
	_, req := decodeFrame(t, frame)
	require.Equal(t, map[string]interface{}{"g": "social"}, req.Args["aliases"])
}

// taggingWriter marks every adapted value so tests can tell which arguments
// passed through the codec.
type taggingWriter struct{}

func (taggingWriter) Adapt(value interface{}) interface{} {
	return map[string]interface{}{"@tagged": value}
}

func TestBuildFrame_DefaultArgsUseWriter(t *testing.T) {
	c := newFrameConnection(t, WithWriter(taggingWriter{}))

	frame, err := c.buildFrame(Request{ID: uuid.New(), Gremlin: "g.V()"})
	require.NoError(t, err)
	_, req := decodeFrame(t, frame)

	require.Equal(t, map[string]interface{}{"@tagged": "g.V()"}, req.Args["gremlin"])
	require.Equal(t,
		map[string]interface{}{"@tagged": map[string]interface{}{"g": "g"}},
		req.Args["aliases"],
		"every default argument value goes through the configured writer")
}

func TestBuildFrame_RequiresCorrelationID(t *testing.T) {
	c := newFrameConnection(t)
	_, err := c.buildFrame(Request{Gremlin: "g.V()"})
	require.ErrorIs(t, err, ErrInvalidCfg)
}

func TestSubmit_GeneratesFreshCorrelationIDs(t *testing.T) {
	ft := &fakeTransport{}
	ft.onWrite = func(frame []byte) {
		ft.push(serverResponse(frameID(t, frame), StatusNoContent, "", nil, nil))
	}
	c := newTestConnection(t, ft)

	_, err := c.Submit(context.Background(), Request{Gremlin: "g.V()"})
	require.NoError(t, err)
	_, err = c.Submit(context.Background(), Request{Gremlin: "g.V()"})
	require.NoError(t, err)

	ft.lk.Lock()
	defer ft.lk.Unlock()
	require.NotEqual(t, frameID(t, ft.frames[0]), frameID(t, ft.frames[1]))
}
