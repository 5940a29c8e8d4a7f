package gremlink

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Operations and processors understood by the server.
const (
	OpBytecode       = "bytecode"
	OpEval           = "eval"
	OpAuthentication = "authentication"

	ProcessorTraversal = "traversal"
)

const maxMimeLen = 255

// Request describes one submission. Every field is optional: a zero ID draws
// a fresh correlation id, a zero Op means OpBytecode, and nil Args default to
// the traversal program plus the traversal-source alias.
type Request struct {
	// ID is the correlation id. Callers supplying their own are responsible
	// for uniqueness among in-flight requests.
	ID uuid.UUID

	// Op is the server operation, OpBytecode when empty.
	Op string

	// Processor selects the server-side processor. When empty it stays unset
	// for OpEval and defaults to ProcessorTraversal for everything else.
	Processor string

	// Gremlin is the traversal program, already in the shape the configured
	// Writer understands. Ignored when Args is set.
	Gremlin interface{}

	// Args replaces the default argument structure entirely.
	Args map[string]interface{}

	// Bindings are merged into the default arguments. Binding values are
	// adapted individually so the binding map itself is not wrapped.
	Bindings map[string]interface{}
}

type requestBody struct {
	RequestID map[string]interface{} `json:"requestId"`
	Op        string                 `json:"op"`
	Processor string                 `json:"processor,omitempty"`
	Args      map[string]interface{} `json:"args"`
}

// buildFrame produces the outbound wire frame: one byte with the mime-type
// length, the ASCII mime type, then the JSON body.
func (c *Connection) buildFrame(req Request) ([]byte, error) {
	if req.ID == uuid.Nil {
		return nil, fmt.Errorf("%w: request without correlation id", ErrInvalidCfg)
	}

	op := req.Op
	if op == "" {
		op = OpBytecode
	}

	processor := req.Processor
	if processor == "" && op != OpEval {
		processor = ProcessorTraversal
	}

	writer := c.config.writer
	args := make(map[string]interface{})
	if req.Args != nil {
		for key, value := range req.Args {
			if key == "bindings" {
				args[key] = adaptBindings(writer, value)
			} else {
				args[key] = writer.Adapt(value)
			}
		}
	} else {
		args["gremlin"] = writer.Adapt(req.Gremlin)
		args["aliases"] = writer.Adapt(map[string]interface{}{"g": c.config.traversalSource})
		if req.Bindings != nil {
			args["bindings"] = adaptBindings(writer, req.Bindings)
		}
	}

	body, err := json.Marshal(requestBody{
		RequestID: typed("g:UUID", req.ID.String()),
		Op:        op,
		Processor: processor,
		Args:      args,
	})
	if err != nil {
		return nil, fmt.Errorf("gremlink: could not encode request %s: %w", req.ID, err)
	}

	frame := make([]byte, 0, 1+len(c.config.header)+len(body))
	frame = append(frame, byte(len(c.config.header)))
	frame = append(frame, c.config.header...)
	frame = append(frame, body...)
	return frame, nil
}

// adaptBindings adapts each binding value but leaves the enclosing map
// plain, so binding names are not wrapped a second time.
func adaptBindings(writer Writer, value interface{}) interface{} {
	bindings, ok := value.(map[string]interface{})
	if !ok {
		return writer.Adapt(value)
	}
	out := make(map[string]interface{}, len(bindings))
	for name, bound := range bindings {
		out[name] = writer.Adapt(bound)
	}
	return out
}
