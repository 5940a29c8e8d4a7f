package gremlink

// ResultSet is the ordered sequence of decoded values delivered to a caller
// on success, annotated with the final status attributes. It is immutable
// once built.
type ResultSet struct {
	data       []interface{}
	attributes map[string]interface{}
}

func newResultSet(data []interface{}, attributes map[string]interface{}) *ResultSet {
	return &ResultSet{data: data, attributes: attributes}
}

// All returns every value in arrival order.
func (rs *ResultSet) All() []interface{} {
	return rs.data
}

// First returns the first value, or false when the result is empty.
func (rs *ResultSet) First() (interface{}, bool) {
	if len(rs.data) == 0 {
		return nil, false
	}
	return rs.data[0], true
}

func (rs *ResultSet) Len() int {
	return len(rs.data)
}

func (rs *ResultSet) IsEmpty() bool {
	return len(rs.data) == 0
}

// Attributes is the status-attribute mapping of the terminal response.
func (rs *ResultSet) Attributes() map[string]interface{} {
	return rs.attributes
}
