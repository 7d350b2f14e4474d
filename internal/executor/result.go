package executor

import "encoding/json"

// Result is the outcome of one execution. Exactly one of the two shapes is
// present on the wire: {"columns","rows"} or {"error"}. Never both.
type Result struct {
	Columns []string
	Rows    [][]any
	Err     string
}

// Failed reports whether the execution produced an error instead of rows.
func (r Result) Failed() bool {
	return r.Err != ""
}

type resultWire struct {
	Columns []string `json:"columns,omitempty"`
	Rows    [][]any  `json:"rows,omitempty"`
	Error   string   `json:"error,omitempty"`
}

func (r Result) MarshalJSON() ([]byte, error) {
	if r.Failed() {
		return json.Marshal(resultWire{Error: r.Err})
	}
	columns := r.Columns
	if columns == nil {
		columns = []string{}
	}
	rows := r.Rows
	if rows == nil {
		rows = [][]any{}
	}
	return json.Marshal(struct {
		Columns []string `json:"columns"`
		Rows    [][]any  `json:"rows"`
	}{Columns: columns, Rows: rows})
}

func (r *Result) UnmarshalJSON(data []byte) error {
	var wire resultWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	if wire.Error != "" {
		*r = Result{Err: wire.Error}
		return nil
	}
	columns := wire.Columns
	if columns == nil {
		columns = []string{}
	}
	rows := wire.Rows
	if rows == nil {
		rows = [][]any{}
	}
	*r = Result{Columns: columns, Rows: rows}
	return nil
}
