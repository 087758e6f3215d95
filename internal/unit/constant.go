package unit

import (
	"github.com/kingrea/saltproc/internal/stream"
)

// Constant removes elements with efficiencies taken from a table. Entries
// may be constants or formulas of the unit's attributes.
type Constant struct {
	attrs Attributes
	table Table
}

// NewConstant validates attrs and table.
func NewConstant(attrs Attributes, table Table) (*Constant, error) {
	if err := attrs.Validate(); err != nil {
		return nil, err
	}
	if err := table.Validate(attrs.Name); err != nil {
		return nil, err
	}
	clone := make(Table, len(table))
	for el, f := range table {
		clone[el] = f
	}
	return &Constant{attrs: attrs, table: clone}, nil
}

func (c *Constant) Name() string           { return c.attrs.Name }
func (c *Constant) Kind() Kind             { return KindConstant }
func (c *Constant) Attributes() Attributes { return c.attrs }
func (c *Constant) String() string         { return describe(c) }

// Table returns a copy of the efficiency table.
func (c *Constant) Table() Table {
	out := make(Table, len(c.table))
	for el, f := range c.table {
		out[el] = f
	}
	return out
}

// Efficiencies resolves the table against the unit's attributes. Formula
// entries are evaluated on every call.
func (c *Constant) Efficiencies() (map[string]float64, error) {
	eff, err := c.table.Resolve(c.attrs)
	return eff, wrapEval(c, err)
}

// Process implements Unit.
func (c *Constant) Process(in stream.Stream) (stream.Stream, stream.Stream, error) {
	return process(c, in)
}
