package airtable

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"

	"github.com/ryhazerus/anystore"
)

// Address depths.
const (
	depthBase = iota + 1
	depthTable
	depthRecord
	depthField
)

var errNotValue = errors.New("only records and fields hold values")

// fetch reads one record. A missing record reports false.
func (c *Client) fetch(ctx context.Context, segs []string) (Record, bool, error) {
	var r Record
	err := c.do(ctx, http.MethodGet, segs[:depthRecord], nil, nil, &r)
	if errors.Is(err, ErrNotFound) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, err
	}
	return r, true, nil
}

// Get returns a record's fields as a JSON object or one field's JSON value.
// Bases and tables never hold a value.
func (c *Client) Get(ctx context.Context, addr anystore.Address) ([]byte, bool, error) {
	segs := addr.Segments()
	if len(segs) != depthRecord && len(segs) != depthField {
		return nil, false, nil
	}
	r, ok, err := c.fetch(ctx, segs)
	if err != nil || !ok {
		return nil, false, wrap("get", addr, err)
	}

	if len(segs) == depthRecord {
		if r.Fields == nil {
			r.Fields = map[string]json.RawMessage{}
		}
		b, err := json.Marshal(r.Fields)
		return b, err == nil, wrap("get", addr, err)
	}
	raw, ok := r.Fields[segs[depthField-1]]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), raw...), true, nil
}

// Set replaces every field of a record with the JSON object in value, or
// updates a single field with the JSON value in value. The record must
// exist; new records are created with Insert.
func (c *Client) Set(ctx context.Context, addr anystore.Address, value []byte) error {
	segs := addr.Segments()
	switch len(segs) {
	case depthRecord:
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(value, &fields); err != nil {
			return wrap("set", addr, fmt.Errorf("record value: %w", err))
		}
		if fields == nil {
			return wrap("set", addr, errors.New("record value must be a JSON object"))
		}
		body := map[string]any{"fields": fields}
		return wrap("set", addr, c.do(ctx, http.MethodPut, segs, nil, body, nil))
	case depthField:
		if !json.Valid(value) {
			return wrap("set", addr, errors.New("field value is not valid JSON"))
		}
		body := map[string]any{"fields": map[string]json.RawMessage{segs[depthField-1]: value}}
		return wrap("set", addr, c.do(ctx, http.MethodPatch, segs[:depthRecord], nil, body, nil))
	default:
		return wrap("set", addr, errNotValue)
	}
}

// Delete removes a record or clears one field. Missing records are not an
// error.
func (c *Client) Delete(ctx context.Context, addr anystore.Address) error {
	segs := addr.Segments()
	var err error
	switch len(segs) {
	case depthRecord:
		err = c.do(ctx, http.MethodDelete, segs, nil, nil, nil)
	case depthField:
		body := map[string]any{"fields": map[string]any{segs[depthField-1]: nil}}
		err = c.do(ctx, http.MethodPatch, segs[:depthRecord], nil, body, nil)
	default:
		return wrap("delete", addr, errNotValue)
	}
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return wrap("delete", addr, err)
}

// List returns bases under the root, tables under a base, record IDs under
// a table and field names under a record. Listings that span several pages
// take one permit per page. A base, table or record that does not exist
// lists as empty.
func (c *Client) List(ctx context.Context, addr anystore.Address) ([]anystore.Address, error) {
	segs := addr.Segments()

	var (
		names []string
		err   error
	)
	switch len(segs) {
	case 0:
		names, err = c.ids(ctx, []string{"meta", "bases"}, "bases")
	case depthBase:
		names, err = c.ids(ctx, []string{"meta", "bases", segs[0], "tables"}, "tables")
	case depthTable:
		names, err = c.ids(ctx, segs, "records")
	case depthRecord:
		var r Record
		var ok bool
		r, ok, err = c.fetch(ctx, segs)
		if ok {
			for name := range r.Fields {
				names = append(names, name)
			}
			slices.Sort(names)
		}
	}
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, wrap("list", addr, err)
	}

	out := make([]anystore.Address, 0, len(names))
	for _, n := range names {
		out = append(out, addr.Child(n))
	}
	return out, nil
}

// Scope returns a view of c rooted at addr.
func (c *Client) Scope(addr anystore.Address) anystore.Store {
	return anystore.NewScope(c, addr)
}
