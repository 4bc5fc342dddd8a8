// Package jsondoc keeps a whole JSON document in one cell of another
// [anystore.Store] and exposes the document itself as a Store.
//
// Addresses walk the document: mapping members by key and sequence
// elements by decimal index. Get returns the JSON encoding of the value at
// an address, Set stores a JSON value there and creates the mappings on
// the way, List returns mapping keys in sorted order or sequence indices.
// Deleting a mapping member removes it; deleting a sequence element pops
// it when it is the last one and nulls it otherwise, so the indices of its
// siblings stay put.
//
// Every write reads the cell, edits the document and writes it back. The
// Document serializes those read-modify-write cycles, so concurrent writes
// through one Document never lose updates. Writers going through other
// Documents or straight to the cell are not coordinated.
package jsondoc

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/ryhazerus/anystore"
	"github.com/ryhazerus/anystore/codec"
)

const backend = "jsondoc"

// Document is a Store over a JSON document held at one address of a cell
// store.
type Document struct {
	cell   anystore.Store
	at     anystore.Address
	pretty bool

	mu sync.RWMutex
}

// Compile-time interface check.
var _ anystore.Store = (*Document)(nil)

// Option configures a Document.
type Option func(*Document)

// WithPretty writes the document indented by two spaces.
func WithPretty() Option {
	return func(d *Document) {
		d.pretty = true
	}
}

// New returns a Document stored at address at of cell.
func New(cell anystore.Store, at anystore.Address, opts ...Option) *Document {
	d := &Document{cell: cell, at: at}
	for _, o := range opts {
		o(d)
	}
	return d
}

// load reads and parses the document. A missing cell is a null document.
func (d *Document) load(ctx context.Context) (codec.Value, bool, error) {
	b, ok, err := d.cell.Get(ctx, d.at)
	if err != nil || !ok {
		return codec.Null(), false, err
	}
	var doc codec.Value
	if err := json.Unmarshal(b, &doc); err != nil {
		return codec.Null(), false, &anystore.DecodeError{Address: d.at, Err: err}
	}
	return doc, true, nil
}

func (d *Document) store(ctx context.Context, doc codec.Value) error {
	var (
		b   []byte
		err error
	)
	if d.pretty {
		b, err = json.MarshalIndent(doc, "", "  ")
	} else {
		b, err = json.Marshal(doc)
	}
	if err != nil {
		return &anystore.EncodeError{Address: d.at, Err: err}
	}
	return d.cell.Set(ctx, d.at, b)
}

// Get returns the JSON encoding of the value at addr. An address that runs
// into a scalar or past the end of a sequence is absent.
func (d *Document) Get(ctx context.Context, addr anystore.Address) ([]byte, bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	doc, ok, err := d.load(ctx)
	if err != nil || !ok {
		return nil, false, err
	}
	v, ok, err := doc.Lookup(addr.Segments())
	if err != nil || !ok {
		return nil, false, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, false, &anystore.EncodeError{Address: addr, Err: err}
	}
	return b, true, nil
}

// Set parses value as JSON and stores it at addr.
func (d *Document) Set(ctx context.Context, addr anystore.Address, value []byte) error {
	var v codec.Value
	if err := json.Unmarshal(value, &v); err != nil {
		return anystore.NewBackendError(backend, "set", addr, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	doc, _, err := d.load(ctx)
	if err != nil {
		return err
	}
	if err := doc.SetPath(addr.Segments(), v); err != nil {
		return anystore.NewBackendError(backend, "set", addr, err)
	}
	return d.store(ctx, doc)
}

// Delete removes the value at addr. Deleting the root deletes the cell.
func (d *Document) Delete(ctx context.Context, addr anystore.Address) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if addr.IsRoot() {
		return d.cell.Delete(ctx, d.at)
	}
	doc, ok, err := d.load(ctx)
	if err != nil || !ok {
		return err
	}
	err = doc.DeletePath(addr.Segments())
	if errors.Is(err, codec.ErrIncompatible) {
		return nil
	}
	if err != nil {
		return anystore.NewBackendError(backend, "delete", addr, err)
	}
	return d.store(ctx, doc)
}

// List returns the keys of a mapping or the indices of a sequence at addr.
func (d *Document) List(ctx context.Context, addr anystore.Address) ([]anystore.Address, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]anystore.Address, 0)
	doc, ok, err := d.load(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return out, nil
	}
	v, ok, err := doc.Lookup(addr.Segments())
	if err != nil || !ok {
		return out, nil
	}
	for _, k := range v.Children() {
		out = append(out, addr.Child(k))
	}
	return out, nil
}

// Scope returns a view of d rooted at addr.
func (d *Document) Scope(addr anystore.Address) anystore.Store {
	return anystore.NewScope(d, addr)
}
