package airtable

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// insertBatch is the largest number of records Airtable creates per request.
const insertBatch = 10

// Record is one Airtable row.
type Record struct {
	ID          string                     `json:"id"`
	CreatedTime string                     `json:"createdTime,omitempty"`
	Fields      map[string]json.RawMessage `json:"fields"`
}

// Field decodes the named cell into v. It reports false when the record
// has no such field.
func (r Record) Field(name string, v any) (bool, error) {
	raw, ok := r.Fields[name]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, v)
}

type newRecord struct {
	Fields any `json:"fields"`
}

// Insert creates one record per element of fields in base/table, sending
// them in batches of ten. Records are returned in input order with their
// new IDs. On failure the records of batches already sent are returned
// along with the error.
func (c *Client) Insert(ctx context.Context, base, table string, fields ...map[string]any) ([]Record, error) {
	out := make([]Record, 0, len(fields))
	for start := 0; start < len(fields); start += insertBatch {
		end := min(start+insertBatch, len(fields))

		body := struct {
			Records []newRecord `json:"records"`
		}{Records: make([]newRecord, 0, end-start)}
		for _, f := range fields[start:end] {
			body.Records = append(body.Records, newRecord{Fields: f})
		}

		var resp struct {
			Records []Record `json:"records"`
		}
		if err := c.do(ctx, http.MethodPost, []string{base, table}, nil, body, &resp); err != nil {
			return out, fmt.Errorf("anystore/airtable: insert into %s/%s: %w", base, table, err)
		}
		out = append(out, resp.Records...)
	}
	return out, nil
}

// Query returns the records of base/table for which formula evaluates to
// true, following every page of the result.
func (c *Client) Query(ctx context.Context, base, table, formula string) ([]Record, error) {
	q := url.Values{}
	if formula != "" {
		q.Set("filterByFormula", formula)
	}
	var out []Record
	err := c.paginate(ctx, []string{base, table}, "records", q, func(raw json.RawMessage) error {
		var r Record
		if err := json.Unmarshal(raw, &r); err != nil {
			return err
		}
		out = append(out, r)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("anystore/airtable: query %s/%s: %w", base, table, err)
	}
	return out, nil
}

// paginate GETs parts and calls fn for every element of the key array,
// requesting further pages while the response carries an offset.
func (c *Client) paginate(ctx context.Context, parts []string, key string, q url.Values, fn func(json.RawMessage) error) error {
	params := url.Values{}
	for k, v := range q {
		params[k] = v
	}

	for {
		var resp map[string]json.RawMessage
		if err := c.do(ctx, http.MethodGet, parts, params, nil, &resp); err != nil {
			return err
		}

		raw, ok := resp[key]
		if !ok {
			return fmt.Errorf("response has no %q", key)
		}
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return err
		}
		for _, it := range items {
			if err := fn(it); err != nil {
				return err
			}
		}

		var offset string
		if raw, ok := resp["offset"]; ok {
			if err := json.Unmarshal(raw, &offset); err != nil {
				return err
			}
		}
		if offset == "" {
			return nil
		}
		params.Set("offset", offset)
	}
}

// ids collects the "id" of every element in a paginated listing.
func (c *Client) ids(ctx context.Context, parts []string, key string) ([]string, error) {
	var out []string
	err := c.paginate(ctx, parts, key, nil, func(raw json.RawMessage) error {
		var obj struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(raw, &obj); err != nil {
			return err
		}
		if obj.ID == "" {
			return fmt.Errorf("%s element without id", key)
		}
		out = append(out, obj.ID)
		return nil
	})
	return out, err
}
