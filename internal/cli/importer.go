package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/minodm/minodm/minodm"
)

// ImportResult summarizes a bulk import run.
type ImportResult struct {
	Read     int
	Inserted int
	Failed   int
	IDs      []string
}

// ImportJSONLines reads one JSON document per line from r, normalizes each
// through the collection schema on a bounded worker pool, and inserts the
// documents that pass in their original line order. Lines that fail to parse
// or validate are counted and reported on errw; they do not abort the run.
func ImportJSONLines(ctx context.Context, coll *minodm.Collection, r io.Reader, errw io.Writer, workers, batchSize int) (*ImportResult, error) {
	if workers <= 0 {
		workers = 4
	}
	if batchSize <= 0 {
		batchSize = 100
	}

	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, minodm.Wrap(minodm.ErrIO, "create import pool", err)
	}
	defer pool.Release()

	res := &ImportResult{}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	type slot struct {
		doc map[string]any
		err error
	}

	batch := make([][]byte, 0, batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		slots := make([]slot, len(batch))
		var wg sync.WaitGroup
		for i, raw := range batch {
			i, raw := i, raw
			wg.Add(1)
			if perr := pool.Submit(func() {
				defer wg.Done()
				var doc map[string]any
				if err := json.Unmarshal(raw, &doc); err != nil {
					slots[i].err = err
					return
				}
				if _, err := coll.Schema().Init(ctx, doc); err != nil {
					slots[i].err = err
					return
				}
				slots[i].doc = doc
			}); perr != nil {
				wg.Done()
				slots[i].err = perr
			}
		}
		wg.Wait()

		docs := make([]map[string]any, 0, len(slots))
		for i, s := range slots {
			if s.err != nil {
				res.Failed++
				fmt.Fprintf(errw, "line %d: %v\n", res.Read-len(batch)+i+1, s.err)
				continue
			}
			docs = append(docs, s.doc)
		}
		batch = batch[:0]
		if len(docs) == 0 {
			return nil
		}
		ids, err := coll.InsertInitialized(ctx, docs)
		if err != nil {
			return err
		}
		res.Inserted += len(ids)
		res.IDs = append(res.IDs, ids...)
		return nil
	}

	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		raw := make([]byte, len(line))
		copy(raw, line)
		batch = append(batch, raw)
		res.Read++
		if len(batch) >= batchSize {
			if err := flush(); err != nil {
				return res, err
			}
		}
	}
	if err := sc.Err(); err != nil {
		return res, minodm.Wrap(minodm.ErrIO, "read import input", err)
	}
	if err := flush(); err != nil {
		return res, err
	}
	return res, nil
}
