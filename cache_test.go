package plcsql

import (
	"context"
	"fmt"
	"sync"

	"github.com/stretchr/testify/assert"
	gc "gopkg.in/check.v1"

	"github.com/canonical/plcsql/oracle"
)

type CacheSuite struct{}

var _ = gc.Suite(&CacheSuite{})

// countingOracle answers every statement with its own text and records the
// statements it was asked about.
type countingOracle struct {
	mutex sync.Mutex
	asked []string
}

func (o *countingOracle) SQLSemantics(ctx context.Context, sqls []string) ([]oracle.SQLSemantics, error) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	var ret []oracle.SQLSemantics
	for i, s := range sqls {
		o.asked = append(o.asked, s)
		if s == "unanswered" {
			continue
		}
		ret = append(ret, oracle.SQLSemantics{Seq: i, Kind: oracle.StmtSelect, Rewritten: s})
	}
	return ret, nil
}

func (o *countingOracle) GlobalSemantics(ctx context.Context, questions []oracle.Question) ([]oracle.Answer, error) {
	return nil, nil
}

func (s *CacheSuite) TestOnlyMissesAreAsked(c *gc.C) {
	inner := &countingOracle{}
	o := &cachedOracle{Oracle: inner, cache: newSQLCache()}
	ctx := context.Background()

	ret, err := o.SQLSemantics(ctx, []string{"a", "b"})
	c.Assert(err, gc.IsNil)
	c.Assert(ret, gc.HasLen, 2)
	c.Check(inner.asked, gc.DeepEquals, []string{"a", "b"})

	ret, err = o.SQLSemantics(ctx, []string{"c", "b", "unanswered", "a"})
	c.Assert(err, gc.IsNil)
	c.Check(inner.asked, gc.DeepEquals, []string{"a", "b", "c", "unanswered"})

	// Answers carry the sequence numbers of the request, cached or not.
	seqs := map[string]int{}
	for _, sem := range ret {
		seqs[sem.Rewritten] = sem.Seq
	}
	c.Check(seqs, gc.DeepEquals, map[string]int{"c": 0, "b": 1, "a": 3})
	c.Check(o.cache.len(), gc.Equals, 3)
}

func (s *CacheSuite) TestForget(c *gc.C) {
	inner := &countingOracle{}
	o := &cachedOracle{Oracle: inner, cache: newSQLCache()}
	ctx := context.Background()

	_, err := o.SQLSemantics(ctx, []string{"a"})
	c.Assert(err, gc.IsNil)
	o.cache.forget()
	c.Check(o.cache.len(), gc.Equals, 0)
	_, err = o.SQLSemantics(ctx, []string{"a"})
	c.Assert(err, gc.IsNil)
	c.Check(inner.asked, gc.DeepEquals, []string{"a", "a"})
}

// badSeqOracle answers with sequence numbers out of range.
type badSeqOracle struct {
	countingOracle
}

func (o *badSeqOracle) SQLSemantics(ctx context.Context, sqls []string) ([]oracle.SQLSemantics, error) {
	return []oracle.SQLSemantics{{Seq: len(sqls)}}, nil
}

func (s *CacheSuite) TestUnknownSequenceNumber(c *gc.C) {
	o := &cachedOracle{Oracle: &badSeqOracle{}, cache: newSQLCache()}
	_, err := o.SQLSemantics(context.Background(), []string{"a"})
	c.Assert(err, gc.ErrorMatches, "answer to unknown SQL statement 1")
}

func (s *CacheSuite) TestConcurrentCompilations(c *gc.C) {
	cache := newSQLCache()
	inner := &countingOracle{}
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			o := &cachedOracle{Oracle: inner, cache: cache}
			texts := []string{"shared", fmt.Sprintf("own %d", i)}
			ret, err := o.SQLSemantics(ctx, texts)
			if assert.NoError(c, err) && assert.Len(c, ret, 2) {
				for _, sem := range ret {
					assert.Equal(c, texts[sem.Seq], sem.Rewritten)
				}
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(c, 17, cache.len())
	sem, ok := cache.get("shared")
	assert.True(c, ok)
	assert.Equal(c, "shared", sem.Rewritten)
}
