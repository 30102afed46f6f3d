// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package plcsql

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/canonical/plcsql/oracle"
)

// sqlCache stores the answers of the metadata server about SQL statements,
// indexed by the text of the statement. It is shared by the compilations of
// a Compiler. Cached answers are never modified; their sequence number is
// meaningless.
//
// The mutex must be locked when accessing answers.
type sqlCache struct {
	answers map[string]oracle.SQLSemantics
	mutex   sync.RWMutex
}

func newSQLCache() *sqlCache {
	return &sqlCache{answers: map[string]oracle.SQLSemantics{}}
}

func (sc *sqlCache) get(text string) (oracle.SQLSemantics, bool) {
	sc.mutex.RLock()
	defer sc.mutex.RUnlock()
	sem, ok := sc.answers[text]
	return sem, ok
}

// put stores the answer about text unless another compilation stored one
// since get was called, in which case that one is kept.
func (sc *sqlCache) put(text string, sem oracle.SQLSemantics) {
	sc.mutex.Lock()
	defer sc.mutex.Unlock()
	if _, ok := sc.answers[text]; !ok {
		sc.answers[text] = sem
	}
}

func (sc *sqlCache) forget() {
	sc.mutex.Lock()
	defer sc.mutex.Unlock()
	sc.answers = map[string]oracle.SQLSemantics{}
}

func (sc *sqlCache) len() int {
	sc.mutex.RLock()
	defer sc.mutex.RUnlock()
	return len(sc.answers)
}

// cachedOracle answers questions about SQL statements from the cache, and
// asks the statements it does not know to the wrapped oracle in one batch.
// Questions about global names are always asked since routines can be
// registered at any time.
type cachedOracle struct {
	oracle.Oracle
	cache *sqlCache
}

func (o *cachedOracle) SQLSemantics(ctx context.Context, sqls []string) ([]oracle.SQLSemantics, error) {
	var ret []oracle.SQLSemantics
	var missed []string
	var seqs []int
	for i, text := range sqls {
		if sem, ok := o.cache.get(text); ok {
			sem.Seq = i
			ret = append(ret, sem)
			continue
		}
		missed = append(missed, text)
		seqs = append(seqs, i)
	}
	if len(missed) == 0 {
		return ret, nil
	}

	answers, err := o.Oracle.SQLSemantics(ctx, missed)
	if err != nil {
		return nil, err
	}
	for _, a := range answers {
		if a.Seq < 0 || a.Seq >= len(missed) {
			return nil, errors.Errorf("answer to unknown SQL statement %d", a.Seq)
		}
		o.cache.put(missed[a.Seq], a)
		a.Seq = seqs[a.Seq]
		ret = append(ret, a)
	}
	return ret, nil
}
