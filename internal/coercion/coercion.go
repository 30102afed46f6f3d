// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

// Package coercion decides how values of one type are turned into values of
// another, and which common type the operands of an operator are coerced to.
package coercion

import (
	"fmt"
	"sync"

	"github.com/canonical/plcsql/internal/types"
)

type Kind int

const (
	// Identity leaves the value as it is.
	Identity Kind = iota
	// Cast gives a null value a concrete type.
	Cast
	// Conversion calls a runtime conversion function.
	Conversion
	// PrecisionCheck checks the precision and scale of the result of a
	// numeric coercion.
	PrecisionCheck
	// LengthCheck checks the length of the result of a string coercion.
	LengthCheck
)

func (k Kind) String() string {
	switch k {
	case Identity:
		return "Identity"
	case Cast:
		return "Cast"
	case Conversion:
		return "Conversion"
	case PrecisionCheck:
		return "PrecisionCheck"
	case LengthCheck:
		return "LengthCheck"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Coercion is an immutable description of how a value of type Src becomes a
// value of type Dst.
type Coercion struct {
	Kind Kind
	Src  *types.Type
	Dst  *types.Type
	// Func is the name of the runtime conversion function of a Conversion.
	Func string
	// Inner is the coercion wrapped by a PrecisionCheck or a LengthCheck.
	Inner *Coercion
}

func (c *Coercion) String() string {
	switch c.Kind {
	case Conversion:
		return fmt.Sprintf("%s[%s](%s -> %s)", c.Kind, c.Func, c.Src, c.Dst)
	case PrecisionCheck, LengthCheck:
		return fmt.Sprintf("%s[%s](%s -> %s)", c.Kind, c.Inner, c.Src, c.Dst)
	}
	return fmt.Sprintf("%s(%s -> %s)", c.Kind, c.Src, c.Dst)
}

// JavaCode returns the Java expression applying the coercion to the Java
// expression expr.
func (c *Coercion) JavaCode(expr string) string {
	switch c.Kind {
	case Cast:
		return fmt.Sprintf("(%s) %s", c.Dst.JavaType, expr)
	case Conversion:
		return fmt.Sprintf("%s(%s)", c.Func, expr)
	case PrecisionCheck:
		return fmt.Sprintf("checkPrecision(%d, (short) %d, %s)",
			c.Dst.Precision(), c.Dst.Scale(), c.Inner.JavaCode(expr))
	case LengthCheck:
		return fmt.Sprintf("checkStrLength(%t, %d, %s)",
			c.Dst.IsChar(), c.Dst.Length(), c.Inner.JavaCode(expr))
	}
	return expr
}

// convTargets is the allow-list of runtime conversions, indexed by the source
// type index.
var convTargets = [types.NumIdx][]int{
	types.IdxObject: {
		types.IdxBoolean, types.IdxString, types.IdxShort, types.IdxInt, types.IdxBigint,
		types.IdxNumeric, types.IdxFloat, types.IdxDouble,
		types.IdxDate, types.IdxTime, types.IdxDatetime, types.IdxTimestamp,
	},
	types.IdxBoolean: {types.IdxString},
	types.IdxString: {
		types.IdxShort, types.IdxInt, types.IdxBigint, types.IdxNumeric, types.IdxFloat, types.IdxDouble,
		types.IdxDate, types.IdxTime, types.IdxDatetime, types.IdxTimestamp,
	},
	types.IdxShort: {
		types.IdxString, types.IdxInt, types.IdxBigint, types.IdxNumeric, types.IdxFloat, types.IdxDouble,
		types.IdxTime, types.IdxTimestamp,
	},
	types.IdxInt: {
		types.IdxString, types.IdxShort, types.IdxBigint, types.IdxNumeric, types.IdxFloat, types.IdxDouble,
		types.IdxTime, types.IdxTimestamp,
	},
	types.IdxBigint: {
		types.IdxString, types.IdxShort, types.IdxInt, types.IdxNumeric, types.IdxFloat, types.IdxDouble,
		types.IdxTime, types.IdxTimestamp,
	},
	types.IdxNumeric: {
		types.IdxString, types.IdxShort, types.IdxInt, types.IdxBigint, types.IdxFloat, types.IdxDouble,
	},
	types.IdxFloat: {
		types.IdxString, types.IdxShort, types.IdxInt, types.IdxBigint, types.IdxNumeric, types.IdxDouble,
	},
	types.IdxDouble: {
		types.IdxString, types.IdxShort, types.IdxInt, types.IdxBigint, types.IdxNumeric, types.IdxFloat,
	},
	types.IdxDate:      {types.IdxString, types.IdxDatetime, types.IdxTimestamp},
	types.IdxTime:      {types.IdxString},
	types.IdxDatetime:  {types.IdxString, types.IdxDate, types.IdxTime, types.IdxTimestamp},
	types.IdxTimestamp: {types.IdxString, types.IdxDate, types.IdxTime, types.IdxDatetime},
}

// Convertible reports whether the runtime conversion from the type index src
// to the type index dst is allowed.
func Convertible(src, dst int) bool {
	for _, t := range convTargets[src] {
		if t == dst {
			return true
		}
	}
	return false
}

var javaNames = [types.NumIdx]string{
	types.IdxNull:         "Null",
	types.IdxObject:       "Object",
	types.IdxBoolean:      "Boolean",
	types.IdxString:       "String",
	types.IdxShort:        "Short",
	types.IdxInt:          "Int",
	types.IdxBigint:       "Bigint",
	types.IdxNumeric:      "Numeric",
	types.IdxFloat:        "Float",
	types.IdxDouble:       "Double",
	types.IdxDate:         "Date",
	types.IdxTime:         "Time",
	types.IdxDatetime:     "Datetime",
	types.IdxTimestamp:    "Timestamp",
	types.IdxCursor:       "Cursor",
	types.IdxSysRefcursor: "Refcursor",
}

type key struct {
	src, dst *types.Type
}

// store memoizes coercions for the whole process. It is shared by all
// compilations and only ever grows.
type store struct {
	mutex     sync.RWMutex
	coercions map[key]*Coercion
	// missing records pairs without a coercion.
	missing map[key]bool
}

var (
	singleStore *store
	once        sync.Once
)

func coercionStore() *store {
	once.Do(func() {
		singleStore = &store{
			coercions: map[key]*Coercion{},
			missing:   map[key]bool{},
		}
	})
	return singleStore
}

// Get returns the coercion from src to dst, or nil if values of type src
// cannot be used where a dst is expected. Repeated calls with the same types
// return the same *Coercion.
func Get(src, dst *types.Type) *Coercion {
	s := coercionStore()
	k := key{src, dst}

	s.mutex.RLock()
	c, ok := s.coercions[k]
	none := s.missing[k]
	s.mutex.RUnlock()
	if ok || none {
		return c
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()
	// Check if a coercion has been inserted by someone else since we last
	// checked.
	if c, ok := s.coercions[k]; ok {
		return c
	}
	if s.missing[k] {
		return nil
	}
	c = compute(src, dst)
	if c == nil {
		s.missing[k] = true
	} else {
		s.coercions[k] = c
	}
	return c
}

func compute(src, dst *types.Type) *Coercion {
	if src == dst {
		return &Coercion{Kind: Identity, Src: src, Dst: dst}
	}
	if src == types.Null {
		return &Coercion{Kind: Cast, Src: src, Dst: dst}
	}
	if dst == types.Object {
		return &Coercion{Kind: Identity, Src: src, Dst: dst}
	}

	var c *Coercion
	if Convertible(src.Idx, dst.Idx) {
		c = &Coercion{
			Kind: Conversion,
			Src:  src,
			Dst:  dst,
			Func: "conv" + javaNames[src.Idx] + "To" + javaNames[dst.Idx],
		}
	} else if src.Idx == dst.Idx {
		c = &Coercion{Kind: Identity, Src: src, Dst: dst}
	} else {
		return nil
	}

	if dst.IsParamNumeric() {
		return &Coercion{Kind: PrecisionCheck, Src: src, Dst: dst, Inner: c}
	}
	if dst.IsParamString() {
		return &Coercion{Kind: LengthCheck, Src: src, Dst: dst, Inner: c}
	}
	return c
}

// Reversion returns the coercion that brings a value back from the
// destination of c to its source, as needed when a variable is passed to an
// OUT parameter. It returns nil if there is none. A Cast has no reversion:
// its source is the type of null, not of a declared variable.
func Reversion(c *Coercion) *Coercion {
	if c.Kind == Cast {
		return nil
	}
	return Get(c.Dst, c.Src)
}
