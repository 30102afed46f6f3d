package plcsql

// CachedSQL returns the number of SQL statements the compiler has cached
// answers for.
func CachedSQL(c *Compiler) int {
	if c.cache == nil {
		return 0
	}
	return c.cache.len()
}
