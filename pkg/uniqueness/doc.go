// Package uniqueness provides Checkers for unique rules: an in-memory stub
// that simulates a slow lookup, a Redis set lookup and a rate-limiting
// decorator for either.
package uniqueness
