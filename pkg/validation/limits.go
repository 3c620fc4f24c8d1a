package validation

// MaxBodySize caps request bodies. Every body is a couple of short strings.
const MaxBodySize = 16 * 1024
