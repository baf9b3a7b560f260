package stats

// ValidateBuckets exposes validateBuckets to the external test package.
var ValidateBuckets = validateBuckets
