package util

// MaxViewLimit caps the limit query parameter of list endpoints.
const MaxViewLimit = 50

const QueryTrue = "true"
