// Package storage persists project artifacts — source media and caption
// exports — to an object store. The local filesystem backend serves
// development and single-node deployments; the S3 backend serves
// production (and any S3-compatible service via a custom endpoint).
package storage
