// Package bamprovider provides sequential readers over BAM files.
//
// The Provider is an interface for reading a BAM file, locally or from S3.
// NewFakeProvider serves in-memory records for tests.
package bamprovider
