// Package bulk writes batches of rows with one set-based insert and degrades
// to row-by-row inserts when, and only when, the batch was rejected for a
// duplicate key without committing anything.
package bulk
