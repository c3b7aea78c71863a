// Package filings stores financial filings and serves them through the
// command dispatcher.
//
// Reads and writes reach the Repository only from dispatcher handlers: the
// Service facade wraps each call in an envelope, submits it and waits. New
// filings get their ids from the allocator in one contiguous block and are
// written with the bulk writer, so a single duplicate accession number costs
// one row instead of the whole batch.
//
// List requests accept an optional CEL filter evaluated per filing. The
// variables are id, source, symbol, form_type, filed_at_ms, period_end_ms,
// now_ms and payload (the decoded JSON payload).
package filings
