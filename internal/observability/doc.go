// Package observability provides console logging and the JSONL event log
// that records every ledger write.
package observability
