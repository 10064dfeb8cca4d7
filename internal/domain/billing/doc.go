// Package billing holds the events the invoicing side publishes when an
// invoice is finalized. The invoice aggregate itself lives outside this
// service; accounting only consumes the finalized totals.
package billing
