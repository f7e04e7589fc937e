// Package dispatch persists audit records asynchronously.
//
// The Dispatcher sits between the capture path and storage. Write hands a
// record to a bounded queue and returns immediately; a fixed pool of workers
// calls Storage.Save once per record with a per-write timeout.
//
// Delivery is best effort: records are dropped
// (with a warning and a metric) when the queue is full or the dispatcher is
// closed, and a failed save is logged and not retried. Close drains whatever
// is queued before returning.
package dispatch
