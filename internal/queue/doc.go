// Package queue delivers job ids from producers to conversion workers.
//
// Messages are JSON objects of the form {"jobId": "..."} published to the
// converter-jobs queue. The Redis backend claims messages into a processing
// list with a renewable lease so a crashed worker's job is redelivered; the
// memory backend serves single-process runs and tests.
package queue
