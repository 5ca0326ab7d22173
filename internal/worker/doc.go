// Package worker consumes job messages from the queue and hands each job id
// to the pipeline.
//
// A Consumer runs a fixed number of goroutines. Each one blocks on Dequeue,
// renews the delivery lease while the job runs, and acknowledges the message
// once the job reached a terminal state. Deliveries whose job could not be
// settled are returned to the queue. A separate loop periodically returns
// deliveries abandoned by crashed workers.
package worker
