// Package service implements the submission and status paths of the
// classification pipeline. The dispatcher turns a review text into
// either an immediate cached answer or a queued task; the status
// service answers polling reads. Neither blocks on worker completion.
package service
