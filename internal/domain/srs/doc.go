// Package srs implements the 8-tick Leitner schedule used for vocabulary.
//
// Each word gets eight reviews. A correct answer pushes the next review out on
// a doubling schedule (1, 2, 4 ... 64 days); an incorrect answer brings it back
// tomorrow. After the eighth review a word with at least six correct answers is
// learned and drops out of the queue.
package srs
