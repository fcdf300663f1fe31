// Package service contains the use cases of the platform. It sits between the
// HTTP handlers in internal/api and the repositories defined in internal/store.
//
// The root package holds the account service (registration, login, token
// refresh, profile and role management) and the errors shared by every app.
// Each learning app has its own subpackage:
//
//   - vocab: lessons, words, Leitner reviews and word import
//   - video: video lessons, uploads, enrollment, ratings, Q&A and dashboards
//   - reading: reading tests, attempts, scoring and the progress dashboard
//   - toefl: writing and speaking submissions and their AI assessment
//
// Services receive their stores through constructor injection, run multi-step
// writes through store.RunInTransaction, and return the sentinels from this
// package or store for expected failures so the API layer can map them.
package service
