// Package domain contains the core business entities of the platform: users,
// vocabulary lessons and words, video lessons, reading tests and attempts, and
// TOEFL submissions. Entities validate themselves and carry the small pieces of
// pure logic (progress, scoring, formatting) that do not need a store.
package domain
