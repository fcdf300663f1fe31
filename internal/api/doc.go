// Package api is the HTTP adapter of the platform. It decodes and validates
// requests for the auth, vocabulary, video, reading and TOEFL apps, calls the
// matching service and maps service errors to status codes and safe messages.
// Every error body has the shape {"error": ..., "trace_id": ...}.
package api
