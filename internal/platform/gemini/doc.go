// Package gemini implements assessment.Assessor and assessment.Transcriber
// on top of Google's Gemini API.
//
// Prompts are embedded text templates. Each call asks for a JSON object at a
// low temperature; the reply is decoded directly or, when the model wraps it
// in a Markdown fence, after stripping the fence. Transient failures (network
// errors, HTTP 429 and 5xx) are retried with exponential backoff and jitter.
// Malformed replies and blocked content are permanent and returned at once.
package gemini
