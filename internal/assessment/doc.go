// Package assessment defines the boundary between the TOEFL service and the
// language model that scores writing and speaking responses. The service
// depends only on the Assessor and Transcriber interfaces; the Gemini adapter
// in platform/gemini implements both.
package assessment
