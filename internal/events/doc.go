// Package events decouples services from the background task machinery.
// A service emits a TaskRequestEvent; handlers registered on the emitter turn
// it into work.
package events
